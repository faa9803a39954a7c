package worker

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"lens/config"
	"lens/internal/delivery"
	"lens/internal/delivery/middleware"
	"lens/internal/delivery/worker/handler"
	"lens/internal/domain/lifecycle"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	slogecho "github.com/samber/slog-echo"
	"go.uber.org/fx"
)

type workerServer struct {
	cfg    *config.Config
	logger *slog.Logger
	server *echo.Echo
}

// ServerParams holds dependencies for the worker server
type ServerParams struct {
	fx.In

	Lc           fx.Lifecycle
	Cfg          *config.Config
	Logger       *slog.Logger
	AuditHandler *handler.AuditHandler
}

// NewServer creates the HTTP server that receives Pub/Sub push deliveries.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	e := echo.New()
	e.HideBanner = true

	// Recover first so a panicking handler still NACKs cleanly, then
	// request IDs so the logger middleware can pick them up.
	e.Use(echomiddleware.Recover())

	requestIDMiddleware := middleware.NewRequestIDMiddleware(params.Logger)
	e.Use(requestIDMiddleware.Process)

	// Push bodies carry no credentials, so the stock request logger is
	// enough here; the BFF side needs the redacting one.
	e.Use(slogecho.New(params.Logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Pub/Sub push subscriptions POST here
	e.POST("/push", params.AuditHandler.HandlePush)

	srv := &workerServer{
		cfg:    params.Cfg,
		logger: params.Logger,
		server: e,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// Serve starts the worker HTTP server. The worker listens on its own port
// so both binaries can run side by side on one machine.
func (s *workerServer) Serve(ctx context.Context) error {
	port := s.cfg.Worker.Port
	if port == 0 {
		port = s.cfg.HTTP.Port
	}

	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
	s.logger.Info("Starting Worker HTTP server", slog.String("host_port", hostPort))
	if err := s.server.Start(hostPort); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// stop gracefully shuts down the worker server
func (s *workerServer) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down Worker HTTP server")

	return errors.WithStack(s.server.Shutdown(shutdownCtx))
}
