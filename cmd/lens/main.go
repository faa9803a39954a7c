package main

import (
	"context"
	"log/slog"
	"os"

	"lens/config"
	"lens/internal/delivery"
	"lens/internal/delivery/http"
	"lens/internal/delivery/http/middleware"
	"lens/internal/delivery/http/router/handler"
	"lens/internal/domain/repository"
	"lens/internal/domain/service"
	"lens/internal/infra/auth"
	"lens/internal/infra/backend"
	"lens/internal/infra/idp"
	logs "lens/internal/infra/log"
	"lens/internal/infra/oauth"
	"lens/internal/infra/pubsub"
	"lens/internal/infra/qrcode"
	"lens/internal/infra/session"
	"lens/internal/infra/storage"
	"lens/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			newStateStorage,
			session.NewStore,
		),
		pubsub.Module,
	)
}

// newStateStorage creates the key-value store backing sessions and
// OAuth handshakes, namespaced so parallel managers can share one store.
func newStateStorage(cfg *config.Config) repository.StateStorage {
	namespace := "lens"
	if cfg.Session != nil && cfg.Session.Namespace != "" {
		namespace = cfg.Session.Namespace
	}

	return storage.NewMemoryStorage(namespace)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newPasswordPolicy,
			auth.NewTokenCodec,
			idp.NewClient,
			oauth.NewFlow,
			fx.Annotate(
				backend.NewClient,
				fx.As(new(service.AccountAPI)),
				fx.As(new(service.AuthenticatedRequester)),
			),
			newQRCodeService,
		),
	)
}

// newPasswordPolicy creates the password policy with dependency injection
func newPasswordPolicy(cfg *config.Config) service.PasswordPolicy {
	return auth.NewPasswordPolicy(cfg.PasswordPolicy)
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewLinkingService,
			impl.NewAuthManager,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewAccountHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
