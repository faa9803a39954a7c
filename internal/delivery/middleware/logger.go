package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"lens/config"
	deliverycontext "lens/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// LoggerMiddleware is the request logger for the auth-facing server. It
// exists instead of an off-the-shelf one because federated callbacks carry
// the authorization code and the correlation token in the query string,
// and neither may reach the logs.
type LoggerMiddleware struct {
	logger *slog.Logger
	debug  bool
}

// NewLoggerMiddleware creates a new logger middleware
func NewLoggerMiddleware(logger *slog.Logger, config *config.Config) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
		debug:  config.Env.Debug,
	}
}

// Handle logs one line per request after the handler chain finishes.
func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		m.logRequest(c, start, err)

		return err
	}
}

func (m *LoggerMiddleware) logRequest(c echo.Context, start time.Time, err error) {
	req := c.Request()
	res := c.Response()

	fields := []slog.Attr{
		slog.String("request_id", deliverycontext.GetRequestID(c)),
		slog.String("method", req.Method),
		slog.String("uri", req.URL.Path),
		slog.Int("status", res.Status),
		slog.Duration("latency", time.Since(start)),
		slog.String("remote_ip", c.RealIP()),
	}

	if len(req.URL.RawQuery) > 0 {
		fields = append(fields, slog.String("query", redactQuery(req.URL.Query())))
	}

	// Client details are only worth the volume while debugging
	if m.debug {
		fields = append(fields,
			slog.String("user_agent", req.UserAgent()),
			slog.String("time", start.Format(time.RFC3339)),
		)
	}

	if err != nil {
		fields = append(fields, slog.Any("error", err))
	}

	logLevel := slog.LevelInfo
	switch {
	case res.Status >= 500:
		logLevel = slog.LevelError
	case res.Status >= 400:
		logLevel = slog.LevelWarn
	}

	m.logger.LogAttrs(context.Background(), logLevel, "HTTP Request", fields...)
}

// sensitiveQueryKeys are query parameters whose values never reach the logs.
var sensitiveQueryKeys = map[string]struct{}{
	"code":  {},
	"state": {},
}

func redactQuery(query url.Values) string {
	redacted := make(url.Values, len(query))
	for key, values := range query {
		if _, sensitive := sensitiveQueryKeys[key]; sensitive {
			redacted.Set(key, "[redacted]")

			continue
		}
		redacted[key] = values
	}

	return redacted.Encode()
}
