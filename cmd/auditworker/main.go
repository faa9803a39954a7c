package main

import (
	"context"
	"log/slog"
	"os"

	"lens/config"
	"lens/internal/delivery"
	"lens/internal/delivery/worker"
	"lens/internal/delivery/worker/handler"
	"lens/internal/domain/repository"
	logs "lens/internal/infra/log"
	"lens/internal/infra/storage"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		newDedupStorage,
	)
}

// newDedupStorage creates the store that remembers already-acknowledged
// event IDs so Pub/Sub redeliveries log each event once.
func newDedupStorage(cfg *config.Config) repository.StateStorage {
	namespace := "audit"
	if cfg.Session != nil && cfg.Session.Namespace != "" {
		namespace = cfg.Session.Namespace + ":audit"
	}

	return storage.NewMemoryStorage(namespace)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuditHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				worker.NewServer,
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

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
