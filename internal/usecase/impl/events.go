package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "lens/internal/delivery/context"
	"lens/internal/domain/service"

	"github.com/google/uuid"
)

// publishAuthEvent emits an audit event without letting a publisher failure
// disturb the operation that produced it.
func publishAuthEvent(ctx context.Context, publisher service.EventPublisher, logger *slog.Logger, event *service.AuthEvent) {
	if publisher == nil {
		return
	}
	logger = deliverycontext.GetLoggerOrDefault(ctx, logger)

	event.EventID = uuid.New().String()
	event.OccurredAt = time.Now().UTC()
	if event.RequestID == "" {
		event.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	}

	if err := publisher.PublishAuthEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish auth event",
			slog.String("event_type", event.Type),
			slog.String("error", err.Error()),
		)
	}
}
