package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lens/config"
	deliverycontext "lens/internal/delivery/context"
	"lens/internal/domain/constants"
	"lens/internal/domain/repository"
	"lens/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// newRetryableError wraps an error as retryable
func newRetryableError(err error) error {
	return &retryableError{err: err}
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// seenTTL bounds the dedup window. Pub/Sub redelivers within minutes, so a
// day is comfortably past any redelivery horizon.
const seenTTL = 24 * time.Hour

// AuditHandler handles Pub/Sub push deliveries of authentication audit
// events and writes them to the structured audit log.
type AuditHandler struct {
	verifyPushAuth bool
	audience       string
	logger         *slog.Logger
	seen           repository.StateStorage
}

// AuditHandlerParams holds dependencies for the AuditHandler
type AuditHandlerParams struct {
	fx.In

	Config  *config.Config
	Logger  *slog.Logger
	Storage repository.StateStorage
}

// NewAuditHandler creates a new Pub/Sub push handler for audit events
func NewAuditHandler(params AuditHandlerParams) *AuditHandler {
	// Verify push auth only for the real Google provider outside development
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	audience := ""
	if params.Config.PubSub != nil {
		audience = params.Config.PubSub.Audience
	}

	return &AuditHandler{
		verifyPushAuth: verifyPushAuth,
		audience:       audience,
		logger:         params.Logger,
		seen:           params.Storage,
	}
}

// HandlePush handles incoming Pub/Sub push messages. Malformed deliveries
// are rejected, duplicates are acknowledged without a second log line, and
// only transient failures return a 5xx so Pub/Sub retries.
func (h *AuditHandler) HandlePush(c echo.Context) error {
	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request(), h.audience); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.AuthEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse audit event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(c, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))

	if err := h.recordEvent(reqLogger, &event); err != nil {
		reqLogger.Error("[Worker] Failed to record audit event",
			slog.String("event_id", event.EventID),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 triggers a Pub/Sub retry; anything unretryable is ACKed so a
		// poison message cannot loop forever.
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *AuditHandler) extractRequestID(c echo.Context, pushMsg *PubSubMessage, event *service.AuthEvent) string {
	// 1. Try message attributes (from Pub/Sub)
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	// 2. Try event field (from JSON payload)
	if event.RequestID != "" {
		return event.RequestID
	}

	// 3. Try existing context (from RequestIDMiddleware via X-Request-Id header)
	if requestID := deliverycontext.GetRequestIDFromContext(c.Request().Context()); requestID != "" {
		return requestID
	}

	// 4. Generate new UUID as fallback
	return uuid.New().String()
}

// recordEvent writes one audit line per unique event. Redeliveries of an
// already-seen event ID are acknowledged silently.
func (h *AuditHandler) recordEvent(logger *slog.Logger, event *service.AuthEvent) error {
	if event.Type == "" {
		return errors.New("audit event carries no type")
	}

	if event.EventID != "" {
		if _, err := h.seen.Get(event.EventID); err == nil {
			logger.Debug("[Worker] Duplicate audit event acknowledged",
				slog.String("event_id", event.EventID),
			)

			return nil
		}

		if err := h.seen.Set(event.EventID, []byte(event.Type), seenTTL); err != nil {
			return newRetryableError(errors.Wrap(err, "mark audit event as seen"))
		}
	}

	logger.Info("[Worker] Audit event",
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.Type),
		slog.String("subject", event.Subject),
		slog.String("email", event.Email),
		slog.String("provider", event.Provider),
		slog.Time("occurred_at", event.OccurredAt),
	)

	return nil
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request, audience string) error {
	// Get the Authorization header
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	// Extract Bearer token
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// Fall back to the push endpoint URL when no audience is configured
	if audience == "" {
		scheme := "https"
		if req.TLS == nil {
			scheme = "http" // For local development
		}
		audience = fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)
	}

	// Validate the token using Google's ID token validator
	ctx := req.Context()
	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	// The issuer should be accounts.google.com
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	// Verify email is verified (if email claim exists)
	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
