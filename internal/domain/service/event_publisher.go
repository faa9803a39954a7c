package service

import (
	"context"
	"time"
)

// Audit event types published on authentication lifecycle transitions.
const (
	AuthEventSignedUp         = "user.signed_up"
	AuthEventConfirmed        = "user.confirmed"
	AuthEventSignedIn         = "user.signed_in"
	AuthEventSignedOut        = "user.signed_out"
	AuthEventIdentityLinked   = "identity.linked"
	AuthEventIdentityUnlinked = "identity.unlinked"
)

// AuthEvent is the audit record of one authentication lifecycle transition.
// Events are observational: publishing failures are logged and never fail
// the operation that produced them.
type AuthEvent struct {
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Subject    string    `json:"subject,omitempty"`
	Email      string    `json:"email,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing audit events to a message queue
type EventPublisher interface {
	// PublishAuthEvent publishes an authentication audit event for async processing
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
