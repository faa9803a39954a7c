// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"net/url"

	"lens/internal/domain/entity"
)

// --- Input DTOs ---

// SignUpInput defines the data required to register a new account.
type SignUpInput struct {
	Username string
	Password string
}

// ConfirmSignUpInput carries the emailed verification code for a pending
// registration.
type ConfirmSignUpInput struct {
	Username string
	Code     string
}

// SignInInput defines the data required to establish a session.
type SignInInput struct {
	Username string
	Password string
}

// --- Output DTOs ---

// SignUpOutput returns the registration outcome.
type SignUpOutput struct {
	UserConfirmed bool
	// Destination is the masked address the confirmation code went to.
	Destination string
}

// CallbackOutcome reports how a settled federated callback changed state.
// For a login the session is freshly established; for an account link the
// session is the one that was already current.
type CallbackOutcome struct {
	Action  entity.PendingAction
	Session entity.Session
}

// AuthUsecase defines the interface for authentication and session
// operations. This is the contract that the delivery layer depends on.
type AuthUsecase interface {
	// SignUp registers a new account with the identity provider.
	SignUp(ctx context.Context, input SignUpInput) (*SignUpOutput, error)

	// ConfirmSignUp confirms a registration with the emailed code.
	ConfirmSignUp(ctx context.Context, input ConfirmSignUpInput) error

	// SignIn establishes a session from a credential.
	SignIn(ctx context.Context, input SignInInput) (entity.Session, error)

	// SignOut ends the current session. Safe to call when signed out.
	SignOut(ctx context.Context) error

	// CurrentSession projects the current session; absence is a normal
	// result with IsValid false, never an error.
	CurrentSession(ctx context.Context) (entity.Session, error)

	// IsAuthenticated reports whether a valid session exists right now.
	IsAuthenticated(ctx context.Context) bool

	// BeginFederatedLogin starts the federated sign-in round trip and
	// returns the authorize URL to navigate to.
	BeginFederatedLogin(ctx context.Context) (string, error)

	// FederatedSignInQR starts a federated sign-in and renders its
	// authorize URL as a PNG QR code for a second device to pick up.
	FederatedSignInQR(ctx context.Context) ([]byte, error)

	// CompleteFederatedCallback settles the provider redirect, finishing
	// either a login or an account link depending on the pending action.
	CompleteFederatedCallback(ctx context.Context, query url.Values) (*CallbackOutcome, error)

	// MakeAuthenticatedRequest issues a backend request with the current
	// bearer token attached. It never retries.
	MakeAuthenticatedRequest(ctx context.Context, method, path string, body, out any) error
}
