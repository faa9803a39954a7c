package impl

import (
	"context"
	"log/slog"
	"net/url"

	"lens/config"
	deliverycontext "lens/internal/delivery/context"
	"lens/internal/domain/entity"
	"lens/internal/domain/service"
	"lens/internal/usecase"

	"go.uber.org/fx"
)

// authManager is the façade the delivery layer talks to. It composes the
// identity provider, the OAuth flow, the linking workflow, and the backend
// request helper; tokens live in the session store, never here.
type authManager struct {
	identity  service.IdentityProvider
	flow      service.OAuthFlow
	linking   usecase.LinkingUsecase
	qrcode    service.QRCodeService
	requester service.AuthenticatedRequester
	publisher service.EventPublisher
	provider  string
	logger    *slog.Logger
}

// AuthManagerParams holds dependencies for AuthManager, injected by Fx.
type AuthManagerParams struct {
	fx.In

	Identity  service.IdentityProvider
	Flow      service.OAuthFlow
	Linking   usecase.LinkingUsecase
	QRCode    service.QRCodeService
	Requester service.AuthenticatedRequester
	Publisher service.EventPublisher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAuthManager creates the authentication façade.
func NewAuthManager(params AuthManagerParams) usecase.AuthUsecase {
	provider := "google"
	if params.Config.OAuth != nil && params.Config.OAuth.FederatedProvider != "" {
		provider = params.Config.OAuth.FederatedProvider
	}

	return &authManager{
		identity:  params.Identity,
		flow:      params.Flow,
		linking:   params.Linking,
		qrcode:    params.QRCode,
		requester: params.Requester,
		publisher: params.Publisher,
		provider:  provider,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (m *authManager) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, m.logger)
}

// SignUp registers a new account with the identity provider.
func (m *authManager) SignUp(ctx context.Context, input usecase.SignUpInput) (*usecase.SignUpOutput, error) {
	m.log(ctx).Info("Starting sign-up", slog.String("username", input.Username))

	result, err := m.identity.SignUp(ctx, entity.Credential{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		return nil, err
	}

	publishAuthEvent(ctx, m.publisher, m.logger, &service.AuthEvent{
		Type:  service.AuthEventSignedUp,
		Email: input.Username,
	})

	return &usecase.SignUpOutput{
		UserConfirmed: result.UserConfirmed,
		Destination:   result.Destination,
	}, nil
}

// ConfirmSignUp confirms a registration with the emailed code.
func (m *authManager) ConfirmSignUp(ctx context.Context, input usecase.ConfirmSignUpInput) error {
	if err := m.identity.ConfirmSignUp(ctx, input.Username, input.Code); err != nil {
		return err
	}

	publishAuthEvent(ctx, m.publisher, m.logger, &service.AuthEvent{
		Type:  service.AuthEventConfirmed,
		Email: input.Username,
	})

	return nil
}

// SignIn establishes a session from a credential.
func (m *authManager) SignIn(ctx context.Context, input usecase.SignInInput) (entity.Session, error) {
	m.log(ctx).Debug("Starting sign-in", slog.String("username", input.Username))

	_, err := m.identity.SignIn(ctx, entity.Credential{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		m.log(ctx).Warn("Sign-in failed",
			slog.String("username", input.Username),
			slog.String("error", err.Error()),
		)

		return entity.InvalidSession(), err
	}

	sess, err := m.identity.CurrentSession(ctx)
	if err != nil {
		return entity.InvalidSession(), err
	}

	if sess.IsValid {
		publishAuthEvent(ctx, m.publisher, m.logger, &service.AuthEvent{
			Type:     service.AuthEventSignedIn,
			Subject:  sess.Claims.Subject,
			Email:    sess.Claims.Email,
			Provider: entity.ProviderEmail.String(),
		})
	}

	return sess, nil
}

// SignOut ends the current session. The provider call and the audit event
// are best effort; the local session is always gone afterwards.
func (m *authManager) SignOut(ctx context.Context) error {
	sess, err := m.identity.CurrentSession(ctx)
	if err != nil {
		return err
	}

	if err := m.identity.SignOut(ctx); err != nil {
		return err
	}

	if sess.IsValid {
		publishAuthEvent(ctx, m.publisher, m.logger, &service.AuthEvent{
			Type:    service.AuthEventSignedOut,
			Subject: sess.Claims.Subject,
			Email:   sess.Claims.Email,
		})
	}

	return nil
}

// CurrentSession projects the current session.
func (m *authManager) CurrentSession(ctx context.Context) (entity.Session, error) {
	return m.identity.CurrentSession(ctx)
}

// IsAuthenticated reports whether a valid session exists right now.
func (m *authManager) IsAuthenticated(ctx context.Context) bool {
	sess, err := m.identity.CurrentSession(ctx)

	return err == nil && sess.IsValid
}

// BeginFederatedLogin starts the federated sign-in round trip.
func (m *authManager) BeginFederatedLogin(ctx context.Context) (string, error) {
	return m.flow.BuildAuthorizationURL(entity.PendingActionLogin)
}

// FederatedSignInQR starts a federated sign-in and renders the authorize URL
// as a PNG QR code for a second device to pick up.
func (m *authManager) FederatedSignInQR(ctx context.Context) ([]byte, error) {
	authorizeURL, err := m.flow.BuildAuthorizationURL(entity.PendingActionLogin)
	if err != nil {
		return nil, err
	}

	return m.qrcode.GenerateSignInQR(authorizeURL)
}

// CompleteFederatedCallback settles the provider redirect. A login callback
// has already established the session; a link callback is handed to the
// linking workflow and leaves the session as it was.
func (m *authManager) CompleteFederatedCallback(ctx context.Context, query url.Values) (*usecase.CallbackOutcome, error) {
	result, err := m.flow.HandleCallback(ctx, query)
	if err != nil {
		return nil, err
	}

	if result.Action == entity.PendingActionLinkAccount {
		if err := m.linking.CompleteLink(ctx, result.Tokens); err != nil {
			return nil, err
		}
	}

	sess, err := m.identity.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}

	if result.Action == entity.PendingActionLogin && sess.IsValid {
		publishAuthEvent(ctx, m.publisher, m.logger, &service.AuthEvent{
			Type:     service.AuthEventSignedIn,
			Subject:  sess.Claims.Subject,
			Email:    sess.Claims.Email,
			Provider: m.provider,
		})
	}

	return &usecase.CallbackOutcome{Action: result.Action, Session: sess}, nil
}

// MakeAuthenticatedRequest issues a backend request with the current bearer
// token attached.
func (m *authManager) MakeAuthenticatedRequest(ctx context.Context, method, path string, body, out any) error {
	return m.requester.MakeAuthenticatedRequest(ctx, method, path, body, out)
}
