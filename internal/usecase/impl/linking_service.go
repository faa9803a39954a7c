package impl

import (
	"context"
	"log/slog"
	"strings"

	"lens/config"
	deliverycontext "lens/internal/delivery/context"
	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"
	"lens/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type linkingService struct {
	identity   service.IdentityProvider
	flow       service.OAuthFlow
	accountAPI service.AccountAPI
	policy     service.PasswordPolicy
	codec      service.TokenCodec
	publisher  service.EventPublisher
	provider   string
	logger     *slog.Logger
}

// LinkingServiceParams holds dependencies for LinkingService, injected by Fx.
type LinkingServiceParams struct {
	fx.In

	Identity   service.IdentityProvider
	Flow       service.OAuthFlow
	AccountAPI service.AccountAPI
	Policy     service.PasswordPolicy
	Codec      service.TokenCodec
	Publisher  service.EventPublisher
	Config     *config.Config
	Logger     *slog.Logger
}

// NewLinkingService creates the account-linking workflow.
func NewLinkingService(params LinkingServiceParams) usecase.LinkingUsecase {
	provider := "google"
	if params.Config.OAuth != nil && params.Config.OAuth.FederatedProvider != "" {
		provider = params.Config.OAuth.FederatedProvider
	}

	return &linkingService{
		identity:   params.Identity,
		flow:       params.Flow,
		accountAPI: params.AccountAPI,
		policy:     params.Policy,
		codec:      params.Codec,
		publisher:  params.Publisher,
		provider:   provider,
		logger:     params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (s *linkingService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

// BeginLink checks the linking preconditions in order, failing fast with no
// side effects, then begins the account-linking redirect.
func (s *linkingService) BeginLink(ctx context.Context) (*usecase.LinkStart, error) {
	sess, err := s.identity.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.IsValid {
		return nil, domainerrors.ErrNotAuthenticated
	}

	if !s.flow.Available() {
		return nil, domainerrors.ErrProviderUnavailable
	}

	if sess.Claims.Email == "" || !sess.Claims.EmailVerified {
		return nil, domainerrors.ErrMissingEmail
	}

	// Linked state comes from the claims, never from a cached flag.
	if sess.Claims.HasLinked(s.provider) {
		s.log(ctx).Debug("Identity already linked, no redirect needed",
			slog.String("provider", s.provider),
		)

		return &usecase.LinkStart{AlreadyLinked: true}, nil
	}

	authorizeURL, err := s.flow.BuildAuthorizationURL(entity.PendingActionLinkAccount)
	if err != nil {
		return nil, err
	}

	return &usecase.LinkStart{AuthorizeURL: authorizeURL}, nil
}

// CompleteLink finishes the round trip with the external identity's tokens.
// The external email must match the signed-in account before the backend is
// asked to link anything.
func (s *linkingService) CompleteLink(ctx context.Context, tokens entity.TokenSet) error {
	sess, err := s.identity.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.IsValid {
		return domainerrors.ErrNotAuthenticated
	}

	external, err := s.codec.Decode(tokens.IDToken)
	if err != nil {
		return errors.Wrap(err, "decode external identity token")
	}

	if !strings.EqualFold(external.Email, sess.Claims.Email) {
		return domainerrors.ErrEmailMismatch
	}

	if err := s.accountAPI.LinkIdentity(ctx, s.provider, tokens.IDToken); err != nil {
		return err
	}

	s.log(ctx).Info("Federated identity linked", slog.String("provider", s.provider))
	publishAuthEvent(ctx, s.publisher, s.logger, &service.AuthEvent{
		Type:     service.AuthEventIdentityLinked,
		Subject:  sess.Claims.Subject,
		Email:    sess.Claims.Email,
		Provider: s.provider,
	})

	return nil
}

// Unlink optimistically calls the backend and classifies its answer. A
// password-required answer starts a sub-flow rather than failing; a "nothing
// linked" answer reconciles local state instead of erroring.
func (s *linkingService) Unlink(ctx context.Context, providerName string) (*usecase.UnlinkOutcome, error) {
	err := s.accountAPI.UnlinkIdentity(ctx, providerName)
	switch {
	case err == nil:
		return s.settleUnlinked(ctx, providerName)

	case errors.Is(err, domainerrors.ErrPasswordRequired):
		s.log(ctx).Info("Unlink needs a password set first", slog.String("provider", providerName))

		return &usecase.UnlinkOutcome{State: usecase.UnlinkStatePasswordSetupRequired}, nil

	case errors.Is(err, domainerrors.ErrNoLinkedIdentity):
		return s.reconcileAlreadyUnlinked(ctx)

	default:
		return nil, err
	}
}

// SetPasswordAndUnlink resumes a password-required unlink. The password is
// validated locally before any network call, set on the account, and then
// the unlink is retried exactly once. That retry is terminal: its failure,
// including another password-required answer, is surfaced as-is.
func (s *linkingService) SetPasswordAndUnlink(ctx context.Context, providerName, newPassword string) (*usecase.UnlinkOutcome, error) {
	if err := s.policy.Validate(newPassword); err != nil {
		return nil, err
	}

	if err := s.accountAPI.SetPassword(ctx, newPassword); err != nil {
		return nil, err
	}

	err := s.accountAPI.UnlinkIdentity(ctx, providerName)
	switch {
	case err == nil:
		return s.settleUnlinked(ctx, providerName)

	case errors.Is(err, domainerrors.ErrNoLinkedIdentity):
		return s.reconcileAlreadyUnlinked(ctx)

	default:
		return nil, err
	}
}

func (s *linkingService) settleUnlinked(ctx context.Context, providerName string) (*usecase.UnlinkOutcome, error) {
	claims := s.refreshClaims(ctx)

	s.log(ctx).Info("Federated identity unlinked", slog.String("provider", providerName))
	event := &service.AuthEvent{
		Type:     service.AuthEventIdentityUnlinked,
		Provider: providerName,
	}
	if claims != nil {
		event.Subject = claims.Subject
		event.Email = claims.Email
	}
	publishAuthEvent(ctx, s.publisher, s.logger, event)

	return &usecase.UnlinkOutcome{State: usecase.UnlinkStateUnlinked, Claims: claims}, nil
}

// reconcileAlreadyUnlinked turns a "nothing linked" answer into a
// success-shaped result: local state was stale, refreshed claims carry the
// corrected identity list.
func (s *linkingService) reconcileAlreadyUnlinked(ctx context.Context) (*usecase.UnlinkOutcome, error) {
	return &usecase.UnlinkOutcome{
		State:  usecase.UnlinkStateAlreadyUnlinked,
		Claims: s.refreshClaims(ctx),
	}, nil
}

func (s *linkingService) refreshClaims(ctx context.Context) *entity.Claims {
	sess, err := s.identity.RefreshSession(ctx)
	if err != nil || !sess.IsValid {
		return nil
	}

	return sess.Claims
}
