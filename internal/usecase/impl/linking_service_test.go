package impl

import (
	"context"
	"testing"

	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"
	"lens/internal/infra/auth"
	"lens/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinkingService(identity *fakeIdentity, flow *fakeFlow, api *fakeAccountAPI, publisher *fakePublisher) usecase.LinkingUsecase {
	cfg := newTestConfig()

	return NewLinkingService(LinkingServiceParams{
		Identity:   identity,
		Flow:       flow,
		AccountAPI: api,
		Policy:     auth.NewPasswordPolicy(cfg.PasswordPolicy),
		Codec:      auth.NewTokenCodec(),
		Publisher:  publisher,
		Config:     cfg,
		Logger:     newDiscardLogger(),
	})
}

func TestLinkingService_BeginLink(t *testing.T) {
	identity := newFakeIdentity(validSession(testClaims()))
	flow := newFakeFlow()
	svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

	start, err := svc.BeginLink(context.Background())

	require.NoError(t, err)
	assert.False(t, start.AlreadyLinked)
	assert.Equal(t, flow.authorizeURL, start.AuthorizeURL)
	assert.Equal(t, entity.PendingActionLinkAccount, flow.lastAction)
	assert.Equal(t, 1, flow.buildCalls)
}

func TestLinkingService_BeginLinkRequiresSession(t *testing.T) {
	identity := newFakeIdentity(entity.InvalidSession())
	flow := newFakeFlow()
	svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

	_, err := svc.BeginLink(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
	assert.Zero(t, flow.buildCalls, "an unauthenticated caller must not start a handshake")
}

func TestLinkingService_BeginLinkWithoutVerifiedEmail(t *testing.T) {
	tests := []struct {
		name string
		edit func(claims *entity.Claims)
	}{
		{name: "email missing", edit: func(claims *entity.Claims) { claims.Email = "" }},
		{name: "email unverified", edit: func(claims *entity.Claims) { claims.EmailVerified = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := testClaims()
			tt.edit(claims)
			identity := newFakeIdentity(validSession(claims))
			flow := newFakeFlow()
			svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

			_, err := svc.BeginLink(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrMissingEmail)
			assert.Zero(t, flow.buildCalls, "a failed precondition must not start a handshake")
		})
	}
}

func TestLinkingService_BeginLinkPreconditionOrder(t *testing.T) {
	t.Run("unauthenticated wins over unavailable provider", func(t *testing.T) {
		identity := newFakeIdentity(entity.InvalidSession())
		flow := newFakeFlow()
		flow.available = false
		svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

		_, err := svc.BeginLink(context.Background())

		assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
	})

	t.Run("unavailable provider wins over missing email", func(t *testing.T) {
		claims := testClaims()
		claims.Email = ""
		identity := newFakeIdentity(validSession(claims))
		flow := newFakeFlow()
		flow.available = false
		svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

		_, err := svc.BeginLink(context.Background())

		assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
	})
}

func TestLinkingService_BeginLinkAlreadyLinked(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	flow := newFakeFlow()
	svc := newTestLinkingService(identity, flow, newFakeAccountAPI(), &fakePublisher{})

	start, err := svc.BeginLink(context.Background())

	require.NoError(t, err)
	assert.True(t, start.AlreadyLinked)
	assert.Empty(t, start.AuthorizeURL)
	assert.Zero(t, flow.buildCalls, "an already-linked account needs no redirect")
}

func TestLinkingService_CompleteLink(t *testing.T) {
	identity := newFakeIdentity(validSession(testClaims()))
	api := newFakeAccountAPI()
	publisher := &fakePublisher{}
	svc := newTestLinkingService(identity, newFakeFlow(), api, publisher)

	// The provider reports emails in its own casing.
	externalToken := buildIDToken(t, "google-123", "TARO@example.com")
	err := svc.CompleteLink(context.Background(), entity.TokenSet{IDToken: externalToken})

	require.NoError(t, err)
	assert.Equal(t, 1, api.linkCalls)
	assert.Equal(t, "Google", api.lastLinkProvider)
	assert.Equal(t, externalToken, api.lastLinkToken)
	assert.Equal(t, []string{service.AuthEventIdentityLinked}, publisher.eventTypes())
}

func TestLinkingService_CompleteLinkEmailMismatch(t *testing.T) {
	identity := newFakeIdentity(validSession(testClaims()))
	api := newFakeAccountAPI()
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	externalToken := buildIDToken(t, "google-123", "someone.else@example.com")
	err := svc.CompleteLink(context.Background(), entity.TokenSet{IDToken: externalToken})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrEmailMismatch)
	assert.Zero(t, api.linkCalls, "a mismatched external email must never reach the backend")
}

func TestLinkingService_CompleteLinkRequiresSession(t *testing.T) {
	identity := newFakeIdentity(entity.InvalidSession())
	api := newFakeAccountAPI()
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	err := svc.CompleteLink(context.Background(), entity.TokenSet{IDToken: buildIDToken(t, "google-123", "taro@example.com")})

	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
	assert.Zero(t, api.linkCalls)
}

func TestLinkingService_Unlink(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	refreshed := validSession(testClaims())
	identity.refreshed = &refreshed
	api := newFakeAccountAPI()
	publisher := &fakePublisher{}
	svc := newTestLinkingService(identity, newFakeFlow(), api, publisher)

	outcome, err := svc.Unlink(context.Background(), "google")

	require.NoError(t, err)
	assert.Equal(t, usecase.UnlinkStateUnlinked, outcome.State)
	assert.Equal(t, 1, api.unlinkCalls)
	assert.Equal(t, "google", api.lastUnlinkProvider)
	assert.Equal(t, 1, identity.refreshCalls, "claims must be refreshed so the linked list is current")
	require.NotNil(t, outcome.Claims)
	assert.Empty(t, outcome.Claims.LinkedIdentities)
	assert.Equal(t, []string{service.AuthEventIdentityUnlinked}, publisher.eventTypes())
}

func TestLinkingService_UnlinkPasswordRequiredThenSetPassword(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	refreshed := validSession(testClaims())
	identity.refreshed = &refreshed
	api := newFakeAccountAPI(domainerrors.ErrPasswordRequired, nil)
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	outcome, err := svc.Unlink(context.Background(), "google")

	require.NoError(t, err, "needing a password is an outcome, not a failure")
	assert.Equal(t, usecase.UnlinkStatePasswordSetupRequired, outcome.State)
	assert.Equal(t, 1, api.unlinkCalls)
	assert.Zero(t, api.setPasswordCalls)

	outcome, err = svc.SetPasswordAndUnlink(context.Background(), "google", "Sturdy-Pass1")

	require.NoError(t, err)
	assert.Equal(t, usecase.UnlinkStateUnlinked, outcome.State)
	assert.Equal(t, 2, api.unlinkCalls)
	assert.Equal(t, 1, api.setPasswordCalls)
	assert.Equal(t, "Sturdy-Pass1", api.lastPassword)
}

func TestLinkingService_UnlinkPasswordRequiredTwiceIsTerminal(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	api := newFakeAccountAPI(
		domainerrors.ErrPasswordRequired,
		domainerrors.ErrPasswordRequired.WrapMessage("still no usable password"),
	)
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	outcome, err := svc.Unlink(context.Background(), "google")
	require.NoError(t, err)
	require.Equal(t, usecase.UnlinkStatePasswordSetupRequired, outcome.State)

	outcome, err = svc.SetPasswordAndUnlink(context.Background(), "google", "Sturdy-Pass1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrPasswordRequired)
	assert.Nil(t, outcome)
	assert.Equal(t, 2, api.unlinkCalls, "the retry is terminal, there is no third attempt")
	assert.Equal(t, 1, api.setPasswordCalls)
}

func TestLinkingService_SetPasswordAndUnlinkValidatesLocally(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	api := newFakeAccountAPI()
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	_, err := svc.SetPasswordAndUnlink(context.Background(), "google", "weak")

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Zero(t, api.setPasswordCalls, "a rejected password must never leave the client")
	assert.Zero(t, api.unlinkCalls)
}

func TestLinkingService_SetPasswordFailureSkipsRetry(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	api := newFakeAccountAPI()
	api.setPasswordErr = domainerrors.NewBackendCallError(500, "password service down", "")
	svc := newTestLinkingService(identity, newFakeFlow(), api, &fakePublisher{})

	_, err := svc.SetPasswordAndUnlink(context.Background(), "google", "Sturdy-Pass1")

	require.Error(t, err)
	assert.Equal(t, 1, api.setPasswordCalls)
	assert.Zero(t, api.unlinkCalls, "unlink must not be retried when the password was not set")
}

func TestLinkingService_UnlinkAlreadyUnlinked(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	refreshed := validSession(testClaims())
	identity.refreshed = &refreshed
	api := newFakeAccountAPI(domainerrors.ErrNoLinkedIdentity)
	publisher := &fakePublisher{}
	svc := newTestLinkingService(identity, newFakeFlow(), api, publisher)

	outcome, err := svc.Unlink(context.Background(), "google")

	require.NoError(t, err, "stale local state reconciles instead of failing")
	assert.Equal(t, usecase.UnlinkStateAlreadyUnlinked, outcome.State)
	assert.Equal(t, 1, identity.refreshCalls)
	require.NotNil(t, outcome.Claims)
	assert.Empty(t, outcome.Claims.LinkedIdentities)
	assert.Empty(t, publisher.eventTypes(), "nothing was unlinked, so nothing is audited")
}

func TestLinkingService_UnlinkBackendFailure(t *testing.T) {
	identity := newFakeIdentity(validSession(linkedTestClaims()))
	api := newFakeAccountAPI(domainerrors.NewBackendCallError(500, "unlink worker crashed", ""))
	publisher := &fakePublisher{}
	svc := newTestLinkingService(identity, newFakeFlow(), api, publisher)

	outcome, err := svc.Unlink(context.Background(), "google")

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Zero(t, identity.refreshCalls)
	assert.Empty(t, publisher.eventTypes())

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "unlink worker crashed", appErr.Message())
}
