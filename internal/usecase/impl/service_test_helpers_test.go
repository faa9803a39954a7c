package impl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"lens/config"
	"lens/internal/domain/entity"
	"lens/internal/domain/service"
	"lens/internal/usecase"

	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		OAuth: &config.OAuthConfig{FederatedProvider: "Google"},
		PasswordPolicy: &config.PasswordPolicyConfig{
			MinLength:        8,
			RequireLowercase: true,
			RequireUppercase: true,
			RequireNumbers:   true,
		},
	}
}

func testClaims() *entity.Claims {
	return &entity.Claims{
		Subject:       "subject-1",
		Email:         "taro@example.com",
		EmailVerified: true,
		ExpiresAt:     time.Now().Add(time.Hour),
		IssuedAt:      time.Now(),
	}
}

func linkedTestClaims() *entity.Claims {
	claims := testClaims()
	claims.LinkedIdentities = []entity.LinkedIdentity{
		{ProviderName: "Google", ProviderUserID: "google-123"},
	}

	return claims
}

func validSession(claims *entity.Claims) entity.Session {
	return entity.Session{IsValid: true, Claims: claims}
}

// buildIDToken assembles an unsigned but structurally valid identity token
// whose payload carries the given subject and email.
func buildIDToken(t *testing.T, subject, email string) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"sub":            subject,
		"email":          email,
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	})
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + ".c2ln"
}

// fakeIdentity is a test-only service.IdentityProvider. The session it
// projects is a plain field so tests can stage any state, and RefreshSession
// swaps in the refreshed field to imitate provider-side claim changes.
type fakeIdentity struct {
	mu sync.Mutex

	session      entity.Session
	refreshed    *entity.Session
	signInResult entity.Session
	signInTokens entity.TokenSet
	signUpResult *service.SignUpResult

	signUpErr  error
	confirmErr error
	signInErr  error
	signOutErr error

	signUpCalls  int
	confirmCalls int
	signInCalls  int
	refreshCalls int
	signOutCalls int
}

func newFakeIdentity(session entity.Session) *fakeIdentity {
	return &fakeIdentity{session: session}
}

func (f *fakeIdentity) SignUp(ctx context.Context, credential entity.Credential) (*service.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signUpCalls++
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpResult != nil {
		return f.signUpResult, nil
	}

	return &service.SignUpResult{Destination: "t***@example.com"}, nil
}

func (f *fakeIdentity) ConfirmSignUp(ctx context.Context, username, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.confirmCalls++

	return f.confirmErr
}

func (f *fakeIdentity) SignIn(ctx context.Context, credential entity.Credential) (entity.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signInCalls++
	if f.signInErr != nil {
		return entity.TokenSet{}, f.signInErr
	}

	f.session = f.signInResult

	return f.signInTokens, nil
}

func (f *fakeIdentity) CurrentSession(ctx context.Context) (entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.session, nil
}

func (f *fakeIdentity) RefreshSession(ctx context.Context) (entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refreshCalls++
	if f.refreshed != nil {
		f.session = *f.refreshed
	}

	return f.session, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signOutCalls++
	if f.signOutErr != nil {
		return f.signOutErr
	}

	f.session = entity.InvalidSession()

	return nil
}

// fakeFlow is a test-only service.OAuthFlow with scripted answers.
type fakeFlow struct {
	mu sync.Mutex

	available      bool
	authorizeURL   string
	buildErr       error
	callbackResult *service.CallbackResult
	callbackErr    error

	buildCalls    int
	callbackCalls int
	lastAction    entity.PendingAction
}

func newFakeFlow() *fakeFlow {
	return &fakeFlow{
		available:    true,
		authorizeURL: "https://auth.example.com/oauth2/authorize?state=abc",
	}
}

func (f *fakeFlow) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.available
}

func (f *fakeFlow) BuildAuthorizationURL(action entity.PendingAction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buildCalls++
	f.lastAction = action
	if f.buildErr != nil {
		return "", f.buildErr
	}

	return f.authorizeURL, nil
}

func (f *fakeFlow) HandleCallback(ctx context.Context, query url.Values) (*service.CallbackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callbackCalls++
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}

	return f.callbackResult, nil
}

// fakeAccountAPI is a test-only service.AccountAPI. Unlink answers are
// consumed from a queue so a test can script "password required, then
// success" in one place.
type fakeAccountAPI struct {
	mu sync.Mutex

	unlinkErrs     []error
	setPasswordErr error
	linkErr        error

	unlinkCalls      int
	setPasswordCalls int
	linkCalls        int

	lastUnlinkProvider string
	lastPassword       string
	lastLinkProvider   string
	lastLinkToken      string
}

func newFakeAccountAPI(unlinkErrs ...error) *fakeAccountAPI {
	return &fakeAccountAPI{unlinkErrs: unlinkErrs}
}

func (f *fakeAccountAPI) UnlinkIdentity(ctx context.Context, providerName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unlinkCalls++
	f.lastUnlinkProvider = providerName
	if len(f.unlinkErrs) == 0 {
		return nil
	}

	err := f.unlinkErrs[0]
	f.unlinkErrs = f.unlinkErrs[1:]

	return err
}

func (f *fakeAccountAPI) SetPassword(ctx context.Context, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setPasswordCalls++
	f.lastPassword = password

	return f.setPasswordErr
}

func (f *fakeAccountAPI) LinkIdentity(ctx context.Context, providerName, externalIDToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.linkCalls++
	f.lastLinkProvider = providerName
	f.lastLinkToken = externalIDToken

	return f.linkErr
}

// fakePublisher records published audit events in order.
type fakePublisher struct {
	mu sync.Mutex

	events     []service.AuthEvent
	publishErr error
}

func (f *fakePublisher) PublishAuthEvent(ctx context.Context, event *service.AuthEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, *event)

	return f.publishErr
}

func (f *fakePublisher) Close() error {
	return nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]string, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.Type)
	}

	return types
}

// fakeLinking is a test-only usecase.LinkingUsecase for exercising the
// manager's callback dispatch in isolation.
type fakeLinking struct {
	mu sync.Mutex

	completeLinkCalls int
	lastTokens        entity.TokenSet
	completeLinkErr   error
}

func (f *fakeLinking) BeginLink(ctx context.Context) (*usecase.LinkStart, error) {
	return &usecase.LinkStart{}, nil
}

func (f *fakeLinking) CompleteLink(ctx context.Context, tokens entity.TokenSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.completeLinkCalls++
	f.lastTokens = tokens

	return f.completeLinkErr
}

func (f *fakeLinking) Unlink(ctx context.Context, providerName string) (*usecase.UnlinkOutcome, error) {
	return &usecase.UnlinkOutcome{State: usecase.UnlinkStateUnlinked}, nil
}

func (f *fakeLinking) SetPasswordAndUnlink(ctx context.Context, providerName, newPassword string) (*usecase.UnlinkOutcome, error) {
	return &usecase.UnlinkOutcome{State: usecase.UnlinkStateUnlinked}, nil
}

// fakeRequester records pass-through backend requests.
type fakeRequester struct {
	mu sync.Mutex

	calls      int
	lastMethod string
	lastPath   string
	err        error
}

func (f *fakeRequester) MakeAuthenticatedRequest(ctx context.Context, method, path string, body, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastMethod = method
	f.lastPath = path

	return f.err
}

// fakeQRCode returns canned PNG bytes for whatever URL it is given.
type fakeQRCode struct {
	mu sync.Mutex

	calls   int
	lastURL string
	png     []byte
	err     error
}

func (f *fakeQRCode) GenerateSignInQR(authorizeURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastURL = authorizeURL
	if f.err != nil {
		return nil, f.err
	}

	return f.png, nil
}
