package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"lens/config"
	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/errors"
	"lens/internal/infra/session"
	"lens/internal/infra/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	hits    int
	last    *http.Request
	handler http.HandlerFunc
	server  *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	backend := &fakeBackend{}
	backend.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		backend.hits++
		backend.last = r.Clone(r.Context())
		handler := backend.handler
		backend.mu.Unlock()

		if handler == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))

			return
		}
		handler(w, r)
	}))
	t.Cleanup(backend.server.Close)

	return backend
}

func (b *fakeBackend) respondError(status int, body map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.hits
}

func (b *fakeBackend) lastRequest() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.last
}

func newTestClient(t *testing.T, backend *fakeBackend, signedIn bool) *Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.Backend = &config.BackendConfig{BaseURL: backend.server.URL}

	store := session.NewStore(cfg, storage.NewMemoryStorage("backend-test"))
	if signedIn {
		require.NoError(t, store.SaveTokens(entity.TokenSet{IDToken: "id-token-1", AccessToken: "access-1"}))
	}

	client, err := NewClient(cfg, store)
	require.NoError(t, err)

	return client
}

func TestClient_AttachesBearerToken(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, true)

	require.NoError(t, client.UnlinkIdentity(context.Background(), "Google"))

	last := backend.lastRequest()
	require.NotNil(t, last)
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/user/unlink-google", last.URL.Path)
	assert.Equal(t, "Bearer id-token-1", last.Header.Get("Authorization"))
}

func TestClient_RequiresASessionBeforeAnyCall(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, false)
	ctx := context.Background()

	assert.True(t, errors.Is(client.UnlinkIdentity(ctx, "google"), domainerrors.ErrNotAuthenticated))
	assert.True(t, errors.Is(client.SetPassword(ctx, "Abc12345"), domainerrors.ErrNotAuthenticated))
	assert.True(t, errors.Is(client.LinkIdentity(ctx, "google", "tok"), domainerrors.ErrNotAuthenticated))
	assert.True(t, errors.Is(
		client.MakeAuthenticatedRequest(ctx, http.MethodGet, "/user/profile", nil, nil),
		domainerrors.ErrNotAuthenticated,
	))
	assert.Zero(t, backend.calls(), "unauthenticated calls must never reach the wire")
}

func TestClient_SetPassword(t *testing.T) {
	backend := newFakeBackend(t)
	var received map[string]string
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}

	client := newTestClient(t, backend, true)

	require.NoError(t, client.SetPassword(context.Background(), "Abc12345"))
	assert.Equal(t, "/user/set-password", backend.lastRequest().URL.Path)
	assert.Equal(t, map[string]string{"password": "Abc12345"}, received)
}

func TestClient_LinkIdentity(t *testing.T) {
	backend := newFakeBackend(t)
	var received map[string]string
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}

	client := newTestClient(t, backend, true)

	require.NoError(t, client.LinkIdentity(context.Background(), "Google", "external-id-token"))
	assert.Equal(t, "/user/link-google", backend.lastRequest().URL.Path)
	assert.Equal(t, map[string]string{"idToken": "external-id-token"}, received)
}

func TestClient_UnlinkAnswerClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]string
		want   error
	}{
		{
			name:   "bare 428",
			status: http.StatusPreconditionRequired,
			body:   nil,
			want:   domainerrors.ErrPasswordRequired,
		},
		{
			name:   "structured password-required code",
			status: http.StatusBadRequest,
			body:   map[string]string{"code": "PASSWORD_REQUIRED"},
			want:   domainerrors.ErrPasswordRequired,
		},
		{
			name:   "password-required message marker",
			status: http.StatusBadRequest,
			body:   map[string]string{"message": "Password required before unlinking"},
			want:   domainerrors.ErrPasswordRequired,
		},
		{
			name:   "set-a-password message marker",
			status: http.StatusConflict,
			body:   map[string]string{"message": "You must set a password first"},
			want:   domainerrors.ErrPasswordRequired,
		},
		{
			name:   "structured no-identity code",
			status: http.StatusNotFound,
			body:   map[string]string{"code": "NO_LINKED_IDENTITY"},
			want:   domainerrors.ErrNoLinkedIdentity,
		},
		{
			name:   "no-identity message marker",
			status: http.StatusBadRequest,
			body:   map[string]string{"message": "There is no identity linked to this account"},
			want:   domainerrors.ErrNoLinkedIdentity,
		},
		{
			name:   "already linked",
			status: http.StatusConflict,
			body:   map[string]string{"code": "ALREADY_LINKED"},
			want:   domainerrors.ErrAlreadyLinked,
		},
		{
			name:   "email mismatch",
			status: http.StatusConflict,
			body:   map[string]string{"code": "EMAIL_MISMATCH"},
			want:   domainerrors.ErrEmailMismatch,
		},
		{
			name:   "expired bearer",
			status: http.StatusUnauthorized,
			body:   map[string]string{"message": "token expired"},
			want:   domainerrors.ErrNotAuthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t)
			backend.respondError(tt.status, tt.body)
			client := newTestClient(t, backend, true)

			err := client.UnlinkIdentity(context.Background(), "google")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClient_UnclassifiedErrorKeepsServerMessage(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respondError(http.StatusInternalServerError, map[string]string{"message": "unlink worker crashed"})
	client := newTestClient(t, backend, true)

	err := client.UnlinkIdentity(context.Background(), "google")
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "unlink worker crashed", appErr.Message())
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode())
}

func TestClient_UnclassifiedErrorWithoutMessageFallsBack(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respondError(http.StatusInternalServerError, nil)
	client := newTestClient(t, backend, true)

	err := client.UnlinkIdentity(context.Background(), "google")
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domainerrors.ErrBackend.Message(), appErr.Message())
}

func TestClient_MakeAuthenticatedRequest(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"plan":"free"}`))
	}

	client := newTestClient(t, backend, true)

	var out struct {
		Plan string `json:"plan"`
	}
	require.NoError(t, client.MakeAuthenticatedRequest(context.Background(), http.MethodGet, "/user/profile", nil, &out))
	assert.Equal(t, "free", out.Plan)
	assert.Equal(t, "Bearer id-token-1", backend.lastRequest().Header.Get("Authorization"))
}

func TestClient_MakeAuthenticatedRequestToleratesEmptyBody(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	client := newTestClient(t, backend, true)

	var out json.RawMessage
	require.NoError(t, client.MakeAuthenticatedRequest(context.Background(), http.MethodDelete, "/user/avatar", nil, &out))
	assert.Empty(t, out)
}

func TestClient_MakeAuthenticatedRequestEmbedsStatusInError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respondError(http.StatusUnauthorized, nil)
	client := newTestClient(t, backend, true)

	err := client.MakeAuthenticatedRequest(context.Background(), http.MethodGet, "/user/profile", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestClient_MakeAuthenticatedRequestAcceptsAbsoluteURL(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, true)

	err := client.MakeAuthenticatedRequest(
		context.Background(), http.MethodGet, backend.server.URL+"/health", nil, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "/health", backend.lastRequest().URL.Path)
}

func TestPasswordRequiredDetectionTable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
		want    bool
	}{
		{name: "precondition required status", status: 428, want: true},
		{name: "structured code", status: 400, code: "PASSWORD_REQUIRED", want: true},
		{name: "marker password required", status: 400, message: "password required to unlink", want: true},
		{name: "marker set a password", status: 400, message: "please set a password first", want: true},
		{name: "marker is case-insensitive", status: 400, message: "SET A PASSWORD before continuing", want: true},
		{name: "unrelated failure", status: 400, message: "quota exceeded", want: false},
		{name: "unrelated code", status: 409, code: "ALREADY_LINKED", want: false},
		{name: "empty answer", status: 500, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPasswordRequired(tt.status, tt.code, tt.message))
		})
	}
}
