// Package idp implements the HTTP client for the hosted identity provider:
// registration, confirmation, sign-in, session refresh, and sign-out.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"lens/config"
	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"
	"lens/internal/errors"
)

const defaultTimeout = 15 * time.Second

// Provider endpoints, relative to the configured base URL.
const (
	pathSignUp  = "/signup"
	pathConfirm = "/confirm"
	pathSignIn  = "/signin"
	pathSession = "/session"
	pathSignOut = "/signout"
)

// Client is a concrete implementation of the IdentityProvider interface
// against the pool's JSON API. Sign-in and session refresh keep the session
// store current as a side effect; validation happens locally before any
// request leaves the process.
type Client struct {
	baseURL  string
	clientID string
	client   *http.Client
	store    service.SessionStore
	codec    service.TokenCodec
	policy   service.PasswordPolicy
	now      func() time.Time
}

// NewClient creates an identity provider client from configuration.
func NewClient(
	cfg *config.Config,
	store service.SessionStore,
	codec service.TokenCodec,
	policy service.PasswordPolicy,
) (service.IdentityProvider, error) {
	if cfg.IdentityProvider == nil || cfg.IdentityProvider.BaseURL == "" {
		return nil, errors.New("identity provider base URL is not configured")
	}

	timeout := cfg.IdentityProvider.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:  cfg.IdentityProvider.BaseURL,
		clientID: cfg.IdentityProvider.ClientID,
		client:   &http.Client{Timeout: timeout},
		store:    store,
		codec:    codec,
		policy:   policy,
		now:      time.Now,
	}, nil
}

// SignUp registers a new account after local validation of the email syntax
// and the password policy.
func (c *Client) SignUp(ctx context.Context, credential entity.Credential) (*service.SignUpResult, error) {
	if _, err := mail.ParseAddress(credential.Username); err != nil {
		return nil, domainerrors.NewValidationError("enter a valid email address")
	}

	if err := c.policy.Validate(credential.Password); err != nil {
		return nil, err
	}

	var result struct {
		UserConfirmed bool   `json:"userConfirmed"`
		Destination   string `json:"codeDeliveryDestination"`
	}

	body := map[string]string{
		"clientId": c.clientID,
		"username": credential.Username,
		"password": credential.Password,
	}
	if err := c.post(ctx, pathSignUp, body, &result); err != nil {
		return nil, err
	}

	return &service.SignUpResult{
		UserConfirmed: result.UserConfirmed,
		Destination:   result.Destination,
	}, nil
}

// ConfirmSignUp confirms a registration with the emailed code.
func (c *Client) ConfirmSignUp(ctx context.Context, username, code string) error {
	if username == "" || code == "" {
		return domainerrors.NewValidationError("username and confirmation code are required")
	}

	body := map[string]string{
		"clientId": c.clientID,
		"username": username,
		"code":     code,
	}

	return c.post(ctx, pathConfirm, body, nil)
}

// SignIn authenticates the credential and stores the returned tokens before
// handing them back. Empty fields fail locally; the transport is never
// touched for an incomplete credential.
func (c *Client) SignIn(ctx context.Context, credential entity.Credential) (entity.TokenSet, error) {
	if !credential.IsComplete() {
		return entity.TokenSet{}, domainerrors.NewValidationError("username and password are required")
	}

	var result tokenResponse

	body := map[string]string{
		"clientId": c.clientID,
		"username": credential.Username,
		"password": credential.Password,
	}
	if err := c.post(ctx, pathSignIn, body, &result); err != nil {
		return entity.TokenSet{}, err
	}

	tokens := result.toTokenSet()
	if err := c.store.SaveTokens(tokens); err != nil {
		return entity.TokenSet{}, errors.Wrap(err, "save tokens after sign-in")
	}

	return tokens, nil
}

// CurrentSession projects the current session. A held, unexpired identity
// token is projected locally; an expired one is refreshed against the
// provider when a refresh token is available. Absence of a usable session
// is a normal result, never an error.
func (c *Client) CurrentSession(ctx context.Context) (entity.Session, error) {
	tokens, held := c.store.Tokens()
	if !held {
		return entity.InvalidSession(), nil
	}

	claims, err := c.codec.Decode(tokens.IDToken)
	if err != nil {
		// A stored token that no longer decodes cannot back a session.
		return entity.InvalidSession(), nil
	}

	if session := entity.ProjectSession(claims, c.now()); session.IsValid {
		return session, nil
	}

	if tokens.RefreshToken == "" {
		return entity.InvalidSession(), nil
	}

	refreshed, err := c.refreshSession(ctx, tokens)
	if err != nil {
		// A failed refresh means no current session, not a failure of the
		// query itself.
		return entity.InvalidSession(), nil
	}

	claims, err = c.codec.Decode(refreshed.IDToken)
	if err != nil {
		return entity.InvalidSession(), nil
	}

	return entity.ProjectSession(claims, c.now()), nil
}

// RefreshSession forces a token refresh so the claims pick up provider-side
// changes, such as an identity linked or unlinked through the backend.
// Without a refresh token there is nothing to trade in, so it falls back to
// the plain projection.
func (c *Client) RefreshSession(ctx context.Context) (entity.Session, error) {
	tokens, held := c.store.Tokens()
	if !held || tokens.RefreshToken == "" {
		return c.CurrentSession(ctx)
	}

	refreshed, err := c.refreshSession(ctx, tokens)
	if err != nil {
		return entity.InvalidSession(), nil
	}

	claims, err := c.codec.Decode(refreshed.IDToken)
	if err != nil {
		return entity.InvalidSession(), nil
	}

	return entity.ProjectSession(claims, c.now()), nil
}

// SignOut invalidates the provider-side session reference, then clears the
// stored tokens as the final step. Already signed out is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	tokens, held := c.store.Tokens()
	if held && tokens.AccessToken != "" {
		body := map[string]string{
			"clientId":    c.clientID,
			"accessToken": tokens.AccessToken,
		}
		// Best effort: a dead provider must not leave the local session
		// stuck. The local clear below still runs.
		_ = c.post(ctx, pathSignOut, body, nil)
	}

	if err := c.store.ClearTokens(); err != nil {
		return errors.Wrap(err, "clear tokens on sign-out")
	}

	return nil
}

// refreshSession trades the refresh token for a fresh token set and stores
// it. The refresh token itself survives when the provider omits a new one.
func (c *Client) refreshSession(ctx context.Context, current entity.TokenSet) (entity.TokenSet, error) {
	var result tokenResponse

	body := map[string]string{
		"clientId":     c.clientID,
		"refreshToken": current.RefreshToken,
	}
	if err := c.post(ctx, pathSession, body, &result); err != nil {
		return entity.TokenSet{}, err
	}

	tokens := result.toTokenSet()
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = current.RefreshToken
	}

	if err := c.store.SaveTokens(tokens); err != nil {
		return entity.TokenSet{}, errors.Wrap(err, "save refreshed tokens")
	}

	return tokens, nil
}

// tokenResponse is the provider's token envelope.
type tokenResponse struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func (r tokenResponse) toTokenSet() entity.TokenSet {
	return entity.TokenSet{
		IDToken:      r.IDToken,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

// providerError is the provider's error envelope.
type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// post sends a JSON request and decodes a JSON answer. Provider failures are
// classified into the domain taxonomy; transport failures surface as network
// errors.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "marshal %s request", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "create %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domainerrors.ErrNetwork.WrapMessage(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var perr providerError
		_ = json.NewDecoder(resp.Body).Decode(&perr)

		return mapProviderError(resp.StatusCode, perr)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}

	return nil
}

// mapProviderError converts the provider's error codes into the domain
// taxonomy. Unknown codes keep the provider's message so the user still gets
// one readable sentence.
func mapProviderError(status int, perr providerError) error {
	switch perr.Code {
	case "USERNAME_EXISTS":
		return domainerrors.ErrAlreadyExists
	case "USER_NOT_CONFIRMED":
		return domainerrors.ErrNotConfirmed
	case "INVALID_CREDENTIALS", "NOT_AUTHORIZED":
		return domainerrors.ErrInvalidCredentials
	case "CODE_MISMATCH", "EXPIRED_CODE":
		return domainerrors.ErrInvalidCode
	}

	if status == http.StatusUnauthorized {
		return domainerrors.ErrInvalidCredentials
	}

	return domainerrors.NewBackendCallError(status, perr.Message, perr.Code)
}
