// Package oauth drives the federated-login round trip against the hosted
// provider: composing the authorize URL with a correlation token and settling
// the redirect that comes back.
package oauth

import (
	"context"
	"net/url"
	"time"

	"lens/config"
	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"
	"lens/internal/errors"

	"golang.org/x/oauth2"
)

const defaultExchangeTimeout = 10 * time.Second

// Flow implements service.OAuthFlow on top of golang.org/x/oauth2. It stays
// constructible without provider configuration so callers can probe
// Available instead of handling a constructor error.
type Flow struct {
	conf              *oauth2.Config
	store             service.SessionStore
	codec             service.TokenCodec
	federatedProvider string
	exchangeTimeout   time.Duration
}

// NewFlow creates an OAuth flow from configuration. A missing or incomplete
// OAuth section yields a flow whose Available reports false.
func NewFlow(cfg *config.Config, store service.SessionStore, codec service.TokenCodec) service.OAuthFlow {
	flow := &Flow{
		store:           store,
		codec:           codec,
		exchangeTimeout: defaultExchangeTimeout,
	}

	oc := cfg.OAuth
	if oc == nil {
		return flow
	}

	if oc.ExchangeTimeout > 0 {
		flow.exchangeTimeout = oc.ExchangeTimeout
	}
	flow.federatedProvider = oc.FederatedProvider

	if oc.AuthorizeURL == "" || oc.TokenURL == "" || oc.ClientID == "" || oc.RedirectURL == "" {
		return flow
	}

	flow.conf = &oauth2.Config{
		ClientID:    oc.ClientID,
		RedirectURL: oc.RedirectURL,
		Scopes:      oc.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   oc.AuthorizeURL,
			TokenURL:  oc.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return flow
}

// Available reports whether a federated provider is configured.
func (f *Flow) Available() bool {
	return f.conf != nil
}

// BuildAuthorizationURL begins a handshake and returns the authorize URL
// carrying the fresh correlation token as 'state'.
func (f *Flow) BuildAuthorizationURL(action entity.PendingAction) (string, error) {
	if !f.Available() {
		return "", domainerrors.ErrProviderUnavailable
	}

	state, err := f.store.BeginHandshake(action)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{}
	if f.federatedProvider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("identity_provider", f.federatedProvider))
	}

	return f.conf.AuthCodeURL(state, opts...), nil
}

// HandleCallback settles a federated redirect. Order matters: a provider
// denial wins over everything, then the handshake must match before any
// token exchange is attempted.
func (f *Flow) HandleCallback(ctx context.Context, query url.Values) (*service.CallbackResult, error) {
	if !f.Available() {
		return nil, domainerrors.ErrProviderUnavailable
	}

	if cause := query.Get("error"); cause != "" {
		// The handshake must not outlive the round trip even on a denial.
		_, _ = f.store.ConsumeHandshake(query.Get("state"))

		return nil, domainerrors.ErrOAuthDenied.WrapMessage(denialCause(cause, query.Get("error_description")))
	}

	action, err := f.store.ConsumeHandshake(query.Get("state"))
	if err != nil {
		return nil, err
	}

	code := query.Get("code")
	if code == "" {
		return nil, domainerrors.ErrTokenExchange.WrapMessage("callback carries no authorization code")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, f.exchangeTimeout)
	defer cancel()

	token, err := f.conf.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, domainerrors.ErrTokenExchange.WrapMessage(err.Error())
	}

	tokens := entity.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		tokens.IDToken = idToken
	}
	if tokens.IDToken == "" {
		return nil, domainerrors.ErrTokenExchange.WrapMessage("token response carries no identity token")
	}

	// Reject tokens the rest of the system could not read before anything
	// is stored.
	if _, err := f.codec.Decode(tokens.IDToken); err != nil {
		return nil, err
	}

	if action == entity.PendingActionLogin {
		if err := f.store.SaveTokens(tokens); err != nil {
			return nil, errors.Wrap(err, "store federated session tokens")
		}
	}

	return &service.CallbackResult{Action: action, Tokens: tokens}, nil
}

func denialCause(cause, description string) string {
	if description != "" {
		return description
	}

	return cause
}
