// Package handler contains the HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"lens/internal/delivery/http/response"
	"lens/internal/domain/entity"
	"lens/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC    usecase.AuthUsecase
	LinkingUC usecase.LinkingUsecase
	Logger    *slog.Logger
}

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	authUC    usecase.AuthUsecase
	linkingUC usecase.LinkingUsecase
	logger    *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:    params.AuthUC,
		linkingUC: params.LinkingUC,
		logger:    params.Logger,
	}
}

// SignUpRequest represents the request body for registration.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ConfirmRequest represents the request body for confirming a registration.
type ConfirmRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// SignInRequest represents the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionView is the session projection exposed to the frontend. Token
// material never leaves the server.
type SessionView struct {
	Authenticated   bool       `json:"authenticated"`
	Subject         string     `json:"subject,omitempty"`
	Email           string     `json:"email,omitempty"`
	EmailVerified   bool       `json:"email_verified,omitempty"`
	LinkedProviders []string   `json:"linked_providers,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// NewSessionView projects a session for the response body.
func NewSessionView(sess entity.Session) SessionView {
	view := SessionView{Authenticated: sess.IsValid}
	if !sess.IsValid {
		return view
	}

	view.Subject = sess.Claims.Subject
	view.Email = sess.Claims.Email
	view.EmailVerified = sess.Claims.EmailVerified
	for _, identity := range sess.Claims.LinkedIdentities {
		view.LinkedProviders = append(view.LinkedProviders, identity.ProviderName)
	}
	if !sess.Claims.ExpiresAt.IsZero() {
		expiresAt := sess.Claims.ExpiresAt
		view.ExpiresAt = &expiresAt
	}

	return view
}

// StartFederatedResult carries the authorize URL the frontend should
// navigate to, or the short-circuit answer when nothing needs doing.
type StartFederatedResult struct {
	AuthorizeURL  string `json:"authorize_url,omitempty"`
	AlreadyLinked bool   `json:"already_linked,omitempty"`
}

// SignUp handles the registration request.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-up input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	output, err := h.authUC.SignUp(c.Request().Context(), usecase.SignUpInput{
		Username: req.Email,
		Password: req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, output)
}

// ConfirmSignUp handles the confirmation-code request.
func (h *AuthHandler) ConfirmSignUp(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid confirmation input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	err := h.authUC.ConfirmSignUp(c.Request().Context(), usecase.ConfirmSignUpInput{
		Username: req.Email,
		Code:     req.Code,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, echo.Map{"confirmed": true})
}

// SignIn handles the credential sign-in request.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	sess, err := h.authUC.SignIn(c.Request().Context(), usecase.SignInInput{
		Username: req.Email,
		Password: req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, NewSessionView(sess))
}

// SignOut ends the current session.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authUC.SignOut(c.Request().Context()); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, echo.Map{"signed_out": true})
}

// GetSession reports the current session projection. An absent session is a
// 200 with authenticated=false, never an error.
func (h *AuthHandler) GetSession(c echo.Context) error {
	sess, err := h.authUC.CurrentSession(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, NewSessionView(sess))
}

// StartFederated begins a federated round trip for sign-in or account
// linking, depending on the action query parameter.
func (h *AuthHandler) StartFederated(c echo.Context) error {
	ctx := c.Request().Context()

	switch action := c.QueryParam("action"); action {
	case "", entity.PendingActionLogin.String():
		authorizeURL, err := h.authUC.BeginFederatedLogin(ctx)
		if err != nil {
			return response.HandleAppError(c, err)
		}

		return response.Success(c, http.StatusOK, StartFederatedResult{AuthorizeURL: authorizeURL})

	case entity.PendingActionLinkAccount.String():
		start, err := h.linkingUC.BeginLink(ctx)
		if err != nil {
			return response.HandleAppError(c, err)
		}

		return response.Success(c, http.StatusOK, StartFederatedResult{
			AuthorizeURL:  start.AuthorizeURL,
			AlreadyLinked: start.AlreadyLinked,
		})

	default:
		return response.BadRequest(c, "INVALID_ACTION", "action must be login or link_account")
	}
}

// FederatedQR renders the federated sign-in URL as a PNG QR code.
func (h *AuthHandler) FederatedQR(c echo.Context) error {
	png, err := h.authUC.FederatedSignInQR(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// FederatedCallback settles the provider redirect carried in the query
// string and reports what it completed.
func (h *AuthHandler) FederatedCallback(c echo.Context) error {
	outcome, err := h.authUC.CompleteFederatedCallback(c.Request().Context(), c.QueryParams())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, echo.Map{
		"action":  outcome.Action.String(),
		"session": NewSessionView(outcome.Session),
	})
}

// Proxy forwards a request to the application backend with the session's
// bearer token attached, so the frontend only ever talks to this origin.
// Everything after /account/backend maps onto the backend API verbatim.
func (h *AuthHandler) Proxy(c echo.Context) error {
	path := "/" + c.Param("*")
	if rawQuery := c.Request().URL.RawQuery; rawQuery != "" {
		path += "?" + rawQuery
	}

	var body any
	if c.Request().ContentLength != 0 {
		var raw json.RawMessage
		if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
			return response.BindingError(c, "INVALID_INPUT", "Request body must be JSON")
		}
		body = raw
	}

	var out json.RawMessage
	err := h.authUC.MakeAuthenticatedRequest(c.Request().Context(), c.Request().Method, path, body, &out)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if len(out) == 0 {
		return response.Success(c, http.StatusOK, nil)
	}

	return response.Success(c, http.StatusOK, out)
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
