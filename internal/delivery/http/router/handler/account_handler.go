package handler

import (
	"log/slog"
	"net/http"

	"lens/internal/delivery/http/response"
	"lens/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	LinkingUC usecase.LinkingUsecase
	Logger    *slog.Logger
}

// AccountHandler holds dependencies for account-management handlers.
type AccountHandler struct {
	linkingUC usecase.LinkingUsecase
	logger    *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		linkingUC: params.LinkingUC,
		logger:    params.Logger,
	}
}

// SetPasswordRequest represents the request body for the set-password
// sub-flow of an unlink.
type SetPasswordRequest struct {
	Provider    string `json:"provider" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// UnlinkResult is the response body for unlink outcomes. Every outcome is a
// 200; the state field tells the frontend what to do next.
type UnlinkResult struct {
	State           string   `json:"state"`
	LinkedProviders []string `json:"linked_providers,omitempty"`
}

func newUnlinkResult(outcome *usecase.UnlinkOutcome) UnlinkResult {
	result := UnlinkResult{State: string(outcome.State)}
	if outcome.Claims != nil {
		for _, identity := range outcome.Claims.LinkedIdentities {
			result.LinkedProviders = append(result.LinkedProviders, identity.ProviderName)
		}
	}

	return result
}

// Unlink removes a federated identity from the account. A password-required
// answer is an outcome, not an error: the frontend reads the state and opens
// the password dialog.
func (h *AccountHandler) Unlink(c echo.Context) error {
	provider := c.Param("provider")
	if provider == "" {
		return response.BadRequest(c, "INVALID_INPUT", "provider is required")
	}

	outcome, err := h.linkingUC.Unlink(c.Request().Context(), provider)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUnlinkResult(outcome))
}

// SetPassword finishes a password-required unlink: it sets the password and
// retries the unlink once.
func (h *AccountHandler) SetPassword(c echo.Context) error {
	var req SetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid set-password input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	outcome, err := h.linkingUC.SetPasswordAndUnlink(c.Request().Context(), req.Provider, req.NewPassword)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUnlinkResult(outcome))
}
