package handler

import (
	"net/http"
	"testing"

	domainerrors "lens/internal/domain/errors"
	"lens/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountHandler_Unlink(t *testing.T) {
	handler := &AccountHandler{linkingUC: &fakeLinkingUsecase{
		outcome: &usecase.UnlinkOutcome{State: usecase.UnlinkStateUnlinked},
	}}
	c, rec := newTestContext(t, http.MethodDelete, "/account/federated/google", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")

	err := handler.Unlink(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"unlinked"`)
}

func TestAccountHandler_UnlinkNeedsPassword(t *testing.T) {
	handler := &AccountHandler{linkingUC: &fakeLinkingUsecase{
		outcome: &usecase.UnlinkOutcome{State: usecase.UnlinkStatePasswordSetupRequired},
	}}
	c, rec := newTestContext(t, http.MethodDelete, "/account/federated/google", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")

	err := handler.Unlink(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, "a required sub-flow is an outcome, not an error")
	assert.Contains(t, rec.Body.String(), `"state":"password_setup_required"`)
}

func TestAccountHandler_UnlinkBackendFailure(t *testing.T) {
	handler := &AccountHandler{linkingUC: &fakeLinkingUsecase{
		outcomeErr: domainerrors.NewBackendCallError(http.StatusInternalServerError, "unlink worker crashed", ""),
	}}
	c, rec := newTestContext(t, http.MethodDelete, "/account/federated/google", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")

	err := handler.Unlink(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unlink worker crashed")
}

func TestAccountHandler_SetPassword(t *testing.T) {
	handler := &AccountHandler{linkingUC: &fakeLinkingUsecase{
		outcome: &usecase.UnlinkOutcome{State: usecase.UnlinkStateUnlinked},
	}}
	c, rec := newTestContext(t, http.MethodPost, "/account/password",
		`{"provider":"google","new_password":"Sturdy-Pass1"}`)

	err := handler.SetPassword(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"unlinked"`)
}

func TestAccountHandler_SetPasswordMissingFields(t *testing.T) {
	handler := &AccountHandler{linkingUC: &fakeLinkingUsecase{}}
	c, rec := newTestContext(t, http.MethodPost, "/account/password", `{"provider":"google"}`)

	err := handler.SetPassword(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}
