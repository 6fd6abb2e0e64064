package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/pkg/dashsdk"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// TwoFactorHandler serves the /2fa routes for the calling user.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
	Validate         *validator.Validate
}

// HandleSetup handles POST /2fa/setup
//
//	@Summary		Begin two-factor setup
//	@Description	Generates a new TOTP secret for the caller and marks setup as pending. Calling again while pending replaces the secret.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dashsdk.SetupResponse	"Secret and otpauth URI"
//	@Failure		401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure		404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure		409	{object}	dashsdk.ErrorResponse	"Two-factor already enabled"
//	@Failure		500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router			/2fa/setup [post].
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	enrollment, err := h.TwoFactorService.BeginSetup(r.Context(), id.Email, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("2fa setup started")
	httpx.WriteJSON(w, http.StatusOK, dashsdk.SetupResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
	})
}

// HandleConfirm handles POST /2fa/confirm
//
//	@Summary		Confirm two-factor setup
//	@Description	Checks a code from the authenticator against the pending secret, enables two-factor and returns fresh recovery codes.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dashsdk.CodeRequest		true	"Current TOTP code"
//	@Success		200		{object}	dashsdk.ConfirmResponse	"Enabled, with recovery codes"
//	@Failure		400		{object}	dashsdk.ErrorResponse	"Invalid body, invalid code or no setup pending"
//	@Failure		401		{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure		404		{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure		429		{object}	dashsdk.ErrorResponse	"Too many attempts"
//	@Failure		500		{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router			/2fa/confirm [post].
func (h *TwoFactorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req dashsdk.CodeRequest
	if !decodeAndValidate(w, r, h.Validate, &req) {
		return
	}

	codes, err := h.TwoFactorService.ConfirmSetup(r.Context(), id.Email, req.Code, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("2fa enabled")
	httpx.WriteJSON(w, http.StatusOK, dashsdk.ConfirmResponse{
		Success:       true,
		RecoveryCodes: codes,
	})
}

// HandleDisable handles POST /2fa/disable
//
//	@Summary		Disable two-factor
//	@Description	Removes the secret, any pending setup and all recovery codes. Safe to repeat.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dashsdk.DisableResponse	"Disabled, with the updated profile"
//	@Failure		401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure		404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure		500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router			/2fa/disable [post].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	user, err := h.TwoFactorService.Disable(r.Context(), id.UserID, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("2fa disabled")
	httpx.WriteJSON(w, http.StatusOK, dashsdk.DisableResponse{
		Success: true,
		Message: "Two-factor authentication disabled",
		User:    userResponse(user),
	})
}

// HandleGenerateRecoveryCodes handles POST /2fa/recovery-codes/generate
//
//	@Summary		Generate recovery codes
//	@Description	Replaces the caller's recovery codes with 10 new ones.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dashsdk.RecoveryCodesResponse	"New recovery codes"
//	@Failure		401	{object}	dashsdk.ErrorResponse			"Not signed in"
//	@Failure		404	{object}	dashsdk.ErrorResponse			"User not found"
//	@Failure		500	{object}	dashsdk.ErrorResponse			"Internal server error"
//	@Router			/2fa/recovery-codes/generate [post].
func (h *TwoFactorHandler) HandleGenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	codes, err := h.TwoFactorService.IssueRecoveryCodes(r.Context(), id.Email, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dashsdk.RecoveryCodesResponse{RecoveryCodes: codes})
}

// HandleListRecoveryCodes handles GET /2fa/recovery-codes
//
//	@Summary		List recovery codes
//	@Description	Returns the caller's unused recovery codes.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dashsdk.RecoveryCodesResponse	"Unused recovery codes"
//	@Failure		400	{object}	dashsdk.ErrorResponse			"Two-factor not enabled"
//	@Failure		401	{object}	dashsdk.ErrorResponse			"Not signed in"
//	@Failure		404	{object}	dashsdk.ErrorResponse			"User not found"
//	@Failure		500	{object}	dashsdk.ErrorResponse			"Internal server error"
//	@Router			/2fa/recovery-codes [get].
func (h *TwoFactorHandler) HandleListRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	codes, err := h.TwoFactorService.ListRecoveryCodes(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dashsdk.RecoveryCodesResponse{RecoveryCodes: codes})
}

// HandleStatus handles GET /2fa/status
//
//	@Summary		Two-factor status
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dashsdk.StatusResponse	"Current state"
//	@Failure		401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure		404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure		500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router			/2fa/status [get].
func (h *TwoFactorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	st, err := h.TwoFactorService.Status(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dashsdk.StatusResponse{
		Status:                 string(st.Status),
		Enabled:                st.Enabled,
		SetupPending:           st.SetupPending,
		RecoveryCodesRemaining: st.RecoveryCodesRemaining,
	})
}

// HandleVerify handles POST /2fa/verify
//
//	@Summary		Verify a second factor
//	@Description	Accepts a TOTP code or a recovery code. A recovery code is consumed on success.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dashsdk.CodeRequest		true	"TOTP or recovery code"
//	@Success		200		{object}	dashsdk.VerifyResponse	"Which method matched"
//	@Failure		400		{object}	dashsdk.ErrorResponse	"Invalid body, invalid code or not enabled"
//	@Failure		401		{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure		404		{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure		429		{object}	dashsdk.ErrorResponse	"Too many attempts"
//	@Failure		500		{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router			/2fa/verify [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req dashsdk.CodeRequest
	if !decodeAndValidate(w, r, h.Validate, &req) {
		return
	}

	method, err := h.TwoFactorService.Verify(r.Context(), id.UserID, req.Code, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dashsdk.VerifyResponse{Success: true, Method: method})
}
