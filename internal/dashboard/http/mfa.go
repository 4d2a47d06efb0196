package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wattlehq/partnerdesk/internal/dashboard/service"
	"github.com/wattlehq/partnerdesk/pkg/httpx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// MFAHandler covers 2FA enrollment for an already-authenticated user.
// Login-time code verification lives on AuthHandler.
type MFAHandler struct {
	MFAService *service.MFAService
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// HandleSetup handles POST /v1/mfa/setup
//
//	@Summary		Start two-factor enrollment
//	@Description	Generates a TOTP secret, QR code and backup codes. The
//	@Description	backup codes are shown exactly once. 2FA is not active until
//	@Description	a code is confirmed via POST /v1/mfa/enable.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	domain.MFASetupResponse
//	@Failure		409	{object}	httpx.ErrorBody	"Already enabled"
//	@Router			/v1/mfa/setup [post]
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromCtx(ctx)

	resp, err := h.MFAService.Setup(ctx, userID)
	switch {
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "two-factor authentication is already enabled")
		return
	case err != nil:
		log.Error("2fa setup failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleEnable handles POST /v1/mfa/enable
//
//	@Summary	Confirm enrollment with a TOTP code
//	@Tags		MFA
//	@Accept		json
//	@Success	204
//	@Failure	400	{object}	httpx.ErrorBody	"Invalid code or setup not started"
//	@Router		/v1/mfa/enable [post]
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromCtx(ctx)

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.MFAService.Enable(ctx, userID, req.Code)
	switch {
	case errors.Is(err, service.ErrSetupNotFound):
		httpx.WriteError(w, http.StatusBadRequest, "two-factor setup has not been started")
		return
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "two-factor authentication is already enabled")
		return
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid two-factor code")
		return
	case err != nil:
		log.Error("2fa enable failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles POST /v1/mfa/disable
//
//	@Summary	Disable two-factor authentication
//	@Tags		MFA
//	@Accept		json
//	@Success	204
//	@Failure	400	{object}	httpx.ErrorBody	"Invalid code or not enabled"
//	@Router		/v1/mfa/disable [post]
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromCtx(ctx)

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.MFAService.Disable(ctx, userID, req.Code)
	switch {
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "two-factor authentication is not enabled")
		return
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid two-factor code")
		return
	case err != nil:
		log.Error("2fa disable failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
