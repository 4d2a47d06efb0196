package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/service"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/httpx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// UsersHandler covers account management. Provisioning, role and active
// toggles are admin-only; "me" and password change serve any session.
type UsersHandler struct {
	UserService *service.UserService
}

type provisionUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"fullName"`
	Role     domain.Role `json:"role"`
}

type setRoleRequest struct {
	Role domain.Role `json:"role"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleProvision handles POST /v1/users
//
//	@Summary		Provision a user account
//	@Description	Creates an account with a generated initial password, which
//	@Description	is returned exactly once.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	service.ProvisionedUser
//	@Failure		409	{object}	httpx.ErrorBody	"Username or email taken"
//	@Router			/v1/users [post]
func (h *UsersHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req provisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.UserService.Provision(ctx, req.Username, req.Email, req.FullName, req.Role)
	switch {
	case errors.Is(err, service.ErrUserExists):
		httpx.WriteError(w, http.StatusConflict, "username or email already in use")
		return
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid role")
		return
	case err != nil:
		log.Warn("user provisioning failed", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "could not create user")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// HandleList handles GET /v1/users
//
//	@Summary	List user accounts
//	@Tags		Users
//	@Produce	json
//	@Success	200	{array}	domain.PublicUser
//	@Router		/v1/users [get]
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.List(ctx)
	if err != nil {
		log.Error("list users failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

// HandleGet handles GET /v1/users/{id}
//
//	@Summary	Get one user account
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	domain.PublicUser
//	@Failure	404	{object}	httpx.ErrorBody
//	@Router		/v1/users/{id} [get]
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserService.Get(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("get user failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

// HandleSetRole handles PUT /v1/users/{id}/role
//
//	@Summary	Change a user's role
//	@Tags		Users
//	@Accept		json
//	@Success	204
//	@Router		/v1/users/{id}/role [put]
func (h *UsersHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.UserService.SetRole(ctx, r.PathValue("id"), req.Role)
	switch {
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid role")
		return
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		slogx.FromContext(ctx).Error("set role failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetActive handles PUT /v1/users/{id}/active
//
//	@Summary	Activate or deactivate an account
//	@Tags		Users
//	@Accept		json
//	@Success	204
//	@Router		/v1/users/{id}/active [put]
func (h *UsersHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.UserService.SetActive(ctx, r.PathValue("id"), req.Active)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		slogx.FromContext(ctx).Error("set active failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /v1/me
//
//	@Summary	Get the authenticated user's own profile
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	domain.PublicUser
//	@Router		/v1/me [get]
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserService.Get(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Error("load own profile failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, user)
}

// HandleChangePassword handles PUT /v1/me/password
//
//	@Summary	Change own password
//	@Tags		Users
//	@Accept		json
//	@Success	204
//	@Failure	400	{object}	httpx.ErrorBody	"Wrong current password or new one too short"
//	@Router		/v1/me/password [put]
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.UserService.ChangePassword(ctx, httpx.UserIDFromCtx(ctx), req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusBadRequest, "current password is incorrect")
		return
	case errors.Is(err, service.ErrPasswordTooShort):
		httpx.WriteError(w, http.StatusBadRequest, "new password is too short")
		return
	case err != nil:
		slogx.FromContext(ctx).Error("change password failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
