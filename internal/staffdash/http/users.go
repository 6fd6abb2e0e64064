package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/pkg/dashsdk"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// UserHandler serves the profile and admin user routes.
type UserHandler struct {
	UserService *service.UserService
	Validate    *validator.Validate
}

// HandleMe handles GET /me
//
//	@Summary	Caller profile
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	dashsdk.UserResponse	"Profile"
//	@Failure	401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure	404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure	500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router		/me [get].
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.Profile(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleMyActivity handles GET /me/activity
//
//	@Summary	Caller activity
//	@Tags		Activity
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query		int							false	"Max entries (1-50)"
//	@Success	200		{object}	dashsdk.ActivityResponse	"Newest first"
//	@Failure	400		{object}	dashsdk.ErrorResponse		"Bad limit"
//	@Failure	401		{object}	dashsdk.ErrorResponse		"Not signed in"
//	@Failure	500		{object}	dashsdk.ErrorResponse		"Internal server error"
//	@Router		/me/activity [get].
func (h *UserHandler) HandleMyActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	h.writeActivity(w, r, id.UserID)
}

// HandleUserActivity handles GET /users/{id}/activity
//
//	@Summary	User activity
//	@Tags		Activity
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id		path		string						true	"User ID"
//	@Param		limit	query		int							false	"Max entries (1-50)"
//	@Success	200		{object}	dashsdk.ActivityResponse	"Newest first"
//	@Failure	400		{object}	dashsdk.ErrorResponse		"Bad limit"
//	@Failure	401		{object}	dashsdk.ErrorResponse		"Not signed in"
//	@Failure	403		{object}	dashsdk.ErrorResponse		"Admin only"
//	@Failure	404		{object}	dashsdk.ErrorResponse		"User not found"
//	@Failure	500		{object}	dashsdk.ErrorResponse		"Internal server error"
//	@Router		/users/{id}/activity [get].
func (h *UserHandler) HandleUserActivity(w http.ResponseWriter, r *http.Request) {
	h.writeActivity(w, r, r.PathValue("id"))
}

func (h *UserHandler) writeActivity(w http.ResponseWriter, r *http.Request, userID string) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	entries, err := h.UserService.ActivityFor(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := dashsdk.ActivityResponse{Activity: make([]dashsdk.ActivityEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Activity = append(resp.Activity, activityEntry(e))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /users
//
//	@Summary	Create a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dashsdk.CreateUserRequest	true	"New user"
//	@Success	201		{object}	dashsdk.UserResponse		"Created"
//	@Failure	400		{object}	dashsdk.ErrorResponse		"Invalid body"
//	@Failure	401		{object}	dashsdk.ErrorResponse		"Not signed in"
//	@Failure	403		{object}	dashsdk.ErrorResponse		"Admin only"
//	@Failure	409		{object}	dashsdk.ErrorResponse		"Email taken"
//	@Failure	500		{object}	dashsdk.ErrorResponse		"Internal server error"
//	@Router		/users [post].
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req dashsdk.CreateUserRequest
	if !decodeAndValidate(w, r, h.Validate, &req) {
		return
	}

	user, err := h.UserService.Create(r.Context(), service.CreateUserInput{
		Email:  req.Email,
		Name:   req.Name,
		Avatar: req.Avatar,
		Role:   req.Role,
	}, id.UserID, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user created", "new_user_id", user.ID, "role", user.Role)
	httpx.WriteJSON(w, http.StatusCreated, userResponse(user))
}

// HandleDeactivate handles POST /users/{id}/deactivate
//
//	@Summary	Deactivate a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string					true	"User ID"
//	@Success	200	{object}	dashsdk.UserResponse	"Updated user"
//	@Failure	401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure	403	{object}	dashsdk.ErrorResponse	"Admin only"
//	@Failure	404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure	500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router		/users/{id}/deactivate [post].
func (h *UserHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// HandleActivate handles POST /users/{id}/activate
//
//	@Summary	Reactivate a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string					true	"User ID"
//	@Success	200	{object}	dashsdk.UserResponse	"Updated user"
//	@Failure	401	{object}	dashsdk.ErrorResponse	"Not signed in"
//	@Failure	403	{object}	dashsdk.ErrorResponse	"Admin only"
//	@Failure	404	{object}	dashsdk.ErrorResponse	"User not found"
//	@Failure	500	{object}	dashsdk.ErrorResponse	"Internal server error"
//	@Router		/users/{id}/activate [post].
func (h *UserHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.SetActive(r.Context(), r.PathValue("id"), active, id.UserID, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user active flag changed", "target_user_id", user.ID, "active", active)
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

func userResponse(u domain.UserProjection) dashsdk.UserResponse {
	return dashsdk.UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role.String(),
		Active:           u.Active,
		Avatar:           u.Avatar,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func activityEntry(e domain.ActivityLogEntry) dashsdk.ActivityEntry {
	return dashsdk.ActivityEntry{
		ID:           e.ID,
		UserID:       e.UserID,
		ActivityType: e.ActivityType,
		Timestamp:    e.Timestamp,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Details:      e.Details,
	}
}
