package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// writeServiceError maps service errors onto HTTP responses. Anything
// unrecognised is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, service.ErrNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "2fa_not_enabled", "Two-factor authentication is not enabled")
	case errors.Is(err, service.ErrAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "2fa_already_enabled", "Two-factor authentication is already enabled")
	case errors.Is(err, service.ErrSetupNotPending):
		httpx.WriteError(w, http.StatusBadRequest, "2fa_setup_not_pending", "No two-factor setup is in progress")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid verification code")
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, service.ErrConcurrentUpdate):
		httpx.WriteError(w, http.StatusConflict, "2fa_state_changed", "Two-factor state changed, retry the request")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "A user with that email already exists")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 itself and reports whether the handler should go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return false
	}
	if v == nil {
		return true
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
				"Field "+verrs[0].Field()+" failed "+verrs[0].Tag()+" validation")
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
		return false
	}
	return true
}

// caller returns the authenticated identity. AuthnMiddleware guarantees one
// exists; the fallback covers handlers mounted without it.
func caller(w http.ResponseWriter, r *http.Request) (sessionx.Identity, bool) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return sessionx.Identity{}, false
	}
	return id, true
}

func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// parseLimit reads ?limit=. Missing means 0, which the service treats as
// the maximum.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return 0, false
	}
	return n, true
}
