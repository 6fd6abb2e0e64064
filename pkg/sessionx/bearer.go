package sessionx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
)

// BearerAuthenticator accepts "Authorization: Bearer <jwt>".
type BearerAuthenticator struct {
	Verifier jwtx.Verifier
}

func (b BearerAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return Identity{}, ErrNoSession
	}

	scheme, raw, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return Identity{}, fmt.Errorf("%w: malformed authorization header", ErrInvalidSession)
	}
	if b.Verifier == nil {
		return Identity{}, fmt.Errorf("%w: bearer tokens not accepted", ErrInvalidSession)
	}

	claims, err := b.Verifier.Verify(strings.TrimSpace(raw))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	return normalise(Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Name:   claims.Name,
		Method: "bearer",
	}), nil
}
