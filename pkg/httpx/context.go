package httpx

import (
	"context"

	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// WithIdentity stores the authenticated caller on the context.
func WithIdentity(ctx context.Context, id sessionx.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the caller set by AuthnMiddleware.
func IdentityFromContext(ctx context.Context) (sessionx.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(sessionx.Identity)
	return id, ok
}
