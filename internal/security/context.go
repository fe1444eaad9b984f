package security

import "context"

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated caller to ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the caller attached by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}
