package domain

import "context"

type claimsKey struct{}

// Claims identify the caller of a bearer-protected request on the
// reference server.
type Claims struct {
	UserID string
	Email  string
	Roles  []Role
}

// WithClaims stores c in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext retrieves Claims from context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
