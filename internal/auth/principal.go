// Package auth turns bearer tokens issued by the identity provider into
// verified principals. The feed core only ever sees a Principal.
package auth

import "context"

// Principal is the verified identity of the acting user.
type Principal struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}
