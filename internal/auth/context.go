package auth

import "context"

type contextKey struct{}

// Principal is the authenticated admin attached to a request.
type Principal struct {
	AdminID  int64
	Username string
	Name     string
	TokenID  string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

func AdminID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return p.AdminID
}
