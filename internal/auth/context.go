package auth

import "context"

type contextKey struct{}

// Identity is the caller a request acts on behalf of. The zero value is anonymous.
type Identity struct {
	UserID    int64
	Username  string
	SessionID int64
}

// Authenticated reports whether the identity belongs to a logged-in user.
func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Current returns the identity stored in ctx, or the anonymous identity.
func Current(ctx context.Context) Identity {
	id, _ := FromContext(ctx)
	return id
}

func UserID(ctx context.Context) int64 {
	return Current(ctx).UserID
}
