package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// GetRouterUser extracts the User stored by the protected route middleware.
// Locals are checked first, then the request user context.
func GetRouterUser(c router.Context, key string) (*User, bool) {
	if key == "" {
		key = "user"
	}

	if user, ok := c.Locals(key).(*User); ok && user != nil {
		return user, true
	}

	return FromContext(c.Context())
}

// MustGetRouterUser is GetRouterUser returning ErrUnableToFindUser when
// the middleware did not run.
func MustGetRouterUser(c router.Context, key string) (*User, error) {
	user, ok := GetRouterUser(c, key)
	if !ok {
		return nil, ErrUnableToFindUser
	}
	return user, nil
}
