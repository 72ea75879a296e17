package auth

import (
	"context"

	"github.com/goliatone/go-report-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// UserContextEnricher stores a resolved *User in the standard context.
// Values of any other type leave the context untouched.
func UserContextEnricher(c context.Context, resolved any) context.Context {
	user, ok := resolved.(*User)
	if !ok || user == nil {
		return c
	}
	return WithContext(c, user)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
