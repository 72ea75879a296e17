package auth

import "github.com/goliatone/go-report-auth/middleware/jwtware"

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*JWTClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*JWTClaims, error) {
	if f == nil {
		return nil, invalidTokenError(nil)
	}
	return f(tokenString)
}

// middlewareValidator exposes a TokenValidator to the jwtware package
func middlewareValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
		claims, err := v.Validate(raw)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}
