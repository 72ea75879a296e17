package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:Authorization,cookie:token"

	// ErrJWTMissing is returned when no configured source carries a token
	ErrJWTMissing = errors.New("missing JWT")
	// ErrJWTMalformed is returned when the header is present but does not
	// use the configured auth scheme
	ErrJWTMalformed = errors.New("malformed JWT")
)

// Claims is the view of validated claims the middleware needs.
// It mirrors the JWTClaims type of the auth package without importing it.
type Claims interface {
	UserID() string
}

// TokenValidator validates a raw token and returns its claims
type TokenValidator interface {
	Validate(tokenString string) (Claims, error)
}

// TokenValidatorFunc adapts a function to the TokenValidator interface
type TokenValidatorFunc func(tokenString string) (Claims, error)

// Validate implements TokenValidator
func (f TokenValidatorFunc) Validate(tokenString string) (Claims, error) {
	return f(tokenString)
}

// UserResolver loads the subject of the claims. Whatever it returns is
// stored in the request locals under ContextKey.
type UserResolver func(ctx context.Context, claims Claims) (any, error)

// ValidationListener is invoked after a token has been validated and its
// subject resolved, before the request proceeds.
type ValidationListener func(c router.Context, claims Claims) error

type Config struct {
	Filter func(router.Context) bool
	// SuccessHandler replaces the wrapped handler once the request is
	// authenticated
	SuccessHandler router.HandlerFunc
	ErrorHandler   func(router.Context, error) error
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// UserResolver is optional. When nil the claims are stored in locals.
	UserResolver UserResolver

	// ContextEnricher propagates the resolved value to the request
	// user context.
	ContextEnricher func(ctx context.Context, resolved any) context.Context

	ValidationListeners []ValidationListener
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		success := next
		if cfg.SuccessHandler != nil {
			success = cfg.SuccessHandler
		}

		return func(c router.Context) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return next(c)
			}

			return cfg.authenticate(c, extractors, success)
		}
	}
}

func (cfg *Config) authenticate(c router.Context, extractors []JWTExtractor, success router.HandlerFunc) error {
	raw, err := ExtractRawTokenFromContext(c, extractors)
	if err != nil {
		return cfg.ErrorHandler(c, err)
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return cfg.ErrorHandler(c, err)
	}

	var resolved any = claims
	if cfg.UserResolver != nil {
		resolved, err = cfg.UserResolver(c.Context(), claims)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
	}

	if err := cfg.runValidationListeners(c, claims); err != nil {
		return cfg.ErrorHandler(c, err)
	}

	c.Locals(cfg.ContextKey, resolved)

	if cfg.ContextEnricher != nil {
		c.SetContext(cfg.ContextEnricher(c.Context(), resolved))
	}

	return success(c)
}

// ExtractRawTokenFromContext runs the extractors in order and returns the
// first token found. When none yields a token a malformed header wins over
// a plain missing token.
func ExtractRawTokenFromContext(c router.Context, extractors []JWTExtractor) (string, error) {
	malformed := false

	for _, extractor := range extractors {
		raw, err := extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
		if errors.Is(err, ErrJWTMalformed) {
			malformed = true
		}
	}

	if malformed {
		return "", ErrJWTMalformed
	}
	return "", ErrJWTMissing
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			switch {
			case errors.Is(err, ErrJWTMissing):
				return c.JSON(router.StatusUnauthorized, map[string]string{"message": ErrJWTMissing.Error()})
			case errors.Is(err, ErrJWTMalformed):
				return c.JSON(router.StatusUnauthorized, map[string]string{"message": ErrJWTMalformed.Error()})
			}
			return c.JSON(router.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c router.Context, claims Claims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

// GetExtractors parses a lookup definition such as
// "header:Authorization,cookie:token,query:auth_token,param:token"
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "param":
			extractors = append(extractors, jwtFromParam(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
// The scheme prefix is matched exactly, including the separating space.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	prefix := authScheme + " "
	return func(c router.Context) (string, error) {
		a := c.Header(header)
		if a == "" {
			return "", ErrJWTMissing
		}
		if !strings.HasPrefix(a, prefix) {
			return "", ErrJWTMalformed
		}
		token := strings.TrimSpace(a[len(prefix):])
		if token == "" {
			return "", ErrJWTMalformed
		}
		return token, nil
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}
