package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-report-auth/middleware/jwtware"
)

// HTTPAuthenticator is the HTTP facing side of the authenticator
type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) (*LoginResult, error)
	Logout(c router.Context)
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeAuthErrorHandler() func(router.Context, error) error
	GetContextKey() string
}

type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	listeners      []ValidationListener
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required")
	}

	if cfg == nil {
		return nil, errors.New("auth config is required")
	}

	cookieDuration := DefaultTokenTTL
	if cfg.GetTokenTTL() > 0 {
		cookieDuration = cfg.GetTokenTTL()
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// WithValidationListeners runs listeners on every protected request after
// the user is resolved.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetContextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return "user"
}

// ProtectedRoute verifies the token, resolves the stored user and exposes
// it through locals and the request user context.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if cfg == nil {
		cfg = a.cfg
	}

	if errorHandler == nil {
		errorHandler = a.MakeAuthErrorHandler()
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		TokenValidator: middlewareValidator(TokenValidatorFunc(a.auth.ClaimsFromToken)),
		UserResolver: func(ctx context.Context, claims jwtware.Claims) (any, error) {
			jc, ok := claims.(*JWTClaims)
			if !ok {
				return nil, invalidTokenError(nil)
			}
			return a.auth.UserFromClaims(ctx, jc)
		},
		ContextEnricher:     UserContextEnricher,
		ValidationListeners: a.listeners,
	})
}

// Login verifies the credentials and delivers the token both in the
// response and as an http only cookie that expires with the token.
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) (*LoginResult, error) {
	res, err := a.auth.Login(c.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	duration := a.cookieDuration
	if !res.ExpiresAt.IsZero() {
		duration = time.Until(res.ExpiresAt)
	}

	a.setCookieToken(c, res.Token, duration)
	return res, nil
}

func (a *RouteAuthenticator) Logout(c router.Context) {
	a.cookieDel(c, a.cookieName())
}

// MakeAuthErrorHandler maps middleware failures to JSON error responses
func (a *RouteAuthenticator) MakeAuthErrorHandler() func(router.Context, error) error {
	return func(c router.Context, err error) error {
		switch {
		case errors.Is(err, jwtware.ErrJWTMissing):
			err = ErrMissingToken
		case errors.Is(err, jwtware.ErrJWTMalformed):
			err = ErrMalformedToken
		}
		return a.ErrorHandler(c, err)
	}
}

func (a *RouteAuthenticator) cookieName() string {
	if name := a.cfg.GetCookieName(); name != "" {
		return name
	}
	return "token"
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName(),
		Value:    val,
		Path:     "/",
		Domain:   a.cfg.GetCookieDomain(),
		MaxAge:   int(duration.Seconds()),
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: a.cfg.GetCookieSameSite(),
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.GetCookieDomain(),
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: a.cfg.GetCookieSameSite(),
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	status, body := ErrorResponse(err, msgUserLookupFailed)

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		a.Logger.Info(
			"Middleware error handler",
			"error", richErr.Message,
			"category", richErr.Category,
			"path", c.OriginalURL(),
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	} else {
		a.Logger.Error("Middleware error handler", "error", err, "path", c.OriginalURL())
	}

	return c.JSON(status, body)
}
