package jwtware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-report-auth/middleware/jwtware"
)

var signingKey = []byte("test-secret")

type testClaims struct {
	jwt.RegisteredClaims
}

func (c *testClaims) UserID() string { return c.Subject }

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, key []byte, sub string, exp time.Time) string {
	t.Helper()

	if exp.IsZero() {
		exp = time.Now().Add(time.Hour)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func hmacValidator(key []byte) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
		claims := &testClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

var errUnknownUser = errors.New("unknown user")

type principal struct {
	ID string
}

type principalKey struct{}

// newServer returns a router backed by fiber and the fiber app itself so
// requests can be replayed with app.Test.
func newServer(t *testing.T) (router.Router[*fiber.App], *fiber.App) {
	t.Helper()

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})
	r := srv.Router()
	require.NotNil(t, app)
	return r, app
}

func showPrincipal(c router.Context) error {
	body := map[string]any{}
	if p, ok := c.Locals("user").(*principal); ok {
		body["local"] = p.ID
	}
	if p, ok := c.Context().Value(principalKey{}).(*principal); ok {
		body["ctx"] = p.ID
	}
	return c.JSON(router.StatusOK, body)
}

func newApp(t *testing.T, cfg jwtware.Config) *fiber.App {
	t.Helper()

	if cfg.TokenValidator == nil {
		cfg.TokenValidator = hmacValidator(signingKey)
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			status := http.StatusUnauthorized
			if errors.Is(err, errUnknownUser) {
				status = http.StatusNotFound
			}
			return c.JSON(status, map[string]any{"error": err.Error()})
		}
	}

	r, app := newServer(t)
	r.Get("/protected", showPrincipal, jwtware.New(cfg))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	res, err := app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return res.StatusCode, body
}

func resolver(known ...string) jwtware.UserResolver {
	return func(ctx context.Context, claims jwtware.Claims) (any, error) {
		for _, id := range known {
			if id == claims.UserID() {
				return &principal{ID: id}, nil
			}
		}
		return nil, errUnknownUser
	}
}

func enricher(ctx context.Context, resolved any) context.Context {
	return context.WithValue(ctx, principalKey{}, resolved)
}

func TestJWTWare_MissingToken(t *testing.T) {
	app := newApp(t, jwtware.Config{})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, jwtware.ErrJWTMissing.Error(), body["error"])
}

func TestJWTWare_MalformedHeader(t *testing.T) {
	app := newApp(t, jwtware.Config{})
	token := generateToken(t, signingKey, "42", time.Time{})

	cases := map[string]string{
		"no scheme":        token,
		"lowercase":        "bearer " + token,
		"no space":         "Bearer" + token,
		"different":        "Token " + token,
		"empty credential": "Bearer ",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", header)

			status, body := do(t, app, req)

			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, jwtware.ErrJWTMalformed.Error(), body["error"])
		})
	}
}

func TestJWTWare_CookieRescuesMalformedHeader(t *testing.T) {
	app := newApp(t, jwtware.Config{UserResolver: resolver("42")})
	token := generateToken(t, signingKey, "42", time.Time{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	status, body := do(t, app, req)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "42", body["local"])
}

func TestJWTWare_InvalidToken(t *testing.T) {
	app := newApp(t, jwtware.Config{UserResolver: resolver("42")})

	cases := map[string]string{
		"other secret": generateToken(t, []byte("another-secret"), "42", time.Time{}),
		"expired":      generateToken(t, signingKey, "42", time.Now().Add(-time.Minute)),
		"garbage":      "not.a.token",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			status, body := do(t, app, req)

			assert.Equal(t, http.StatusUnauthorized, status)
			assert.NotContains(t, body, "local")
		})
	}
}

func TestJWTWare_UnknownSubject(t *testing.T) {
	app := newApp(t, jwtware.Config{UserResolver: resolver("42")})
	token := generateToken(t, signingKey, "7", time.Time{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	status, body := do(t, app, req)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errUnknownUser.Error(), body["error"])
}

func TestJWTWare_Success(t *testing.T) {
	app := newApp(t, jwtware.Config{
		UserResolver:    resolver("42"),
		ContextEnricher: enricher,
	})
	token := generateToken(t, signingKey, "42", time.Time{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	status, body := do(t, app, req)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "42", body["local"])
	assert.Equal(t, "42", body["ctx"])
}

func TestJWTWare_ClaimsStoredWithoutResolver(t *testing.T) {
	var seen jwtware.Claims

	cfg := jwtware.GetDefaultConfig(jwtware.Config{TokenValidator: hmacValidator(signingKey)})
	r, app := newServer(t)
	r.Get("/protected", func(c router.Context) error {
		seen, _ = c.Locals(cfg.ContextKey).(jwtware.Claims)
		return c.NoContent(http.StatusNoContent)
	}, jwtware.New(cfg))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, signingKey, "42", time.Time{}))

	res, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	require.NotNil(t, seen)
	assert.Equal(t, "42", seen.UserID())
}

func TestJWTWare_ValidationListenerCanReject(t *testing.T) {
	rejected := errors.New("listener rejected")

	app := newApp(t, jwtware.Config{
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c router.Context, claims jwtware.Claims) error { return rejected },
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, signingKey, "42", time.Time{}))

	status, body := do(t, app, req)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, rejected.Error(), body["error"])
}

func TestJWTWare_FilterSkipsVerification(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Filter: func(c router.Context) bool { return c.Header("X-Skip") == "1" },
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Skip", "1")

	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	app := newApp(t, jwtware.Config{
		TokenLookup:  "query:auth_token",
		UserResolver: resolver("42"),
	})
	token := generateToken(t, signingKey, "42", time.Time{})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/protected?auth_token="+token, nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "42", body["local"])
}

func TestJWTWare_DefaultErrorHandler(t *testing.T) {
	r, app := newServer(t)
	r.Get("/protected", func(c router.Context) error {
		return c.NoContent(router.StatusOK)
	}, jwtware.New(jwtware.Config{TokenValidator: hmacValidator(signingKey)}))

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, jwtware.ErrJWTMissing.Error(), body["message"])
}

func TestJWTWare_SuccessHandlerReplacesRoute(t *testing.T) {
	r, app := newServer(t)
	r.Get("/protected", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]any{"from": "route"})
	}, jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(signingKey),
		SuccessHandler: func(c router.Context) error {
			return c.JSON(http.StatusAccepted, map[string]any{"from": "success"})
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, signingKey, "42", time.Time{}))

	status, body := do(t, app, req)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "success", body["from"])
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}

func TestGetDefaultConfigDefaults(t *testing.T) {
	cfg := jwtware.GetDefaultConfig(jwtware.Config{TokenValidator: hmacValidator(signingKey)})

	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, "header:Authorization,cookie:token", cfg.TokenLookup)
	assert.Len(t, jwtware.GetExtractors(cfg.TokenLookup, cfg.AuthScheme), 2)
}

func TestGetExtractorsSkipsInvalidParts(t *testing.T) {
	extractors := jwtware.GetExtractors("header:,bogus,cookie:token,unknown:x")
	assert.Len(t, extractors, 1)
}
