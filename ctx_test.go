package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-report-auth"
	"github.com/goliatone/go-report-auth/middleware/jwtware"
)

func TestWithContext_FromContext(t *testing.T) {
	user := &auth.User{ID: uuid.New()}

	ctx := auth.WithContext(context.Background(), user)
	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.WithContext(context.Background(), nil))
	assert.False(t, ok)

	var nilCtx context.Context
	_, ok = auth.FromContext(nilCtx)
	assert.False(t, ok)
}

func TestUserContextEnricher(t *testing.T) {
	user := &auth.User{ID: uuid.New()}

	ctx := auth.UserContextEnricher(context.Background(), user)
	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)

	base := context.Background()
	assert.Equal(t, base, auth.UserContextEnricher(base, "not a user"))
	assert.Equal(t, base, auth.UserContextEnricher(base, (*auth.User)(nil)))
}

func TestRegisterValidationListeners(t *testing.T) {
	cfg := &jwtware.Config{}
	listener := func(router.Context, jwtware.Claims) error { return nil }

	auth.RegisterValidationListeners(cfg, listener, listener)
	assert.Len(t, cfg.ValidationListeners, 2)

	auth.RegisterValidationListeners(cfg)
	assert.Len(t, cfg.ValidationListeners, 2)

	assert.NotPanics(t, func() { auth.RegisterValidationListeners(nil, listener) })
}

func TestGetRouterUser(t *testing.T) {
	user := &auth.User{ID: uuid.New()}

	tests := []struct {
		name   string
		setup  func(router.Context)
		key    string
		status int
	}{
		{
			name:   "from locals",
			setup:  func(c router.Context) { c.Locals("user", user) },
			key:    "user",
			status: http.StatusOK,
		},
		{
			name:   "from custom key",
			setup:  func(c router.Context) { c.Locals("account", user) },
			key:    "account",
			status: http.StatusOK,
		},
		{
			name:   "from user context",
			setup:  func(c router.Context) { c.SetContext(auth.WithContext(c.Context(), user)) },
			key:    "user",
			status: http.StatusOK,
		},
		{
			name:   "missing",
			setup:  func(router.Context) {},
			key:    "",
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := func(next router.HandlerFunc) router.HandlerFunc {
				return func(c router.Context) error {
					tt.setup(c)
					return next(c)
				}
			}

			r, app := newRouter(t)
			r.Get("/", func(c router.Context) error {
				got, err := auth.MustGetRouterUser(c, tt.key)
				if err != nil {
					assert.ErrorIs(t, err, auth.ErrUnableToFindUser)
					return c.NoContent(http.StatusUnauthorized)
				}
				assert.Equal(t, user.ID, got.ID)
				return c.NoContent(http.StatusOK)
			}, setup)

			res, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}
