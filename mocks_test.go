package auth_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-report-auth"
)

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	switch v := args.Get(0).(type) {
	case *auth.User:
		return v, args.Error(1)
	case func(context.Context, *auth.User) *auth.User:
		return v(ctx, user), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, edit auth.ProfileEdit) (*auth.User, error) {
	args := m.Called(ctx, id, edit)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockLogger implements auth.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// silentLogger drops everything
type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

// testConfig implements auth.Config
type testConfig struct {
	signingKey string
	keyID      string
	ttl        time.Duration
	issuer     string
	lookup     string
	secure     bool
	sameSite   string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey: "test-signing-key",
		keyID:      "test",
		ttl:        time.Hour,
		issuer:     "report-api",
		lookup:     "header:Authorization,cookie:token",
		secure:     true,
		sameSite:   "None",
	}
}

func (c *testConfig) GetSigningKey() string      { return c.signingKey }
func (c *testConfig) GetSigningKeyID() string    { return c.keyID }
func (c *testConfig) GetTokenTTL() time.Duration { return c.ttl }
func (c *testConfig) GetIssuer() string          { return c.issuer }
func (c *testConfig) GetContextKey() string      { return "user" }
func (c *testConfig) GetTokenLookup() string     { return c.lookup }
func (c *testConfig) GetAuthScheme() string      { return "Bearer" }
func (c *testConfig) GetCookieName() string      { return "token" }
func (c *testConfig) GetCookieDomain() string    { return "" }
func (c *testConfig) GetCookieSecure() bool      { return c.secure }
func (c *testConfig) GetCookieSameSite() string  { return c.sameSite }

func mustHash(t interface{ Fatalf(string, ...any) }, password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newStoredUser(t interface{ Fatalf(string, ...any) }, email, password string) *auth.User {
	return &auth.User{
		ID:           uuid.New(),
		FirstName:    "Ana",
		LastName:     "Silva",
		Phone:        "+5511999999999",
		CityState:    "São Paulo/SP",
		Email:        email,
		PasswordHash: mustHash(t, password),
		UserType:     auth.UserTypeFree,
	}
}
