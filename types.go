package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator issues tokens for stored credentials and turns tokens
// back into users.
type Authenticator interface {
	Register(ctx context.Context, msg RegisterUserMessage) (*User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ClaimsFromToken(raw string) (*JWTClaims, error)
	UserFromClaims(ctx context.Context, claims *JWTClaims) (*User, error)
	UpdateProfile(ctx context.Context, user *User, edit ProfileEdit) (*User, error)
}

// LoginPayload holds the credentials of a login request
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// LoginResult is what a successful login hands back to the client
type LoginResult struct {
	Token     string    `json:"token"`
	UserType  UserType  `json:"userType"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningKeyID() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetCookieName() string
	GetCookieDomain() string
	GetCookieSecure() bool
	GetCookieSameSite() string
}

// UserStore is the persistence contract the auth flow needs.
// Implementations must return ErrUserNotFound when a record is missing
// and ErrEmailAlreadyExists on a unique email collision.
type UserStore interface {
	Register(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, edit ProfileEdit) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] AUTH " + newline(formatMessage(format, args...)))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] AUTH " + newline(formatMessage(format, args...)))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] AUTH " + newline(formatMessage(format, args...)))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] AUTH " + newline(formatMessage(format, args...)))
}

// formatMessage supports both printf style calls and a message followed
// by key/value pairs.
func formatMessage(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}

	if strings.Contains(format, "%") {
		return fmt.Sprintf(format, args...)
	}

	var b strings.Builder
	b.WriteString(format)
	for i := 0; i < len(args); i += 2 {
		b.WriteString(" ")
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return b.String()
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
