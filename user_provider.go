package auth

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// UserFinder is the part of the store needed to verify credentials
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider handles users
type UserProvider struct {
	store  UserFinder
	hasher PasswordAuthenticator
	// Validator runs after the password matched. Nil accepts every user.
	Validator func(*User) error
	logger    Logger
	provider  LoggerProvider
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	_, logger := ResolveLogger("auth.user_provider", nil, nil)
	return &UserProvider{
		store:  store,
		hasher: BcryptHasher{},
		logger: logger,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", provider, u.logger)
	return u
}

// WithPasswordAuthenticator replaces the bcrypt helpers
func (u *UserProvider) WithPasswordAuthenticator(hasher PasswordAuthenticator) *UserProvider {
	if hasher != nil {
		u.hasher = hasher
	}
	return u
}

func (u *UserProvider) validate(user *User) error {
	if _, ok := ParseUserType(user.UserType); !ok {
		u.logger.Warn("user has an unknown type", "user_type", user.UserType, "user_id", user.ID.String())
	}
	if u.Validator != nil {
		return u.Validator(user)
	}
	return nil
}

// VerifyIdentity will find the user by email and compare the password.
// An unknown email is ErrLoginUserNotFound and a wrong password is
// ErrMismatchedHashAndPassword.
func (u UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if IsUserNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrLoginUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil || reflect.ValueOf(*user).IsZero() {
		return nil, ErrLoginUserNotFound
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("password mismatch", "user_id", user.ID.String())
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return user, nil
}
