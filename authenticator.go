package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// LoginTimeout bounds credential verification and signing
var LoginTimeout = time.Second * 10

type Auther struct {
	store          UserStore
	provider       *UserProvider
	register       *RegisterUserHandler
	logger         Logger
	tokenService   TokenService
	tokenValidator TokenValidator
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store UserStore, opts Config) *Auther {
	return &Auther{
		store:        store,
		provider:     NewUserProvider(store),
		register:     NewRegisterUserHandler(store, nil),
		logger:       defLogger{},
		tokenService: NewTokenServiceFromConfig(opts),
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	s.provider.WithLogger(logger)
	s.register.logger = logger
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		ts.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService replaces the token service built from the config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithTokenValidator sets a custom validator used instead of the token service.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// ActivitySink returns the configured sink
func (s *Auther) ActivitySink() ActivitySink {
	return normalizeActivitySink(s.activitySink)
}

func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	user, err := s.register.Execute(ctx, msg)
	if err != nil {
		emitActivity(ctx, s.activitySink, s.logger, ActivityEventRegisterFailure, nil, map[string]any{
			"email": NormalizeEmail(msg.Email),
			"error": err.Error(),
		})
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEventRegisterSuccess, user, nil)
	return user, nil
}

func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		emitActivity(ctx, s.activitySink, s.logger, ActivityEventLoginFailure, nil, map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		})
		return nil, err
	}

	token, expiresAt, err := s.tokenService.Generate(user)
	if err != nil {
		s.logger.Error("Login generate token error", "error", err)
		emitActivity(ctx, s.activitySink, s.logger, ActivityEventLoginFailure, user, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEventLoginSuccess, user, nil)

	return &LoginResult{
		Token:     token,
		UserType:  user.UserType,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Auther) ClaimsFromToken(raw string) (*JWTClaims, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Debug("ClaimsFromToken validation failed", "error", err)
		return nil, err
	}

	return claims, nil
}

// UserFromClaims loads the token subject. The tier always comes from the
// stored record, never from the claims.
func (s *Auther) UserFromClaims(ctx context.Context, claims *JWTClaims) (*User, error) {
	if claims == nil {
		return nil, invalidTokenError(nil)
	}

	id, err := claims.UserUUID()
	if err != nil {
		// a well signed token whose subject can not exist in storage
		return nil, ErrUserNotFound
	}

	return s.UserByID(ctx, id)
}

// UserByID fetches a user mapping storage failures to a persistence error
func (s *Auther) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if IsUserNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("UserByID store error", "error", err, "user_id", id.String())
		return nil, NewPersistenceError(err, msgUserLookupFailed)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// UpdateProfile applies a profile edit to the user
func (s *Auther) UpdateProfile(ctx context.Context, user *User, edit ProfileEdit) (*User, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	updated, err := s.store.UpdateProfile(ctx, user.ID, edit)
	if err != nil {
		if IsUserNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("UpdateProfile store error", "error", err, "user_id", user.ID.String())
		return nil, NewPersistenceError(err, msgProfileUpdateFailed)
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEventProfileUpdated, updated, nil)
	return updated, nil
}

var _ Authenticator = (*Auther)(nil)
