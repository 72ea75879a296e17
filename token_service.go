package auth

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenTTL is used when the config does not set a lifetime
const DefaultTokenTTL = time.Hour

// DefaultSigningKeyID is stamped on the kid header when none is configured
const DefaultSigningKeyID = "default"

// TokenService signs and validates user tokens
type TokenService interface {
	Generate(user *User) (string, time.Time, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
	TTL() time.Duration
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	keyID      string
	ttl        time.Duration
	issuer     string
	keyfunc    jwt.Keyfunc
	now        func() time.Time
	logger     Logger
}

// TokenServiceOption customizes a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock replaces time.Now for signing and validation
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance.
// Only tokens carrying keyID in their kid header and signed with
// signingKey under HS256 validate.
func NewTokenService(signingKey []byte, keyID string, ttl time.Duration, issuer string, opts ...TokenServiceOption) *TokenServiceImpl {
	if keyID == "" {
		keyID = DefaultSigningKeyID
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	given := map[string]keyfunc.GivenKey{
		keyID: keyfunc.NewGivenCustom(signingKey, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		}),
	}

	ts := &TokenServiceImpl{
		signingKey: signingKey,
		keyID:      keyID,
		ttl:        ttl,
		issuer:     issuer,
		keyfunc:    keyfunc.NewGiven(given).Keyfunc,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// NewTokenServiceFromConfig builds the service from the auth config
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSigningKeyID(),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		opts...,
	)
}

// TTL is the lifetime of generated tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate creates a token for the given user
func (ts *TokenServiceImpl) Generate(user *User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	expiresAt := now.Add(ts.ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:  user.ID.String(),
		Tier: user.UserType,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Every failure, expired tokens included, maps to ErrInvalidToken.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keyfunc, parserOptions...)
	if err != nil {
		ts.logger.Debug("token validation failed: %s", err)
		return nil, invalidTokenError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, invalidTokenError(nil)
	}

	if claims.UserID() == "" {
		return nil, invalidTokenError(fmt.Errorf("token has no user id claim"))
	}

	return claims, nil
}

func invalidTokenError(err error) *errors.Error {
	if err == nil {
		err = fmt.Errorf("token is invalid")
	}
	return errors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
		WithTextCode(ErrInvalidToken.TextCode).
		WithCode(ErrInvalidToken.Code)
}
