package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-report-auth"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// BaseConfig is the process configuration, read from the environment once
// at startup.
type BaseConfig struct {
	Port int `env:"PORT" envDefault:"5000" json:"port"`

	JWTSecret  string        `env:"JWT_SECRET" json:"-"`
	JWTKeyID   string        `env:"JWT_KEY_ID" envDefault:"default" json:"jwt_key_id"`
	JWTIssuer  string        `env:"JWT_ISSUER" json:"jwt_issuer"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"1h" json:"token_ttl"`
	ContextKey string        `env:"AUTH_CONTEXT_KEY" envDefault:"user" json:"context_key"`

	// TokenLookup defaults to the Authorization header plus CookieName
	TokenLookup string `env:"AUTH_TOKEN_LOOKUP" json:"token_lookup"`
	AuthScheme  string `env:"AUTH_SCHEME" envDefault:"Bearer" json:"auth_scheme"`

	CookieName     string `env:"COOKIE_NAME" envDefault:"token" json:"cookie_name"`
	CookieDomain   string `env:"COOKIE_DOMAIN" json:"cookie_domain"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"true" json:"cookie_secure"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"None" json:"cookie_same_site"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"mongo" json:"database_driver"`
	MongoURI       string `env:"MONGO_URI" json:"-"`
	MongoDatabase  string `env:"MONGO_DATABASE" envDefault:"relatorio" json:"mongo_database"`
	SQLiteDSN      string `env:"SQLITE_DSN" envDefault:"file::memory:?cache=shared" json:"sqlite_dsn"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000" json:"frontend_url"`

	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY" json:"-"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1" json:"openrouter_base_url"`
	OpenRouterModel   string        `env:"OPENROUTER_MODEL" envDefault:"nvidia/llama-3.1-nemotron-70b-instruct:free" json:"openrouter_model"`
	SiteURL           string        `env:"SITE_URL" json:"site_url"`
	SiteName          string        `env:"SITE_NAME" json:"site_name"`
	ReportTimeout     time.Duration `env:"REPORT_TIMEOUT" envDefault:"60s" json:"report_timeout"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" json:"log_level"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false" json:"log_pretty"`

	Debug bool `env:"DEBUG" envDefault:"false" json:"debug"`
}

var _ auth.Config = (*BaseConfig)(nil)

// Load reads and validates the configuration from the process environment
func Load() (*BaseConfig, error) {
	return LoadWithOptions(env.Options{})
}

// LoadWithOptions is Load with explicit env options, e.g. a fixed
// Environment map in tests.
func LoadWithOptions(opts env.Options) (*BaseConfig, error) {
	cfg, err := env.ParseAsWithOptions[BaseConfig](opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "unable to parse environment").
			WithTextCode("CONFIG_PARSE")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid configuration").
			WithTextCode("CONFIG_INVALID")
	}

	return &cfg, nil
}

func (c BaseConfig) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.JWTSecret, validation.Required),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.TokenLookup, validation.By(c.lookupMatchesCookie)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.CookieSameSite, validation.In("Strict", "Lax", "None")),
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In(DriverMongo, DriverSQLite)),
		validation.Field(&c.FrontendURL, is.URL),
		validation.Field(&c.OpenRouterBaseURL, validation.Required, is.URL),
		validation.Field(&c.ReportTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "disabled")),
	}

	switch c.DatabaseDriver {
	case DriverMongo:
		rules = append(rules,
			validation.Field(&c.MongoURI, validation.Required),
			validation.Field(&c.MongoDatabase, validation.Required),
		)
	case DriverSQLite:
		rules = append(rules, validation.Field(&c.SQLiteDSN, validation.Required))
	}

	return validation.ValidateStruct(&c, rules...)
}

// lookupMatchesCookie rejects a cookie source that reads a different cookie
// than the one login writes.
func (c BaseConfig) lookupMatchesCookie(value any) error {
	lookup, _ := value.(string)
	for _, source := range strings.Split(lookup, ",") {
		kind, name, ok := strings.Cut(strings.TrimSpace(source), ":")
		if !ok || strings.TrimSpace(kind) != "cookie" {
			continue
		}
		if name = strings.TrimSpace(name); name != c.CookieName {
			return errors.New(
				fmt.Sprintf("cookie source %q does not match COOKIE_NAME %q", name, c.CookieName),
				errors.CategoryValidation,
			)
		}
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c BaseConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c BaseConfig) GetSigningKey() string {
	return c.JWTSecret
}

func (c BaseConfig) GetSigningKeyID() string {
	return c.JWTKeyID
}

func (c BaseConfig) GetTokenTTL() time.Duration {
	return c.TokenTTL
}

func (c BaseConfig) GetIssuer() string {
	return c.JWTIssuer
}

func (c BaseConfig) GetContextKey() string {
	return c.ContextKey
}

func (c BaseConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:" + c.CookieName
	}
	return c.TokenLookup
}

func (c BaseConfig) GetAuthScheme() string {
	return c.AuthScheme
}

func (c BaseConfig) GetCookieName() string {
	return c.CookieName
}

func (c BaseConfig) GetCookieDomain() string {
	return c.CookieDomain
}

func (c BaseConfig) GetCookieSecure() bool {
	return c.CookieSecure
}

func (c BaseConfig) GetCookieSameSite() string {
	return c.CookieSameSite
}
