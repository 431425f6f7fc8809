package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword uses the membership identity service's password API.
	AuthModePassword AuthMode = "password"
	// AuthModeOIDC uses OIDC/OAuth for institutional single sign-on.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "password", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oidc, mock)", v)
	}
}

// PasswordAuthConfig contains configuration for the identity service's
// REST password API (used when Mode=password).
type PasswordAuthConfig struct {
	// BaseURL is the identity service endpoint, e.g. "https://id.centralsci.org.br/v1".
	BaseURL string `env:"BASE_URL"`
	// APIKey authenticates this application against the identity service.
	APIKey string `env:"API_KEY"`
	// EmailDomain converts matriculas into provider identifiers
	// (ABC1234 -> abc1234@<EmailDomain>).
	EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"centralsci.org.br"`
	// Timeout bounds each identity service call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// OIDCConfig contains OIDC/OAuth configuration (used when Mode=oidc).
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"central-sci"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UID       string `env:"UID"       envDefault:"dev-user"`
	Matricula string `env:"MATRICULA" envDefault:"DEV0001"`
	Email     string `env:"EMAIL"     envDefault:"dev@centralsci.org.br"`
	Role      string `env:"ROLE"      envDefault:"admin"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider adapter to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// Password API configuration (used when Mode=password).
	Password PasswordAuthConfig `envPrefix:"AUTH_PASSWORD_"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionDuration is the lifetime of a portal session.
	SessionDuration time.Duration `env:"AUTH_SESSION_DURATION" envDefault:"8h"`
}

// Sanitize applies guardrails to authentication configuration values.
func (c *AuthConfig) Sanitize() {
	c.Password.BaseURL = strings.TrimRight(strings.TrimSpace(c.Password.BaseURL), "/")
	if c.Password.Timeout <= 0 {
		c.Password.Timeout = 15 * time.Second
	}
	if c.SessionDuration <= 0 {
		c.SessionDuration = 8 * time.Hour
	}
}
