package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
)

// Credentials carries the provider-facing login credential pair.
// Email is derived from the membership number before it reaches the provider.
type Credentials struct {
	Email    string
	Password string
}

// RegisterInput carries the inputs for creating a provider account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// IdentityProvider authenticates credentials against the identity backend
// and manages provider-side account lifecycle.
type IdentityProvider interface {
	// SignIn verifies the credentials and returns the provider's stable
	// user identifier.
	SignIn(ctx context.Context, creds Credentials) (uid string, err error)

	// SignOut invalidates the provider-side session for the user, if the
	// provider tracks one. Implementations may no-op.
	SignOut(ctx context.Context, uid string) error

	// Register creates a provider account and returns its identifier.
	Register(ctx context.Context, in RegisterInput) (uid string, err error)

	// SendPasswordReset triggers the provider's password reset flow for
	// the account behind the given email.
	SendPasswordReset(ctx context.Context, email string) error
}

// BeginInput carries inputs for initiating an SSO auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SSOProvider initiates and completes a redirect-based authentication flow
// against an institutional IdP. Used when the portal runs in oidc mode.
type SSOProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// AuthStateNotifier delivers provider-side sign-in state changes.
// The callback receives the provider uid of the signed-in user, or the
// empty string on sign-out. Implementations invoke the callback once
// with the current state upon registration.
type AuthStateNotifier interface {
	// OnAuthStateChange registers the callback and returns a cancel
	// function that stops further deliveries.
	OnAuthStateChange(ctx context.Context, fn func(uid string)) (cancel func(), err error)
}

// SessionStore persists and retrieves member sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
