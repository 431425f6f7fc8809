package devauth

// Package devauth provides a config-driven identity provider for local
// development. It keeps the whole auth loop in process: sign-in/out flips
// an in-memory state and fires the change notification the way a remote
// provider would.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
)

// Config controls the dev auth provider behavior.
type Config struct {
	UID       string
	Matricula string
	Email     string
	Role      domainauth.Role
	// Password is the accepted secret. Empty accepts any non-empty password.
	Password string
}

// Provider implements ports.IdentityProvider and ports.AuthStateNotifier
// for local development. A single configured account can sign in.
type Provider struct {
	cfg Config

	mu        sync.Mutex
	signedIn  bool
	callbacks []func(uid string)
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UID == "" {
		return nil, errors.New("dev auth: UID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.Role == "" {
		cfg.Role = domainauth.RoleUser
	}
	return &Provider{cfg: cfg}, nil
}

// SignIn accepts the configured account's credentials and reports the
// sign-in to registered callbacks.
func (p *Provider) SignIn(_ context.Context, creds ports.Credentials) (string, error) {
	if creds.Email != p.cfg.Email {
		return "", apperrors.InvalidCredentialField("matricula", "Unknown membership number.")
	}
	if creds.Password == "" || (p.cfg.Password != "" && creds.Password != p.cfg.Password) {
		return "", apperrors.InvalidCredentialField("password", "Incorrect password.")
	}

	p.setSignedIn(true)
	return p.cfg.UID, nil
}

// SignOut clears the in-memory session and notifies callbacks.
func (p *Provider) SignOut(_ context.Context, _ string) error {
	p.setSignedIn(false)
	return nil
}

// Register is not supported in dev mode; the account is fixed by config.
func (p *Provider) Register(context.Context, ports.RegisterInput) (string, error) {
	return "", apperrors.Conflict("dev auth account already exists")
}

// SendPasswordReset is a no-op in dev mode.
func (p *Provider) SendPasswordReset(context.Context, string) error {
	return nil
}

// OnAuthStateChange registers fn and invokes it once with the current state.
func (p *Provider) OnAuthStateChange(_ context.Context, fn func(uid string)) (func(), error) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, fn)
	idx := len(p.callbacks) - 1
	uid := p.currentUIDLocked()
	p.mu.Unlock()

	fn(uid)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if idx < len(p.callbacks) {
			p.callbacks[idx] = nil
		}
	}, nil
}

func (p *Provider) setSignedIn(signedIn bool) {
	p.mu.Lock()
	if p.signedIn == signedIn {
		p.mu.Unlock()
		return
	}
	p.signedIn = signedIn
	uid := p.currentUIDLocked()
	callbacks := make([]func(string), len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.Unlock()

	for _, fn := range callbacks {
		if fn != nil {
			fn(uid)
		}
	}
}

func (p *Provider) currentUIDLocked() string {
	if p.signedIn {
		return p.cfg.UID
	}
	return ""
}
