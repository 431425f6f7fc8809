// Package session holds the single source of truth for "who is signed in,
// with what role" and fans state transitions out to subscribers.
package session

import (
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
)

// State is the session state machine position.
type State int

const (
	// StateUnknown is the pre-first-callback window before the identity
	// provider has reported anything.
	StateUnknown State = iota
	// StateUnauthenticated means no principal is signed in.
	StateUnauthenticated
	// StateAuthenticating means the provider reported a principal and the
	// backing record fetch is in flight.
	StateAuthenticating
	// StateAuthenticated means a principal is signed in and its record
	// was resolved into an Identity.
	StateAuthenticated
)

// String implements fmt.Stringer for logging.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a resolved auth outcome.
func (s State) Terminal() bool {
	return s == StateUnauthenticated || s == StateAuthenticated
}

// Snapshot is what subscribers receive on every broadcast.
// Identity is nil unless State is StateAuthenticated.
type Snapshot struct {
	State    State
	Identity *domainauth.Identity
}

// Authenticated reports whether the snapshot carries a signed-in identity.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// IsAdmin reports whether the snapshot's identity carries the admin role.
func (s Snapshot) IsAdmin() bool {
	return s.Authenticated() && s.Identity.IsAdmin()
}

// Listener observes session state transitions. Listeners are invoked
// synchronously in registration order and must not block.
type Listener func(Snapshot)
