package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
)

type metricsSink interface {
	Count(name string, value int64, tags map[string]string)
}

// StateStoreOptions bundles dependencies for NewStateStore.
type StateStoreOptions struct {
	Logger  *slog.Logger
	Metrics metricsSink
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// StateStore tracks the current session state and notifies subscribers on
// every terminal transition. It is safe for concurrent use.
//
// The intermediate StateAuthenticating is observable through State() but is
// never broadcast: subscribers only see resolved outcomes, so a forced
// sign-out produces exactly one change event.
type StateStore struct {
	logger  *slog.Logger
	metrics metricsSink
	now     func() time.Time

	mu       sync.Mutex
	state    State
	identity *domainauth.Identity

	// Subscribers are broadcast to in registration order.
	subs   []subscriber
	nextID int

	provider ports.IdentityProvider
	records  ports.MemberRecords

	ready     chan struct{}
	readyOnce sync.Once
}

type subscriber struct {
	id int
	fn Listener
}

// NewStateStore constructs a StateStore in StateUnknown.
func NewStateStore(opts StateStoreOptions) *StateStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &StateStore{
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
		state:   StateUnknown,
		ready:   make(chan struct{}),
	}
}

// Subscribe registers a state-change observer and returns its unsubscribe
// capability. After unsubscribe returns, the listener receives no further
// broadcasts.
func (s *StateStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Current returns the signed-in identity, or nil.
// The returned value is a copy; mutating it does not affect the store.
func (s *StateStore) Current() *domainauth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// State returns the current state machine position.
func (s *StateStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSnapshot returns the state and identity as one consistent read.
func (s *StateStore) CurrentSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsAuthenticated reports whether a principal is signed in.
func (s *StateStore) IsAuthenticated() bool {
	return s.CurrentSnapshot().Authenticated()
}

// IsAdmin reports whether the signed-in principal has the admin role.
func (s *StateStore) IsAdmin() bool {
	return s.CurrentSnapshot().IsAdmin()
}

// Ready returns a channel closed once the store reaches its first terminal
// state. Startup code waits on it (with a timeout) before the initial scan.
func (s *StateStore) Ready() <-chan struct{} {
	return s.ready
}

// ObserveAuthChanges wires the store to the identity provider's change
// notifications. On every callback the backing record is resolved: a missing
// record is a fatal anomaly handled by forcing sign-out. The returned cancel
// stops further deliveries.
func (s *StateStore) ObserveAuthChanges(
	ctx context.Context,
	notifier ports.AuthStateNotifier,
	provider ports.IdentityProvider,
	records ports.MemberRecords,
) (cancel func(), err error) {
	s.mu.Lock()
	s.provider = provider
	s.records = records
	s.mu.Unlock()

	return notifier.OnAuthStateChange(ctx, func(uid string) {
		s.handleAuthChange(ctx, uid)
	})
}

// SignOut delegates to the identity provider. The resulting state transition
// arrives asynchronously via the provider's change notification; callers must
// not assume a synchronous effect.
func (s *StateStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	provider := s.provider
	var uid string
	if s.identity != nil {
		uid = s.identity.UID
	}
	s.mu.Unlock()

	if provider == nil {
		// No provider wired; resolve locally.
		s.transition(StateUnauthenticated, nil)
		return nil
	}
	return provider.SignOut(ctx, uid)
}

// Publish records a resolved identity directly, bypassing the provider
// callback. The auth service uses it after a successful login so listeners
// see the outcome without waiting for the notifier round trip.
func (s *StateStore) Publish(id domainauth.Identity) {
	s.transition(StateAuthenticated, &id)
}

// PublishSignedOut records a resolved signed-out state directly.
func (s *StateStore) PublishSignedOut() {
	s.transition(StateUnauthenticated, nil)
}

func (s *StateStore) handleAuthChange(ctx context.Context, uid string) {
	if uid == "" {
		s.transition(StateUnauthenticated, nil)
		return
	}

	s.mu.Lock()
	s.state = StateAuthenticating
	records := s.records
	s.mu.Unlock()

	if records == nil {
		s.logger.Error("auth change received without a record store wired", "uid", uid)
		s.transition(StateUnauthenticated, nil)
		return
	}

	identity, err := records.GetByUID(ctx, uid)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// Signed-in principal with no backing record. The invariant
			// "every signed-in principal has a backing record" must hold,
			// so force sign-out.
			s.logger.Warn("no member record for signed-in principal, forcing sign-out", "uid", uid)
			s.count("session.forced_sign_out", map[string]string{"reason": "record_not_found"})
			s.forceSignOut(ctx, uid)
			return
		}
		s.logger.Error("member record fetch failed", "uid", uid, "error", err)
		s.transition(StateUnauthenticated, nil)
		return
	}

	// Best-effort access stamp; a lost update is acceptable.
	if err := records.UpdateLastAccess(ctx, uid, s.now()); err != nil {
		s.logger.Warn("last-access update failed", "uid", uid, "error", err)
	}

	s.count("session.sign_in", map[string]string{"role": string(identity.Role)})
	s.transition(StateAuthenticated, &identity)
}

func (s *StateStore) forceSignOut(ctx context.Context, uid string) {
	s.mu.Lock()
	provider := s.provider
	s.mu.Unlock()

	if provider != nil {
		if err := provider.SignOut(ctx, uid); err != nil {
			s.logger.Warn("provider sign-out failed during forced sign-out", "uid", uid, "error", err)
		}
	}
	s.transition(StateUnauthenticated, nil)
}

// transition moves to a terminal state and broadcasts the snapshot to all
// subscribers in registration order. A transition that changes nothing is
// not re-broadcast, so duplicate provider callbacks cost one event at most.
func (s *StateStore) transition(state State, identity *domainauth.Identity) {
	s.mu.Lock()
	if s.state == state && sameIdentity(s.identity, identity) {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.identity = identity
	snap := s.snapshotLocked()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.logger.Debug("session state changed", "state", state.String())
	if state.Terminal() {
		s.readyOnce.Do(func() { close(s.ready) })
	}

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *StateStore) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

func (s *StateStore) count(name string, tags map[string]string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count(name, 1, tags)
}

func sameIdentity(a, b *domainauth.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Role == b.Role
}
