// Package gate implements the access gate: it scans an element tree for
// protected regions, evaluates each against the session state, and
// reconciles visibility, locking, and interactivity.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domaingate "github.com/sescincjoi/central-sci/internal/domain/gate"
	"github.com/sescincjoi/central-sci/internal/session"
)

// Presentation marker classes and overlay structure. The gate is the only
// writer of these markers on protected elements.
const (
	ClassHidden       = "auth-hidden"
	ClassLocked       = "auth-locked"
	ClassOverlay      = "auth-lock-overlay"
	ClassOverlayLogin = "auth-lock-login"
	ClassLockMessage  = "auth-lock-message"
)

// ErrSessionsRequired indicates an access gate cannot be constructed
// without a session state store.
var ErrSessionsRequired = errors.New("access gate requires a session state store")

type metricsSink interface {
	Count(name string, value int64, tags map[string]string)
}

// AccessGateOptions bundles dependencies for NewAccessGate.
type AccessGateOptions struct {
	Sessions *session.StateStore
	Logger   *slog.Logger
	Metrics  metricsSink

	// ReadyTimeout bounds WaitReady; on expiry the gate degrades to the
	// unauthenticated presentation. Defaults to 10s.
	ReadyTimeout time.Duration
	// PromptDebounce is the window during which repeated blocked
	// interactions on a locked element stay silent. Defaults to 2s.
	PromptDebounce time.Duration

	// OnPrompt is invoked when a blocked interaction should surface a
	// "please sign in" notification. Optional.
	OnPrompt func(target *domaingate.Element)

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Decision pairs a protected element with its computed presentation state.
type Decision struct {
	Element *domaingate.Element
	State   domaingate.PresentationState
}

// Snapshot is one evaluation pass's output, in document order. A snapshot
// is applied in full; partial application would flicker.
type Snapshot []Decision

// AccessGate reconciles protected elements against session state.
// It is not safe for concurrent use; callers drive it from a single
// event-dispatch goroutine, matching the single-writer rule for gating
// markers.
type AccessGate struct {
	sessions *session.StateStore
	logger   *slog.Logger
	metrics  metricsSink
	onPrompt func(*domaingate.Element)
	now      func() time.Time

	readyTimeout   time.Duration
	promptDebounce time.Duration

	// suspended holds the interactive attributes stripped from each
	// locked element's subtree, keyed by the locked root. Entries live
	// only for the duration of a lock episode.
	suspended map[*domaingate.Element][]savedAttr

	// episodes tracks per-element lock episodes for prompt debouncing.
	episodes map[*domaingate.Element]*lockEpisode
}

type lockEpisode struct {
	lastPrompt time.Time
}

// NewAccessGate constructs an AccessGate.
func NewAccessGate(opts AccessGateOptions) (*AccessGate, error) {
	if opts.Sessions == nil {
		return nil, ErrSessionsRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	promptDebounce := opts.PromptDebounce
	if promptDebounce <= 0 {
		promptDebounce = 2 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AccessGate{
		sessions:       opts.Sessions,
		logger:         logger,
		metrics:        opts.Metrics,
		onPrompt:       opts.OnPrompt,
		now:            now,
		readyTimeout:   readyTimeout,
		promptDebounce: promptDebounce,
		suspended:      make(map[*domaingate.Element][]savedAttr),
		episodes:       make(map[*domaingate.Element]*lockEpisode),
	}, nil
}

// Scan discovers all protected elements under root in document order.
// Every call is a full re-discovery; no identity map is cached across calls.
func (g *AccessGate) Scan(root *domaingate.Element) []*domaingate.Element {
	var found []*domaingate.Element
	root.Walk(func(e *domaingate.Element) bool {
		if domaingate.Protected(e) {
			found = append(found, e)
		}
		return true
	})
	return found
}

// Reconcile evaluates every protected element under root against the
// current session state and applies the resulting snapshot in full.
func (g *AccessGate) Reconcile(root *domaingate.Element) Snapshot {
	return g.reconcileWith(root, g.sessions.CurrentSnapshot())
}

func (g *AccessGate) reconcileWith(root *domaingate.Element, sess session.Snapshot) Snapshot {
	viewer := viewerOf(sess)

	g.pruneDetached(root)
	elements := g.Scan(root)
	snapshot := make(Snapshot, 0, len(elements))
	for _, el := range elements {
		snapshot = append(snapshot, Decision{
			Element: el,
			State:   domaingate.Evaluate(domaingate.ConfigOf(el), viewer),
		})
	}

	var hidden, locked int64
	for _, d := range snapshot {
		g.Apply(d.Element, d.State)
		switch d.State {
		case domaingate.Hidden:
			hidden++
		case domaingate.Locked:
			locked++
		}
	}

	if g.metrics != nil && hidden+locked > 0 {
		g.metrics.Count("gate.denied", hidden, map[string]string{"state": "hidden"})
		g.metrics.Count("gate.denied", locked, map[string]string{"state": "locked"})
	}
	g.logger.Debug("gate reconciled",
		"elements", len(elements), "hidden", hidden, "locked", locked)

	return snapshot
}

// Apply reconciles one element to the target presentation state.
// Applying the same state twice is a no-op the second time: no duplicate
// overlays, no double-saved interactivity.
func (g *AccessGate) Apply(el *domaingate.Element, state domaingate.PresentationState) {
	switch state {
	case domaingate.Hidden:
		el.SetStyle("display", "none")
		el.AddClass(ClassHidden)
		el.RemoveClass(ClassLocked)
		g.removeOverlay(el)
		g.RestoreInteractivity(el)
		g.endEpisode(el)
	case domaingate.Locked:
		el.RemoveStyle("display")
		el.AddClass(ClassLocked)
		el.RemoveClass(ClassHidden)
		g.SuspendInteractivity(el)
		g.ensureOverlay(el)
		g.beginEpisode(el)
	default:
		el.RemoveStyle("display")
		el.RemoveClass(ClassLocked)
		el.RemoveClass(ClassHidden)
		g.removeOverlay(el)
		g.RestoreInteractivity(el)
		g.endEpisode(el)
	}
}

// Watch subscribes the gate to session transitions, reconciling root on
// every broadcast. The returned stop function unsubscribes.
func (g *AccessGate) Watch(root *domaingate.Element) (stop func()) {
	return g.sessions.Subscribe(func(snap session.Snapshot) {
		g.reconcileWith(root, snap)
	})
}

// WaitReady blocks until the session store resolves its first terminal
// state, the timeout elapses, or ctx is done. On timeout it logs and
// returns an unauthenticated snapshot so the caller can render the safe
// default presentation.
func (g *AccessGate) WaitReady(ctx context.Context) session.Snapshot {
	timer := time.NewTimer(g.readyTimeout)
	defer timer.Stop()

	select {
	case <-g.sessions.Ready():
		return g.sessions.CurrentSnapshot()
	case <-timer.C:
		g.logger.Warn("session state not resolved before timeout, assuming unauthenticated",
			"timeout", g.readyTimeout)
		return session.Snapshot{State: session.StateUnauthenticated}
	case <-ctx.Done():
		return session.Snapshot{State: session.StateUnauthenticated}
	}
}

func (g *AccessGate) ensureOverlay(el *domaingate.Element) {
	if g.overlayOf(el) != nil {
		return
	}

	overlay := domaingate.NewElement("div")
	overlay.AddClass(ClassOverlay)

	message := domaingate.NewElement("div")
	message.AddClass(ClassLockMessage)
	overlay.AppendChild(message)

	// The login affordance stays reachable while everything else inside
	// the locked element is suppressed.
	login := domaingate.NewElement("button")
	login.AddClass(ClassOverlayLogin)
	overlay.AppendChild(login)

	el.SetStyle("position", "relative")
	el.AppendChild(overlay)
}

func (g *AccessGate) removeOverlay(el *domaingate.Element) {
	if overlay := g.overlayOf(el); overlay != nil {
		el.RemoveChild(overlay)
	}
}

func (g *AccessGate) overlayOf(el *domaingate.Element) *domaingate.Element {
	for _, child := range el.Children() {
		if child.HasClass(ClassOverlay) {
			return child
		}
	}
	return nil
}

// pruneDetached drops suspension and episode bookkeeping for elements no
// longer reachable from root. Without it, an element removed from the tree
// mid-lock-episode would stay pinned in the maps for the gate's lifetime.
func (g *AccessGate) pruneDetached(root *domaingate.Element) {
	for el := range g.suspended {
		if !attachedTo(root, el) {
			delete(g.suspended, el)
		}
	}
	for el := range g.episodes {
		if !attachedTo(root, el) {
			delete(g.episodes, el)
		}
	}
}

func attachedTo(root, el *domaingate.Element) bool {
	for n := el; n != nil; n = n.Parent() {
		if n == root {
			return true
		}
	}
	return false
}

func (g *AccessGate) beginEpisode(el *domaingate.Element) {
	if _, ok := g.episodes[el]; !ok {
		g.episodes[el] = &lockEpisode{}
	}
}

func (g *AccessGate) endEpisode(el *domaingate.Element) {
	delete(g.episodes, el)
}

func viewerOf(sess session.Snapshot) domaingate.Viewer {
	v := domaingate.Viewer{Authenticated: sess.Authenticated()}
	if v.Authenticated {
		v.Role = sess.Identity.Role
	}
	return v
}
