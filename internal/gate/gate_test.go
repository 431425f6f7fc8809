package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	domaingate "github.com/sescincjoi/central-sci/internal/domain/gate"
	"github.com/sescincjoi/central-sci/internal/session"
)

func newTestGate(t *testing.T, opts AccessGateOptions) (*AccessGate, *session.StateStore) {
	t.Helper()
	sessions := session.NewStateStore(session.StateStoreOptions{})
	opts.Sessions = sessions
	g, err := NewAccessGate(opts)
	require.NoError(t, err)
	return g, sessions
}

func adminSection() *domaingate.Element {
	el := domaingate.NewElement("section")
	el.SetAttr(domaingate.AttrAuthRequired, "")
	el.SetAttr(domaingate.AttrRole, "admin")
	return el
}

func TestNewAccessGate_RequiresSessions(t *testing.T) {
	_, err := NewAccessGate(AccessGateOptions{})
	assert.ErrorIs(t, err, ErrSessionsRequired)
}

func TestScan_FindsProtectedElementsInDocumentOrder(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	root := domaingate.NewElement("body")
	first := domaingate.NewElement("nav")
	first.SetAttr(domaingate.AttrAuthRequired, "")
	plain := domaingate.NewElement("main")
	nested := adminSection()
	plain.AppendChild(nested)
	root.AppendChild(first)
	root.AppendChild(plain)

	found := g.Scan(root)
	require.Len(t, found, 2)
	assert.Same(t, first, found[0])
	assert.Same(t, nested, found[1])

	// Every scan is a fresh full re-discovery.
	plain.RemoveChild(nested)
	assert.Len(t, g.Scan(root), 1)
}

func TestReconcile_AnonymousHidesAdminSection(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})
	sessions.PublishSignedOut()

	root := domaingate.NewElement("body")
	el := adminSection()
	root.AppendChild(el)

	snap := g.Reconcile(root)
	require.Len(t, snap, 1)
	assert.Equal(t, domaingate.Hidden, snap[0].State)
	assert.Equal(t, "none", el.Style("display"))
	assert.True(t, el.HasClass(ClassHidden))
	assert.False(t, el.HasClass(ClassLocked))
}

func TestReconcile_MemberLocksAdminSection(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})
	sessions.Publish(domainauth.Identity{UID: "u1", Role: domainauth.RoleUser})

	root := domaingate.NewElement("body")
	el := adminSection()
	el.SetAttr("onclick", "openPanel()")
	root.AppendChild(el)

	snap := g.Reconcile(root)
	require.Len(t, snap, 1)
	assert.Equal(t, domaingate.Locked, snap[0].State)
	assert.True(t, el.HasClass(ClassLocked))
	assert.Empty(t, el.Style("display"))
	assert.Equal(t, "relative", el.Style("position"))
	assert.False(t, el.HasAttr("onclick"), "interactivity must be suspended")

	overlay := el.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlay) })
	require.NotNil(t, overlay)
	login := overlay.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlayLogin) })
	assert.NotNil(t, login)
}

func TestReconcile_AdminSeesEverything(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})
	sessions.Publish(domainauth.Identity{UID: "u1", Role: domainauth.RoleAdmin})

	root := domaingate.NewElement("body")
	el := adminSection()
	root.AppendChild(el)

	snap := g.Reconcile(root)
	require.Len(t, snap, 1)
	assert.Equal(t, domaingate.Visible, snap[0].State)
	assert.False(t, el.HasClass(ClassLocked))
	assert.False(t, el.HasClass(ClassHidden))
	assert.Nil(t, el.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlay) }))
}

func TestReconcile_HiddenModeNeverLocks(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})
	sessions.PublishSignedOut()

	root := domaingate.NewElement("body")
	el := domaingate.NewElement("div")
	el.SetAttr(domaingate.AttrAuthRequired, "")
	el.SetAttr(domaingate.AttrHideMode, "hidden")
	root.AppendChild(el)

	snap := g.Reconcile(root)
	require.Len(t, snap, 1)
	assert.Equal(t, domaingate.Hidden, snap[0].State)
	assert.False(t, el.HasClass(ClassLocked))
}

func TestApply_LockedIsIdempotent(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	el := adminSection()
	el.SetAttr("onclick", "openPanel()")

	g.Apply(el, domaingate.Locked)
	g.Apply(el, domaingate.Locked)

	var overlays int
	el.Walk(func(e *domaingate.Element) bool {
		if e.HasClass(ClassOverlay) {
			overlays++
		}
		return true
	})
	assert.Equal(t, 1, overlays, "no duplicate overlay on re-apply")

	// The second suspend must not have re-saved (and thus lost) the
	// already-stripped attribute set.
	g.Apply(el, domaingate.Visible)
	v, ok := el.Attr("onclick")
	require.True(t, ok)
	assert.Equal(t, "openPanel()", v)
}

func TestApply_VisibleRestoresEverything(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	el := adminSection()
	el.SetAttr("onclick", "openPanel()")
	link := domaingate.NewElement("a")
	link.SetAttr("href", "/admin")
	el.AppendChild(link)

	g.Apply(el, domaingate.Locked)
	assert.False(t, link.HasAttr("href"))

	g.Apply(el, domaingate.Visible)
	assert.False(t, el.HasClass(ClassLocked))
	assert.Nil(t, el.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlay) }))

	href, ok := link.Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/admin", href)
	assert.False(t, g.Suspended(el))
}

func TestApply_LockedThenHiddenRestoresInteractivity(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	el := adminSection()
	el.SetAttr("onclick", "openPanel()")

	g.Apply(el, domaingate.Locked)
	g.Apply(el, domaingate.Hidden)

	assert.Equal(t, "none", el.Style("display"))
	assert.False(t, g.Suspended(el), "hidden must not keep suspended state")
	v, _ := el.Attr("onclick")
	assert.Equal(t, "openPanel()", v)
}

func TestSuspendRestore_ExactlyReversible(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	el := domaingate.NewElement("section")
	el.SetAttr("onclick", "top()")
	el.SetAttr("data-auth-required", "")
	form := domaingate.NewElement("form")
	form.SetAttr("action", "/submit")
	form.SetAttr("onsubmit", "validate()")
	link := domaingate.NewElement("a")
	link.SetAttr("href", "/deep")
	el.AppendChild(form)
	form.AppendChild(link)

	g.SuspendInteractivity(el)

	assert.False(t, el.HasAttr("onclick"))
	assert.True(t, el.HasAttr("data-auth-required"), "non-interactive attributes stay")
	assert.False(t, form.HasAttr("action"))
	assert.False(t, form.HasAttr("onsubmit"))
	assert.False(t, link.HasAttr("href"))

	g.RestoreInteractivity(el)

	for _, tc := range []struct {
		owner *domaingate.Element
		name  string
		want  string
	}{
		{el, "onclick", "top()"},
		{form, "action", "/submit"},
		{form, "onsubmit", "validate()"},
		{link, "href", "/deep"},
	} {
		got, ok := tc.owner.Attr(tc.name)
		require.True(t, ok, "attribute %s missing after restore", tc.name)
		assert.Equal(t, tc.want, got)
	}

	// Restoring twice is a no-op.
	g.RestoreInteractivity(el)
	assert.False(t, g.Suspended(el))
}

func TestSuspendInteractivity_NestedOverlayDoesNotStopTheWalk(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	outer := adminSection()
	inner := domaingate.NewElement("div")
	inner.SetAttr(domaingate.AttrAuthRequired, "")
	inner.SetAttr(domaingate.AttrRole, "auditor")
	after := domaingate.NewElement("a")
	after.SetAttr("href", "/admin/reports")
	outer.AppendChild(inner)
	outer.AppendChild(after)

	// An earlier pass locked the inner element, so its overlay is already
	// in the tree when the outer element locks.
	g.Apply(inner, domaingate.Locked)
	login := inner.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlayLogin) })
	require.NotNil(t, login)
	login.SetAttr("onclick", "signIn()")

	g.Apply(outer, domaingate.Locked)

	assert.False(t, after.HasAttr("href"), "siblings after a nested overlay must be stripped")
	v, _ := login.Attr("onclick")
	assert.Equal(t, "signIn()", v, "overlay login affordance keeps its handler")

	g.Apply(outer, domaingate.Visible)
	href, ok := after.Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/admin/reports", href)
}

func TestReconcile_PrunesBookkeepingForDetachedElements(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})
	sessions.Publish(domainauth.Identity{UID: "u1", Role: domainauth.RoleUser})

	root := domaingate.NewElement("body")
	el := adminSection()
	root.AppendChild(el)

	g.Reconcile(root)
	require.True(t, g.Suspended(el))
	require.Contains(t, g.episodes, el)

	// The element leaves the tree mid-lock-episode.
	root.RemoveChild(el)
	g.Reconcile(root)

	assert.False(t, g.Suspended(el))
	assert.NotContains(t, g.episodes, el)
}

func TestWatch_ReconcilesOnSessionTransition(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{})

	root := domaingate.NewElement("body")
	el := adminSection()
	root.AppendChild(el)

	stop := g.Watch(root)
	defer stop()

	sessions.PublishSignedOut()
	assert.True(t, el.HasClass(ClassHidden))

	sessions.Publish(domainauth.Identity{UID: "u1", Role: domainauth.RoleAdmin})
	assert.False(t, el.HasClass(ClassHidden))
	assert.False(t, el.HasClass(ClassLocked))

	stop()
	sessions.PublishSignedOut()
	assert.False(t, el.HasClass(ClassHidden), "stopped watch must not reconcile")
}

func TestWaitReady_TimeoutAssumesUnauthenticated(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{ReadyTimeout: 10 * time.Millisecond})

	snap := g.WaitReady(context.Background())
	assert.Equal(t, session.StateUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)
}

func TestWaitReady_ResolvedState(t *testing.T) {
	g, sessions := newTestGate(t, AccessGateOptions{ReadyTimeout: time.Second})
	sessions.Publish(domainauth.Identity{UID: "u1", Role: domainauth.RoleAdmin})

	snap := g.WaitReady(context.Background())
	assert.Equal(t, session.StateAuthenticated, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u1", snap.Identity.UID)
}
