package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaingate "github.com/sescincjoi/central-sci/internal/domain/gate"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func lockedFixture(t *testing.T, g *AccessGate) (locked, inner, login *domaingate.Element) {
	t.Helper()

	locked = adminSection()
	inner = domaingate.NewElement("button")
	inner.SetAttr("onclick", "doThing()")
	locked.AppendChild(inner)

	g.Apply(locked, domaingate.Locked)

	overlay := locked.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlay) })
	require.NotNil(t, overlay)
	login = overlay.Find(func(e *domaingate.Element) bool { return e.HasClass(ClassOverlayLogin) })
	require.NotNil(t, login)
	return locked, inner, login
}

func TestHandleEvent_SwallowsInputInsideLockedElement(t *testing.T) {
	var prompts int
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g, _ := newTestGate(t, AccessGateOptions{
		Now:      clock.Now,
		OnPrompt: func(*domaingate.Element) { prompts++ },
	})
	_, inner, _ := lockedFixture(t, g)

	allowed := g.HandleEvent(Event{Type: "click", Target: inner})

	assert.False(t, allowed)
	assert.Equal(t, 1, prompts)
}

func TestHandleEvent_LoginAffordanceStaysClickable(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})
	_, _, login := lockedFixture(t, g)

	assert.True(t, g.HandleEvent(Event{Type: "click", Target: login}))
}

func TestHandleEvent_OutsideLockedElementProceeds(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	free := domaingate.NewElement("button")
	assert.True(t, g.HandleEvent(Event{Type: "click", Target: free}))
	assert.True(t, g.HandleEvent(Event{Type: "click", Target: nil}))
}

func TestHandleEvent_NonInputEventsProceed(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})
	_, inner, _ := lockedFixture(t, g)

	assert.True(t, g.HandleEvent(Event{Type: "scroll", Target: inner}))
}

func TestHandleEvent_PromptDebounce(t *testing.T) {
	var prompts int
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g, _ := newTestGate(t, AccessGateOptions{
		Now:            clock.Now,
		PromptDebounce: 2 * time.Second,
		OnPrompt:       func(*domaingate.Element) { prompts++ },
	})
	_, inner, _ := lockedFixture(t, g)

	// First blocked interaction prompts; repeats inside the window are silent.
	g.HandleEvent(Event{Type: "click", Target: inner})
	g.HandleEvent(Event{Type: "click", Target: inner})
	clock.Advance(1500 * time.Millisecond)
	g.HandleEvent(Event{Type: "keydown", Target: inner})
	assert.Equal(t, 1, prompts)

	clock.Advance(time.Second)
	g.HandleEvent(Event{Type: "click", Target: inner})
	assert.Equal(t, 2, prompts)
}

func TestHandleEvent_NewEpisodePromptsAgain(t *testing.T) {
	var prompts int
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g, _ := newTestGate(t, AccessGateOptions{
		Now:      clock.Now,
		OnPrompt: func(*domaingate.Element) { prompts++ },
	})
	locked, inner, _ := lockedFixture(t, g)

	g.HandleEvent(Event{Type: "click", Target: inner})
	assert.Equal(t, 1, prompts)

	// Unlock and re-lock: a fresh episode gets a fresh prompt budget.
	g.Apply(locked, domaingate.Visible)
	g.Apply(locked, domaingate.Locked)

	g.HandleEvent(Event{Type: "click", Target: inner})
	assert.Equal(t, 2, prompts)
}

func TestHandleEvent_SubmitInsideLockedFormIsSwallowed(t *testing.T) {
	g, _ := newTestGate(t, AccessGateOptions{})

	locked := adminSection()
	form := domaingate.NewElement("form")
	form.SetAttr("action", "/admin/save")
	locked.AppendChild(form)
	g.Apply(locked, domaingate.Locked)

	assert.False(t, g.HandleEvent(Event{Type: "submit", Target: form}))
}
