package gate

import (
	domaingate "github.com/sescincjoi/central-sci/internal/domain/gate"
)

// Event is a user-input event dispatched against the element tree.
type Event struct {
	Type   string
	Target *domaingate.Element
}

// userInputEvents is the set of event types swallowed inside locked
// elements: pointer, keyboard, touch, form submission, and focus.
var userInputEvents = map[string]struct{}{
	"click":       {},
	"dblclick":    {},
	"pointerdown": {},
	"pointerup":   {},
	"mousedown":   {},
	"mouseup":     {},
	"keydown":     {},
	"keyup":       {},
	"keypress":    {},
	"touchstart":  {},
	"touchend":    {},
	"submit":      {},
	"focus":       {},
	"focusin":     {},
}

// HandleEvent applies synthetic-event suppression: user-input events
// occurring within a locked element are swallowed, except those targeting
// the overlay's login affordance. It returns true when the event may
// proceed to its normal handlers.
//
// A locked element surfaces at most one "please sign in" prompt per
// debounce window within a lock episode; further blocked interactions stay
// silent.
func (g *AccessGate) HandleEvent(ev Event) bool {
	if ev.Target == nil {
		return true
	}
	if _, userInput := userInputEvents[ev.Type]; !userInput {
		return true
	}

	// The login affordance inside the overlay must remain clickable.
	if ev.Target.Closest(func(e *domaingate.Element) bool {
		return e.HasClass(ClassOverlayLogin)
	}) != nil {
		return true
	}

	locked := ev.Target.Closest(func(e *domaingate.Element) bool {
		return e.HasClass(ClassLocked)
	})
	if locked == nil {
		return true
	}

	g.promptLocked(locked)
	return false
}

func (g *AccessGate) promptLocked(el *domaingate.Element) {
	episode, ok := g.episodes[el]
	if !ok {
		// Locked marker without a live episode; treat the interaction as
		// the episode start.
		episode = &lockEpisode{}
		g.episodes[el] = episode
	}

	now := g.now()
	if !episode.lastPrompt.IsZero() && now.Sub(episode.lastPrompt) < g.promptDebounce {
		return
	}
	episode.lastPrompt = now

	if g.metrics != nil {
		g.metrics.Count("gate.prompt", 1, nil)
	}
	if g.onPrompt != nil {
		g.onPrompt(el)
	}
}
