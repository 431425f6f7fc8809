package gate

import (
	"strings"

	domaingate "github.com/sescincjoi/central-sci/internal/domain/gate"
)

// savedAttr is one stripped interactive attribute and its original owner.
type savedAttr struct {
	owner *domaingate.Element
	name  string
	value string
}

// interactiveAttr reports whether an attribute makes its element an
// interactive affordance: inline event handlers, hyperlink targets, and
// form actions.
func interactiveAttr(name string) bool {
	if name == "href" || name == "action" {
		return true
	}
	return strings.HasPrefix(name, "on")
}

// SuspendInteractivity strips every interactive attribute from el and its
// descendants, saving each into an association keyed by el so that
// RestoreInteractivity can reverse the operation exactly. Suspending an
// already-suspended element is a no-op; attributes are never double-saved.
func (g *AccessGate) SuspendInteractivity(el *domaingate.Element) {
	if _, ok := g.suspended[el]; ok {
		return
	}

	var saved []savedAttr
	var strip func(node *domaingate.Element)
	strip = func(node *domaingate.Element) {
		// The overlay and its login affordance keep their attributes.
		// Only the overlay's own subtree is exempt; siblings that follow
		// it in document order must still be stripped.
		if node.HasClass(ClassOverlay) {
			return
		}
		for _, name := range node.AttrNames() {
			if !interactiveAttr(name) {
				continue
			}
			value, _ := node.Attr(name)
			saved = append(saved, savedAttr{owner: node, name: name, value: value})
			node.RemoveAttr(name)
		}
		for _, child := range node.Children() {
			strip(child)
		}
	}
	strip(el)

	g.suspended[el] = saved
}

// RestoreInteractivity re-attaches every attribute saved by
// SuspendInteractivity to its original owner and discards the saved entry.
// Restoring an element that was never suspended is a no-op.
func (g *AccessGate) RestoreInteractivity(el *domaingate.Element) {
	saved, ok := g.suspended[el]
	if !ok {
		return
	}
	for _, attr := range saved {
		attr.owner.SetAttr(attr.name, attr.value)
	}
	delete(g.suspended, el)
}

// Suspended reports whether el currently has stripped interactivity.
func (g *AccessGate) Suspended(el *domaingate.Element) bool {
	_, ok := g.suspended[el]
	return ok
}
