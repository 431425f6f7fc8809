// Package gate contains the pure domain model for access gating: the
// element tree abstraction that protected UI regions are expressed in, and
// the policy that maps session state to a presentation state.
package gate

// Gating attribute contract. Elements opt into gating via the marker
// attribute; the role and hide-mode attributes refine the policy.
const (
	AttrAuthRequired = "data-auth-required"
	AttrRole         = "data-role"
	AttrHideMode     = "data-hide-mode"
)

// Element is a structural unit of the UI: a node with attributes, classes,
// inline styles, and children. It models just enough of a document node for
// the gate to scan, reconcile, and test against.
//
// Elements follow the single-writer model: the access gate is the only
// mutator of gating-related markers.
type Element struct {
	Tag string
	ID  string

	attrs   map[string]string
	classes []string
	styles  map[string]string

	parent   *Element
	children []*Element
}

// NewElement constructs an element with the given tag.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

// Attr returns the value of a named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

// SetAttr sets a named attribute.
func (e *Element) SetAttr(name, value string) *Element {
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
	return e
}

// RemoveAttr deletes a named attribute.
func (e *Element) RemoveAttr(name string) {
	delete(e.attrs, name)
}

// AttrNames returns the present attribute names in unspecified order.
func (e *Element) AttrNames() []string {
	names := make([]string, 0, len(e.attrs))
	for name := range e.attrs {
		names = append(names, name)
	}
	return names
}

// HasClass reports whether the class is present.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.classes {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends a class unless already present.
func (e *Element) AddClass(name string) {
	if !e.HasClass(name) {
		e.classes = append(e.classes, name)
	}
}

// RemoveClass deletes a class if present.
func (e *Element) RemoveClass(name string) {
	for i, c := range e.classes {
		if c == name {
			e.classes = append(e.classes[:i], e.classes[i+1:]...)
			return
		}
	}
}

// Classes returns a copy of the class list in insertion order.
func (e *Element) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Style returns the value of an inline style property.
func (e *Element) Style(prop string) string {
	return e.styles[prop]
}

// SetStyle sets an inline style property.
func (e *Element) SetStyle(prop, value string) {
	if e.styles == nil {
		e.styles = make(map[string]string)
	}
	e.styles[prop] = value
}

// RemoveStyle deletes an inline style property.
func (e *Element) RemoveStyle(prop string) {
	delete(e.styles, prop)
}

// Parent returns the parent element, or nil for a root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns a copy of the child list in document order.
func (e *Element) Children() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// AppendChild attaches a child, detaching it from any previous parent.
func (e *Element) AppendChild(child *Element) *Element {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	return e
}

// RemoveChild detaches a child if it belongs to this element.
func (e *Element) RemoveChild(child *Element) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Walk visits the element and its descendants depth-first in document
// order. Returning false from fn stops the walk.
func (e *Element) Walk(fn func(*Element) bool) {
	e.walk(fn)
}

func (e *Element) walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first element (self included, document order) matching
// the predicate, or nil.
func (e *Element) Find(pred func(*Element) bool) *Element {
	var found *Element
	e.Walk(func(el *Element) bool {
		if pred(el) {
			found = el
			return false
		}
		return true
	})
	return found
}

// Closest returns the nearest element matching the predicate, walking from
// the element itself up through its ancestors. Nil when no ancestor matches.
func (e *Element) Closest(pred func(*Element) bool) *Element {
	for el := e; el != nil; el = el.parent {
		if pred(el) {
			return el
		}
	}
	return nil
}

// Protected reports whether the element carries the gating marker.
func Protected(e *Element) bool {
	return e.HasAttr(AttrAuthRequired)
}

// ConfigOf reads the element's gating attributes into a Config.
func ConfigOf(e *Element) Config {
	role, _ := e.Attr(AttrRole)
	mode, _ := e.Attr(AttrHideMode)
	return Config{
		RequiresAuth: Protected(e),
		RequiredRole: role,
		HideMode:     ParseHideMode(mode),
	}
}
