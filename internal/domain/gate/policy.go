package gate

import (
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
)

// PresentationState is the reconciled visual policy for a protected element.
type PresentationState string

const (
	// Visible clears all gating markers; the element renders normally.
	Visible PresentationState = "visible"
	// Hidden suppresses rendering entirely.
	Hidden PresentationState = "hidden"
	// Locked keeps the element's layout space but degrades it visually
	// and suppresses its interactivity behind an overlay.
	Locked PresentationState = "locked"
)

// HideMode selects how a denied element is presented.
type HideMode string

const (
	// HideAuto hides from unauthenticated visitors and locks for
	// signed-in users lacking the required role.
	HideAuto HideMode = "auto"
	// HideHidden always hides a denied element.
	HideHidden HideMode = "hidden"
	// HideLocked shows a denied element locked behind an overlay, except
	// to unauthenticated visitors, who never see a locked overlay.
	HideLocked HideMode = "locked"
)

// ParseHideMode maps an attribute value to a HideMode.
// Absent or unrecognized values fall back to HideAuto.
func ParseHideMode(s string) HideMode {
	switch HideMode(s) {
	case HideHidden:
		return HideHidden
	case HideLocked:
		return HideLocked
	default:
		return HideAuto
	}
}

// Config is the typed gating configuration of a protected region.
type Config struct {
	RequiresAuth bool
	// RequiredRole is the raw role requirement. Empty means any
	// signed-in user; unrecognized values never grant access.
	RequiredRole string
	HideMode     HideMode
}

// Viewer is the session state the policy evaluates against.
type Viewer struct {
	Authenticated bool
	Role          domainauth.Role
}

// Admin reports whether the viewer is a signed-in admin.
func (v Viewer) Admin() bool {
	return v.Authenticated && v.Role == domainauth.RoleAdmin
}

// Evaluate is the access policy. It is a pure total function: every
// (config, viewer) pair maps to exactly one presentation state, and
// unknown role values default to no access.
func Evaluate(cfg Config, v Viewer) PresentationState {
	if !cfg.RequiresAuth {
		return Visible
	}

	var granted bool
	switch {
	case !v.Authenticated:
		granted = false
	case cfg.RequiredRole == "":
		granted = true
	case cfg.RequiredRole == string(domainauth.RoleAdmin):
		granted = v.Role == domainauth.RoleAdmin
	case cfg.RequiredRole == string(domainauth.RoleUser):
		granted = true
	default:
		granted = false
	}

	if granted {
		return Visible
	}
	// Unauthenticated visitors never see a locked overlay.
	if cfg.HideMode == HideHidden || !v.Authenticated {
		return Hidden
	}
	return Locked
}
