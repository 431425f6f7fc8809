package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole normalizes a stored role string to a known Role.
// Unknown or empty values map to RoleUser so legacy member records
// without an explicit role keep ordinary member access.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Identity represents the signed-in member as loaded from the record store.
// Adapters map provider-specific claims and record columns into this shape.
type Identity struct {
	UID          string // stable provider identifier
	Email        string
	DisplayName  string
	Matricula    string
	Role         Role
	Active       bool
	RegisteredAt time.Time
	LastAccessAt time.Time
}

// IsAdmin returns true if the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Session is the server-side record we persist for an authenticated member.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID          string    `json:"id"`
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Matricula   string    `json:"matricula"`
	Role        Role      `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsAdmin returns true if the session role is admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Expired reports whether the session expiry has passed at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
