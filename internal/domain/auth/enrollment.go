package auth

import "time"

// Enrollment is a membership number cleared for portal registration.
// The registry is seeded by the membership office; a matricula can be
// consumed by exactly one account.
type Enrollment struct {
	Matricula string
	Enabled   bool
	Used      bool
	Role      Role
	CreatedAt time.Time
	UsedAt    time.Time
}

// Available reports whether the enrollment can still back a new registration.
func (e Enrollment) Available() bool {
	return e.Enabled && !e.Used
}
