package data

import "time"

// TimeProvider abstracts the clock so repository timestamps (registration,
// enrollment use, last access) can be pinned in tests.
type TimeProvider interface {
	Now() time.Time
	// FormatForDB renders a timestamp the way the portal stores it.
	FormatForDB(t time.Time) string
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

func (r *RealTimeProvider) FormatForDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FixedTimeProvider holds a settable instant for tests.
type FixedTimeProvider struct {
	fixedTime time.Time
}

// NewFixedTimeProvider creates a FixedTimeProvider pinned to t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

func (f *FixedTimeProvider) Now() time.Time {
	return f.fixedTime
}

func (f *FixedTimeProvider) FormatForDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SetTime moves the pinned instant.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.fixedTime = t
}

// AdvanceTime moves the pinned instant forward by d.
func (f *FixedTimeProvider) AdvanceTime(d time.Duration) {
	f.fixedTime = f.fixedTime.Add(d)
}
