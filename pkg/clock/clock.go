// Package clock provides an injectable time source so TTL expiry is testable
// without real delays.
package clock

import "time"

// Clock returns the current time. Production code passes time.Now; tests pass
// a fixed or advancing fake.
type Clock func() time.Time

// Fake is a manually advanced clock for tests.
type Fake struct {
	now time.Time
}

// NewFake creates a fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current instant. Pass f.Now as a Clock.
func (f *Fake) Now() time.Time { return f.now }

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) { f.now = f.now.Add(d) }
