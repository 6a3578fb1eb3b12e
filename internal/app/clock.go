package app

import "time"

// Clock abstracts "now" so handlers are deterministic under test, grounded
// on the teacher's use of time.Now() directly in app_service.go — Numa
// threads it through a seam instead so tests can pin a reference instant.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a test Clock that always returns the same instant.
type FixedClock struct{ At time.Time }

func (f FixedClock) Now() time.Time { return f.At }
