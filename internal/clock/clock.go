// Package clock provides the station's monotonic time and ID-source
// collaborators (spec §2: "Clock & ID source").
package clock

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock access so the scheduler and billing
// engine can be driven by a fake clock in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Frozen is a test clock that always returns a fixed instant, plus
// Advance to move it forward deterministically.
type Frozen struct {
	at time.Time
}

func NewFrozen(at time.Time) *Frozen {
	return &Frozen{at: at}
}

func (f *Frozen) Now() time.Time { return f.at }

func (f *Frozen) Advance(d time.Duration) {
	f.at = f.at.Add(d)
}

// IDs generates UUID-like identifiers for sessions and bills.
type IDs interface {
	NewID() string
}

type UUIDSource struct{}

func (UUIDSource) NewID() string { return uuid.New().String() }
