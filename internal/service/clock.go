package service

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source for labels and fixed-delay timers. Any
// clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once after d on its own goroutine. Timers are never
	// cancelled by this package.
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// SystemClock is the wall clock.
func SystemClock() Clock { return clockwork.NewRealClock() }

// Display label layouts, rendered in the session's configured zone.
const (
	snapshotLabelLayout = "15:04:05"
	eventLabelLayout    = "Mon, 2 Jan 15:04:05"
)
