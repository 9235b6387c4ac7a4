// Package timing drives every time-based transition of a game: the reveal
// cadence, the elapsed-time clock and short feedback windows.
//
// All deferred work goes through a Scheduler, which tags each item with the
// epoch it was scheduled in and drops it if the epoch has moved on.
package timing

import "time"

// Clock abstracts wall time and deferred execution.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending call.
type Timer interface {
	Stop() bool
}

// RealClock is backed by the time package. Callbacks run on their own goroutine.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
