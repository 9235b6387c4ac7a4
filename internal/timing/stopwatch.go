package timing

import "time"

// Stopwatch tracks whole seconds since game start with two cadences:
// Tick is the cheap internal update, Publish copies the value to the
// observable field. Both values only ever grow while running.
type Stopwatch struct {
	start     time.Time
	running   bool
	elapsed   int
	published int
}

// Start restarts from zero at now.
func (w *Stopwatch) Start(now time.Time) {
	*w = Stopwatch{start: now, running: true}
}

// Tick refreshes the internal value.
func (w *Stopwatch) Tick(now time.Time) {
	if !w.running {
		return
	}
	if sec := int(now.Sub(w.start) / time.Second); sec > w.elapsed {
		w.elapsed = sec
	}
}

// Publish exposes the internal value and reports whether the observable
// value changed.
func (w *Stopwatch) Publish() bool {
	if !w.running || w.published == w.elapsed {
		return false
	}
	w.published = w.elapsed
	return true
}

// Freeze takes a final reading, publishes it and stops.
func (w *Stopwatch) Freeze(now time.Time) int {
	w.Tick(now)
	w.published = w.elapsed
	w.running = false
	return w.elapsed
}

// Reset zeroes and stops the stopwatch.
func (w *Stopwatch) Reset() { *w = Stopwatch{} }

func (w *Stopwatch) Elapsed() int   { return w.elapsed }
func (w *Stopwatch) Published() int { return w.published }
func (w *Stopwatch) Running() bool  { return w.running }
