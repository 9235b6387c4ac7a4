package timing

import (
	"errors"
	"sort"
	"time"
)

// Timings holds every fixed delay of the game loop.
type Timings struct {
	LeadIn      time.Duration // first round: phase entry → first reveal
	RoundLeadIn time.Duration // later rounds: includes the post-round pause
	Interval    time.Duration // reveal start → next reveal start
	Reveal      time.Duration // how long one element stays revealed
	Handoff     time.Duration // last hide → playing
	Tick        time.Duration // internal elapsed-time cadence
	Publish     time.Duration // observable elapsed-time cadence
	Hint        time.Duration // hint display window
	ClickFlash  time.Duration // feedback on a correct selection
}

// DefaultTimings mirrors the classic web game.
func DefaultTimings() Timings {
	return Timings{
		LeadIn:      500 * time.Millisecond,
		RoundLeadIn: 1500 * time.Millisecond,
		Interval:    1500 * time.Millisecond,
		Reveal:      1000 * time.Millisecond,
		Handoff:     500 * time.Millisecond,
		Tick:        100 * time.Millisecond,
		Publish:     time.Second,
		Hint:        2 * time.Second,
		ClickFlash:  500 * time.Millisecond,
	}
}

var ErrInvalidTimings = errors.New("invalid timings")

// Validate rejects negative delays and non-positive cadences.
func (t Timings) Validate() error {
	for _, d := range []time.Duration{t.LeadIn, t.RoundLeadIn, t.Interval, t.Reveal, t.Handoff, t.Hint, t.ClickFlash} {
		if d < 0 {
			return ErrInvalidTimings
		}
	}
	if t.Tick <= 0 || t.Publish <= 0 {
		return ErrInvalidTimings
	}
	return nil
}

// StepKind is what happens at a Step.
type StepKind int

const (
	StepReveal StepKind = iota
	StepHide
	StepHandoff
)

// Step is one scheduled event of a showing phase, relative to phase entry.
type Step struct {
	At    time.Duration
	Kind  StepKind
	Index int
}

// Plan lays out the showing phase for a sequence of the given length.
// Element i is revealed at lead + i*Interval and hidden Reveal later; the
// handoff to playing follows the last hide by Handoff. Steps are returned in
// firing order.
func Plan(length int, first bool, t Timings) []Step {
	if length <= 0 {
		return nil
	}
	lead := t.RoundLeadIn
	if first {
		lead = t.LeadIn
	}
	steps := make([]Step, 0, 2*length+1)
	for i := 0; i < length; i++ {
		at := lead + time.Duration(i)*t.Interval
		steps = append(steps,
			Step{At: at, Kind: StepReveal, Index: i},
			Step{At: at + t.Reveal, Kind: StepHide, Index: i},
		)
	}
	last := lead + time.Duration(length-1)*t.Interval + t.Reveal
	steps = append(steps, Step{At: last + t.Handoff, Kind: StepHandoff, Index: length - 1})
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })
	return steps
}

// Duration returns the time from phase entry to handoff.
func Duration(length int, first bool, t Timings) time.Duration {
	steps := Plan(length, first, t)
	if len(steps) == 0 {
		return 0
	}
	return steps[len(steps)-1].At
}
