package timing

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockFiresInOrder(t *testing.T) {
	c := NewFakeClock(t0)
	var got []string
	c.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	c.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	c.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })
	stopped := c.AfterFunc(200*time.Millisecond, func() { got = append(got, "x") })
	if !stopped.Stop() {
		t.Fatal("Stop on pending timer returned false")
	}

	c.Advance(250 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("after 250ms got %v", got)
	}
	if !c.Now().Equal(t0.Add(250 * time.Millisecond)) {
		t.Fatalf("now = %v", c.Now())
	}
	c.Advance(time.Second)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %d", c.Pending())
	}
}

func TestFakeClockNestedTimers(t *testing.T) {
	c := NewFakeClock(t0)
	var at []time.Duration
	c.AfterFunc(100*time.Millisecond, func() {
		at = append(at, c.Now().Sub(t0))
		c.AfterFunc(100*time.Millisecond, func() { at = append(at, c.Now().Sub(t0)) })
	})
	c.Advance(time.Second)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if !reflect.DeepEqual(at, want) {
		t.Fatalf("fired at %v, want %v", at, want)
	}
}

func TestSchedulerEpochInvalidates(t *testing.T) {
	var mu sync.Mutex
	c := NewFakeClock(t0)
	s := NewScheduler(c, &mu)

	fired := 0
	mu.Lock()
	s.After(time.Second, func() { fired++ })
	s.NextEpoch()
	s.After(2*time.Second, func() { fired += 10 })
	mu.Unlock()

	c.Advance(3 * time.Second)
	if fired != 10 {
		t.Fatalf("fired = %d, want only the current-epoch item", fired)
	}
	mu.Lock()
	defer mu.Unlock()
	if s.Pending() != 0 {
		t.Fatalf("pending = %d", s.Pending())
	}
}

// heldClock captures callbacks so a test can run them after cancellation,
// the way a real timer that already fired would.
type heldClock struct{ fns []func() }

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (h *heldClock) Now() time.Time { return t0 }
func (h *heldClock) AfterFunc(_ time.Duration, f func()) Timer {
	h.fns = append(h.fns, f)
	return noopTimer{}
}

func TestSchedulerDropsFiredButCancelled(t *testing.T) {
	var mu sync.Mutex
	h := &heldClock{}
	s := NewScheduler(h, &mu)

	ran := false
	mu.Lock()
	s.After(time.Second, func() { ran = true })
	s.CancelAll() // same epoch
	mu.Unlock()

	h.fns[0]()
	if ran {
		t.Fatal("cancelled callback ran")
	}
}

func TestSchedulerEvery(t *testing.T) {
	var mu sync.Mutex
	c := NewFakeClock(t0)
	s := NewScheduler(c, &mu)

	n := 0
	mu.Lock()
	s.Every(100*time.Millisecond, func() {
		n++
		if n == 5 {
			s.CancelAll()
		}
	})
	mu.Unlock()

	c.Advance(time.Second)
	if n != 5 {
		t.Fatalf("ticks = %d, want 5", n)
	}
}

func TestSchedulerStop(t *testing.T) {
	var mu sync.Mutex
	c := NewFakeClock(t0)
	s := NewScheduler(c, &mu)

	ran := false
	mu.Lock()
	s.After(time.Millisecond, func() { ran = true })
	s.Stop()
	s.After(time.Millisecond, func() { ran = true })
	mu.Unlock()

	c.Advance(time.Second)
	if ran || c.Pending() != 0 {
		t.Fatalf("ran=%v pending=%d after Stop", ran, c.Pending())
	}
}

func TestStopwatch(t *testing.T) {
	var w Stopwatch
	w.Start(t0)

	w.Tick(t0.Add(2500 * time.Millisecond))
	if w.Elapsed() != 2 || w.Published() != 0 {
		t.Fatalf("elapsed=%d published=%d", w.Elapsed(), w.Published())
	}
	if !w.Publish() || w.Published() != 2 {
		t.Fatal("publish")
	}
	if w.Publish() {
		t.Fatal("publish without change reported a change")
	}

	// a stale reading never moves the value backwards
	w.Tick(t0.Add(time.Second))
	if w.Elapsed() != 2 {
		t.Fatalf("elapsed went back to %d", w.Elapsed())
	}

	if got := w.Freeze(t0.Add(7 * time.Second)); got != 7 || w.Published() != 7 {
		t.Fatalf("freeze = %d published=%d", got, w.Published())
	}
	w.Tick(t0.Add(time.Minute))
	if w.Publish() || w.Published() != 7 {
		t.Fatal("frozen stopwatch moved")
	}

	w.Reset()
	if w.Elapsed() != 0 || w.Published() != 0 || w.Running() {
		t.Fatal("reset")
	}
}

func TestPlan(t *testing.T) {
	tm := DefaultTimings()
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	got := Plan(2, true, tm)
	want := []Step{
		{At: ms(500), Kind: StepReveal, Index: 0},
		{At: ms(1500), Kind: StepHide, Index: 0},
		{At: ms(2000), Kind: StepReveal, Index: 1},
		{At: ms(3000), Kind: StepHide, Index: 1},
		{At: ms(3500), Kind: StepHandoff, Index: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan(2, first) =\n%v\nwant\n%v", got, want)
	}

	if d := Duration(1, false, tm); d != ms(1500+1000+500) {
		t.Fatalf("Duration(1, later) = %v", d)
	}
	if Plan(0, true, tm) != nil {
		t.Fatal("empty plan")
	}
}

func TestPlanRevealsInIndexOrder(t *testing.T) {
	steps := Plan(10, false, DefaultTimings())
	next := 0
	for _, st := range steps {
		if st.Kind == StepReveal {
			if st.Index != next {
				t.Fatalf("reveal %d before %d", st.Index, next)
			}
			next++
		}
	}
	if steps[len(steps)-1].Kind != StepHandoff {
		t.Fatal("handoff is not last")
	}
}

func TestTimingsValidate(t *testing.T) {
	tm := DefaultTimings()
	if err := tm.Validate(); err != nil {
		t.Fatal(err)
	}
	tm.Tick = 0
	if tm.Validate() != ErrInvalidTimings {
		t.Fatal("zero tick accepted")
	}
}
