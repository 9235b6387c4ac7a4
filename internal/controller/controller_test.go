package controller

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/robalobadob/memorygame/internal/daily"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/leaderboard"
	"github.com/robalobadob/memorygame/internal/timing"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// queue hands out queued values for draws over more than one option and
// zero once empty. Single-option draws (easy cell kinds) do not consume.
type queue struct{ vals []int }

func (q *queue) Intn(n int) int {
	if n == 1 || len(q.vals) == 0 {
		return 0
	}
	v := q.vals[0]
	q.vals = q.vals[1:]
	return v % n
}

type fixture struct {
	c   *Controller
	clk *timing.FakeClock
	lb  *leaderboard.Leaderboard
	tm  timing.Timings
}

func newFixture(t *testing.T, seq ...int) *fixture {
	t.Helper()
	clk := timing.NewFakeClock(epoch)
	lb := leaderboard.New(leaderboard.NewMemoryStore())
	f := &fixture{
		clk: clk,
		lb:  lb,
		tm:  timing.DefaultTimings(),
	}
	f.c = New(lb, WithClock(clk), WithRand(&queue{vals: seq}))
	t.Cleanup(f.c.Close)
	return f
}

// untilPlaying advances through a full showing phase.
func (f *fixture) untilPlaying(t *testing.T, first bool) {
	t.Helper()
	f.clk.Advance(timing.Duration(f.c.Snapshot().Round, first, f.tm))
	if ph := f.c.Snapshot().Phase; ph != game.PhasePlaying {
		t.Fatalf("phase = %s after showing, want playing", ph)
	}
}

func (f *fixture) selectCell(t *testing.T, id int, want game.Outcome) {
	t.Helper()
	got, err := f.c.SelectCell(id)
	if err != nil {
		t.Fatalf("SelectCell(%d): %v", id, err)
	}
	if got != want {
		t.Fatalf("SelectCell(%d) = %s, want %s", id, got, want)
	}
}

func TestStartRevealsFirstElement(t *testing.T) {
	f := newFixture(t, 5)
	if err := f.c.StartGame(game.Easy); err != nil {
		t.Fatal(err)
	}
	s := f.c.Snapshot()
	if s.Phase != game.PhaseShowing || s.Round != 1 || s.InputLength != 0 || s.Board.Size != 4 {
		t.Fatalf("after start: %+v", s)
	}
	if s.Sequence != nil {
		t.Fatal("sequence exposed during a running game")
	}

	f.clk.Advance(f.tm.LeadIn)
	if got := f.c.Snapshot().Visible; !reflect.DeepEqual(got, []int{5}) {
		t.Fatalf("visible = %v, want [5]", got)
	}
	f.clk.Advance(f.tm.Reveal)
	if got := f.c.Snapshot().Visible; len(got) != 0 {
		t.Fatalf("visible after reveal window = %v", got)
	}
	f.clk.Advance(f.tm.Handoff)
	if s := f.c.Snapshot(); s.Phase != game.PhasePlaying || s.InputLength != 0 {
		t.Fatalf("after showing: phase=%s input=%d", s.Phase, s.InputLength)
	}
}

func TestStartIgnoredWhileRunning(t *testing.T) {
	f := newFixture(t, 5, 9)
	_ = f.c.StartGame(game.Easy)
	v := f.c.Version()
	if err := f.c.StartGame(game.Hard); err != nil {
		t.Fatal(err)
	}
	if s := f.c.Snapshot(); s.Version != v || s.Difficulty != game.Easy {
		t.Fatalf("restart mid-game changed state: %+v", s)
	}
}

func TestCorrectRoundExtends(t *testing.T) {
	f := newFixture(t, 3, 7)
	_ = f.c.StartGame(game.Easy)
	f.untilPlaying(t, true)

	f.selectCell(t, 3, game.OutcomeRoundComplete)
	s := f.c.Snapshot()
	if s.Phase != game.PhaseShowing || s.Round != 2 || s.InputLength != 0 {
		t.Fatalf("after round: %+v", s)
	}
	if !reflect.DeepEqual(s.Revealed, []int{3}) {
		t.Fatalf("click feedback = %v", s.Revealed)
	}
	f.clk.Advance(f.tm.ClickFlash)
	if got := f.c.Snapshot().Revealed; len(got) != 0 {
		t.Fatalf("feedback after flash = %v", got)
	}

	f.clk.Advance(f.tm.RoundLeadIn - f.tm.ClickFlash)
	if got := f.c.Snapshot().Visible; !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("second round first reveal = %v", got)
	}
	f.clk.Advance(f.tm.Interval)
	if got := f.c.Snapshot().Visible; !reflect.DeepEqual(got, []int{7}) {
		t.Fatalf("second round second reveal = %v", got)
	}
	f.clk.Advance(f.tm.Reveal + f.tm.Handoff)
	if ph := f.c.Snapshot().Phase; ph != game.PhasePlaying {
		t.Fatalf("phase = %s", ph)
	}
}

func TestWrongSelectionEndsGame(t *testing.T) {
	var hooked []game.Score
	clk := timing.NewFakeClock(epoch)
	lb := leaderboard.New(leaderboard.NewMemoryStore())
	c := New(lb, WithClock(clk), WithRand(&queue{vals: []int{3, 7}}),
		WithOnLost(func(d game.Difficulty, s game.Score) {
			if d != game.Easy {
				t.Errorf("hook difficulty = %s", d)
			}
			hooked = append(hooked, s)
		}))
	defer c.Close()
	f := &fixture{c: c, clk: clk, lb: lb, tm: timing.DefaultTimings()}

	_ = c.StartGame(game.Easy)
	f.untilPlaying(t, true)
	f.selectCell(t, 3, game.OutcomeRoundComplete)
	f.untilPlaying(t, false)
	f.selectCell(t, 3, game.OutcomeAccepted)
	f.selectCell(t, 2, game.OutcomeLost)

	s := c.Snapshot()
	if s.Phase != game.PhaseLost || s.Score == nil {
		t.Fatalf("after loss: %+v", s)
	}
	// 2s first showing + 4.5s second showing
	if s.Score.Rounds != 1 || s.Score.ElapsedSeconds != 6 || !s.Score.RecordedAt.Equal(epoch.Add(6500*time.Millisecond)) {
		t.Fatalf("score = %+v", *s.Score)
	}
	if *s.WrongCell != 2 || *s.ExpectedCell != 7 || !reflect.DeepEqual(s.Revealed, []int{2, 7}) {
		t.Fatalf("mistake wrong=%d expected=%d revealed=%v", *s.WrongCell, *s.ExpectedCell, s.Revealed)
	}
	if !reflect.DeepEqual(s.Sequence, []int{3, 7}) || s.Rank != 1 || s.Elapsed != 6 {
		t.Fatalf("sequence=%v rank=%d elapsed=%d", s.Sequence, s.Rank, s.Elapsed)
	}
	if got := lb.Snapshot()[game.Easy]; len(got) != 1 || got[0].Rounds != 1 {
		t.Fatalf("leaderboard = %v", got)
	}
	if len(hooked) != 1 {
		t.Fatalf("hook calls = %d", len(hooked))
	}

	if clk.Pending() != 0 {
		t.Fatalf("%d timers still pending after loss", clk.Pending())
	}
	f.selectCell(t, 7, game.OutcomeIgnored)
	clk.Advance(10 * time.Second)
	if after := c.Snapshot(); after.Elapsed != 6 || after.Version != s.Version {
		t.Fatalf("lost game kept changing: elapsed=%d version=%d/%d", after.Elapsed, after.Version, s.Version)
	}
}

func TestHintOncePerGame(t *testing.T) {
	f := newFixture(t, 3)
	if f.c.UseHint() {
		t.Fatal("hint granted while idle")
	}
	_ = f.c.StartGame(game.Easy)
	if f.c.UseHint() {
		t.Fatal("hint granted while showing")
	}
	f.untilPlaying(t, true)

	if !f.c.UseHint() {
		t.Fatal("hint refused while playing")
	}
	s := f.c.Snapshot()
	if !s.HintUsed || !s.HintActive || !reflect.DeepEqual(s.Revealed, []int{3}) {
		t.Fatalf("after hint: %+v", s)
	}
	if f.c.UseHint() {
		t.Fatal("second hint granted")
	}

	f.clk.Advance(f.tm.Hint)
	s = f.c.Snapshot()
	if s.HintActive || len(s.Revealed) != 0 || !s.HintUsed {
		t.Fatalf("after hint window: active=%v revealed=%v used=%v", s.HintActive, s.Revealed, s.HintUsed)
	}
}

func TestResetCancelsScheduledWork(t *testing.T) {
	f := newFixture(t, 3)
	_ = f.c.StartGame(game.Easy)
	f.clk.Advance(700 * time.Millisecond)
	if len(f.c.Snapshot().Visible) != 1 {
		t.Fatal("reveal not in progress")
	}

	f.c.Reset()
	s := f.c.Snapshot()
	if s.Phase != game.PhaseIdle || s.Round != 0 || len(s.Visible) != 0 || s.Elapsed != 0 || s.HintUsed {
		t.Fatalf("after reset: %+v", s)
	}
	if f.clk.Pending() != 0 {
		t.Fatalf("%d timers pending after reset", f.clk.Pending())
	}
	f.clk.Advance(10 * time.Second)
	if v := f.c.Version(); v != s.Version {
		t.Fatalf("version moved after reset: %d -> %d", s.Version, v)
	}
}

func TestRestartIgnoresEarlierTimers(t *testing.T) {
	f := newFixture(t, 3, 9)
	_ = f.c.StartGame(game.Easy)
	f.clk.Advance(700 * time.Millisecond)
	f.c.Reset()
	_ = f.c.StartGame(game.Easy)

	// the first game's hide would have landed at 1.5s
	f.clk.Advance(900 * time.Millisecond)
	if got := f.c.Snapshot().Visible; !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("visible = %v, want [9]", got)
	}
}

func TestResetIdempotent(t *testing.T) {
	f := newFixture(t, 3)
	v := f.c.Version()
	f.c.Reset()
	if f.c.Version() != v {
		t.Fatal("reset while idle changed state")
	}

	_ = f.c.StartGame(game.Easy)
	f.c.Reset()
	first := f.c.Snapshot()
	f.c.Reset()
	if second := f.c.Snapshot(); !reflect.DeepEqual(first, second) {
		t.Fatalf("second reset changed state:\n%+v\n%+v", first, second)
	}
}

func TestElapsedPublishesOncePerSecond(t *testing.T) {
	f := newFixture(t, 3)
	_ = f.c.StartGame(game.Easy)
	f.untilPlaying(t, true)
	if e := f.c.Snapshot().Elapsed; e != 2 {
		t.Fatalf("elapsed = %d, want 2", e)
	}

	v := f.c.Version()
	f.clk.Advance(900 * time.Millisecond)
	if f.c.Version() != v {
		t.Fatal("internal ticks notified observers")
	}
	f.clk.Advance(100 * time.Millisecond)
	s := f.c.Snapshot()
	if s.Elapsed != 3 || s.Version != v+1 {
		t.Fatalf("elapsed=%d version=%d, want 3 and %d", s.Elapsed, s.Version, v+1)
	}

	prev := s.Elapsed
	for i := 0; i < 5; i++ {
		f.clk.Advance(700 * time.Millisecond)
		if e := f.c.Snapshot().Elapsed; e < prev {
			t.Fatalf("elapsed went backwards: %d -> %d", prev, e)
		} else {
			prev = e
		}
	}
}

func TestChangeDifficulty(t *testing.T) {
	f := newFixture(t, 3)
	if err := f.c.ChangeDifficulty("expert"); !errors.Is(err, game.ErrInvalidDifficulty) {
		t.Fatalf("err = %v", err)
	}
	if err := f.c.ChangeDifficulty(game.Medium); err != nil {
		t.Fatal(err)
	}
	if s := f.c.Snapshot(); s.Difficulty != game.Medium || s.Board.Size != 5 || len(s.Board.Cells) != 25 {
		t.Fatalf("idle change: %+v", s)
	}

	_ = f.c.StartGame(game.Easy)
	_ = f.c.ChangeDifficulty(game.Hard)
	if s := f.c.Snapshot(); s.Difficulty != game.Easy || s.Board.Size != 4 {
		t.Fatalf("mid-game change applied: %s", s.Difficulty)
	}

	f.untilPlaying(t, true)
	f.selectCell(t, 1, game.OutcomeLost)
	_ = f.c.ChangeDifficulty(game.Hard)
	if s := f.c.Snapshot(); s.Difficulty != game.Hard || s.Board.Size != 4 {
		t.Fatalf("lost change: difficulty=%s size=%d", s.Difficulty, s.Board.Size)
	}
	f.c.AcknowledgeGameOver()
	if s := f.c.Snapshot(); s.Phase != game.PhaseIdle || s.Board.Size != 6 {
		t.Fatalf("after acknowledge: phase=%s size=%d", s.Phase, s.Board.Size)
	}
}

func TestAcknowledgeOnlyWhenLost(t *testing.T) {
	f := newFixture(t, 3)
	_ = f.c.StartGame(game.Easy)
	f.c.AcknowledgeGameOver()
	if ph := f.c.Snapshot().Phase; ph != game.PhaseShowing {
		t.Fatalf("acknowledge mid-game: phase=%s", ph)
	}
}

func TestSelectInvalidCell(t *testing.T) {
	f := newFixture(t, 3)
	_ = f.c.StartGame(game.Easy)
	f.untilPlaying(t, true)
	if _, err := f.c.SelectCell(16); !errors.Is(err, game.ErrInvalidCell) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.c.SelectCell(-1); !errors.Is(err, game.ErrInvalidCell) {
		t.Fatalf("err = %v", err)
	}
	if s := f.c.Snapshot(); s.Phase != game.PhasePlaying || s.InputLength != 0 {
		t.Fatalf("invalid cell mutated state: %+v", s)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	f := newFixture(t, 3)
	_ = f.c.StartGame(game.Easy)
	f.c.Close()
	if f.clk.Pending() != 0 {
		t.Fatalf("%d timers pending after close", f.clk.Pending())
	}
	v := f.c.Version()
	f.clk.Advance(5 * time.Second)
	_, _ = f.c.SelectCell(3)
	f.c.UseHint()
	if f.c.Version() != v {
		t.Fatal("closed controller changed")
	}
}

func TestWait(t *testing.T) {
	f := newFixture(t, 3)
	v := f.c.Version()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.c.Wait(ctx, v); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("idle wait err = %v", err)
	}

	done := make(chan Snapshot, 1)
	go func() {
		s, _ := f.c.Wait(context.Background(), v)
		done <- s
	}()
	_ = f.c.StartGame(game.Easy)

	select {
	case s := <-done:
		if s.Version <= v || s.Phase != game.PhaseShowing {
			t.Fatalf("woken with %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken")
	}

	if s, err := f.c.Wait(context.Background(), 0); err != nil || s.Version == 0 {
		t.Fatalf("stale since: version=%d err=%v", s.Version, err)
	}
}

func TestDailyGamesShareSequence(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var visible [][]int
	for i := 0; i < 2; i++ {
		clk := timing.NewFakeClock(epoch)
		c := New(nil, WithClock(clk), WithRand(rand.New(rand.NewSource(int64(i)))))
		if err := c.StartDaily(game.Hard, daily.Rand(day, "salt")); err != nil {
			t.Fatal(err)
		}
		clk.Advance(timing.DefaultTimings().LeadIn)
		s := c.Snapshot()
		if !s.Daily {
			t.Fatal("daily flag not set")
		}
		visible = append(visible, s.Visible)
		c.Close()
	}
	if !reflect.DeepEqual(visible[0], visible[1]) {
		t.Fatalf("daily games differ: %v vs %v", visible[0], visible[1])
	}
}
