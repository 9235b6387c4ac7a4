// internal/controller/controller.go
//
// Game controller: the effect layer around game.State.
// Responsibilities:
//   - Serialize every operation and timer callback on one mutex.
//   - Schedule the reveal cadence, the elapsed-time cadences, the hint window
//     and click feedback through an epoch-tagged timing.Scheduler.
//   - Submit the finalized score to the shared leaderboard.
//   - Expose the read model (Snapshot) and change notification (Wait) that
//     presentation layers consume.
//
// Notes:
//   - startGame and reset move to a new scheduler epoch, so nothing scheduled
//     for an earlier game can touch the current one.
//   - Out-of-phase operations are silent no-ops; only invalid arguments
//     (difficulty, cell id) return errors.

package controller

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/leaderboard"
	"github.com/robalobadob/memorygame/internal/timing"
)

// submitTimeout bounds the leaderboard save after a loss.
const submitTimeout = 5 * time.Second

// Controller drives one game. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	state   *game.State
	gen     *game.Generator
	base    game.Rand // default source
	rng     game.Rand // source of the current game
	clock   timing.Clock
	sched   *timing.Scheduler
	watch   timing.Stopwatch
	timings timing.Timings
	lb      *leaderboard.Leaderboard
	onLost  func(game.Difficulty, game.Score)

	daily bool
	rank  int

	version uint64
	changed chan struct{}
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock (tests use timing.FakeClock).
func WithClock(c timing.Clock) Option { return func(ctl *Controller) { ctl.clock = c } }

// WithRand replaces the default random source.
func WithRand(r game.Rand) Option { return func(ctl *Controller) { ctl.base = r } }

// WithTimings replaces timing.DefaultTimings.
func WithTimings(t timing.Timings) Option { return func(ctl *Controller) { ctl.timings = t } }

// WithGenerator replaces the default board generator.
func WithGenerator(g *game.Generator) Option { return func(ctl *Controller) { ctl.gen = g } }

// WithOnLost registers a hook called once per lost game, after the
// leaderboard submission, outside the controller lock.
func WithOnLost(fn func(game.Difficulty, game.Score)) Option {
	return func(ctl *Controller) { ctl.onLost = fn }
}

// New returns an idle controller on a fresh easy board. lb may be nil.
func New(lb *leaderboard.Leaderboard, opts ...Option) *Controller {
	c := &Controller{
		clock:   timing.RealClock{},
		timings: timing.DefaultTimings(),
		lb:      lb,
		changed: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.base == nil {
		c.base = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.gen == nil {
		c.gen = game.NewGenerator(nil, "")
	}
	c.rng = c.base
	c.sched = timing.NewScheduler(c.clock, &c.mu)

	board, _ := c.gen.Generate(game.Easy, c.base)
	c.state = game.NewState(board)
	return c
}

// StartGame begins a new game on a freshly generated board for d.
// Accepted from idle and lost; ignored while a game is running.
func (c *Controller) StartGame(d game.Difficulty) error {
	return c.start(d, nil)
}

// StartDaily is StartGame with the day's shared random source, used for the
// board and every sequence extension of this game.
func (c *Controller) StartDaily(d game.Difficulty, rng game.Rand) error {
	return c.start(d, rng)
}

func (c *Controller) start(d game.Difficulty, custom game.Rand) error {
	if !d.Valid() {
		return game.ErrInvalidDifficulty
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if ph := c.state.Phase(); ph == game.PhaseShowing || ph == game.PhasePlaying {
		return nil
	}

	rng := c.base
	if custom != nil {
		rng = custom
	}
	board, err := c.gen.Generate(d, rng)
	if err != nil {
		return err
	}

	c.sched.NextEpoch()
	c.state.Start(board, rng)
	c.rng = rng
	c.daily = custom != nil
	c.rank = 0

	c.watch.Start(c.clock.Now())
	c.sched.Every(c.timings.Tick, c.tick)
	c.sched.Every(c.timings.Publish, c.publish)
	c.scheduleShowing(true)
	c.bump()

	log.Debug().Str("difficulty", string(d)).Bool("daily", c.daily).Uint64("epoch", c.sched.Epoch()).Msg("game started")
	return nil
}

// SelectCell applies a player selection. ErrInvalidCell is returned for ids
// outside the board; everything out of phase is ignored.
func (c *Controller) SelectCell(id int) (game.Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return game.OutcomeIgnored, nil
	}

	now := c.clock.Now()
	c.watch.Tick(now)
	out, err := c.state.Select(id, c.rng, c.watch.Elapsed(), now)
	if err != nil || out == game.OutcomeIgnored {
		c.mu.Unlock()
		return out, err
	}

	var (
		lost  bool
		diff  game.Difficulty
		score game.Score
		epoch = c.sched.Epoch()
	)
	switch out {
	case game.OutcomeAccepted:
		c.flash(id)
	case game.OutcomeRoundComplete:
		c.flash(id)
		c.scheduleShowing(false)
		log.Debug().Int("round", c.state.SequenceLen()).Msg("round complete")
	case game.OutcomeLost:
		c.sched.CancelAll()
		c.watch.Freeze(now)
		lost = true
		diff = c.state.Board().Difficulty
		score = *c.state.Score()
		log.Debug().Int("rounds", score.Rounds).Int("elapsed", score.ElapsedSeconds).Msg("game lost")
	}
	c.bump()
	c.mu.Unlock()

	if lost {
		c.finish(epoch, diff, score)
	}
	return out, nil
}

// finish submits the score and publishes its rank if the game it belongs to
// is still current.
func (c *Controller) finish(epoch uint64, d game.Difficulty, s game.Score) {
	if c.lb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		rank, _ := c.lb.Submit(ctx, d, s)
		cancel()

		c.mu.Lock()
		if c.sched.Epoch() == epoch && c.state.Phase() == game.PhaseLost {
			c.rank = rank
			c.bump()
		}
		c.mu.Unlock()
	}
	if c.onLost != nil {
		c.onLost(d, s)
	}
}

// UseHint reveals the whole sequence for the hint window. Once per game,
// while playing; reports whether the hint was granted.
func (c *Controller) UseHint() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.state.UseHint() {
		return false
	}
	c.sched.After(c.timings.Hint, func() {
		if c.state.ClearHint() {
			c.bump()
		}
	})
	c.bump()
	return true
}

// ChangeDifficulty selects d. While idle the board is regenerated at once;
// after a loss d applies from the next reset or start; mid-game it is ignored.
func (c *Controller) ChangeDifficulty(d game.Difficulty) error {
	if !d.Valid() {
		return game.ErrInvalidDifficulty
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	switch c.state.Phase() {
	case game.PhaseIdle:
		board, err := c.gen.Generate(d, c.base)
		if err != nil {
			return err
		}
		c.state.SetBoard(board)
		c.bump()
	case game.PhaseLost:
		if c.state.SetDifficulty(d) {
			c.bump()
		}
	}
	return nil
}

// Reset discards the current game and returns to idle on a new board for
// the selected difficulty. A no-op when already idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// AcknowledgeGameOver dismisses a lost game (reset); ignored otherwise.
func (c *Controller) AcknowledgeGameOver() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase() == game.PhaseLost {
		c.reset()
	}
}

func (c *Controller) reset() {
	if c.closed || c.state.Phase() == game.PhaseIdle {
		return
	}
	board, err := c.gen.Generate(c.state.Difficulty(), c.base)
	if err != nil {
		return
	}
	c.sched.NextEpoch()
	c.watch.Reset()
	c.state.Reset(board)
	c.rng = c.base
	c.daily = false
	c.rank = 0
	c.bump()
	log.Debug().Uint64("epoch", c.sched.Epoch()).Msg("game reset")
}

// Close cancels all scheduled work; the controller ignores every later call.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sched.Stop()
	c.watch.Reset()
	c.closed = true
	c.bump()
}

// ---------------------------------------------------------------------------
// scheduled work (runs with c.mu held)

func (c *Controller) scheduleShowing(first bool) {
	for _, st := range timing.Plan(c.state.SequenceLen(), first, c.timings) {
		st := st
		c.sched.After(st.At, func() { c.step(st) })
	}
}

func (c *Controller) step(st timing.Step) {
	var changed bool
	switch st.Kind {
	case timing.StepReveal:
		changed = c.state.Reveal(st.Index)
	case timing.StepHide:
		changed = c.state.Hide(st.Index)
	case timing.StepHandoff:
		changed = c.state.FinishShowing()
	}
	if changed {
		c.bump()
	}
}

func (c *Controller) flash(id int) {
	c.sched.After(c.timings.ClickFlash, func() {
		if c.state.Conceal(id) {
			c.bump()
		}
	})
}

// tick is the high-frequency cadence; it never notifies observers.
func (c *Controller) tick() { c.watch.Tick(c.clock.Now()) }

// publish takes a fresh reading so a same-instant tick cannot lag it.
func (c *Controller) publish() {
	c.watch.Tick(c.clock.Now())
	if c.watch.Publish() {
		c.bump()
	}
}

func (c *Controller) bump() {
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
}
