package controller

import (
	"context"

	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/leaderboard"
)

// Snapshot is the read model handed to presentation layers. It never
// exposes the sequence of a running game.
type Snapshot struct {
	Version     uint64          `json:"version"`
	Phase       game.Phase      `json:"phase"`
	Difficulty  game.Difficulty `json:"difficulty"`
	Board       game.Board      `json:"board"`
	Round       int             `json:"round"`
	InputLength int             `json:"inputLength"`
	Visible     []int           `json:"visible"`  // cells inside their reveal window
	Revealed    []int           `json:"revealed"` // hint, click and loss feedback
	Elapsed     int             `json:"elapsed"`
	HintUsed    bool            `json:"hintUsed"`
	HintActive  bool            `json:"hintActive"`
	Daily       bool            `json:"daily"`

	// lost only
	Score        *game.Score `json:"score,omitempty"`
	WrongCell    *int        `json:"wrongCell,omitempty"`
	ExpectedCell *int        `json:"expectedCell,omitempty"`
	Sequence     []int       `json:"sequence,omitempty"`
	Rank         int         `json:"rank,omitempty"`

	Leaderboard leaderboard.Standings `json:"leaderboard,omitempty"`
}

// Snapshot returns the current read model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Version:     c.version,
		Phase:       c.state.Phase(),
		Difficulty:  c.state.Difficulty(),
		Board:       c.state.Board(),
		Round:       c.state.SequenceLen(),
		InputLength: c.state.InputLen(),
		Visible:     c.state.Visible(),
		Revealed:    c.state.Revealed(),
		Elapsed:     c.watch.Published(),
		HintUsed:    c.state.HintUsed(),
		HintActive:  c.state.HintActive(),
		Daily:       c.daily,
	}
	if wrong, expected, ok := c.state.Mistake(); ok {
		s.Score = c.state.Score()
		s.WrongCell, s.ExpectedCell = &wrong, &expected
		s.Sequence = c.state.Sequence()
		s.Rank = c.rank
	}
	if c.lb != nil {
		s.Leaderboard = c.lb.Snapshot()
	}
	return s
}

// Version returns the change counter. It moves only on observable changes.
func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Wait blocks until the version exceeds since, the controller is closed or
// ctx is done, and returns the snapshot at that point.
func (c *Controller) Wait(ctx context.Context, since uint64) (Snapshot, error) {
	for {
		c.mu.Lock()
		if c.version > since || c.closed {
			s := c.snapshot()
			c.mu.Unlock()
			return s, nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		case <-ch:
		}
	}
}
