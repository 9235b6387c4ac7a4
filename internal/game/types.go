// internal/game/types.go
//
// Core type definitions for the memory grid engine.
// Defines:
//   - Difficulty and its fixed board configuration table.
//   - CellKind / Cell / Board: the playable grid for one game.
//   - Phase: the coarse game state (idle → showing → playing → lost).
//   - Score: the immutable result of a lost game.

package game

import (
	"errors"
	"strings"
	"time"
)

// Difficulty selects the board size and the cell kinds in play.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every valid difficulty in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// CellKind is the content type of a cell.
type CellKind string

const (
	KindNumeric CellKind = "numeric"
	KindColor   CellKind = "color"
	KindImage   CellKind = "image"
)

// Config is the immutable board configuration of a difficulty.
type Config struct {
	Size  int        // cells per side
	Kinds []CellKind // kinds a cell may be drawn from
}

// Configs is read-only at runtime.
var Configs = map[Difficulty]Config{
	Easy:   {Size: 4, Kinds: []CellKind{KindNumeric}},
	Medium: {Size: 5, Kinds: []CellKind{KindNumeric, KindColor}},
	Hard:   {Size: 6, Kinds: []CellKind{KindNumeric, KindColor, KindImage}},
}

var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidCell       = errors.New("invalid cell")
)

// Valid reports whether d is one of the configured difficulties.
func (d Difficulty) Valid() bool {
	_, ok := Configs[d]
	return ok
}

// Config returns the board configuration for d.
func (d Difficulty) Config() (Config, error) {
	c, ok := Configs[d]
	if !ok {
		return Config{}, ErrInvalidDifficulty
	}
	return c, nil
}

// ParseDifficulty accepts "easy", "medium" or "hard" (case-insensitive).
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}

// Cell is one playable square. Cells never change after generation.
type Cell struct {
	ID      int      `json:"id"`
	Kind    CellKind `json:"kind"`
	Payload string   `json:"payload"`
}

// Board is the full set of cells for one game instance.
type Board struct {
	Difficulty Difficulty `json:"difficulty"`
	Size       int        `json:"size"`
	Cells      []Cell     `json:"cells"`
}

// Count returns the number of cells on the board.
func (b Board) Count() int { return len(b.Cells) }

// Phase is the coarse game state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseShowing Phase = "showing"
	PhasePlaying Phase = "playing"
	PhaseLost    Phase = "lost"
)

// Score is created exactly once per lost game.
type Score struct {
	Rounds         int       `json:"rounds"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// Rand is the injectable uniform integer source over [0, n).
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}
