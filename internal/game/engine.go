// internal/game/engine.go
//
// Sequence engine for a single memory grid game.
// Responsibilities:
//   - Own the round sequence, the player's input buffer and the phase.
//   - Validate selections against the expected sequence element.
//   - Extend the sequence on round completion (no immediate repeats).
//   - Finalize the score on the first wrong selection.
//
// Notes:
//   - State never reads a clock. Time enters only as arguments (elapsed, now),
//     and every deferred effect (reveal cadence, hint expiry) is driven from the
//     outside by calling Reveal/Hide/FinishShowing/ClearHint/Conceal.
//   - Out-of-phase calls return false / OutcomeIgnored and mutate nothing.
package game

import (
	"sort"
	"time"
)

// Outcome is the result of a selection.
type Outcome int

const (
	OutcomeIgnored       Outcome = iota // out of phase or round already full
	OutcomeAccepted                     // correct, round continues
	OutcomeRoundComplete                // correct, sequence extended, back to showing
	OutcomeLost                         // wrong, score finalized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRoundComplete:
		return "round_complete"
	case OutcomeLost:
		return "lost"
	default:
		return "ignored"
	}
}

// State is the explicit game-state record. It is not safe for concurrent use;
// callers serialize access.
type State struct {
	difficulty Difficulty
	board      Board
	phase      Phase

	sequence []int
	input    []int

	hintUsed   bool
	hintActive bool

	visible  map[int]struct{} // sequence indexes inside their reveal window
	revealed map[int]struct{} // cell ids flagged for feedback (hint, click, loss)

	score    *Score
	wrong    int
	expected int
}

// NewState returns an idle state holding board.
func NewState(board Board) *State {
	return &State{
		difficulty: board.Difficulty,
		board:      board,
		phase:      PhaseIdle,
		visible:    make(map[int]struct{}),
		revealed:   make(map[int]struct{}),
		wrong:      -1,
		expected:   -1,
	}
}

// Start begins a new game on board. Accepted from idle and lost.
func (s *State) Start(board Board, rng Rand) bool {
	if s.phase == PhaseShowing || s.phase == PhasePlaying {
		return false
	}
	s.clear()
	s.board = board
	s.difficulty = board.Difficulty
	s.sequence = []int{rng.Intn(board.Count())}
	s.phase = PhaseShowing
	return true
}

// Select applies a player selection.
//
// The clicked id is compared with sequence[len(input)] before anything is
// appended, so the decision depends only on (sequence, input, id).
func (s *State) Select(id int, rng Rand, elapsed int, now time.Time) (Outcome, error) {
	if id < 0 || id >= s.board.Count() {
		return OutcomeIgnored, ErrInvalidCell
	}
	if s.phase != PhasePlaying || len(s.input) >= len(s.sequence) {
		return OutcomeIgnored, nil
	}

	expected := s.sequence[len(s.input)]
	if id != expected {
		s.score = &Score{
			Rounds:         len(s.sequence) - 1,
			ElapsedSeconds: elapsed,
			RecordedAt:     now.UTC().Truncate(time.Millisecond),
		}
		s.wrong, s.expected = id, expected
		s.hintActive = false
		clear(s.visible)
		clear(s.revealed)
		s.revealed[id] = struct{}{}
		s.revealed[expected] = struct{}{}
		s.phase = PhaseLost
		return OutcomeLost, nil
	}

	if len(s.input)+1 == len(s.sequence) {
		s.input = s.input[:0]
		s.sequence = append(s.sequence, s.nextID(rng))
		s.hintActive = false
		clear(s.revealed)
		s.revealed[id] = struct{}{}
		s.phase = PhaseShowing
		return OutcomeRoundComplete, nil
	}

	s.input = append(s.input, id)
	s.revealed[id] = struct{}{}
	return OutcomeAccepted, nil
}

// nextID draws the next sequence element. Only the immediately preceding
// element is excluded; earlier repeats are allowed.
func (s *State) nextID(rng Rand) int {
	n := s.board.Count()
	id := rng.Intn(n)
	if id == s.sequence[len(s.sequence)-1] {
		id = (id + 1) % n
	}
	return id
}

// UseHint flags every sequence cell as revealed. Once per game, playing only.
func (s *State) UseHint() bool {
	if s.phase != PhasePlaying || s.hintUsed {
		return false
	}
	s.hintUsed = true
	s.hintActive = true
	for _, id := range s.sequence {
		s.revealed[id] = struct{}{}
	}
	return true
}

// ClearHint ends the hint display window.
func (s *State) ClearHint() bool {
	if !s.hintActive {
		return false
	}
	s.hintActive = false
	clear(s.revealed)
	return true
}

// Conceal drops the click feedback flag on id.
func (s *State) Conceal(id int) bool {
	if s.phase == PhaseLost || s.hintActive {
		return false
	}
	if _, ok := s.revealed[id]; !ok {
		return false
	}
	delete(s.revealed, id)
	return true
}

// Reveal marks sequence position i as inside its reveal window.
func (s *State) Reveal(i int) bool {
	if s.phase != PhaseShowing || i < 0 || i >= len(s.sequence) {
		return false
	}
	s.visible[i] = struct{}{}
	return true
}

// Hide ends the reveal window of sequence position i.
func (s *State) Hide(i int) bool {
	if _, ok := s.visible[i]; !ok {
		return false
	}
	delete(s.visible, i)
	return true
}

// FinishShowing hands the turn to the player.
func (s *State) FinishShowing() bool {
	if s.phase != PhaseShowing {
		return false
	}
	clear(s.visible)
	clear(s.revealed)
	s.input = s.input[:0]
	s.phase = PhasePlaying
	return true
}

// Reset discards the game and returns to idle on board. Resetting an idle
// state is a no-op so repeated resets converge on the same state.
func (s *State) Reset(board Board) bool {
	if s.phase == PhaseIdle {
		return false
	}
	s.clear()
	s.board = board
	s.difficulty = board.Difficulty
	s.phase = PhaseIdle
	return true
}

// SetDifficulty records a new difficulty. Idle and lost only.
func (s *State) SetDifficulty(d Difficulty) bool {
	if s.phase != PhaseIdle && s.phase != PhaseLost {
		return false
	}
	s.difficulty = d
	return true
}

// SetBoard swaps the idle board.
func (s *State) SetBoard(board Board) bool {
	if s.phase != PhaseIdle {
		return false
	}
	s.board = board
	s.difficulty = board.Difficulty
	return true
}

func (s *State) clear() {
	s.sequence = nil
	s.input = nil
	s.hintUsed = false
	s.hintActive = false
	clear(s.visible)
	clear(s.revealed)
	s.score = nil
	s.wrong, s.expected = -1, -1
}

// ---------------------------------------------------------------------------
// read accessors

func (s *State) Phase() Phase           { return s.phase }
func (s *State) Difficulty() Difficulty { return s.difficulty }
func (s *State) Board() Board           { return s.board }
func (s *State) SequenceLen() int       { return len(s.sequence) }
func (s *State) InputLen() int          { return len(s.input) }
func (s *State) HintUsed() bool         { return s.hintUsed }
func (s *State) HintActive() bool       { return s.hintActive }

// Sequence returns a copy of the sequence.
func (s *State) Sequence() []int { return append([]int(nil), s.sequence...) }

// Input returns a copy of the input buffer.
func (s *State) Input() []int { return append([]int(nil), s.input...) }

// Score returns the finalized score, nil unless lost.
func (s *State) Score() *Score {
	if s.score == nil {
		return nil
	}
	sc := *s.score
	return &sc
}

// Mistake returns the wrong and expected cells of a lost game.
func (s *State) Mistake() (wrong, expected int, ok bool) {
	if s.phase != PhaseLost {
		return -1, -1, false
	}
	return s.wrong, s.expected, true
}

// Visible returns the cell ids currently inside their reveal window, in
// sequence order.
func (s *State) Visible() []int {
	idx := make([]int, 0, len(s.visible))
	for i := range s.visible {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = s.sequence[i]
	}
	return out
}

// Revealed returns the flagged cell ids in ascending order.
func (s *State) Revealed() []int {
	out := make([]int, 0, len(s.revealed))
	for id := range s.revealed {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
