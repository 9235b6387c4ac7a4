// internal/leaderboard/leaderboard.go
//
// Best results per difficulty.
// Responsibilities:
//   - Rank scores: rounds DESC, then elapsed seconds ASC, keep the top 3.
//   - Load persisted standings once at startup; absorb any failure.
//   - Submit new scores and persist the whole mapping when one qualifies.
//
// Notes:
//   - Persistence is a collaborator (see Persistence). Its failures are logged
//     and never reach gameplay: load falls back to empty lists, a failed save
//     keeps the in-memory standings.

package leaderboard

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/game"
)

// MaxEntries is the number of scores kept per difficulty.
const MaxEntries = 3

// Standings maps each difficulty to its ranked scores.
type Standings map[game.Difficulty][]game.Score

// Persistence is the storage collaborator for standings.
type Persistence interface {
	// Load returns the last saved standings.
	Load(ctx context.Context) (Standings, error)

	// Save replaces the stored standings.
	Save(ctx context.Context, s Standings) error
}

// Less reports whether a ranks above b.
func Less(a, b game.Score) bool {
	if a.Rounds != b.Rounds {
		return a.Rounds > b.Rounds
	}
	return a.ElapsedSeconds < b.ElapsedSeconds
}

// Insert returns list with s added, ranked and truncated. Among equal scores
// the earlier entry keeps the higher rank. list is not modified.
func Insert(list []game.Score, s game.Score) []game.Score {
	out := make([]game.Score, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, s)
	return rank(out)
}

// position is the 1-based rank s would take in the ranked list; ties go
// behind existing entries.
func position(list []game.Score, s game.Score) int {
	pos := 1
	for _, e := range list {
		if !Less(s, e) {
			pos++
		}
	}
	return pos
}

func rank(list []game.Score) []game.Score {
	sort.SliceStable(list, func(i, j int) bool { return Less(list[i], list[j]) })
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	return list
}

// Normalize returns a copy of s holding exactly the known difficulties, each
// ranked and truncated. Normalizing normalized standings is the identity.
func Normalize(s Standings) Standings {
	out := Empty()
	for _, d := range game.Difficulties {
		out[d] = rank(append([]game.Score{}, s[d]...))
	}
	return out
}

// Empty returns standings with an empty list per difficulty.
func Empty() Standings {
	out := make(Standings, len(game.Difficulties))
	for _, d := range game.Difficulties {
		out[d] = []game.Score{}
	}
	return out
}

// Clone deep-copies s.
func (s Standings) Clone() Standings {
	out := make(Standings, len(s))
	for d, list := range s {
		out[d] = append([]game.Score{}, list...)
	}
	return out
}

// Leaderboard is safe for concurrent use; one instance is shared by every
// game of the process.
type Leaderboard struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex // one Save at a time, each of the latest standings
	store     Persistence
	standings Standings
}

// New returns an empty leaderboard backed by store (may be nil).
func New(store Persistence) *Leaderboard {
	return &Leaderboard{store: store, standings: Empty()}
}

// Load replaces the in-memory standings with the persisted ones.
// Unreadable or missing data yields empty standings.
func (l *Leaderboard) Load(ctx context.Context) Standings {
	loaded := Empty()
	if l.store != nil {
		s, err := l.store.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("leaderboard load failed; starting empty")
		} else {
			loaded = Normalize(s)
		}
	}
	l.mu.Lock()
	l.standings = loaded
	l.mu.Unlock()
	return loaded.Clone()
}

// Submit ranks s under d. It returns the 1-based rank, or 0 when the score
// did not make the list. A non-nil error means the save failed; the
// in-memory standings are updated regardless.
func (l *Leaderboard) Submit(ctx context.Context, d game.Difficulty, s game.Score) (int, error) {
	if !d.Valid() {
		return 0, game.ErrInvalidDifficulty
	}

	l.mu.Lock()
	pos := position(l.standings[d], s)
	if pos > MaxEntries {
		l.mu.Unlock()
		return 0, nil
	}
	l.standings[d] = Insert(l.standings[d], s)
	l.mu.Unlock()

	if l.store == nil {
		return pos, nil
	}
	if err := l.persist(ctx); err != nil {
		log.Warn().Err(err).Str("difficulty", string(d)).Msg("leaderboard save failed")
		return pos, err
	}
	return pos, nil
}

// persist writes the standings as they are once the previous save is done,
// so a slow save can never overwrite a newer one.
func (l *Leaderboard) persist(ctx context.Context) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	return l.store.Save(ctx, l.Snapshot())
}

// Snapshot returns a copy of the current standings.
func (l *Leaderboard) Snapshot() Standings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.standings.Clone()
}
