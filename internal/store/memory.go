// internal/store/memory.go
//
// In-memory registry of live game sessions.
// Each session owns one controller.Controller and is keyed by a random UUID.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Sessions idle for longer than the TTL are closed and dropped by Sweep.
//   - State is lost when the process restarts; scores survive through the
//     leaderboard backend, not here.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/controller"
)

var ErrNotFound = errors.New("not found")

// Session is one running game and who it belongs to.
type Session struct {
	ID         string
	Owner      string // user id or anonymous id of the creator
	Controller *controller.Controller

	touched time.Time

	mu   sync.Mutex
	user string // account the game is credited to, if any
}

// User returns the account the session is credited to, "" for guests.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Claim credits the session to userID. The first account wins; a guest who
// logs in mid-game keeps playing the same session as that account.
func (s *Session) Claim(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == "" {
		s.user = userID
	}
}

// Store defines the session registry used by the HTTP layer.
type Store interface {
	// Create registers c under a new id.
	Create(ctx context.Context, owner string, c *controller.Controller) (*Session, error)

	// Get retrieves a session by id and marks it as used.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes sessions idle for longer than ttl.
	Sweep(ttl time.Duration) int

	// Len returns the number of live sessions.
	Len() int

	// CloseAll closes and removes every session.
	CloseAll() int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session), now: time.Now}
}

func (m *memory) Create(ctx context.Context, owner string, c *controller.Controller) (*Session, error) {
	s := &Session{ID: uuid.NewString(), Owner: owner, Controller: c, touched: m.now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.touched = m.now()
	return s, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Controller.Close()
	return nil
}

func (m *memory) Sweep(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	n := m.drop(func(s *Session) bool { return s.touched.Before(cutoff) })
	if n > 0 {
		log.Debug().Int("sessions", n).Msg("swept idle sessions")
	}
	return n
}

func (m *memory) CloseAll() int {
	return m.drop(func(*Session) bool { return true })
}

// drop removes the sessions matching fn and closes their controllers
// outside the store lock.
func (m *memory) drop(fn func(*Session) bool) int {
	m.mu.Lock()
	var gone []*Session
	for id, s := range m.sessions {
		if fn(s) {
			gone = append(gone, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range gone {
		s.Controller.Close()
	}
	return len(gone)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunSweeper calls st.Sweep(ttl) every interval until ctx is done.
func RunSweeper(ctx context.Context, st Store, ttl, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Sweep(ttl)
		}
	}
}
