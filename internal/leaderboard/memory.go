package leaderboard

import (
	"context"
	"sync"
)

// MemoryStore keeps standings in process memory. State is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	saved Standings
	err   error // returned by Load and Save when set
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Fail makes every following call return err (nil restores normal behaviour).
func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryStore) Load(ctx context.Context) (Standings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		return Empty(), nil
	}
	return m.saved.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s Standings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = s.Clone()
	return nil
}
