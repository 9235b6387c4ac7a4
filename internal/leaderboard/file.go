package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robalobadob/memorygame/internal/game"
)

// FileStore keeps standings in a single JSON document, in the same shape the
// browser version kept under its "memoryGameLeaderboard" key:
//
//	{"easy":[{"rounds":5,"time":30,"timestamp":1700000000000}],"medium":[],"hard":[]}
type FileStore struct{ path string }

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

type fileScore struct {
	Rounds    int   `json:"rounds"`
	Time      int   `json:"time"`      // seconds
	Timestamp int64 `json:"timestamp"` // unix ms
}

// Load returns empty standings when the file does not exist yet.
func (f *FileStore) Load(ctx context.Context) (Standings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string][]fileScore
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	out := Empty()
	for key, list := range raw {
		d, err := game.ParseDifficulty(key)
		if err != nil {
			continue
		}
		for _, fs := range list {
			out[d] = append(out[d], game.Score{
				Rounds:         fs.Rounds,
				ElapsedSeconds: fs.Time,
				RecordedAt:     time.UnixMilli(fs.Timestamp).UTC(),
			})
		}
	}
	return out, nil
}

// Save writes the document atomically (temp file + rename).
func (f *FileStore) Save(ctx context.Context, s Standings) error {
	raw := make(map[string][]fileScore, len(game.Difficulties))
	for _, d := range game.Difficulties {
		list := make([]fileScore, 0, len(s[d]))
		for _, sc := range s[d] {
			list = append(list, fileScore{Rounds: sc.Rounds, Time: sc.ElapsedSeconds, Timestamp: sc.RecordedAt.UnixMilli()})
		}
		raw[string(d)] = list
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".leaderboard-*.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
