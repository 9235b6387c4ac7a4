package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robalobadob/memorygame/internal/game"
)

// SQLStore keeps standings in the leaderboard_scores table
// (see assets/sql/001_init.sql). Save replaces every row in one transaction.
type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Load(ctx context.Context) (Standings, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT difficulty, rounds, elapsed_seconds, recorded_at
        FROM leaderboard_scores
        ORDER BY difficulty ASC, rank ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Empty()
	for rows.Next() {
		var (
			diff string
			sc   game.Score
			ms   int64
		)
		if err := rows.Scan(&diff, &sc.Rounds, &sc.ElapsedSeconds, &ms); err != nil {
			return nil, err
		}
		d, err := game.ParseDifficulty(diff)
		if err != nil {
			continue
		}
		sc.RecordedAt = time.UnixMilli(ms).UTC()
		out[d] = append(out[d], sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) Save(ctx context.Context, st Standings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_scores`); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	for _, d := range game.Difficulties {
		for i, sc := range st[d] {
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO leaderboard_scores
                    (difficulty, rank, rounds, elapsed_seconds, recorded_at)
                VALUES (?, ?, ?, ?, ?)`,
				string(d), i+1, sc.Rounds, sc.ElapsedSeconds, sc.RecordedAt.UnixMilli(),
			); err != nil {
				return fmt.Errorf("insert %s #%d: %w", d, i+1, err)
			}
		}
	}
	return tx.Commit()
}
