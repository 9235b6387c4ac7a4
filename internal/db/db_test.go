package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/memorygame/assets"
)

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	conn, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	var fk int
	if err := conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("foreign_keys = %d, %v", fk, err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(conn, assets.Migrations()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("recorded migrations = %d, want 1", n)
	}
	for _, table := range []string{"users", "games", "leaderboard_scores"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrateRollsBackBrokenScript(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"001_ok.sql":  {Data: []byte(`CREATE TABLE a (x INTEGER);`)},
		"002_bad.sql": {Data: []byte(`CREATE TABLE b (x INTEGER); NOT SQL;`)},
	}
	if err := Migrate(conn, fsys); err == nil {
		t.Fatal("expected error from broken script")
	}
	var n int
	_ = conn.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name='002_bad.sql'`).Scan(&n)
	if n != 0 {
		t.Fatal("broken migration was recorded")
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM a`).Scan(&n); err != nil {
		t.Fatalf("first migration lost: %v", err)
	}
}

func TestMigrateSelfManagedScript(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"001_rebuild.sql": {Data: []byte(`
PRAGMA foreign_keys = OFF;
BEGIN TRANSACTION;
CREATE TABLE scores (x INTEGER);
INSERT INTO scores VALUES (1);
COMMIT;
PRAGMA foreign_keys = ON;`)},
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(conn, fsys); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var rows, recorded int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM scores`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("script ran %d times", rows)
	}
	_ = conn.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name='001_rebuild.sql'`).Scan(&recorded)
	if recorded != 1 {
		t.Fatal("self-managed migration not recorded")
	}
}

func TestSelfManaged(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"plain", "CREATE TABLE a (x INTEGER);", false},
		{"transaction", "begin transaction;\nCOMMIT;", true},
		{"split keywords", "BEGIN\n  TRANSACTION;", true},
		{"foreign keys off", "PRAGMA foreign_keys=OFF;", true},
		{"foreign keys on", "PRAGMA foreign_keys = ON;", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selfManaged(tt.script); got != tt.want {
				t.Fatalf("selfManaged = %v, want %v", got, tt.want)
			}
		})
	}
}
