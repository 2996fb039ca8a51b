package flow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS fragments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	site          TEXT NOT NULL,
	start_url     TEXT NOT NULL,
	end_url       TEXT NOT NULL,
	steps         TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fragments_site_start ON fragments (site, start_url);
CREATE UNIQUE INDEX IF NOT EXISTS idx_fragments_identity ON fragments (site, start_url, steps, end_url);
`

// Store persists fragments in SQLite. Writes are serialized with a mutex
// on top of the driver's own locking so upsert read-modify-write stays
// atomic across goroutines.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open fragment store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate fragment store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveOrIncrement stores a fragment, or bumps success_count when the same
// (site, start_url, steps, end_url) identity already exists. Returns the
// resulting success count.
func (s *Store) SaveOrIncrement(ctx context.Context, f Fragment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Site = NormalizeURL(f.Site)
	f.StartURL = NormalizeURL(f.StartURL)
	f.EndURL = NormalizeURL(f.EndURL)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing Fragment
	err = tx.GetContext(ctx, &existing,
		`SELECT id, success_count FROM fragments
		 WHERE site = ? AND start_url = ? AND steps = ? AND end_url = ?`,
		f.Site, f.StartURL, f.StepsJSON, f.EndURL)
	now := time.Now().UTC()
	switch {
	case err == nil:
		count := existing.SuccessCount + 1
		if _, err := tx.ExecContext(ctx,
			`UPDATE fragments SET success_count = ?, updated_at = ? WHERE id = ?`,
			count, now, existing.ID); err != nil {
			return 0, fmt.Errorf("increment fragment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit: %w", err)
		}
		return count, nil
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fragments (site, start_url, end_url, steps, success_count, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)`,
			f.Site, f.StartURL, f.EndURL, f.StepsJSON, now, now); err != nil {
			return 0, fmt.Errorf("insert fragment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit: %w", err)
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("lookup fragment: %w", err)
	}
}

// Reinforce bumps a fragment's success count after a successful replay.
func (s *Store) Reinforce(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE fragments SET success_count = success_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id); err != nil {
		return fmt.Errorf("reinforce fragment: %w", err)
	}
	return nil
}

// BySite returns all fragments for a site, most successful first.
func (s *Store) BySite(ctx context.Context, site string) ([]Fragment, error) {
	var out []Fragment
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, site, start_url, end_url, steps, success_count, created_at, updated_at
		 FROM fragments WHERE site = ? ORDER BY success_count DESC, updated_at DESC`,
		NormalizeURL(site))
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	return out, nil
}

// All returns every stored fragment, for inspection tooling.
func (s *Store) All(ctx context.Context) ([]Fragment, error) {
	var out []Fragment
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, site, start_url, end_url, steps, success_count, created_at, updated_at
		 FROM fragments ORDER BY site, success_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	return out, nil
}

// Delete removes one fragment by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fragments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete fragment: %w", err)
	}
	return nil
}
