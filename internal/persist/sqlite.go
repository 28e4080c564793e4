package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/persist/migrations"
)

// SQLite keeps the state blob in a single-row table. Save replaces the row
// inside a transaction.
type SQLite struct {
	db     *sql.DB
	path   string
	legacy []string
}

var _ Adapter = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations. path may be ":memory:".
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database location.
func (s *SQLite) Path() string { return s.path }

// Load returns the stored state. An undecodable row is logged and replaced
// by defaults, matching the file adapter.
func (s *SQLite) Load(ctx context.Context) (*model.State, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM state WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return firstRun(s.legacy), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	st, err := decode(body)
	if err != nil {
		slog.Error("stored state unreadable, using defaults", "path", s.path, "err", err)
		return model.NewState(), nil
	}
	return st, nil
}

func (s *SQLite) Save(ctx context.Context, st *model.State) error {
	body, err := encode(st)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO state (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		body, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Size returns the database size in pages times page size.
func (s *SQLite) Size(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("database size: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
