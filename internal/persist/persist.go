// Package persist stores the copas state blob. Every adapter offers atomic
// whole-state replace: a Save either lands completely or not at all.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"go.klb.dev/copas/internal/model"
)

// ErrCorrupt marks a stored blob that could not be decoded.
var ErrCorrupt = errors.New("state blob is corrupt")

// Adapter is the durable storage behind the history store.
type Adapter interface {
	// Load returns the stored state, or model.NewState when nothing has been
	// stored yet.
	Load(ctx context.Context) (*model.State, error)

	// Save replaces the stored state.
	Save(ctx context.Context, s *model.State) error

	// Size returns the storage footprint in bytes.
	Size(ctx context.Context) (int64, error)

	Close() error
}

// Storage kinds accepted by Open.
const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// File names inside the data directory.
const (
	JSONFile   = "copas-db.json"
	SQLiteFile = "copas.db"
)

// Open returns the adapter of the given kind rooted at dir. On first run
// the adapter imports the Electron state found in legacy, if any.
func Open(kind, dir string, legacy ...string) (Adapter, error) {
	switch kind {
	case "", KindJSON:
		f, err := NewFile(filepath.Join(dir, JSONFile))
		if err != nil {
			return nil, err
		}
		f.legacy = legacy
		return f, nil
	case KindSQLite:
		db, err := OpenSQLite(filepath.Join(dir, SQLiteFile))
		if err != nil {
			return nil, err
		}
		db.legacy = legacy
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q (want %s or %s)", kind, KindJSON, KindSQLite)
	}
}

func encode(s *model.State) ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*model.State, error) {
	var s model.State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}
