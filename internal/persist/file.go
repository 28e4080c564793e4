package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.klb.dev/copas/internal/model"
)

// File keeps the state as a single JSON document on disk. Writes go to a
// temporary file in the same directory and are renamed over the target.
type File struct {
	path   string
	legacy []string
}

var _ Adapter = (*File)(nil)

// NewFile returns a File adapter for path, creating its directory.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the state file location.
func (f *File) Path() string { return f.path }

// Load reads the state file. A missing file yields the first-run state,
// imported from a legacy file when one is found; an undecodable one is
// copied to <path>.bak and replaced by defaults.
func (f *File) Load(_ context.Context) (*model.State, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no state file, starting fresh", "path", f.path)
		return firstRun(f.legacy), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	s, err := decode(b)
	if err != nil {
		backup := f.path + ".bak"
		if werr := os.WriteFile(backup, b, 0o600); werr != nil {
			slog.Error("state backup failed", "path", backup, "err", werr)
		}
		slog.Error("state file unreadable, using defaults", "path", f.path, "backup", backup, "err", err)
		return model.NewState(), nil
	}
	return s, nil
}

// Save writes s atomically.
func (f *File) Save(_ context.Context, s *model.State) error {
	b, err := encode(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Size returns the state file size, or 0 when it does not exist yet.
func (f *File) Size(_ context.Context) (int64, error) {
	fi, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat state: %w", err)
	}
	return fi.Size(), nil
}

func (f *File) Close() error { return nil }
