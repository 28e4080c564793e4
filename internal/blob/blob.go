// Package blob stores captured clipboard images as content-addressed PNG
// files named by their xxh3 digest.
package blob

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

const ext = ".png"

// Store is a directory of image blobs.
type Store struct {
	dir string

	// mu orders Prune against held blobs: a held blob is written but not
	// yet referenced by any entry.
	mu   sync.Mutex
	held map[string]int
}

// New returns a Store rooted at dir. The directory is created lazily.
func New(dir string) *Store { return &Store{dir: dir, held: make(map[string]int)} }

// Dir returns the blob directory.
func (s *Store) Dir() string { return s.dir }

// Hash returns the hex xxh3-128 digest of b.
func Hash(b []byte) string {
	sum := xxh3.Hash128(b).Bytes()
	return hex.EncodeToString(sum[:])
}

// Path returns where the blob with digest id lives.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

// Put writes b unless an identical blob already exists and returns its path.
func (s *Store) Put(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errors.New("blob is empty")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	path := s.Path(Hash(b))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	slog.Debug("blob stored", "path", path, "bytes", len(b))
	return path, nil
}

// Hold stores b like Put and protects the blob from Prune until release is
// called. Call release once the blob is referenced.
func (s *Store) Hold(b []byte) (path string, release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path, err = s.Put(b); err != nil {
		return "", nil, err
	}
	s.held[path]++
	var once sync.Once
	return path, func() {
		once.Do(func() {
			s.mu.Lock()
			if s.held[path]--; s.held[path] <= 0 {
				delete(s.held, path)
			}
			s.mu.Unlock()
		})
	}, nil
}

// Resolve returns path as an absolute blob path. Relative paths, as written
// by older versions, are taken relative to the store directory.
func (s *Store) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.dir, path)
}

// Read returns the blob at path. The path must lie inside the store.
func (s *Store) Read(path string) ([]byte, error) {
	path = s.Resolve(path)
	if !s.owns(path) {
		return nil, fmt.Errorf("blob %q is outside %s", path, s.dir)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return b, nil
}

// Prune removes every blob that is neither held nor named by keep and
// returns how many were removed. keep is called under the store lock so a
// blob released after Prune starts is already in its result.
func (s *Store) Prune(keep func() []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	paths := keep()
	live := make(map[string]struct{}, len(paths)+len(s.held))
	for _, p := range paths {
		live[s.Resolve(p)] = struct{}{}
	}
	for p := range s.held {
		live[p] = struct{}{}
	}

	var (
		n    int
		errs []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		if _, ok := live[p]; ok {
			continue
		}
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (s *Store) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
