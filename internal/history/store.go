// Package history is the single source of truth for captured clipboard
// entries. Every mutation runs under one mutex and is persisted before the
// lock is released, so saves reach the adapter in mutation order.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/persist"
)

// ErrDuplicateID is returned by Insert when the id is already present.
var ErrDuplicateID = errors.New("duplicate item id")

// PersistError reports that a mutation was applied in memory but could not
// be saved. The live state is not rolled back.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "persist state: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

// Stats summarises the store.
type Stats struct {
	TotalItems  int   `json:"totalItems" yaml:"totalItems"`
	PinnedItems int   `json:"pinnedItems" yaml:"pinnedItems"`
	VaultItems  int   `json:"vaultItems" yaml:"vaultItems"`
	StorageSize int64 `json:"storageSize" yaml:"storageSize"`
}

// Store holds the live state.
type Store struct {
	mu sync.Mutex
	st *model.State
	db persist.Adapter

	onRemove func([]model.ClipItem)
}

// Option configures a Store.
type Option func(*Store)

// WithRemoveHook registers fn to be called, outside the lock, with every
// batch of entries removed by delete, clear or eviction.
func WithRemoveHook(fn func([]model.ClipItem)) Option {
	return func(s *Store) { s.onRemove = fn }
}

// Open loads state from db and repairs it: duplicate ids are dropped (first
// wins), missing system tabs are restored and capacity is enforced. The
// repaired state is saved only if repair changed anything.
func Open(ctx context.Context, db persist.Adapter, opts ...Option) (*Store, error) {
	st, err := db.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	s := &Store{st: st, db: db}
	for _, o := range opts {
		o(s)
	}

	changed := repair(st)
	removed := evict(st)
	if changed || len(removed) > 0 {
		slog.Info("repaired stored state", "evicted", len(removed))
		if err := s.save(ctx); err != nil {
			slog.Warn("saving repaired state failed", "err", err)
		}
	}
	return s, nil
}

// repair fixes structural problems in a loaded blob and reports whether it
// changed anything.
func repair(st *model.State) bool {
	changed := false

	seen := make(map[string]struct{}, len(st.Items))
	kept := st.Items[:0]
	for _, it := range st.Items {
		if it.ID == "" {
			changed = true
			continue
		}
		if _, dup := seen[it.ID]; dup {
			changed = true
			continue
		}
		seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}
	st.Items = kept

	for _, def := range model.DefaultTabs() {
		if !def.System {
			continue
		}
		if i := st.FindTab(def.ID); i < 0 {
			st.Tabs = append([]model.Tab{def}, st.Tabs...)
			changed = true
		} else if !st.Tabs[i].System {
			st.Tabs[i].System = true
			changed = true
		}
	}

	if st.Settings.MaxHistory < 1 {
		st.Settings.MaxHistory = model.DefaultMaxHistory
		changed = true
	}
	if st.Settings.PollInterval < model.MinPollInterval {
		st.Settings.PollInterval = model.MinPollInterval
		changed = true
	}
	return changed
}

// evict drops the oldest unpinned entries (storage tail) until at most
// MaxHistory remain and returns what it removed.
func evict(st *model.State) []model.ClipItem {
	limit := st.Settings.MaxHistory
	unpinned := 0
	var removed []model.ClipItem
	kept := st.Items[:0]
	for _, it := range st.Items {
		if !it.Pinned {
			unpinned++
			if unpinned > limit {
				removed = append(removed, it)
				continue
			}
		}
		kept = append(kept, it)
	}
	st.Items = kept
	return removed
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context) error {
	if err := s.db.Save(ctx, s.st); err != nil {
		slog.Error("persist state failed", "err", err)
		return &PersistError{Err: err}
	}
	return nil
}

func (s *Store) removed(items []model.ClipItem) {
	if len(items) > 0 && s.onRemove != nil {
		s.onRemove(items)
	}
}

// Insert prepends item and applies capacity eviction.
func (s *Store) Insert(ctx context.Context, item model.ClipItem) error {
	if item.ID == "" {
		return errors.New("insert: item has no id")
	}
	s.mu.Lock()
	if s.st.FindItem(item.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("insert %s: %w", item.ID, ErrDuplicateID)
	}
	s.st.Items = append([]model.ClipItem{item.Clone()}, s.st.Items...)
	gone := evict(s.st)
	err := s.save(ctx)
	s.mu.Unlock()

	if len(gone) > 0 {
		slog.Debug("evicted entries", "count", len(gone))
	}
	s.removed(gone)
	return err
}

// Get returns a copy of the entry with id.
func (s *Store) Get(id string) (model.ClipItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.st.FindItem(id); i >= 0 {
		return s.st.Items[i].Clone(), true
	}
	return model.ClipItem{}, false
}

// Delete removes the entry with id. Unknown ids report false.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.DeleteMany(ctx, []string{id})
	return n > 0, err
}

// DeleteMany removes every listed entry and returns how many existed.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.removeWhere(ctx, func(it model.ClipItem) bool {
		_, ok := want[it.ID]
		return ok
	})
}

// Clear removes every clearable entry assigned to tabID, or every clearable
// entry when tabID is empty or the all view. Pinned and vaulted entries
// survive.
func (s *Store) Clear(ctx context.Context, tabID string) (int, error) {
	global := tabID == "" || tabID == model.TabAll
	return s.removeWhere(ctx, func(it model.ClipItem) bool {
		return it.Clearable() && (global || it.InTab(tabID))
	})
}

func (s *Store) removeWhere(ctx context.Context, match func(model.ClipItem) bool) (int, error) {
	s.mu.Lock()
	var gone []model.ClipItem
	kept := s.st.Items[:0]
	for _, it := range s.st.Items {
		if match(it) {
			gone = append(gone, it)
			continue
		}
		kept = append(kept, it)
	}
	s.st.Items = kept

	var err error
	if len(gone) > 0 {
		err = s.save(ctx)
	}
	s.mu.Unlock()

	s.removed(gone)
	return len(gone), err
}

// update applies fn to the entry with id and persists. It reports false
// when id is unknown.
func (s *Store) update(ctx context.Context, id string, fn func(*model.ClipItem)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.st.FindItem(id)
	if i < 0 {
		return false, nil
	}
	fn(&s.st.Items[i])
	return true, s.save(ctx)
}

// TogglePin flips the pinned flag and returns the new value.
func (s *Store) TogglePin(ctx context.Context, id string) (pinned, ok bool, err error) {
	ok, err = s.update(ctx, id, func(it *model.ClipItem) {
		it.Pinned = !it.Pinned
		pinned = it.Pinned
	})
	return pinned, ok, err
}

// SetLabel replaces the entry label.
func (s *Store) SetLabel(ctx context.Context, id, label string) (bool, error) {
	return s.update(ctx, id, func(it *model.ClipItem) { it.Label = label })
}

// MoveToTab assigns the entry to tabID. An empty id or the all view
// unassigns it. Unknown entries and unknown tabs are not applied.
func (s *Store) MoveToTab(ctx context.Context, id, tabID string) (bool, error) {
	if tabID == model.TabAll {
		tabID = ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.st.FindItem(id)
	if i < 0 || (tabID != "" && s.st.FindTab(tabID) < 0) {
		return false, nil
	}
	s.st.Items[i].TabID = model.StrPtr(tabID)
	return true, s.save(ctx)
}

// SetVault moves the entry into or out of the vault.
func (s *Store) SetVault(ctx context.Context, id string, in bool) (bool, error) {
	return s.update(ctx, id, func(it *model.ClipItem) { it.InVault = in })
}

// Transact runs fn against the live state under the store lock. When fn
// reports a change, capacity is re-enforced and the state is persisted.
// fn must not retain the pointer.
func (s *Store) Transact(ctx context.Context, fn func(*model.State) bool) error {
	s.mu.Lock()
	if !fn(s.st) {
		s.mu.Unlock()
		return nil
	}
	gone := evict(s.st)
	err := s.save(ctx)
	s.mu.Unlock()

	s.removed(gone)
	return err
}

// View runs fn against the live state under the store lock without
// persisting. fn must not mutate or retain the state.
func (s *Store) View(fn func(*model.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// Snapshot returns a deep copy of the live state.
func (s *Store) Snapshot() *model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// Settings returns the current settings.
func (s *Store) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Settings
}

// ImagePaths returns the blob path of every image entry.
func (s *Store) ImagePaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, it := range s.st.Items {
		if it.Kind == model.KindImage && it.ImagePath != "" {
			out = append(out, it.ImagePath)
		}
	}
	return out
}

// Stats counts entries and asks the adapter for its storage size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	st := Stats{TotalItems: len(s.st.Items)}
	for _, it := range s.st.Items {
		if it.Pinned {
			st.PinnedItems++
		}
		if it.InVault {
			st.VaultItems++
		}
	}
	s.mu.Unlock()

	size, err := s.db.Size(ctx)
	if err != nil {
		return st, fmt.Errorf("storage size: %w", err)
	}
	st.StorageSize = size
	return st, nil
}
