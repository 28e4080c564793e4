// Package service wires the copas components together and exposes them as
// the daemon's command surface: one handler per IPC operation, a socket
// server and a client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.klb.dev/copas/internal/blob"
	"go.klb.dev/copas/internal/clip"
	"go.klb.dev/copas/internal/clock"
	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/paste"
	"go.klb.dev/copas/internal/persist"
	"go.klb.dev/copas/internal/pin"
	"go.klb.dev/copas/internal/settings"
	"go.klb.dev/copas/internal/surface"
	"go.klb.dev/copas/internal/tabs"
	"go.klb.dev/copas/internal/watcher"
)

// ImagesDir is the blob directory below the data directory.
const ImagesDir = "images"

// Options configures Open. Backend is required; everything else has a
// default.
type Options struct {
	DataDir    string
	Storage    string          // persist.KindJSON or persist.KindSQLite
	Adapter    persist.Adapter // overrides Storage when set
	Backend    clip.Backend
	Injector   paste.Injector
	PasteDelay time.Duration
	BlurDelay  time.Duration
	Clock      clock.Clock
	IDs        clock.IDGenerator
	Version    string
}

// Service owns every daemon component.
type Service struct {
	opts    Options
	started time.Time

	db       persist.Adapter
	blobs    *blob.Store
	store    *history.Store
	hub      *hub.Hub
	watcher  *watcher.Watcher
	tabs     *tabs.Registry
	settings *settings.Service
	vault    *pin.Vault
	surface  *surface.Surface
	paste    *paste.Dispatcher

	handlers map[string]handler
	watchSeq atomic.Uint64
}

// Open loads persisted state and builds the component graph. The watcher
// is not started; call Start.
func Open(ctx context.Context, opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New("service: no clipboard backend")
	}
	if opts.Storage == "" {
		opts.Storage = persist.KindJSON
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = clock.UUIDs{}
	}
	if opts.Injector == nil {
		opts.Injector = paste.NewInjector()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	db := opts.Adapter
	if db == nil {
		var err error
		if db, err = persist.Open(opts.Storage, opts.DataDir, persist.LegacyDirs()...); err != nil {
			return nil, err
		}
	}

	s := &Service{
		opts:    opts,
		started: opts.Clock.Now(),
		db:      db,
		blobs:   blob.New(filepath.Join(opts.DataDir, ImagesDir)),
		hub:     hub.New(),
	}

	var err error
	s.store, err = history.Open(ctx, db, history.WithRemoveHook(s.removed))
	if err != nil {
		db.Close()
		return nil, err
	}
	s.pruneImages()

	s.watcher = watcher.New(watcher.Config{
		Backend:  opts.Backend,
		Store:    s.store,
		Blobs:    s.blobs,
		Hub:      s.hub,
		Clock:    opts.Clock,
		IDs:      opts.IDs,
		Interval: s.store.Settings().Poll(),
	})
	s.tabs = tabs.New(s.store, opts.IDs)
	s.settings = settings.New(s.store)
	s.settings.OnChange(s.settingsChanged)
	s.vault = pin.NewVault(s.store)
	s.surface = surface.New(s.hub, opts.BlurDelay)
	s.paste = paste.New(paste.Config{
		Writer:   s.watcher,
		Hider:    s.surface,
		Injector: opts.Injector,
		Images:   s.blobs,
		Delay:    opts.PasteDelay,
	})
	s.handlers = s.routes()

	slog.Info("service ready",
		"data_dir", opts.DataDir,
		"storage", opts.Storage,
		"clipboard", opts.Backend.Name(),
		"injector", opts.Injector.Name(),
		"items", len(s.store.Snapshot().Items),
	)
	return s, nil
}

// Start begins clipboard polling.
func (s *Service) Start() { s.watcher.Start() }

// Close stops polling and releases storage.
func (s *Service) Close() error {
	s.watcher.Stop()
	s.opts.Backend.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}

// SetPasteDelay changes the focus-restore delay of paste dispatch.
func (s *Service) SetPasteDelay(d time.Duration) {
	if d == s.paste.Delay() {
		return
	}
	s.paste.SetDelay(d)
	slog.Info("paste delay changed", "delay", s.paste.Delay())
}

// Hub returns the event hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

func (s *Service) settingsChanged(old, cur model.Settings) {
	if cur.PollInterval != old.PollInterval {
		s.watcher.SetInterval(cur.Poll())
	}
	slog.Info("settings changed", "poll_ms", cur.PollInterval, "max_history", cur.MaxHistory)
	s.hub.Publish(hub.Event{Type: hub.EventSettingsChanged, Settings: &cur})
}

// removed drops image blobs that no remaining entry references.
func (s *Service) removed(items []model.ClipItem) {
	for _, it := range items {
		if it.Kind == model.KindImage {
			s.pruneImages()
			return
		}
	}
}

func (s *Service) pruneImages() {
	n, err := s.blobs.Prune(s.store.ImagePaths)
	if err != nil {
		slog.Warn("pruning images failed", "err", err)
		return
	}
	if n > 0 {
		slog.Debug("pruned images", "count", n)
	}
}

// Status describes the running daemon.
type Status struct {
	Version       string               `json:"version" yaml:"version"`
	PID           int                  `json:"pid" yaml:"pid"`
	Started       time.Time            `json:"started" yaml:"started"`
	DataDir       string               `json:"dataDir" yaml:"dataDir"`
	Storage       string               `json:"storage" yaml:"storage"`
	Clipboard     string               `json:"clipboard" yaml:"clipboard"`
	Injector      string               `json:"injector" yaml:"injector"`
	Watching      bool                 `json:"watching" yaml:"watching"`
	PollInterval  string               `json:"pollInterval" yaml:"pollInterval"`
	PasteDelay    string               `json:"pasteDelay" yaml:"pasteDelay"`
	PopupVisible  bool                 `json:"popupVisible" yaml:"popupVisible"`
	VaultUnlocked bool                 `json:"vaultUnlocked" yaml:"vaultUnlocked"`
	Stats         history.Stats        `json:"stats" yaml:"stats"`
	Subscribers   []hub.SubscriberInfo `json:"subscribers" yaml:"subscribers"`
}

// Status reports the daemon state.
func (s *Service) Status(ctx context.Context) Status {
	st, err := s.store.Stats(ctx)
	if err != nil {
		slog.Warn("stats incomplete", "err", err)
	}
	subs := s.hub.Subscribers()
	if subs == nil {
		subs = []hub.SubscriberInfo{}
	}
	return Status{
		Version:       s.opts.Version,
		PID:           os.Getpid(),
		Started:       s.started,
		DataDir:       s.opts.DataDir,
		Storage:       s.opts.Storage,
		Clipboard:     s.opts.Backend.Name(),
		Injector:      s.opts.Injector.Name(),
		Watching:      s.watcher.Running(),
		PollInterval:  s.watcher.Interval().String(),
		PasteDelay:    s.paste.Delay().String(),
		PopupVisible:  s.surface.Visible(),
		VaultUnlocked: s.vault.Unlocked(),
		Stats:         st,
		Subscribers:   subs,
	}
}
