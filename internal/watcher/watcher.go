// Package watcher polls the system clipboard and records every externally
// caused change exactly once. Writes made by copas itself go through the
// watcher so the next tick does not capture them again.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/copas/internal/blob"
	"go.klb.dev/copas/internal/category"
	"go.klb.dev/copas/internal/clip"
	"go.klb.dev/copas/internal/clock"
	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/model"
)

// Inserter receives captured entries.
type Inserter interface {
	Insert(ctx context.Context, item model.ClipItem) error
}

// Config wires a Watcher. Blobs and Hub are optional: without Blobs images
// are ignored, without Hub no events are published.
type Config struct {
	Backend  clip.Backend
	Store    Inserter
	Blobs    *blob.Store
	Hub      *hub.Hub
	Clock    clock.Clock
	IDs      clock.IDGenerator
	Interval time.Duration
}

// Watcher is the clipboard poller.
type Watcher struct {
	backend clip.Backend
	store   Inserter
	blobs   *blob.Store
	hub     *hub.Hub
	clock   clock.Clock
	ids     clock.IDGenerator

	// tickMu serialises ticks with self-writes and guards the last-seen
	// values.
	tickMu    sync.Mutex
	lastText  string
	lastImage string
	seeded    bool

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New returns a stopped Watcher.
func New(cfg Config) *Watcher {
	w := &Watcher{
		backend:  cfg.Backend,
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		hub:      cfg.Hub,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		interval: cfg.Interval,
	}
	if w.clock == nil {
		w.clock = clock.Real{}
	}
	if w.ids == nil {
		w.ids = clock.UUIDs{}
	}
	if w.interval <= 0 {
		w.interval = model.DefaultPollInterval * time.Millisecond
	}
	return w
}

// Start begins polling. The first Start seeds the last-seen values from the
// current clipboard so pre-existing content is not captured. Starting a
// running watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return
	}
	w.seed()
	w.startLocked()
	slog.Info("clipboard watcher started", "backend", w.backend.Name(), "interval", w.interval)
}

// Stop halts future ticks and waits for an in-flight tick to finish.
// Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopLocked() {
		slog.Info("clipboard watcher stopped")
	}
}

// Running reports whether the poll loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

// Interval returns the current poll interval.
func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// SetInterval changes the poll interval. A running watcher is restarted so
// the new interval applies from the next tick.
func (w *Watcher) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if d == w.interval {
		return
	}
	w.interval = d
	if w.stopLocked() {
		w.startLocked()
	}
	slog.Info("poll interval changed", "interval", d)
}

func (w *Watcher) startLocked() {
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(w.interval, w.stop, w.done)
}

func (w *Watcher) stopLocked() bool {
	if w.stop == nil {
		return false
	}
	close(w.stop)
	<-w.done
	w.stop, w.done = nil, nil
	return true
}

func (w *Watcher) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			w.Tick(context.Background())
		}
	}
}

func (w *Watcher) seed() {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()
	if w.seeded {
		return
	}
	w.seeded = true
	if text, err := w.backend.ReadText(); err == nil {
		w.lastText = text
	}
	if w.blobs != nil {
		if img, err := w.backend.ReadImage(); err == nil && len(img) > 0 {
			w.lastImage = blob.Hash(img)
		}
	}
}

// Tick performs one poll. Read failures skip the tick; capture failures are
// logged. A panic inside the tick is recovered so the loop keeps running.
func (w *Watcher) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("clipboard tick panicked", "panic", r)
		}
	}()

	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	text, err := w.backend.ReadText()
	if err != nil {
		slog.Debug("clipboard read failed, skipping tick", "err", err)
		return
	}
	if text != "" && text != w.lastText {
		w.lastText = text
		w.captureText(ctx, text)
	}

	if w.blobs == nil {
		return
	}
	img, err := w.backend.ReadImage()
	if err != nil {
		slog.Debug("clipboard image read failed, skipping", "err", err)
		return
	}
	if len(img) == 0 {
		return
	}
	if h := blob.Hash(img); h != w.lastImage {
		w.lastImage = h
		if !w.captureImage(ctx, img) {
			w.lastImage = ""
		}
	}
}

func (w *Watcher) captureText(ctx context.Context, text string) {
	cat := category.Classify(text)
	var tab *string
	if cat == model.CategoryLink {
		tab = model.StrPtr(model.TabLinks)
	}
	w.insert(ctx, model.ClipItem{
		ID:          w.ids.New(),
		Kind:        model.KindText,
		ContentText: text,
		Category:    cat,
		TabID:       tab,
		Timestamp:   w.clock.Now(),
	})
}

func (w *Watcher) captureImage(ctx context.Context, img []byte) bool {
	path, release, err := w.blobs.Hold(img)
	if err != nil {
		slog.Warn("storing clipboard image failed", "err", err)
		return false
	}
	defer release()
	w.insert(ctx, model.ClipItem{
		ID:        w.ids.New(),
		Kind:      model.KindImage,
		ImagePath: path,
		Category:  model.CategoryImage,
		Timestamp: w.clock.Now(),
	})
	return true
}

// insert stores the entry and notifies subscribers. A persistence failure
// still leaves the entry in the live history, so it is still announced.
func (w *Watcher) insert(ctx context.Context, item model.ClipItem) {
	err := w.store.Insert(ctx, item)
	var pe *history.PersistError
	if err != nil && !errors.As(err, &pe) {
		slog.Warn("recording clipboard entry failed", "id", item.ID, "err", err)
		return
	}
	hub.LogItem("clipboard captured", item)
	if w.hub != nil {
		w.hub.Publish(hub.Event{Type: hub.EventClipboardUpdated, Item: &item})
	}
}

// WriteText writes text to the clipboard and records it as seen, atomically
// with respect to ticks.
func (w *Watcher) WriteText(text string) error {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()
	if err := w.backend.WriteText(text); err != nil {
		return err
	}
	w.lastText = text
	return nil
}

// WriteImage writes a PNG to the clipboard and records it as seen.
func (w *Watcher) WriteImage(png []byte) error {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()
	if err := w.backend.WriteImage(png); err != nil {
		return err
	}
	w.lastImage = blob.Hash(png)
	return nil
}
