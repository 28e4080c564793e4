// Package paste delivers an entry to the application that had focus before
// the popup: write the clipboard, hide the popup, wait for focus to return,
// then inject a paste keystroke. If injection is unavailable the clipboard
// write still stands and the user can paste by hand.
package paste

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/surface"
)

// DefaultDelay is the pause between hiding the popup and injecting the
// keystroke, long enough for the OS to restore focus.
const DefaultDelay = 150 * time.Millisecond

// ErrInjectUnavailable means no synthetic-input mechanism could be used.
var ErrInjectUnavailable = errors.New("paste injection unavailable")

// Writer writes the clipboard and records the write as copas's own.
type Writer interface {
	WriteText(text string) error
	WriteImage(png []byte) error
}

// Hider conceals the popup. Hide must be idempotent.
type Hider interface {
	Hide(reason string) bool
}

// ImageReader loads a stored image payload.
type ImageReader interface {
	Read(path string) ([]byte, error)
}

// Injector sends a paste keystroke to the focused application.
type Injector interface {
	Name() string
	InjectPaste(ctx context.Context) error
}

// Config wires a Dispatcher. Images may be nil when image paste is not
// needed.
type Config struct {
	Writer   Writer
	Hider    Hider
	Injector Injector
	Images   ImageReader
	Delay    time.Duration
}

// Result describes a completed dispatch.
type Result struct {
	Injected bool `json:"injected" yaml:"injected"`
}

// Dispatcher runs paste sequences one at a time.
type Dispatcher struct {
	writer   Writer
	hider    Hider
	injector Injector
	images   ImageReader

	seq   sync.Mutex
	mu    sync.RWMutex
	delay time.Duration
}

// New returns a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		writer:   cfg.Writer,
		hider:    cfg.Hider,
		injector: cfg.Injector,
		images:   cfg.Images,
		delay:    cfg.Delay,
	}
	if d.delay <= 0 {
		d.delay = DefaultDelay
	}
	return d
}

// SetDelay changes the focus-restore delay.
func (d *Dispatcher) SetDelay(delay time.Duration) {
	if delay <= 0 {
		return
	}
	d.mu.Lock()
	d.delay = delay
	d.mu.Unlock()
}

// Delay returns the focus-restore delay.
func (d *Dispatcher) Delay() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.delay
}

// Copy writes text to the clipboard without hiding or injecting.
func (d *Dispatcher) Copy(text string) error {
	if err := d.writer.WriteText(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// CopyImage writes the stored image at path without hiding or injecting.
func (d *Dispatcher) CopyImage(path string) error {
	png, err := d.readImage(path)
	if err != nil {
		return err
	}
	if err := d.writer.WriteImage(png); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// BulkCopy joins texts with the configured delimiter and copies the result.
func (d *Dispatcher) BulkCopy(texts []string, delimiter string) error {
	return d.Copy(Join(texts, delimiter))
}

// Paste writes text, hides the popup and injects a paste.
func (d *Dispatcher) Paste(ctx context.Context, text string) (Result, error) {
	return d.run(ctx, func() error { return d.writer.WriteText(text) })
}

// BulkPaste joins texts with the configured delimiter and pastes the result.
func (d *Dispatcher) BulkPaste(ctx context.Context, texts []string, delimiter string) (Result, error) {
	return d.Paste(ctx, Join(texts, delimiter))
}

// PasteImage writes the stored image at path and pastes it.
func (d *Dispatcher) PasteImage(ctx context.Context, path string) (Result, error) {
	png, err := d.readImage(path)
	if err != nil {
		return Result{}, err
	}
	return d.run(ctx, func() error { return d.writer.WriteImage(png) })
}

func (d *Dispatcher) readImage(path string) ([]byte, error) {
	if d.images == nil {
		return nil, errors.New("image paste is not configured")
	}
	png, err := d.images.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return png, nil
}

// run is the dispatch sequence. A write failure aborts before the popup is
// touched. An injection failure is logged and reported as Injected=false.
func (d *Dispatcher) run(ctx context.Context, write func() error) (Result, error) {
	d.seq.Lock()
	defer d.seq.Unlock()

	if err := write(); err != nil {
		return Result{}, fmt.Errorf("write clipboard: %w", err)
	}
	d.hider.Hide(surface.ReasonPaste)

	t := time.NewTimer(d.Delay())
	select {
	case <-ctx.Done():
		t.Stop()
		slog.Debug("paste cancelled before injection", "err", ctx.Err())
		return Result{}, nil
	case <-t.C:
	}

	if d.injector == nil {
		return Result{}, nil
	}
	if err := d.injector.InjectPaste(ctx); err != nil {
		slog.Warn("paste injection failed, clipboard is set for manual paste",
			"injector", d.injector.Name(), "err", err)
		return Result{}, nil
	}
	return Result{Injected: true}, nil
}

// Join concatenates texts with delimiter after resolving its escape
// sequences.
func Join(texts []string, delimiter string) string {
	return strings.Join(texts, model.UnescapeDelimiter(delimiter))
}
