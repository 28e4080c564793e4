// Package settings serves the user settings stored in the state blob.
// Changes are validated, persisted with the history, and announced to
// registered listeners after they land.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/model"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Themes accepted by validation.
var Themes = []string{"light", "dark", "system"}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	PollInterval      *int    `json:"pollInterval,omitempty"`
	MaxHistory        *int    `json:"maxHistory,omitempty"`
	ShortcutToggle    *string `json:"shortcutToggle,omitempty"`
	ShortcutPaste     *string `json:"shortcutPaste,omitempty"`
	PasteDelimiter    *string `json:"pasteDelimiter,omitempty"`
	Theme             *string `json:"theme,omitempty"`
	ShowNotifications *bool   `json:"showNotifications,omitempty"`
	AutoStart         *bool   `json:"autoStart,omitempty"`
}

// Apply copies every set field onto s.
func (p Patch) Apply(s *model.Settings) {
	if p.PollInterval != nil {
		s.PollInterval = *p.PollInterval
	}
	if p.MaxHistory != nil {
		s.MaxHistory = *p.MaxHistory
	}
	if p.ShortcutToggle != nil {
		s.ShortcutToggle = *p.ShortcutToggle
	}
	if p.ShortcutPaste != nil {
		s.ShortcutPaste = *p.ShortcutPaste
	}
	if p.PasteDelimiter != nil {
		s.PasteDelimiter = *p.PasteDelimiter
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ShowNotifications != nil {
		s.ShowNotifications = *p.ShowNotifications
	}
	if p.AutoStart != nil {
		s.AutoStart = *p.AutoStart
	}
}

// Validate checks the fields p sets. Stored values the patch leaves alone
// are not re-checked.
func (p Patch) Validate() error {
	var errs []error
	if p.PollInterval != nil && *p.PollInterval < model.MinPollInterval {
		errs = append(errs, fmt.Errorf("pollInterval %dms is below %dms", *p.PollInterval, model.MinPollInterval))
	}
	if p.MaxHistory != nil && *p.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("maxHistory must be at least 1, got %d", *p.MaxHistory))
	}
	if p.Theme != nil && !validTheme(*p.Theme) {
		errs = append(errs, fmt.Errorf("theme %q is not one of %s", *p.Theme, strings.Join(Themes, ", ")))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func validTheme(t string) bool {
	for _, v := range Themes {
		if t == v {
			return true
		}
	}
	return false
}

// Listener is called with the previous and new settings after a change.
type Listener func(old, cur model.Settings)

// Service reads and updates settings.
type Service struct {
	store *history.Store

	mu        sync.RWMutex
	listeners []Listener
}

// New returns a Service backed by store.
func New(store *history.Store) *Service {
	return &Service{store: store}
}

// OnChange registers fn for every applied change.
func (s *Service) OnChange(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Get returns the current settings.
func (s *Service) Get() model.Settings {
	return s.store.Settings()
}

// Set validates and applies p. A shrinking maxHistory evicts immediately.
// When the change was applied but could not be saved, the new settings are
// returned together with a *history.PersistError.
func (s *Service) Set(ctx context.Context, p Patch) (model.Settings, error) {
	if err := p.Validate(); err != nil {
		return s.Get(), err
	}
	var old, cur model.Settings
	err := s.store.Transact(ctx, func(st *model.State) bool {
		old = st.Settings
		cur = old
		p.Apply(&cur)
		if cur == old {
			return false
		}
		st.Settings = cur
		return true
	})
	if cur != old {
		s.notify(old, cur)
	}
	return cur, err
}

func (s *Service) notify(old, cur model.Settings) {
	s.mu.RLock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(old, cur)
	}
}
