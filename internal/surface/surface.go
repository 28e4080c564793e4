// Package surface tracks whether the popup is shown. The popup itself is
// drawn by an external client; the daemon owns its visibility so that hides
// from paste dispatch and from focus loss cannot race each other.
package surface

import (
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/copas/internal/hub"
)

// DefaultBlurDelay is how long a focus loss waits before hiding.
const DefaultBlurDelay = 150 * time.Millisecond

// Reasons attached to popup-hidden events.
const (
	ReasonUser  = "user"
	ReasonPaste = "paste"
	ReasonBlur  = "blur"
)

// Surface is the popup visibility state.
type Surface struct {
	hub       *hub.Hub
	blurDelay time.Duration

	mu      sync.Mutex
	visible bool
	gen     uint64
}

// New returns a hidden Surface. h may be nil.
func New(h *hub.Hub, blurDelay time.Duration) *Surface {
	if blurDelay <= 0 {
		blurDelay = DefaultBlurDelay
	}
	return &Surface{hub: h, blurDelay: blurDelay}
}

// Visible reports whether the popup is shown.
func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Show makes the popup visible and reports whether that changed anything.
func (s *Surface) Show() bool {
	s.mu.Lock()
	changed := !s.visible
	s.visible = true
	s.gen++
	s.mu.Unlock()

	if changed {
		s.shown()
	}
	return changed
}

// Hide conceals the popup. Hiding a hidden popup is a no-op and reports
// false.
func (s *Surface) Hide(reason string) bool {
	s.mu.Lock()
	changed := s.visible
	s.visible = false
	s.gen++
	s.mu.Unlock()

	if changed {
		s.hidden(reason)
	}
	return changed
}

// Toggle flips visibility and returns the new state.
func (s *Surface) Toggle() bool {
	s.mu.Lock()
	s.visible = !s.visible
	s.gen++
	now := s.visible
	s.mu.Unlock()

	if now {
		s.shown()
	} else {
		s.hidden(ReasonUser)
	}
	return now
}

// Blur reports that the popup lost focus. After the blur delay it is hidden
// unless it was shown or hidden again in the meantime.
func (s *Surface) Blur() {
	s.mu.Lock()
	if !s.visible {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	time.AfterFunc(s.blurDelay, func() { s.hideIfGen(gen) })
}

// hideIfGen hides the popup only if nothing changed its visibility since
// generation gen.
func (s *Surface) hideIfGen(gen uint64) bool {
	s.mu.Lock()
	if gen != s.gen || !s.visible {
		s.mu.Unlock()
		return false
	}
	s.visible = false
	s.gen++
	s.mu.Unlock()

	s.hidden(ReasonBlur)
	return true
}

func (s *Surface) shown() {
	s.publish(hub.Event{Type: hub.EventPopupShown})
}

func (s *Surface) hidden(reason string) {
	slog.Debug("popup hidden", "reason", reason)
	s.publish(hub.Event{Type: hub.EventPopupHidden, Reason: reason})
}

func (s *Surface) publish(ev hub.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
