// Package hub fans daemon events out to subscribed clients. It is
// transport-agnostic: subscribers register, receive events through a
// non-blocking Send, and unregister when their connection closes.
package hub

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.klb.dev/copas/internal/model"
)

// EventType names a pushed notification.
type EventType string

const (
	EventClipboardUpdated EventType = "clipboard-updated"
	EventPopupShown       EventType = "popup-shown"
	EventPopupHidden      EventType = "popup-hidden"
	EventSettingsChanged  EventType = "settings-changed"
)

// EventTypes lists every event the daemon publishes.
var EventTypes = []EventType{
	EventClipboardUpdated,
	EventPopupShown,
	EventPopupHidden,
	EventSettingsChanged,
}

// ParseEventType returns the EventType named s.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(s)
	return t, slices.Contains(EventTypes, t)
}

// Event is one notification delivered to subscribers.
type Event struct {
	Type     EventType       `json:"type" yaml:"type"`
	Time     time.Time       `json:"time" yaml:"time"`
	Item     *model.ClipItem `json:"item,omitempty" yaml:"item,omitempty"`
	Settings *model.Settings `json:"settings,omitempty" yaml:"settings,omitempty"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// SubscriberInfo describes a registered subscriber.
type SubscriberInfo struct {
	ID          string      `json:"id" yaml:"id"`
	Source      string      `json:"source" yaml:"source"`
	Accepts     []EventType `json:"accepts,omitempty" yaml:"accepts,omitempty"`
	ConnectedAt time.Time   `json:"connectedAt" yaml:"connectedAt"`
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	Info() SubscriberInfo
	// Send delivers an event. Must be non-blocking.
	Send(Event)
}

// Hub routes events to every registered subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Register adds a subscriber, replacing any with the same id.
func (h *Hub) Register(s Subscriber) {
	info := s.Info()
	h.mu.Lock()
	h.subs[info.ID] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber registered", "id", info.ID, "source", info.Source, "total", total)
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(s Subscriber) {
	info := s.Info()
	h.mu.Lock()
	delete(h.subs, info.ID)
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber unregistered", "id", info.ID, "source", info.Source, "total", total)
}

// Publish delivers ev to every subscriber that accepts its type. A zero
// Time is stamped with the current time.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if accepts(s.Info().Accepts, ev.Type) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Send(ev)
	}
}

// Subscribers returns a snapshot of subscriber metadata.
func (h *Hub) Subscribers() []SubscriberInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]SubscriberInfo, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s.Info())
	}
	slices.SortFunc(out, func(a, b SubscriberInfo) int { return a.ConnectedAt.Compare(b.ConnectedAt) })
	return out
}

// accepts reports whether a subscriber filter admits t. An empty filter
// admits everything.
func accepts(filter []EventType, t EventType) bool {
	return len(filter) == 0 || slices.Contains(filter, t)
}

// Chan is a Subscriber backed by a buffered channel. Events that do not fit
// are dropped with a warning.
type Chan struct {
	info SubscriberInfo
	ch   chan Event
}

// NewChan returns a channel subscriber with the given buffer size.
func NewChan(id, source string, buffer int, accept ...EventType) *Chan {
	return &Chan{
		info: SubscriberInfo{ID: id, Source: source, Accepts: accept, ConnectedAt: time.Now().UTC()},
		ch:   make(chan Event, buffer),
	}
}

func (c *Chan) Info() SubscriberInfo { return c.info }

func (c *Chan) Send(ev Event) {
	select {
	case c.ch <- ev:
	default:
		slog.Warn("subscriber channel full, dropping event", "id", c.info.ID, "type", ev.Type)
	}
}

// C returns the receive side of the channel.
func (c *Chan) C() <-chan Event { return c.ch }
