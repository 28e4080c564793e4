package persist

import (
	"context"
	"sync"

	"go.klb.dev/copas/internal/model"
)

// Memory keeps the encoded blob in memory. Saves round-trip through the
// same JSON encoding as the durable adapters. Set FailWith to make Save fail.
type Memory struct {
	mu       sync.Mutex
	blob     []byte
	saves    int
	FailWith error
}

var _ Adapter = (*Memory)(nil)

// NewMemory returns an empty Memory adapter.
func NewMemory() *Memory { return &Memory{} }

// NewMemoryFrom returns a Memory adapter preloaded with s.
func NewMemoryFrom(s *model.State) (*Memory, error) {
	b, err := encode(s)
	if err != nil {
		return nil, err
	}
	return &Memory{blob: b}, nil
}

func (m *Memory) Load(_ context.Context) (*model.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return model.NewState(), nil
	}
	return decode(m.blob)
}

func (m *Memory) Save(_ context.Context, s *model.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.blob = b
	m.saves++
	return nil
}

func (m *Memory) Size(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.blob)), nil
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SetFailure makes subsequent saves return err (nil restores them).
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailWith = err
}

func (m *Memory) Close() error { return nil }
