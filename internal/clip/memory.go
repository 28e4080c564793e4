package clip

import (
	"bytes"
	"sync"
)

// Memory is an in-process clipboard. It backs headless hosts and lets tests
// script clipboard changes and failures. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	text     string
	image    []byte
	readErr  error
	writeErr error
	writes   int
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty Memory clipboard.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return "headless (in-memory)" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.text, nil
}

func (m *Memory) ReadImage() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return bytes.Clone(m.image), nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.text, m.image = text, nil
	m.writes++
	return nil
}

func (m *Memory) WriteImage(png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.text, m.image = "", bytes.Clone(png)
	m.writes++
	return nil
}

func (m *Memory) Close() {}

// Set replaces the contents as if another application had copied text.
// It does not count as a write.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = text, nil
}

// SetImage replaces the contents with an image copied elsewhere.
func (m *Memory) SetImage(png []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = "", bytes.Clone(png)
}

// FailReads makes reads return err until called again with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes writes return err until called again with nil.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns how many writes succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
