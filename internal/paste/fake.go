package paste

import (
	"context"
	"sync"
	"time"
)

// FakeInjector records paste injections. Set Err to make them fail.
type FakeInjector struct {
	mu    sync.Mutex
	calls []time.Time
	Err   error
}

func (f *FakeInjector) Name() string { return "fake" }

func (f *FakeInjector) InjectPaste(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	return f.Err
}

// Calls returns the time of every injection attempt.
func (f *FakeInjector) Calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}
