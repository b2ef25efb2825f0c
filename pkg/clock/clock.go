package clock

import (
	"context"
	"sync"
	"time"
)

// Clock allows injecting time into services so tests can control "now".
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts backoff delays so retry tests run without wall-clock waits.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type systemSleeper struct{}

// NewSystemSleeper returns a sleeper backed by a real timer.
// Sleep returns early with the context error if ctx is cancelled first.
func NewSystemSleeper() Sleeper {
	return systemSleeper{}
}

func (systemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fake is a manually controlled clock and sleeper for tests.
// Sleep returns immediately and records the requested duration.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
}

func NewFake(t time.Time) *Fake {
	return &Fake{now: t.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
	return nil
}

// SleptTotal reports the sum of all recorded sleeps.
func (f *Fake) SleptTotal() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, d := range f.slept {
		total += d
	}
	return total
}

// Slept returns a copy of the recorded sleep durations in order.
func (f *Fake) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)
	return out
}
