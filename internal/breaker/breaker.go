package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"courtside/pkg/clock"
	"courtside/pkg/logger"
)

// ErrOpen is returned without invoking the wrapped call while the breaker is
// open (or while the single half-open probe is already in flight).
var ErrOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Settings tunes one breaker instance. Every protected dependency gets its
// own instance; instances are fully independent.
type Settings struct {
	// Timeout bounds each wrapped call; exceeding it counts as a failure.
	Timeout time.Duration
	// ThresholdPct opens the breaker when failures/total within the rolling
	// window reaches this percentage, once MinRequests calls were observed.
	ThresholdPct int
	MinRequests  int
	// Window is the rolling counting window while closed.
	Window time.Duration
	// ResetTimeout is how long the breaker stays open before allowing a
	// half-open probe.
	ResetTimeout time.Duration
}

type Breaker struct {
	name     string
	settings Settings
	clk      clock.Clock
	log      *logger.Logger

	mu            sync.Mutex
	state         State
	failures      int
	total         int
	windowStart   time.Time
	openedAt      time.Time
	probeInFlight bool
}

func New(name string, settings Settings, clk clock.Clock, log *logger.Logger) *Breaker {
	return &Breaker{
		name:        name,
		settings:    settings,
		clk:         clk,
		log:         log,
		state:       StateClosed,
		windowStart: clk.Now(),
	}
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn under the breaker's protection. While open it fails with
// ErrOpen and fn is never invoked. Each call is bounded by Settings.Timeout.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.settings.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = fmt.Errorf("%s call exceeded %s: %w", b.name, b.settings.Timeout, callCtx.Err())
	}

	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.clk.Now().Sub(b.openedAt) < b.settings.ResetTimeout {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probeInFlight = true
		return nil
	default: // half_open
		if b.probeInFlight {
			return ErrOpen
		}
		b.probeInFlight = true
		return nil
	}
}

func (b *Breaker) afterCall(callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probeInFlight = false
		if callErr == nil {
			b.transition(StateClosed)
			b.resetWindow()
		} else {
			b.transition(StateOpen)
			b.openedAt = b.clk.Now()
		}
		return
	}

	if b.state != StateClosed {
		// The breaker opened while this call was in flight; its outcome no
		// longer affects the decision.
		return
	}

	if b.clk.Now().Sub(b.windowStart) >= b.settings.Window {
		b.resetWindow()
	}

	b.total++
	if callErr != nil {
		b.failures++
	}

	if b.total >= b.settings.MinRequests && b.failures*100 >= b.settings.ThresholdPct*b.total {
		b.transition(StateOpen)
		b.openedAt = b.clk.Now()
	}
}

func (b *Breaker) resetWindow() {
	b.failures = 0
	b.total = 0
	b.windowStart = b.clk.Now()
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.log.Info("Circuit breaker state changed",
		"breaker", b.name,
		"from", string(b.state),
		"to", string(to),
		"failures", b.failures,
		"total", b.total,
	)
	b.state = to
}
