// ABOUTME: RunGate admits one collection at a time and enforces a cooldown
// ABOUTME: The cooldown is measured from the end of the previous run

package collector

import (
	"sync"
	"time"

	"digests-pipeline/core/errors"
)

// DefaultCooldown is the minimum gap between the end of one run and the start of the next
const DefaultCooldown = 5 * time.Minute

// RunGate admits at most one collection run at a time and enforces the cooldown
// after each completed run. Each pipeline owns its own gate.
type RunGate struct {
	mu            sync.Mutex
	running       bool
	lastCompleted time.Time
	cooldown      time.Duration
	now           func() time.Time
}

// GateOption configures a RunGate
type GateOption func(*RunGate)

// WithGateClock overrides the gate's time source
func WithGateClock(now func() time.Time) GateOption {
	return func(g *RunGate) { g.now = now }
}

// NewRunGate creates a gate; a non-positive cooldown only prevents overlapping runs
func NewRunGate(cooldown time.Duration, opts ...GateOption) *RunGate {
	if cooldown < 0 {
		cooldown = 0
	}
	g := &RunGate{cooldown: cooldown, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire claims the gate. The returned release records completion and reopens the
// gate; calling it more than once has no further effect. A rejection is a
// *errors.CooldownError matching errors.ErrCooldownActive.
func (g *RunGate) Acquire() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil, &errors.CooldownError{InProgress: true}
	}
	if remaining := g.remainingLocked(); remaining > 0 {
		return nil, &errors.CooldownError{Remaining: remaining}
	}

	g.running = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.running = false
			g.lastCompleted = g.now()
		})
	}, nil
}

// Remaining returns how long until a new run would be admitted, ignoring an in-progress run
func (g *RunGate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

// Running reports whether a run currently holds the gate
func (g *RunGate) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// LastCompleted returns when the previous run finished; zero if none has
func (g *RunGate) LastCompleted() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCompleted
}

func (g *RunGate) remainingLocked() time.Duration {
	if g.lastCompleted.IsZero() {
		return 0
	}
	elapsed := g.now().Sub(g.lastCompleted)
	if elapsed >= g.cooldown {
		return 0
	}
	return g.cooldown - elapsed
}
