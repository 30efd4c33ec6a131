// Package breaker provides the circuit breakers wrapped around the external
// decision algorithms. A breaker prevents a failing dependency from stalling
// every pipeline run: after enough consecutive failures it rejects calls
// immediately until a cooldown elapses, then allows a single probe.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the canonical name of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// OpenError is returned when a call is rejected because the breaker is open.
// Remaining reports the cooldown left before a probe will be allowed.
type OpenError struct {
	Name      string
	Remaining time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s open, retry in %s", e.Name, e.Remaining.Round(time.Millisecond))
}

// Config controls breaker behaviour.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker from closed to open.
	FailureThreshold int `json:"failureThreshold"`
	// RecoveryTimeout is the cooldown before an open breaker allows a probe.
	RecoveryTimeout time.Duration `json:"recoveryTimeout"`
	// CallTimeout bounds each wrapped call.
	CallTimeout time.Duration `json:"callTimeout"`
}

// SetDefaults fills zero fields with the documented defaults.
func (c *Config) SetDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 2 * time.Second
	}
}

// Breaker is a three-state circuit breaker. All state transitions happen
// under one mutex, and only at the completion of a call, so an abandoned
// caller cannot leave the breaker half-mutated.
type Breaker struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// New creates a breaker with the given name and configuration.
func New(name string, cfg Config) *Breaker {
	cfg.SetDefaults()
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, applying the lazy open→half-open
// transition if the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		b.probing = false
	}
	return b.state
}

// Execute runs fn under the breaker with the configured call timeout. When
// the breaker is open the call is rejected immediately with an *OpenError;
// fn is not invoked. In half-open state exactly one probe is allowed;
// concurrent callers are rejected as if the breaker were open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	switch b.stateLocked() {
	case StateOpen:
		remaining := b.cfg.RecoveryTimeout - b.now().Sub(b.openedAt)
		b.mu.Unlock()
		return &OpenError{Name: b.name, Remaining: remaining}
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return &OpenError{Name: b.name, Remaining: 0}
		}
		b.probing = true
	}
	b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()
	err := fn(callCtx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailureLocked()
		return err
	}
	b.onSuccessLocked()
	return nil
}

func (b *Breaker) onSuccessLocked() {
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) onFailureLocked() {
	if b.state == StateHalfOpen {
		b.trip()
		return
	}
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
	b.probing = false
}
