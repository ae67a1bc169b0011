// Package resilience keeps a slow or crashing inference backend from taking
// the whole analysis pipeline down with it.
//
// [CircuitBreaker] tracks consecutive transcription failures per backend and
// stops forwarding calls once a backend is clearly unhealthy, so request
// handlers fail fast instead of queueing behind a dead GPU box.
// [FallbackGroup] stacks several backends behind per-backend breakers and
// routes around whichever ones are currently tripped.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// refusing calls and its cool-down has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call to the backend.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen]. Entered after too many
	// consecutive backend faults; left once the cool-down elapses.
	StateOpen

	// StateHalfOpen lets a small number of trial calls through after the
	// cool-down. The breaker closes if they all succeed and re-opens on the
	// first fault.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields fall back to
// defaults suited to a remote inference backend.
type CircuitBreakerConfig struct {
	// Name labels the guarded backend in log output, e.g. "whisper-local".
	Name string

	// MaxFailures is how many consecutive faults trip the breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is the cool-down before trial calls are allowed again.
	// Default: 30s, roughly the time an inference server needs to restart.
	ResetTimeout time.Duration

	// HalfOpenMax is the trial-call budget in the half-open state. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker guards a single inference backend with the classic
// closed → open → half-open cycle. Safe for concurrent use.
type CircuitBreaker struct {
	name        string
	maxFailures int
	coolDown    time.Duration
	trialBudget int

	mu           sync.Mutex
	state        State
	failStreak   int
	lastFault    time.Time
	trialsSent   int
	trialsFailed int
}

// NewCircuitBreaker creates a breaker from cfg, substituting defaults for
// zero-valued fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		coolDown:    cfg.ResetTimeout,
		trialBudget: cfg.HalfOpenMax,
		state:       StateClosed,
	}
}

// Execute forwards fn to the backend if the breaker allows it. While open it
// returns [ErrCircuitOpen] without invoking fn; while half-open only the trial
// budget's worth of calls get through.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if !cb.admit() {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	trial := cb.state == StateHalfOpen
	if trial {
		cb.trialsSent++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.fault(trial)
	} else {
		cb.recover(trial)
	}
	return err
}

// admit decides whether the next call may proceed, performing the
// open → half-open transition when the cool-down has elapsed.
// Must be called with cb.mu held.
func (cb *CircuitBreaker) admit() bool {
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFault) < cb.coolDown {
			return false
		}
		cb.state = StateHalfOpen
		cb.trialsSent = 0
		cb.trialsFailed = 0
		slog.Info("backend breaker half-open, sending trial calls",
			"backend", cb.name)
		return true

	case StateHalfOpen:
		return cb.trialsSent < cb.trialBudget

	default:
		return true
	}
}

// fault records a backend failure. Must be called with cb.mu held.
func (cb *CircuitBreaker) fault(trial bool) {
	cb.lastFault = time.Now()

	if trial {
		cb.trialsFailed++
		// One bad trial call is enough proof the backend is still down.
		cb.state = StateOpen
		cb.failStreak = cb.maxFailures
		slog.Warn("backend breaker re-opened after failed trial call",
			"backend", cb.name)
		return
	}

	cb.failStreak++
	if cb.failStreak >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("backend breaker opened",
			"backend", cb.name,
			"consecutive_failures", cb.failStreak)
	}
}

// recover records a backend success. Must be called with cb.mu held.
func (cb *CircuitBreaker) recover(trial bool) {
	if trial {
		if cb.trialsSent-cb.trialsFailed >= cb.trialBudget {
			cb.state = StateClosed
			cb.failStreak = 0
			cb.trialsSent = 0
			cb.trialsFailed = 0
			slog.Info("backend breaker closed, backend healthy again",
				"backend", cb.name)
		}
		return
	}

	cb.failStreak = 0
}

// State reports the breaker's current [State]. An open breaker whose cool-down
// has elapsed reports [StateHalfOpen]; the stored state changes on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFault) >= cb.coolDown {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
// Used when an operator knows the backend has been fixed out of band.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failStreak = 0
	cb.trialsSent = 0
	cb.trialsFailed = 0
	slog.Info("backend breaker manually reset", "backend", cb.name)
}
