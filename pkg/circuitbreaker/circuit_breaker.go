package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected without being attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds the configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before probing.
	ResetTimeout time.Duration
	// HalfOpenMaxCalls is both the number of concurrent probes and the
	// number of successful probes needed to close again.
	HalfOpenMaxCalls int
}

// OnStateChangeFunc is invoked after every transition, outside the breaker lock.
type OnStateChangeFunc func(from, to State)

// CircuitBreaker guards calls to a failing dependency. The guarded function
// runs without the breaker lock held, so slow calls do not serialize callers.
type CircuitBreaker struct {
	mu            sync.Mutex
	config        Config
	state         State
	failures      int
	probes        int
	probeSuccess  int
	openedAt      time.Time
	onStateChange OnStateChangeFunc
	now           func() time.Time
}

// New creates a closed circuit breaker. Zero config values get defaults:
// 5 failures, 60s reset timeout, 1 half-open call.
func New(config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// SetOnStateChange registers the transition callback.
func (cb *CircuitBreaker) SetOnStateChange(fn OnStateChangeFunc) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// State returns the current state. An open circuit whose reset timeout has
// elapsed reports HalfOpen.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	halfOpen, err := cb.before()
	if err != nil {
		return err
	}

	err = fn()
	cb.after(halfOpen, err == nil)
	return err
}

type transition struct {
	from, to State
	notify   OnStateChangeFunc
}

func (t *transition) fire() {
	if t != nil && t.notify != nil {
		t.notify(t.from, t.to)
	}
}

func (cb *CircuitBreaker) before() (bool, error) {
	cb.mu.Lock()
	var changed *transition

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.ResetTimeout {
			cb.mu.Unlock()
			return false, ErrCircuitOpen
		}
		changed = cb.setState(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxCalls {
			cb.mu.Unlock()
			changed.fire()
			return false, ErrCircuitOpen
		}
		cb.probes++
		cb.mu.Unlock()
		changed.fire()
		return true, nil
	default:
		cb.mu.Unlock()
		return false, nil
	}
}

func (cb *CircuitBreaker) after(halfOpen, success bool) {
	cb.mu.Lock()
	var changed *transition

	switch {
	case halfOpen && cb.state == StateHalfOpen:
		cb.probes--
		if !success {
			changed = cb.trip()
			break
		}
		cb.probeSuccess++
		if cb.probeSuccess >= cb.config.HalfOpenMaxCalls {
			changed = cb.setState(StateClosed)
		}
	case cb.state == StateClosed:
		if success {
			cb.failures = 0
			break
		}
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			changed = cb.trip()
		}
	}

	cb.mu.Unlock()
	changed.fire()
}

func (cb *CircuitBreaker) trip() *transition {
	t := cb.setState(StateOpen)
	cb.openedAt = cb.now()
	return t
}

// setState must be called with the lock held.
func (cb *CircuitBreaker) setState(to State) *transition {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.probes = 0
	cb.probeSuccess = 0
	if from == to {
		return nil
	}
	return &transition{from: from, to: to, notify: cb.onStateChange}
}

// Reset closes the circuit and clears every counter.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.setState(StateClosed)
	cb.mu.Unlock()
	changed.fire()
}
