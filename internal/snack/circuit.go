package snack

import (
	"context"
	"log"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // requests allowed
	CircuitOpen                         // requests rejected
	CircuitHalfOpen                     // probing for recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures the circuit breaker.
type CircuitConfig struct {
	FailureThreshold int           // failures in the window that open the circuit (default: 5)
	SuccessThreshold int           // half-open successes that close it (default: 2)
	Timeout          time.Duration // time open before probing (default: 30s)
	FailureWindow    time.Duration // window for counting failures (default: 1m)
	EnableLog        bool
}

// DefaultCircuitConfig returns the default circuit breaker configuration.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		FailureWindow:    time.Minute,
		EnableLog:        true,
	}
}

// circuitBreaker stops calling a failing service for a while.
type circuitBreaker struct {
	name   string
	config CircuitConfig
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        []time.Time
	successes       int
	lastStateChange time.Time
}

func newCircuitBreaker(name string, config CircuitConfig) *circuitBreaker {
	return &circuitBreaker{
		name:            name,
		config:          config,
		now:             time.Now,
		state:           CircuitClosed,
		lastStateChange: time.Now(),
	}
}

func (cb *circuitBreaker) execute(ctx context.Context, fn attemptFunc) (*Snack, error) {
	if !cb.allow() {
		return nil, &CircuitOpenError{Endpoint: cb.name}
	}
	result, err := fn(ctx)
	cb.record(err)
	return result, err
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastStateChange) < cb.config.Timeout {
			return false
		}
		cb.transitionTo(CircuitHalfOpen)
	}
	return true
}

func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	switch {
	case err == nil:
		cb.recordSuccess()
	case shouldRetry(err):
		// Only transient failures count against the service.
		cb.recordFailure(now)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = cb.failures[:0]
	}
}

func (cb *circuitBreaker) recordFailure(now time.Time) {
	cb.failures = append(cb.failures, now)

	cutoff := now.Add(-cb.config.FailureWindow)
	recent := cb.failures[:0]
	for _, t := range cb.failures {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	cb.failures = recent

	switch cb.state {
	case CircuitClosed:
		if len(cb.failures) >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *circuitBreaker) transitionTo(state CircuitState) {
	if cb.state == state {
		return
	}
	old := cb.state
	cb.state = state
	cb.lastStateChange = cb.now()
	cb.successes = 0
	if state == CircuitClosed {
		cb.failures = cb.failures[:0]
	}
	if cb.config.EnableLog {
		log.Printf("[Snack] Circuit %s: %s -> %s", cb.name, old, state)
	}
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
