package infra

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal operation
	BreakerOpen                         // shedding requests
	BreakerHalfOpen                     // probing recovery
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker tuning for the venue's REST endpoints: five straight failures
// open it, the cooldown matches a typical venue incident blip, and two
// clean probes close it again.
const (
	breakerFailLimit  = 5
	breakerProbeGoal  = 2
	breakerCooldownMs = 30_000
)

// CircuitBreaker sheds requests to a failing endpoint instead of queueing
// retries behind it. Thread-safe.
type CircuitBreaker struct {
	name string
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	probes   int
	openedAt time.Time

	failLimit int
	probeGoal int
	cooldown  time.Duration
}

// NewCircuitBreaker creates a breaker with the venue REST tuning.
func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		now:       time.Now,
		state:     BreakerClosed,
		failLimit: breakerFailLimit,
		probeGoal: breakerProbeGoal,
		cooldown:  breakerCooldownMs * time.Millisecond,
	}
}

// Allow reports whether a request may proceed. An open breaker past its
// cooldown flips to half-open and lets probes through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed, BreakerHalfOpen:
		return true

	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) > cb.cooldown {
			cb.state = BreakerHalfOpen
			cb.probes = 0
			slog.Info("BREAKER_HALF_OPEN", slog.String("name", cb.name))
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess clears the failure streak, or counts a probe toward
// closing a half-open breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures = 0

	case BreakerHalfOpen:
		cb.probes++
		if cb.probes >= cb.probeGoal {
			cb.state = BreakerClosed
			cb.failures = 0
			cb.probes = 0
			slog.Info("BREAKER_CLOSED", slog.String("name", cb.name))
		}
	}
}

// RecordFailure counts toward opening; any half-open failure reopens
// immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures++
		if cb.failures >= cb.failLimit {
			cb.state = BreakerOpen
			cb.openedAt = cb.now()
			slog.Warn("BREAKER_OPEN",
				slog.String("name", cb.name),
				slog.Int("failures", cb.failures))
		}

	case BreakerHalfOpen:
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
		cb.probes = 0
		slog.Warn("BREAKER_OPEN",
			slog.String("name", cb.name),
			slog.String("cause", "probe failed"))
	}
}

// State returns the current state for monitoring.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
