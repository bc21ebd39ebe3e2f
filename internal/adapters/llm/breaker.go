package llm

import (
	"sync"
	"time"
)

// DefaultBreakerThreshold is the number of consecutive failed calls after
// which a backend is skipped.
const DefaultBreakerThreshold = 3

// DefaultBreakerCooldown is how long a tripped backend is skipped before
// one trial call is let through.
const DefaultBreakerCooldown = 30 * time.Second

// CircuitBreaker tracks consecutive failures of one backend.
//
// Closed: calls go through. Open: calls are skipped until the cooldown
// has passed since the last failure, then one trial call is allowed
// (half-open). A success closes the breaker; a failed trial re-opens it.
type CircuitBreaker struct {
	mu                  sync.Mutex
	threshold           int
	cooldown            time.Duration
	now                 func() time.Time
	consecutiveFailures int
	open                bool
	trial               bool
	lastFailureAt       time.Time
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments use
// the defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may go through now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return true
	}
	if cb.trial || cb.now().Sub(cb.lastFailureAt) < cb.cooldown {
		return false
	}
	cb.trial = true
	return true
}

// RecordSuccess closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
	cb.trial = false
}

// RecordFailure counts a failure and reports whether it tripped the breaker.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	cb.lastFailureAt = cb.now()
	cb.trial = false
	if cb.consecutiveFailures >= cb.threshold && !cb.open {
		cb.open = true
		return true
	}
	return false
}

// IsOpen reports whether the breaker has tripped.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// ConsecutiveFailures returns the current failure streak.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures
}
