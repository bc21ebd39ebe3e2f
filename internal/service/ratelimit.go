package service

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second; zero disables limiting
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	MaxTokens  float64 // Maximum bucket capacity
	RefillRate float64 // Tokens added per second
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxTokens:  10,
		RefillRate: 2,
	}
}

// Unlimited reports whether the configuration disables pacing.
func (c RateLimiterConfig) Unlimited() bool {
	return c.RefillRate <= 0
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 1
	}
	return &RateLimiter{
		tokens:     cfg.MaxTokens,
		maxTokens:  cfg.MaxTokens,
		refillRate: cfg.RefillRate,
		lastRefill: time.Now(),
	}
}

// Acquire blocks until a token is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := r.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available, otherwise reports how long
// until the bucket holds one.
func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refillRate <= 0 {
		return 0, true
	}
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}
	deficit := 1 - r.tokens
	return time.Duration(deficit / r.refillRate * float64(time.Second)), false
}

// TryAcquire attempts to acquire a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	_, ok := r.reserve()
	return ok
}

// Available returns the current number of available tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return r.tokens
}

// refill adds tokens based on elapsed time. Callers hold mu.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	r.lastRefill = now

	r.tokens += elapsed.Seconds() * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// RateLimiterRegistry hands out one limiter per model backend so that
// concurrent batch workers share a backend's budget.
type RateLimiterRegistry struct {
	limiters map[string]*RateLimiter
	configs  map[string]RateLimiterConfig
	fallback RateLimiterConfig
	mu       sync.Mutex
}

// NewRateLimiterRegistry creates a registry whose backends default to cfg.
func NewRateLimiterRegistry(cfg RateLimiterConfig) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*RateLimiter),
		configs:  make(map[string]RateLimiterConfig),
		fallback: cfg,
	}
}

// Get returns the limiter for a backend, creating it on first use.
func (r *RateLimiterRegistry) Get(backend string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[backend]; ok {
		return limiter
	}
	cfg, ok := r.configs[backend]
	if !ok {
		cfg = r.fallback
	}
	limiter := NewRateLimiter(cfg)
	r.limiters[backend] = limiter
	return limiter
}

// SetConfig overrides the configuration for one backend.
func (r *RateLimiterRegistry) SetConfig(backend string, cfg RateLimiterConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[backend] = cfg
	r.limiters[backend] = NewRateLimiter(cfg)
}

// RateLimiterStatus contains status information.
type RateLimiterStatus struct {
	Available  float64
	MaxTokens  float64
	RefillRate float64
}

// Status returns the state of every limiter handed out so far.
func (r *RateLimiterRegistry) Status() map[string]RateLimiterStatus {
	r.mu.Lock()
	limiters := make(map[string]*RateLimiter, len(r.limiters))
	for name, l := range r.limiters {
		limiters[name] = l
	}
	r.mu.Unlock()

	status := make(map[string]RateLimiterStatus, len(limiters))
	for name, l := range limiters {
		status[name] = RateLimiterStatus{
			Available:  l.Available(),
			MaxTokens:  l.maxTokens,
			RefillRate: l.refillRate,
		}
	}
	return status
}

// List returns the backends with a limiter, sorted.
func (r *RateLimiterRegistry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
