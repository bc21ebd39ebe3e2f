package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service"
)

// BackendObserver receives per-backend call outcomes.
type BackendObserver interface {
	BackendCalled(backend, task string, d time.Duration, err error)
	BackendFallback(from, to string, err error)
}

type nopBackendObserver struct{}

func (nopBackendObserver) BackendCalled(string, string, time.Duration, error) {}
func (nopBackendObserver) BackendFallback(string, string, error)              {}

// BreakerConfig enables per-backend circuit breakers. A zero Threshold
// disables them.
type BreakerConfig struct {
	Threshold int
	Cooldown  time.Duration
}

// ChainOptions configures a Chain. Zero values get working defaults.
type ChainOptions struct {
	Retry    *service.RetryPolicy
	Limits   *service.RateLimiterRegistry
	Logger   *logging.Logger
	Observer BackendObserver
	Breaker  BreakerConfig
}

// Chain is an ordered list of backends. Generate returns the first
// successful completion; each failure moves on to the next backend and is
// logged as a degraded-mode event. With breakers enabled, a backend that
// keeps failing is skipped until its cooldown passes; the last backend is
// always tried.
type Chain struct {
	backends []core.Model
	breakers []*CircuitBreaker
	retry    *service.RetryPolicy
	limits   *service.RateLimiterRegistry
	logger   *logging.Logger
	observer BackendObserver
}

// NewChain creates a chain over backends, tried in the given order.
func NewChain(backends []core.Model, opts ChainOptions) (*Chain, error) {
	if len(backends) == 0 {
		return nil, core.ErrValidation(core.CodeNoBackends, "model chain needs at least one backend")
	}
	if opts.Retry == nil {
		opts.Retry = service.DefaultRetryPolicy()
	}
	if opts.Limits == nil {
		opts.Limits = service.NewRateLimiterRegistry(service.RateLimiterConfig{})
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopBackendObserver{}
	}
	c := &Chain{
		backends: append([]core.Model{}, backends...),
		retry:    opts.Retry,
		limits:   opts.Limits,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if opts.Breaker.Threshold > 0 {
		c.breakers = make([]*CircuitBreaker, len(backends))
		for i := range backends {
			c.breakers[i] = NewCircuitBreaker(opts.Breaker.Threshold, opts.Breaker.Cooldown)
		}
	}
	return c, nil
}

// Name describes the chain, e.g. "openai>heuristic".
func (c *Chain) Name() string {
	return strings.Join(c.Backends(), ">")
}

// Backends returns the backend names in order.
func (c *Chain) Backends() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}

// Generate tries each backend in turn.
func (c *Chain) Generate(ctx context.Context, req core.ModelRequest) (string, error) {
	var lastErr error
	for i, b := range c.backends {
		last := i+1 == len(c.backends)
		breaker := c.breaker(i)
		if breaker != nil && !last && !breaker.Allow() {
			c.logger.WithBackend(b.Name()).Debug("backend skipped, circuit open", "task", req.Task)
			if lastErr == nil {
				lastErr = core.ErrCollaborator(core.CodeBackendUnavailable, b.Name()+" circuit open")
			}
			continue
		}

		out, err := c.call(ctx, b, req)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		if breaker != nil && breaker.RecordFailure() {
			c.logger.WithBackend(b.Name()).Warn("circuit opened",
				"failures", breaker.ConsecutiveFailures(),
				"error", err,
			)
		}

		if i+1 < len(c.backends) {
			next := c.backends[i+1].Name()
			c.logger.WithBackend(b.Name()).Warn("degraded",
				"task", req.Task,
				"fallback", next,
				"error", err,
			)
			c.observer.BackendFallback(b.Name(), next, err)
		}
	}
	return "", core.ErrCollaborator(core.CodeNoBackends,
		fmt.Sprintf("all backends failed (%s)", c.Name())).WithCause(lastErr)
}

func (c *Chain) breaker(i int) *CircuitBreaker {
	if c.breakers == nil {
		return nil
	}
	return c.breakers[i]
}

// call runs one backend under the retry policy and its rate limiter.
func (c *Chain) call(ctx context.Context, b core.Model, req core.ModelRequest) (string, error) {
	limiter := c.limits.Get(b.Name())
	start := time.Now()

	out, err := service.RetryValue(ctx, c.retry, func(ctx context.Context) (string, error) {
		if err := limiter.Acquire(ctx); err != nil {
			return "", err
		}
		out, err := b.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", core.ErrCollaborator(core.CodeEmptyOutput, b.Name()+" returned empty output")
		}
		return out, nil
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.WithBackend(b.Name()).Debug("backend call failed",
			"task", req.Task,
			"category", core.GetCategory(err),
			"error", err,
		)
	}
	c.observer.BackendCalled(b.Name(), req.Task, time.Since(start), err)
	return out, err
}
