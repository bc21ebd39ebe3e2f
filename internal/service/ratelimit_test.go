package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Acquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 3, RefillRate: 100})

	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}
	if got := limiter.Available(); got >= 1 {
		t.Errorf("Available() = %f, want < 1 after draining the bucket", got)
	}
}

func TestRateLimiter_TryAcquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})

	if !limiter.TryAcquire() {
		t.Fatal("first TryAcquire() should succeed")
	}
	if limiter.TryAcquire() {
		t.Fatal("second TryAcquire() should fail on an empty bucket")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 50})

	if !limiter.TryAcquire() {
		t.Fatal("expected initial token")
	}
	time.Sleep(40 * time.Millisecond)
	if !limiter.TryAcquire() {
		t.Fatal("expected bucket to refill after 40ms at 50 tokens/s")
	}
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.01})
	_ = limiter.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want deadline exceeded", err)
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	cfg := RateLimiterConfig{MaxTokens: 1, RefillRate: 0}
	if !cfg.Unlimited() {
		t.Fatal("zero refill rate should mean unlimited")
	}
	limiter := NewRateLimiter(cfg)
	for i := 0; i < 100; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("unlimited limiter refused token %d", i)
		}
	}
}

func TestRateLimiter_MaxTokensCap(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 2, RefillRate: 1000})
	time.Sleep(10 * time.Millisecond)
	if got := limiter.Available(); got > 2 {
		t.Errorf("Available() = %f, want <= 2", got)
	}
}

func TestRateLimiter_ConcurrentAcquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 5, RefillRate: 0.001})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Errorf("granted = %d, want 5", granted)
	}
}

func TestRateLimiterRegistry_Get(t *testing.T) {
	registry := NewRateLimiterRegistry(RateLimiterConfig{MaxTokens: 4, RefillRate: 1})

	a := registry.Get("openai")
	b := registry.Get("openai")
	if a != b {
		t.Fatal("expected the same limiter for the same backend")
	}
	if c := registry.Get("gemini"); c == a {
		t.Fatal("expected distinct limiters per backend")
	}

	names := registry.List()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "openai" {
		t.Errorf("List() = %v, want [gemini openai]", names)
	}
}

func TestRateLimiterRegistry_SetConfig(t *testing.T) {
	registry := NewRateLimiterRegistry(DefaultRateLimiterConfig())
	before := registry.Get("cli")

	registry.SetConfig("cli", RateLimiterConfig{MaxTokens: 1, RefillRate: 0.5})
	after := registry.Get("cli")

	if before == after {
		t.Fatal("SetConfig should replace the limiter")
	}
	status := registry.Status()["cli"]
	if status.MaxTokens != 1 || status.RefillRate != 0.5 {
		t.Errorf("status = %+v", status)
	}
}
