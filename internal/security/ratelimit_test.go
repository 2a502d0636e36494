package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 5})

	for i := range 5 {
		if err := rl.Allow(KindMessage); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}
	if err := rl.Allow(KindMessage); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{ToolCallsPerMin: 2})
	rl.now = func() time.Time { return now }

	_ = rl.Allow(KindToolCall)
	_ = rl.Allow(KindToolCall)
	if err := rl.Allow(KindToolCall); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(61 * time.Second)
	if err := rl.Allow(KindToolCall); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_KindsAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 1, ToolCallsPerMin: 1})

	if err := rl.Allow(KindMessage); err != nil {
		t.Fatal(err)
	}
	if err := rl.Allow(KindToolCall); err != nil {
		t.Fatalf("tool call limited by message bucket: %v", err)
	}
	if err := rl.Allow("other"); err != nil {
		t.Fatalf("unknown kind limited: %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	for range 60 {
		if err := rl.Allow(KindMessage); err != nil {
			t.Fatal(err)
		}
	}
	if err := rl.Allow(KindMessage); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit at default 60, got %v", err)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 50})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow(KindMessage) == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
