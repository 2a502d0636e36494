package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit kinds.
const (
	KindMessage  = "message"
	KindToolCall = "tool_call"
)

// RateLimitConfig holds per-minute limits for message sends and tool calls.
type RateLimitConfig struct {
	MessagesPerMin  int `yaml:"messages_per_min"`
	ToolCallsPerMin int `yaml:"tool_calls_per_min"`
}

func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		MessagesPerMin:  60,
		ToolCallsPerMin: 120,
	}
}

// RateLimiter implements sliding window rate limiting. Each bucket keeps
// the timestamps of the events inside its window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a rate limiter. Zero fields take defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := rateLimitConfigDefaults()
	if cfg.MessagesPerMin <= 0 {
		cfg.MessagesPerMin = defaults.MessagesPerMin
	}
	if cfg.ToolCallsPerMin <= 0 {
		cfg.ToolCallsPerMin = defaults.ToolCallsPerMin
	}

	return &RateLimiter{
		now: time.Now,
		buckets: map[string]*bucket{
			KindMessage:  {window: time.Minute, limit: cfg.MessagesPerMin},
			KindToolCall: {window: time.Minute, limit: cfg.ToolCallsPerMin},
		},
	}
}

// Allow records an event of kind and returns ErrRateLimited when the
// window is full. Unknown kinds are not limited.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)
	if len(b.events) >= b.limit {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// evict drops events outside the window. Events are chronological.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
