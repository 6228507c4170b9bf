package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HostLimiter enforces a minimum delay between consecutive requests to the
// same host, to avoid tripping anti-scraping defenses.
type HostLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// NewHostLimiter creates a limiter enforcing minDelay per host. All fetches
// in a run share one instance.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to host.
// Returns an error only if the context is cancelled while waiting.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	last, ok := l.lastCall[host]
	now := time.Now()

	if !ok || now.Sub(last) >= l.minDelay {
		l.lastCall[host] = now
		l.mu.Unlock()
		return nil
	}

	remaining := l.minDelay - now.Sub(last)
	// Reserve the slot before sleeping so concurrent callers queue up
	// rather than all releasing at once.
	l.lastCall[host] = now.Add(remaining)
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("host limiter wait for %s: %w", host, ctx.Err())
	case <-time.After(remaining):
	}
	return nil
}
