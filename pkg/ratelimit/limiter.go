package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for per-host request limiting
type Limiter interface {
	// Wait blocks until a request to host is allowed or ctx is done
	Wait(ctx context.Context, host string) error
}

// Pacer enforces a fixed delay between consecutive posts
type Pacer struct {
	delay time.Duration
}

// NewPacer creates a pacer. A non-positive delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Wait sleeps for the configured delay or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HostLimiter caps the request rate for each host independently
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing requestsPerMinute per host.
// It returns nil when requestsPerMinute is not positive; a nil HostLimiter
// never blocks.
func NewHostLimiter(requestsPerMinute, burst int) *HostLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
	}
}

// Wait blocks until a request to host is allowed
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return ctx.Err()
	}
	return h.limiterFor(host).Wait(ctx)
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}
