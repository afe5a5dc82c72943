// Package ratelimit paces requests sent to a booru host.
//
// Two independent mechanisms are provided:
//
// Pacer:
//   - Fixed politeness delay between posts
//   - Interruptible through the context
//   - A zero delay disables waiting (used by tests)
//
// HostLimiter:
//   - Optional requests-per-minute cap per host
//   - Backed by golang.org/x/time/rate
//   - Disabled when the configured rate is zero
//
// Usage:
//
//	pacer := ratelimit.NewPacer(time.Second)
//	if err := pacer.Wait(ctx); err != nil {
//	    return err // interrupted
//	}
//
//	limiter := ratelimit.NewHostLimiter(30, 1)
//	if err := limiter.Wait(ctx, "example.booru.org"); err != nil {
//	    return err
//	}
package ratelimit
