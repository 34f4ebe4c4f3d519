package pipeline

import "time"

// RateLimiter is a small token bucket used to rate-limit WARN logging of
// OverrunWarning. It is not a general-purpose limiter; it exists for
// exactly this one call site.
type RateLimiter struct {
	every    time.Duration
	last     time.Time
	haveLast bool
	now      func() time.Time
}

// NewRateLimiter builds a limiter that allows at most one Allow() true
// result per every duration.
func NewRateLimiter(every time.Duration) *RateLimiter {
	return &RateLimiter{every: every, now: time.Now}
}

// Allow reports whether the caller may act now, and if so records that
// it did.
func (r *RateLimiter) Allow() bool {
	now := r.now()
	if !r.haveLast || now.Sub(r.last) >= r.every {
		r.last = now
		r.haveLast = true
		return true
	}
	return false
}
