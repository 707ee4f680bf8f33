// Package throttle provides a fixed-window attempt limiter for guessable
// credentials. Callers check before verifying, hit after every failure, and
// clear after a success so legitimate users never carry stale penalties.
package throttle

import (
	"context"
	"math"
	"time"
)

// Store persists attempt counters with a window TTL.
type Store interface {
	// Count returns the current attempt count for key and the time left in
	// its window. A key with no counter returns (0, 0, nil).
	Count(ctx context.Context, key string) (count int64, remaining time.Duration, err error)
	// Incr adds one attempt to key, starting the window on the first hit,
	// and returns the new count and the time left in the window.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error
}

// Result describes the limiter state for one key at one instant.
type Result struct {
	// Limit is the configured maximum attempts per window.
	Limit int
	// Attempts is the number of attempts recorded so far.
	Attempts int64
	// RetryAfter is how long until the window expires and attempts reset.
	RetryAfter time.Duration
}

// Limited reports whether the attempt budget is exhausted.
func (r Result) Limited() bool {
	return r.Attempts >= int64(r.Limit)
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, the
// shape expected by Retry-After response fields. Never below 1 when limited.
func (r Result) RetryAfterSeconds() int {
	secs := int(math.Ceil(r.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter applies a fixed-window policy on top of a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// NewLimiter constructs a Limiter allowing limit attempts per window.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{store: store, limit: limit, window: window}
}

// Check reads the current state for key without recording an attempt.
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	count, remaining, err := l.store.Count(ctx, key)
	if err != nil {
		return Result{}, err
	}

	return Result{Limit: l.limit, Attempts: count, RetryAfter: remaining}, nil
}

// Hit records one failed attempt against key.
func (l *Limiter) Hit(ctx context.Context, key string) (Result, error) {
	count, remaining, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}

	return Result{Limit: l.limit, Attempts: count, RetryAfter: remaining}, nil
}

// Clear forgets all attempts for key.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
