package ratelimit

import (
	"context"
	"time"
)

// loginWindow is the fixed window size for login attempt counting.
const loginWindow = time.Minute

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts login attempts per key within a fixed one-minute window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}
