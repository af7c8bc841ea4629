// Package ratelimit throttles gate verification attempts so short codes
// cannot be enumerated.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	// Allow records one hit for key and reports whether it fits within limit
	// hits per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}
