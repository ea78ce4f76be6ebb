// Package ratelimiter is an in-memory token bucket keyed by string, with an
// HTTP middleware that answers 429 once a key runs dry.
//
//	limiter, err := ratelimiter.New(ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 6 * time.Second,
//	})
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ByIPAndPath, nil)).Post("/login", h)
//
// A key starts full. Every refill interval adds RefillRate tokens up to
// Capacity. Buckets untouched for longer than the stale window are dropped
// lazily on access.
package ratelimiter
