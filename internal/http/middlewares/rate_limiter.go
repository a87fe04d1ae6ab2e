package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// throttledBody mirrors the requester API error envelope so throttled
// clients see the same shape as every other error.
var throttledBody = map[string]string{
	"__type":        "com.amazonaws.mturk.requester.v20170117#RequestError",
	"Message":       "You have exceeded the rate limit; retry after a delay",
	"TurkErrorCode": "AWS.MechanicalTurk.ThrottledException",
}

// RateLimiter caps requests per caller IP within a fixed window.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	type bucket struct {
		count int
		start time.Time
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			key := c.RealIP()

			mu.Lock()
			b, ok := buckets[key]
			if !ok || now.Sub(b.start) > window {
				b = &bucket{start: now}
				buckets[key] = b
			}

			if b.count >= limit {
				mu.Unlock()
				return c.JSON(http.StatusTooManyRequests, throttledBody)
			}

			b.count++
			mu.Unlock()

			return next(c)
		}
	}
}
