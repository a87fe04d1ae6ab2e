package middleware

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/callendorph/mturkemu/internal/throttle"
)

// Throttle takes a token from the shared pool for the duration of each
// request. When the pool is empty the request is refused with the same
// envelope the rate limiter uses, so clients handle both identically.
func Throttle(tokens throttle.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := tokens.Acquire(c.Request().Context()); err != nil {
				if err != throttle.ErrThrottled {
					log.Warn("token acquire failed", "err", err)
				}
				return c.JSON(http.StatusTooManyRequests, throttledBody)
			}
			defer func() {
				if err := tokens.Release(c.Request().Context()); err != nil {
					log.Warn("token release failed", "err", err)
				}
			}()
			return next(c)
		}
	}
}
