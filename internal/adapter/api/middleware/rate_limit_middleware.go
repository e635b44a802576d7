package middleware

import (
	"math"

	"github.com/labstack/echo/v4"

	"b2bmarket/internal/infrastructure/ratelimit"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
)

// RateLimit throttles an action per authenticated user. It must run after
// Authenticate.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return errors.Unauthorized("Authentication required", nil)
			}

			allowed, wait := limiter.Allow(identity.UserID, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", identity.UserID, action, wait)
				return errors.TooManyRequests("Rate limit exceeded", int(math.Ceil(wait.Seconds())))
			}
			return next(c)
		}
	}
}

// PerIP throttles every request by client address.
func PerIP(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, wait := limiter.Allow(c.RealIP(), "api")
			if !allowed {
				return errors.TooManyRequests("Rate limit exceeded", int(math.Ceil(wait.Seconds())))
			}
			return next(c)
		}
	}
}
