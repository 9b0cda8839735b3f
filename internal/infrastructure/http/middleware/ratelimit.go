package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/usecase/ratelimit"
)

// RateLimit enforces the limiter for one action. Denied requests get a 429
// with reset metadata; allowed requests are recorded and annotated with
// X-RateLimit-* headers.
func RateLimit(limiter *ratelimit.Service, action entities.RateAction, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFrom(c)
			identifier := RateIdentifier(c)

			decision := limiter.Check(c.Request().Context(), identifier, action, identity.Class())

			if decision.Limit >= 0 {
				c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many requests, try again later",
					"limit":   decision.Limit,
					"window":  decision.Window,
					"resetAt": decision.ResetAt.UTC(),
				})
			}

			if err := limiter.Record(c.Request().Context(), identifier, action); err != nil {
				// Recording failures never block the request.
				logger.Warn("ratelimit.record_failed",
					zap.String("identifier", identifier),
					zap.Error(err),
				)
			}

			if decision.Remaining > 0 {
				c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining-1))
			} else if decision.Remaining == 0 {
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
			}

			return next(c)
		}
	}
}
