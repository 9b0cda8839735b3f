package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

const identityContextKey = "identity"

// Identity is the caller as conveyed by the trusted edge: an upstream
// layer authenticates users and forwards their identity via headers.
type Identity struct {
	UserID  string
	Email   string
	Premium bool
}

// IsAnonymous reports whether no user identity was forwarded
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// Class maps the identity to its rate-limit class
func (i Identity) Class() entities.UserClass {
	switch {
	case i.IsAnonymous():
		return entities.UserClassAnonymous
	case i.Premium:
		return entities.UserClassPremium
	default:
		return entities.UserClassUser
	}
}

// APIKeyAuth validates the shared X-API-KEY secret and extracts the
// forwarded user identity into the echo context.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get("X-API-KEY")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Missing or invalid API key",
				})
			}

			c.Set(identityContextKey, Identity{
				UserID:  c.Request().Header.Get("X-User-Id"),
				Email:   c.Request().Header.Get("X-User-Email"),
				Premium: c.Request().Header.Get("X-User-Premium") == "true",
			})

			return next(c)
		}
	}
}

// IdentityFrom retrieves the caller identity set by APIKeyAuth
func IdentityFrom(c echo.Context) Identity {
	if identity, ok := c.Get(identityContextKey).(Identity); ok {
		return identity
	}
	return Identity{}
}
