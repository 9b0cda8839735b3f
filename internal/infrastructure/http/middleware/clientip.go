package middleware

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP resolves the caller address from forwarded headers in trust
// order: Cloudflare, first X-Forwarded-For hop, X-Real-IP, socket peer.
func ClientIP(c echo.Context) string {
	r := c.Request()

	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.Split(fwd, ",")[0]
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateIdentifier derives the rate-limit identifier for a request:
// authenticated callers key on user id, anonymous callers on client IP.
func RateIdentifier(c echo.Context) string {
	identity := IdentityFrom(c)
	if !identity.IsAnonymous() {
		return "user:" + identity.UserID
	}
	return "ip:" + ClientIP(c)
}
