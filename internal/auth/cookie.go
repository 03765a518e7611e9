package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultCookieName carries the session token for page navigations.
const DefaultCookieName = "auth-token"

// SessionCookie writes and clears the session token cookie.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (s SessionCookie) name() string {
	if s.Name == "" {
		return DefaultCookieName
	}
	return s.Name
}

// Set stores token on the response.
func (s SessionCookie) Set(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(s.TTL.Seconds()),
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear expires the cookie on the client.
func (s SessionCookie) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Read returns the token carried by the request, if any.
func (s SessionCookie) Read(c *fiber.Ctx) string {
	return c.Cookies(s.name())
}
