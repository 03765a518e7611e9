package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Gate guards page routes using the session cookie.
type Gate struct {
	tokens *TokenManager
	cookie SessionCookie
	logger *zap.Logger
}

// NewGate builds the page access gate.
func NewGate(tokens *TokenManager, cookie SessionCookie, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, cookie: cookie, logger: logger}
}

// Handle redirects anonymous callers to login and callers without the
// required role to the unauthorized page.
func (g *Gate) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if IsPublic(path) {
		if claims, ok := g.tokens.Verify(g.cookie.Read(c)); ok {
			c.Locals(claimsKey, claims)
		}
		return c.Next()
	}

	token := g.cookie.Read(c)
	if token == "" {
		return c.Redirect(LoginPath, fiber.StatusTemporaryRedirect)
	}

	claims, ok := g.tokens.Verify(token)
	if !ok {
		g.cookie.Clear(c)
		return c.Redirect(LoginPath, fiber.StatusTemporaryRedirect)
	}

	if !IsAllowed(claims.Role, path) {
		g.logger.Info("role not allowed for route",
			zap.String("role", string(claims.Role)),
			zap.String("path", path),
			zap.String("user_id", claims.UserID))
		return c.Redirect(UnauthorizedPath, fiber.StatusTemporaryRedirect)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}
