package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/auth"
)

// PagesHandler renders placeholder pages behind the access gate.
type PagesHandler struct{}

// NewPagesHandler constructs handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Page returns a handler describing the named page and, when signed in, the viewer.
func (h *PagesHandler) Page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{"page": name, "path": c.Path()}
		if claims, ok := auth.ClaimsFromContext(c); ok {
			body["viewer"] = fiber.Map{
				"id":    claims.UserID,
				"email": claims.Email,
				"name":  claims.Name,
				"role":  claims.Role,
			}
		}
		return c.JSON(body)
	}
}
