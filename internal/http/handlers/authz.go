package handlers

import (
	applog "feedshop/internal/log"
	"feedshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

const adminCookie = "admin_token"

// RequireAdmin admits requests carrying a live admin capability token.
func RequireAdmin(gate services.AdminGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := c.Cookies(adminCookie)
		if !gate.Verify(tok) {
			applog.Security(c, "access.denied.admin", map[string]any{"has_token": tok != ""})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		c.Locals("admin", true)
		return c.Next()
	}
}
