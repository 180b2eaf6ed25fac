package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	applog "feedshop/internal/log"
	"feedshop/internal/services"
	"feedshop/internal/validate"
)

type AuthHandler struct {
	Gate services.AdminGate
}

type loginReq struct {
	Secret string `json:"secret" form:"secret"`
}

// POST /admin/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil || !validate.Secret(req.Secret) {
		applog.Security(c, "admin.login.fail", map[string]any{"reason": "malformed"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid secret"})
	}
	tok, exp, err := h.Gate.Login(req.Secret)
	if err != nil {
		applog.Security(c, "admin.login.fail", map[string]any{"reason": "mismatch"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid secret"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     adminCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	applog.Audit(c, "admin.login", map[string]any{"expires": exp.Format(time.RFC3339)})
	return c.JSON(fiber.Map{"ok": true, "expires": exp})
}

// POST /admin/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if tok := c.Cookies(adminCookie); tok != "" {
		h.Gate.Logout(tok)
		applog.Audit(c, "admin.logout", nil)
	}
	c.ClearCookie(adminCookie)
	return c.JSON(fiber.Map{"ok": true})
}
