package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"feedshop/internal/config"
	applog "feedshop/internal/log"
)

// ErrorHandler answers client errors with their message and everything
// else with a generic page, logging the cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	applog.Error(c, "server.error", err, nil)
	// Avoid leaking internals; best-effort render
	if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
		"Message": friendlyError,
	}); rerr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(friendlyError)
	}
	return nil
}

// NewApp assembles middleware and routes. Templates are read from
// cfg.Views.
func NewApp(deps *Deps, cfg config.Config) *fiber.App {
	engine := html.New(cfg.Views, ".html")
	engine.Reload(cfg.AppEnv != "production")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if cfg.AppEnv != "test" {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Storefront ----------
	api := app.Group("/api/v1")
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/:id", deps.ProductHandler.Detail)
	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/availability", availLimiter, deps.InventoryHandler.Check)

	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart/lines", deps.CartHandler.Add)
	api.Patch("/cart/lines/:id", deps.CartHandler.Change)
	api.Delete("/cart/lines/:id", deps.CartHandler.Remove)
	api.Post("/checkout", deps.OrderHandler.Checkout)

	app.Get("/receipt/:invoice", deps.OrderHandler.Receipt)
	app.Get("/receipt/:invoice/print", deps.OrderHandler.Print)

	// ---------- Admin ----------
	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/admin/logout", deps.AuthHandler.Logout)

	admin := app.Group("/admin", RequireAdmin(deps.Gate))
	admin.Post("/products", deps.AdminHandler.CreateProduct)
	admin.Put("/products/:id", deps.AdminHandler.UpdateProduct)
	admin.Delete("/products/:id", deps.AdminHandler.DeleteProduct)
	admin.Get("/orders", deps.AdminHandler.Orders)
	admin.Patch("/orders/:invoice/lines/:idx", deps.AdminHandler.EditOrderLine)
	admin.Delete("/orders/:invoice/lines/:idx", deps.AdminHandler.RemoveOrderLine)
	admin.Get("/reports", deps.AdminHandler.Report)
	admin.Get("/reports.csv", deps.AdminHandler.ReportCSV)
	admin.Get("/reports/view", deps.AdminHandler.ReportView)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}
