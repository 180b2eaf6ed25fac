package handlers

import (
	"feedshop/internal/log"
	"feedshop/internal/services"
	"feedshop/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Catalog *services.Catalog
}

// GET /api/v1/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"products": h.Catalog.Views()})
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This item is no longer available"})
	}
	v, err := h.Catalog.View(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This item is no longer available"})
	}
	return c.JSON(v)
}
