package handlers

import (
	"github.com/gofiber/fiber/v2"

	"feedshop/internal/services"
	"feedshop/internal/validate"
)

type InventoryHandler struct {
	Catalog *services.Catalog
}

// GET /api/v1/availability?productId=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Query("productId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing productId",
		})
	}
	avail, err := h.Catalog.Availability(productID)
	if err != nil {
		return fail(c, "availability", err, map[string]any{"product": productID})
	}
	return c.JSON(avail)
}
