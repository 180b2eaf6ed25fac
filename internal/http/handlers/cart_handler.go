package handlers

import (
	"feedshop/internal/services"
	"feedshop/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	Sessions *services.Sessions
}

type addLineReq struct {
	ProductID string `json:"productId" form:"productId"`
	Qty       int    `json:"qty" form:"qty"`
}

type changeLineReq struct {
	Delta int `json:"delta" form:"delta"`
}

func (h *CartHandler) cart(c *fiber.Ctx) *services.Cart {
	return h.Sessions.Cart(ensureSID(c))
}

func cartBody(cart *services.Cart) fiber.Map {
	lines := cart.Lines()
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return fiber.Map{
		"lines": toCartLines(lines),
		"count": count,
		"total": cart.Total().StringFixed(2),
	}
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	return c.JSON(cartBody(h.cart(c)))
}

// POST /api/v1/cart/lines
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req addLineReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	productID, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, "productId", "missing productId")
	}
	qty, ok := validate.Qty(req.Qty)
	if !ok {
		return badRequest(c, "qty", "quantity must be between 1 and 100")
	}
	cart := h.cart(c)
	if err := cart.AddLine(c.UserContext(), productID, qty); err != nil {
		return fail(c, "cart.add", err, map[string]any{"product": productID, "qty": qty})
	}
	return c.Status(fiber.StatusCreated).JSON(cartBody(cart))
}

// PATCH /api/v1/cart/lines/:id
func (h *CartHandler) Change(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "productId", "invalid product")
	}
	var req changeLineReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	if req.Delta > validate.MaxQty || req.Delta < -validate.MaxQty {
		return badRequest(c, "delta", "delta out of range")
	}
	cart := h.cart(c)
	if err := cart.ChangeLineQuantity(c.UserContext(), productID, req.Delta); err != nil {
		return fail(c, "cart.change", err, map[string]any{"product": productID, "delta": req.Delta})
	}
	return c.JSON(cartBody(cart))
}

// DELETE /api/v1/cart/lines/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "productId", "invalid product")
	}
	cart := h.cart(c)
	if err := cart.RemoveLine(c.UserContext(), productID); err != nil {
		return fail(c, "cart.remove", err, map[string]any{"product": productID})
	}
	return c.JSON(cartBody(cart))
}
