package handlers

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"feedshop/internal/export"
	applog "feedshop/internal/log"
	"feedshop/internal/services"
	"feedshop/internal/validate"
)

type OrderHandler struct {
	Sessions *services.Sessions
	Ledger   *services.Ledger
	Gate     services.AdminGate
	Shop     export.Shop

	// owners remembers which session checked out each invoice so receipts
	// are only shown to that shopper or to an admin.
	owners sync.Map
}

// POST /api/v1/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cart := h.Sessions.Cart(sid)
	o, err := h.Ledger.Checkout(c.UserContext(), cart, time.Now())
	if err != nil {
		return fail(c, "order.checkout", err, map[string]any{"sid": sid})
	}
	h.owners.Store(o.InvoiceID, sid)
	applog.Audit(c, "order.checkout", map[string]any{
		"invoice": o.InvoiceID,
		"lines":   len(o.Lines),
		"total":   o.Total().StringFixed(2),
	})
	v := toOrderView(o)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order":      v,
		"receiptUrl": "/receipt/" + strconv.FormatInt(o.InvoiceID, 10),
	})
}

func (h *OrderHandler) canSee(c *fiber.Ctx, invoice int64) bool {
	if owner, ok := h.owners.Load(invoice); ok && owner.(string) == c.Cookies(sidCookie) {
		return true
	}
	return h.Gate != nil && h.Gate.Verify(c.Cookies(adminCookie))
}

func (h *OrderHandler) receipt(c *fiber.Ctx) (string, int64, bool) {
	invoice, ok := validate.Invoice(c.Params("invoice"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "invoice"})
		return "", 0, false
	}
	o, err := h.Ledger.Get(invoice)
	if err != nil || !h.canSee(c, invoice) {
		applog.Security(c, "receipt.denied", map[string]any{"invoice": invoice})
		return "", 0, false
	}
	return export.Receipt(o, h.Shop, time.Local), invoice, true
}

// GET /receipt/:invoice
func (h *OrderHandler) Receipt(c *fiber.Ctx) error {
	text, _, ok := h.receipt(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Order not found")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(text)
}

// GET /receipt/:invoice/print
func (h *OrderHandler) Print(c *fiber.Ctx) error {
	text, invoice, ok := h.receipt(c)
	if !ok {
		return notFound(c, "Order not found")
	}
	return render(c, "receipt", fiber.Map{"Invoice": invoice, "Receipt": text, "Shop": h.Shop.Name})
}
