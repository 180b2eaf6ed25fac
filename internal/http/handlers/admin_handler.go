package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"feedshop/internal/domain"
	"feedshop/internal/export"
	applog "feedshop/internal/log"
	"feedshop/internal/services"
	"feedshop/internal/validate"
)

type AdminHandler struct {
	Catalog *services.Catalog
	Ledger  *services.Ledger
	Reports *services.Reports
}

type productReq struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock"`
	ImageURL *string          `json:"imageUrl"`
	Details  *string          `json:"details"`
}

// patch checks the fields that are present and converts them. On failure
// it names the offending field and a message for the client.
func (r productReq) patch() (domain.ProductPatch, string, string) {
	var p domain.ProductPatch
	if r.Name != nil {
		n, ok := validate.Name(*r.Name)
		if !ok {
			return p, "name", "name must be 1-60 characters"
		}
		p.Name = &n
	}
	if r.Price != nil {
		if !validate.Price(*r.Price) {
			return p, "price", "price must be between 0 and 999999.99"
		}
		p.Price = r.Price
	}
	if r.ImageURL != nil {
		u, ok := validate.URL(*r.ImageURL)
		if !ok {
			return p, "imageUrl", "image URL too long"
		}
		p.ImageURL = &u
	}
	p.Stock = r.Stock
	p.Details = r.Details
	return p, "", ""
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req productReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	if req.Name == nil || req.Price == nil {
		return badRequest(c, "product", "name and price are required")
	}
	patch, field, msg := req.patch()
	if field != "" {
		return badRequest(c, field, msg)
	}
	d := domain.ProductDraft{Name: *patch.Name, Price: *patch.Price}
	if patch.Stock != nil {
		d.Stock = *patch.Stock
	}
	if patch.ImageURL != nil {
		d.ImageURL = *patch.ImageURL
	}
	if patch.Details != nil {
		d.Details = *patch.Details
	}
	p, err := h.Catalog.Create(c.UserContext(), d)
	if err != nil {
		return fail(c, "admin.product.create", err, map[string]any{"name": d.Name})
	}
	applog.Audit(c, "admin.product.create", map[string]any{"product": p.ID, "price": p.Price.StringFixed(2), "stock": p.Stock})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /admin/products/:id
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product", "invalid product")
	}
	var req productReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	patch, field, msg := req.patch()
	if field != "" {
		return badRequest(c, field, msg)
	}
	p, err := h.Catalog.Update(c.UserContext(), id, patch)
	if err != nil {
		return fail(c, "admin.product.update", err, map[string]any{"product": id})
	}
	applog.Audit(c, "admin.product.update", map[string]any{"product": id, "price": p.Price.StringFixed(2), "stock": p.Stock})
	return c.JSON(p)
}

// DELETE /admin/products/:id
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product", "invalid product")
	}
	if err := h.Catalog.Remove(c.UserContext(), id); err != nil {
		return fail(c, "admin.product.delete", err, map[string]any{"product": id})
	}
	applog.Audit(c, "admin.product.delete", map[string]any{"product": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /admin/orders
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	orders := h.Ledger.List()
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return c.JSON(fiber.Map{"orders": out})
}

func orderLineParams(c *fiber.Ctx) (int64, int, bool) {
	invoice, ok := validate.Invoice(c.Params("invoice"))
	if !ok {
		return 0, 0, false
	}
	idx, ok := validate.Index(c.Params("idx"))
	return invoice, idx, ok
}

type editLineReq struct {
	Qty int `json:"qty" form:"qty"`
}

// PATCH /admin/orders/:invoice/lines/:idx
func (h *AdminHandler) EditOrderLine(c *fiber.Ctx) error {
	invoice, idx, ok := orderLineParams(c)
	if !ok {
		return badRequest(c, "order", "invalid invoice or line")
	}
	var req editLineReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	o, err := h.Ledger.EditLineQuantity(c.UserContext(), invoice, idx, req.Qty)
	if err != nil {
		return fail(c, "admin.order.edit", err, map[string]any{"invoice": invoice, "line": idx, "qty": req.Qty})
	}
	applog.Audit(c, "admin.order.edit", map[string]any{"invoice": invoice, "line": idx, "qty": req.Qty, "total": o.Total().StringFixed(2)})
	return c.JSON(toOrderView(o))
}

// DELETE /admin/orders/:invoice/lines/:idx
func (h *AdminHandler) RemoveOrderLine(c *fiber.Ctx) error {
	invoice, idx, ok := orderLineParams(c)
	if !ok {
		return badRequest(c, "order", "invalid invoice or line")
	}
	o, err := h.Ledger.RemoveLine(c.UserContext(), invoice, idx)
	if err != nil {
		return fail(c, "admin.order.remove_line", err, map[string]any{"invoice": invoice, "line": idx})
	}
	applog.Audit(c, "admin.order.remove_line", map[string]any{"invoice": invoice, "line": idx, "total": o.Total().StringFixed(2)})
	return c.JSON(toOrderView(o))
}

// reportRange reads ?from=&to= as calendar days in local time. The end day
// is widened to its last instant so orders placed that day are included.
func reportRange(c *fiber.Ctx) (time.Time, time.Time, bool) {
	start := time.Time{}
	end := time.Now()
	if s := c.Query("from"); s != "" {
		d, ok := validate.Date(s, time.Local)
		if !ok {
			return start, end, false
		}
		start = d
	}
	if s := c.Query("to"); s != "" {
		d, ok := validate.Date(s, time.Local)
		if !ok {
			return start, end, false
		}
		end = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, !end.Before(start)
}

type rowView struct {
	InvoiceID int64     `json:"invoiceId"`
	Timestamp time.Time `json:"timestamp"`
	When      string    `json:"-"`
	Items     string    `json:"items"`
	Total     string    `json:"total"`
}

func toRowViews(rows []services.Row) []rowView {
	out := make([]rowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowView{
			InvoiceID: r.InvoiceID,
			Timestamp: r.Timestamp,
			When:      r.Timestamp.In(time.Local).Format("2006-01-02 15:04"),
			Items:     r.Items,
			Total:     r.Total.StringFixed(2),
		})
	}
	return out
}

func (h *AdminHandler) summary(c *fiber.Ctx) (services.Summary, bool) {
	start, end, ok := reportRange(c)
	if !ok {
		return services.Summary{}, false
	}
	return h.Reports.Summarize(h.Reports.Query(start, end)), true
}

// GET /admin/reports
func (h *AdminHandler) Report(c *fiber.Ctx) error {
	s, ok := h.summary(c)
	if !ok {
		return badRequest(c, "range", "dates must be YYYY-MM-DD with from <= to")
	}
	return c.JSON(fiber.Map{
		"totalRevenue": s.TotalRevenue.StringFixed(2),
		"rows":         toRowViews(s.Rows),
	})
}

// GET /admin/reports.csv
func (h *AdminHandler) ReportCSV(c *fiber.Ctx) error {
	s, ok := h.summary(c)
	if !ok {
		return badRequest(c, "range", "dates must be YYYY-MM-DD with from <= to")
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s); err != nil {
		return fail(c, "admin.report.csv", err, nil)
	}
	applog.Audit(c, "admin.report.export", map[string]any{"rows": len(s.Rows)})
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="sales_report.csv"`)
	return c.Send(buf.Bytes())
}

// GET /admin/reports/view
func (h *AdminHandler) ReportView(c *fiber.Ctx) error {
	s, ok := h.summary(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Pick a valid date range"})
	}
	return render(c, "report", fiber.Map{
		"Rows":  toRowViews(s.Rows),
		"Total": s.TotalRevenue.StringFixed(2),
		"From":  c.Query("from"),
		"To":    c.Query("to"),
	})
}
