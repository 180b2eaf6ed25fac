package services

import (
	"fmt"
	"strings"
	"time"

	"feedshop/internal/domain"

	"github.com/shopspring/decimal"
)

// Row is one order flattened for tables and CSV export.
type Row struct {
	InvoiceID int64           `json:"invoiceId"`
	Timestamp time.Time       `json:"timestamp"`
	Items     string          `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type Summary struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	Rows         []Row           `json:"rows"`
}

// Reports reads the ledger; it keeps no state of its own.
type Reports struct {
	Ledger *Ledger
}

func NewReports(l *Ledger) *Reports { return &Reports{Ledger: l} }

// Query returns orders with start <= timestamp <= end, by invoice.
func (r *Reports) Query(start, end time.Time) []domain.Order {
	var out []domain.Order
	for _, o := range r.Ledger.List() {
		if o.Timestamp.Before(start) || o.Timestamp.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Summarize totals the orders and flattens each into a Row.
func (*Reports) Summarize(orders []domain.Order) Summary {
	s := Summary{TotalRevenue: decimal.Zero, Rows: make([]Row, 0, len(orders))}
	for _, o := range orders {
		total := o.Total()
		s.TotalRevenue = s.TotalRevenue.Add(total)
		s.Rows = append(s.Rows, Row{
			InvoiceID: o.InvoiceID,
			Timestamp: o.Timestamp,
			Items:     itemsLabel(o.Lines),
			Total:     total,
		})
	}
	return s
}

func itemsLabel(lines []domain.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", l.Name, l.Quantity))
	}
	return strings.Join(parts, ", ")
}
