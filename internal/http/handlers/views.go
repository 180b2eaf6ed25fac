package handlers

import (
	"time"

	"feedshop/internal/domain"
)

type lineView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Amount    string `json:"amount"`
}

type orderView struct {
	InvoiceID int64      `json:"invoiceId"`
	Timestamp time.Time  `json:"timestamp"`
	Lines     []lineView `json:"lines"`
	Total     string     `json:"total"`
}

func toOrderView(o domain.Order) orderView {
	v := orderView{
		InvoiceID: o.InvoiceID,
		Timestamp: o.Timestamp,
		Lines:     make([]lineView, 0, len(o.Lines)),
		Total:     o.Total().StringFixed(2),
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, lineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Amount:    l.Amount().StringFixed(2),
		})
	}
	return v
}

func toCartLines(lines []domain.CartLine) []lineView {
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Amount:    l.Amount().StringFixed(2),
		})
	}
	return out
}
