package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string          `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Stock    int             `db:"stock" json:"stock"`
	ImageURL string          `db:"image_url" json:"imageUrl"`
	Details  string          `db:"details" json:"details"`
	Seq      int64           `db:"seq" json:"-"`
}

// ProductDraft is the admin input for a new product.
type ProductDraft struct {
	Name     string
	Price    decimal.Decimal
	Stock    int
	ImageURL string
	Details  string
}

// ProductPatch carries optional field updates; nil fields are left alone.
type ProductPatch struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int
	ImageURL *string
	Details  *string
}

type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderLine struct {
	ProductID string          `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Quantity  int             `db:"qty" json:"quantity"`
}

func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a finalized checkout. The total is always derived from Lines.
type Order struct {
	InvoiceID int64       `json:"invoiceId"`
	Lines     []OrderLine `json:"lines"`
	Timestamp time.Time   `json:"timestamp"`
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

// Clone returns a copy whose Lines can be mutated without touching o.
func (o Order) Clone() Order {
	c := o
	c.Lines = append([]OrderLine(nil), o.Lines...)
	return c
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

func AvailabilityOf(stock int) Availability {
	status := "OUT_OF_STOCK"
	switch {
	case stock >= 5:
		status = "IN_STOCK"
	case stock > 0:
		status = "LOW_STOCK"
	}
	return Availability{Status: status, Qty: stock}
}

// InvoiceBase is added to the counter's issued count; the first invoice is 1000.
const InvoiceBase int64 = 999
