// Package export renders ledger data for printing and spreadsheets.
package export

import (
	"fmt"
	"strings"
	"time"

	"feedshop/internal/domain"
)

// Shop is the banner printed at the top of every receipt.
type Shop struct {
	Name    string
	Tagline string
}

const (
	receiptWidth = 29
	nameWidth    = 20
)

var rule = strings.Repeat("-", receiptWidth)

func center(s string) string {
	if pad := (receiptWidth - len(s)) / 2; pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}

// Receipt renders a fixed-width receipt for one order. Times are printed
// in loc; a nil loc means the order's own location.
func Receipt(o domain.Order, shop Shop, loc *time.Location) string {
	ts := o.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}

	var b strings.Builder
	b.WriteString(center(shop.Name) + "\n")
	if shop.Tagline != "" {
		b.WriteString(center(shop.Tagline) + "\n")
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Invoice #: %d\n", o.InvoiceID)
	fmt.Fprintf(&b, "Date: %s Time: %s\n", ts.Format("1/2/2006"), ts.Format("3:04:05 PM"))
	b.WriteString(rule + "\n")
	b.WriteString("Product             Price   Qty   Total\n")
	b.WriteString(rule + "\n")
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "%-*s $%6s x%3d = $%6s\n",
			nameWidth, l.Name, l.UnitPrice.StringFixed(2), l.Quantity, l.Amount().StringFixed(2))
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Grand Total: $%s\n", o.Total().StringFixed(2))
	b.WriteString(rule + "\n")
	return b.String()
}
