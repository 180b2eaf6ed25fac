package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"feedshop/internal/services"
)

var csvHeader = []string{"invoice_id", "timestamp", "items", "total"}

// WriteCSV writes one row per order, timestamps in RFC 3339.
func WriteCSV(w io.Writer, s services.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range s.Rows {
		rec := []string{
			strconv.FormatInt(r.InvoiceID, 10),
			r.Timestamp.Format(time.RFC3339),
			r.Items,
			r.Total.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
