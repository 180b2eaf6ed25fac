package redisx

const (
	// Issued invoice count; the invoice number is InvoiceBase + value.
	KeyInvoiceCounter = "feedshop:invoice:seq"
)
