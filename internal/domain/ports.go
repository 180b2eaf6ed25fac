package domain

import "context"

type ProductRepository interface {
	LoadAll(ctx context.Context) ([]Product, error)
	// Get returns ErrNotFound when id is absent.
	Get(ctx context.Context, id string) (Product, error)
	SaveAll(ctx context.Context, products []Product) error
	// Upsert inserts p, or rewrites the descriptive fields of an existing
	// row. Stored stock of an existing row is left alone; SwapStock owns it.
	Upsert(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	// SwapStock sets stock to next only if the stored value still equals
	// expected. It reports false (and no error) when the row did not match.
	SwapStock(ctx context.Context, id string, expected, next int) (bool, error)
}

type OrderRepository interface {
	Append(ctx context.Context, o Order) error
	LoadAll(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, o Order) error
}

// InvoiceCounter hands out persisted, strictly increasing invoice numbers.
type InvoiceCounter interface {
	Next(ctx context.Context) (int64, error)
}
