package repos

import (
	"context"

	"feedshop/internal/domain"

	"github.com/jmoiron/sqlx"
)

type CounterRepo struct {
	db   *sqlx.DB
	name string
}

func NewInvoiceCounter(db *sqlx.DB) *CounterRepo { return &CounterRepo{db: db, name: "invoice"} }

// Next bumps the issued count in place; the row is created by the initial
// migration, so a missing row is a schema problem rather than a first use.
func (r *CounterRepo) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `
		UPDATE counters SET value = value + 1
		WHERE name = ?
		RETURNING value
	`, r.name); err != nil {
		return 0, err
	}
	return domain.InvoiceBase + n, nil
}
