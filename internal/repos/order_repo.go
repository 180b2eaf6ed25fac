package repos

import (
	"context"
	"fmt"
	"time"

	"feedshop/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	InvoiceID int64  `db:"invoice_id"`
	CreatedAt string `db:"created_at"`
}

type orderLineRow struct {
	InvoiceID int64 `db:"invoice_id"`
	domain.OrderLine
}

// Append inserts the order header and its lines atomically.
func (r *OrderRepo) Append(ctx context.Context, o domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders(invoice_id, created_at, total) VALUES (?, ?, ?)
	`, o.InvoiceID, o.Timestamp.UTC().Format(tsLayout), o.Total()); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit()
}

// Update rewrites the line set of an existing order.
func (r *OrderRepo) Update(ctx context.Context, o domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET total = ? WHERE invoice_id = ?`, o.Total(), o.InvoiceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", o.InvoiceID, domain.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE invoice_id = ?`, o.InvoiceID); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLines(ctx context.Context, tx *sqlx.Tx, o domain.Order) error {
	for i, l := range o.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines(invoice_id, line_no, product_id, name, unit_price, qty)
			VALUES (?, ?, ?, ?, ?, ?)
		`, o.InvoiceID, i, l.ProductID, l.Name, l.UnitPrice, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll returns every order ascending by invoice id. Totals are not read
// back; they are always recomputed from the lines.
func (r *OrderRepo) LoadAll(ctx context.Context) ([]domain.Order, error) {
	var heads []orderRow
	if err := r.db.SelectContext(ctx, &heads, `
		SELECT invoice_id, created_at FROM orders ORDER BY invoice_id
	`); err != nil {
		return nil, err
	}
	var lines []orderLineRow
	if err := r.db.SelectContext(ctx, &lines, `
		SELECT invoice_id, product_id, name, unit_price, qty
		FROM order_lines
		ORDER BY invoice_id, line_no
	`); err != nil {
		return nil, err
	}
	byInvoice := make(map[int64][]domain.OrderLine, len(heads))
	for _, l := range lines {
		byInvoice[l.InvoiceID] = append(byInvoice[l.InvoiceID], l.OrderLine)
	}

	out := make([]domain.Order, 0, len(heads))
	for _, h := range heads {
		ts, err := time.Parse(tsLayout, h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("order %d: bad created_at %q: %w", h.InvoiceID, h.CreatedAt, err)
		}
		out = append(out, domain.Order{InvoiceID: h.InvoiceID, Lines: byInvoice[h.InvoiceID], Timestamp: ts})
	}
	return out, nil
}
