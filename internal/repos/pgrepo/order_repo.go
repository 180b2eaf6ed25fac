package pgrepo

import (
	"context"
	"fmt"
	"time"

	"feedshop/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderRepo struct{ DB *pgxpool.Pool }

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo { return &OrderRepo{DB: db} }

func (r *OrderRepo) Append(ctx context.Context, o domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(invoice_id, created_at, total) VALUES ($1, $2, $3::numeric)
	`, o.InvoiceID, o.Timestamp.UTC(), o.Total().String()); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepo) Update(ctx context.Context, o domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `UPDATE orders SET total = $2::numeric WHERE invoice_id = $1`, o.InvoiceID, o.Total().String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", o.InvoiceID, domain.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE invoice_id = $1`, o.InvoiceID); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertLines(ctx context.Context, tx pgx.Tx, o domain.Order) error {
	for i, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(invoice_id, line_no, product_id, name, unit_price, qty)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
		`, o.InvoiceID, i, l.ProductID, l.Name, l.UnitPrice.String(), l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepo) LoadAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT invoice_id, created_at FROM orders ORDER BY invoice_id`)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	index := map[int64]int{}
	for rows.Next() {
		var (
			id int64
			ts time.Time
		)
		if err := rows.Scan(&id, &ts); err != nil {
			rows.Close()
			return nil, err
		}
		index[id] = len(out)
		out = append(out, domain.Order{InvoiceID: id, Timestamp: ts.UTC()})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.DB.Query(ctx, `
		SELECT invoice_id, product_id, name, unit_price::text, qty
		FROM order_lines
		ORDER BY invoice_id, line_no`)
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	for lines.Next() {
		var (
			id    int64
			l     domain.OrderLine
			price string
		)
		if err := lines.Scan(&id, &l.ProductID, &l.Name, &price, &l.Quantity); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].Lines = append(out[i].Lines, l)
		}
	}
	return out, lines.Err()
}

type Counter struct {
	DB   *pgxpool.Pool
	Name string
}

func NewInvoiceCounter(db *pgxpool.Pool) *Counter { return &Counter{DB: db, Name: "invoice"} }

func (c *Counter) Next(ctx context.Context) (int64, error) {
	var n int64
	err := c.DB.QueryRow(ctx, `
		INSERT INTO counters(name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, c.Name).Scan(&n)
	if err != nil {
		return 0, err
	}
	return domain.InvoiceBase + n, nil
}
