package repos

import (
	"context"
	"database/sql"
	"errors"

	"feedshop/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, price, stock, image_url, details, seq`

func (r *ProductRepo) LoadAll(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products ORDER BY seq, id`)
	return out, err
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

// SaveAll upserts every product in a single transaction.
func (r *ProductRepo) SaveAll(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, p := range products {
		if _, err := tx.NamedExecContext(ctx, upsertProduct, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const upsertProduct = `
	INSERT INTO products(id, name, price, stock, image_url, details, seq)
	VALUES (:id, :name, :price, :stock, :image_url, :details, :seq)
	ON CONFLICT(id) DO UPDATE SET
	  name = excluded.name,
	  price = excluded.price,
	  image_url = excluded.image_url,
	  details = excluded.details`

func (r *ProductRepo) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.db.NamedExecContext(ctx, upsertProduct, p)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

// SwapStock is a conditional UPDATE: it only lands if nobody moved stock
// since the caller read it.
func (r *ProductRepo) SwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = ?
		WHERE id = ? AND stock = ?
	`, next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
