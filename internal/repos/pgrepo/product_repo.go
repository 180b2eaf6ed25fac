package pgrepo

import (
	"context"
	"errors"

	"feedshop/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ProductRepo struct{ DB *pgxpool.Pool }

func NewProductRepo(db *pgxpool.Pool) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = `id, name, price::text, stock, image_url, details, seq`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.ImageURL, &p.Details, &p.Seq); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = d
	return p, nil
}

func (r *ProductRepo) LoadAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY seq, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

const upsertProduct = `
	INSERT INTO products(id, name, price, stock, image_url, details, seq)
	VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
	  name = EXCLUDED.name,
	  price = EXCLUDED.price,
	  image_url = EXCLUDED.image_url,
	  details = EXCLUDED.details`

func upsertArgs(p domain.Product) []any {
	return []any{p.ID, p.Name, p.Price.String(), p.Stock, p.ImageURL, p.Details, p.Seq}
}

func (r *ProductRepo) SaveAll(ctx context.Context, products []domain.Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range products {
		if _, err := tx.Exec(ctx, upsertProduct, upsertArgs(p)...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProductRepo) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.DB.Exec(ctx, upsertProduct, upsertArgs(p)...)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *ProductRepo) SwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = $3 WHERE id = $1 AND stock = $2`, id, expected, next)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
