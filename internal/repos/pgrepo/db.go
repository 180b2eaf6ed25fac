package pgrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL CHECK (stock >= 0),
  image_url TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '',
  seq BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_seq ON products(seq);

CREATE TABLE IF NOT EXISTS orders(
  invoice_id BIGINT PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL,
  total NUMERIC(14,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_lines(
  invoice_id BIGINT NOT NULL REFERENCES orders(invoice_id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC(12,2) NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  PRIMARY KEY (invoice_id, line_no)
);

CREATE TABLE IF NOT EXISTS counters(
  name TEXT PRIMARY KEY,
  value BIGINT NOT NULL
);
`)
	return err
}
