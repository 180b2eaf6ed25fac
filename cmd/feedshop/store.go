package main

import (
	"context"
	"fmt"

	"feedshop/internal/config"
	"feedshop/internal/domain"
	"feedshop/internal/repos"
	"feedshop/internal/repos/mongorepo"
	"feedshop/internal/repos/pgrepo"
)

// store is the set of repositories one backend provides.
type store struct {
	products domain.ProductRepository
	orders   domain.OrderRepository
	invoices domain.InvoiceCounter
	close    func()
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	switch cfg.Backend {
	case "sqlite", "":
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return &store{
			products: repos.NewProductRepo(db),
			orders:   repos.NewOrderRepo(db),
			invoices: repos.NewInvoiceCounter(db),
			close:    func() { _ = db.Close() },
		}, nil
	case "postgres":
		pool, err := pgrepo.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &store{
			products: pgrepo.NewProductRepo(pool),
			orders:   pgrepo.NewOrderRepo(pool),
			invoices: pgrepo.NewInvoiceCounter(pool),
			close:    pool.Close,
		}, nil
	case "mongo":
		db, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.CreateIndexes(ctx, db); err != nil {
			return nil, err
		}
		return &store{
			products: mongorepo.NewProductRepo(db),
			orders:   mongorepo.NewOrderRepo(db),
			invoices: mongorepo.NewInvoiceCounter(db),
			close:    func() { _ = db.Client().Disconnect(context.Background()) },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
}
