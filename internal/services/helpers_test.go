package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"feedshop/internal/domain"
	"feedshop/internal/events"
	"feedshop/internal/repos"
	"feedshop/internal/services"
)

type fixture struct {
	products *repos.ProductRepo
	orders   *repos.OrderRepo
	counter  *repos.CounterRepo
	catalog  *services.Catalog
	ledger   *services.Ledger
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		products: repos.NewProductRepo(db),
		orders:   repos.NewOrderRepo(db),
		counter:  repos.NewInvoiceCounter(db),
		events:   &recordingPublisher{},
	}
	f.catalog = services.NewCatalog(f.products)
	require.NoError(t, f.catalog.Load(context.Background()))
	f.ledger = services.NewLedger(f.orders, f.counter, f.catalog, f.events)
	require.NoError(t, f.ledger.Load(context.Background()))
	return f
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(id)
	require.NoError(t, err)
	return p.Stock
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var errDiskFull = errors.New("disk full")

// failingOrders wraps a real repository and fails the selected writes.
type failingOrders struct {
	domain.OrderRepository
	failAppend bool
	failUpdate bool
}

func (f *failingOrders) Append(ctx context.Context, o domain.Order) error {
	if f.failAppend {
		return errDiskFull
	}
	return f.OrderRepository.Append(ctx, o)
}

func (f *failingOrders) Update(ctx context.Context, o domain.Order) error {
	if f.failUpdate {
		return errDiskFull
	}
	return f.OrderRepository.Update(ctx, o)
}

// racingProducts simulates another process that changes stored stock just
// before each of the first `races` swaps.
type racingProducts struct {
	*repos.ProductRepo
	races int
	bump  int
	swaps int
}

func (r *racingProducts) SwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	r.swaps++
	if r.races > 0 {
		r.races--
		p, err := r.ProductRepo.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if _, err := r.ProductRepo.SwapStock(ctx, id, p.Stock, p.Stock+r.bump); err != nil {
			return false, err
		}
	}
	return r.ProductRepo.SwapStock(ctx, id, expected, next)
}

// brokenProducts fails every write.
type brokenProducts struct {
	*repos.ProductRepo
}

func (brokenProducts) Upsert(context.Context, domain.Product) error { return errDiskFull }
func (brokenProducts) Delete(context.Context, string) error          { return errDiskFull }
func (brokenProducts) SwapStock(context.Context, string, int, int) (bool, error) {
	return false, errDiskFull
}

// flakyProducts fails the next `fails` stock swaps for one product.
type flakyProducts struct {
	*repos.ProductRepo
	failID string
	fails  int
}

func (f *flakyProducts) SwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	if id == f.failID && f.fails > 0 {
		f.fails--
		return false, errDiskFull
	}
	return f.ProductRepo.SwapStock(ctx, id, expected, next)
}
