package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"feedshop/internal/domain"
	"feedshop/internal/events"
	applog "feedshop/internal/log"
)

// Ledger is the record of finalized orders.
type Ledger struct {
	Orders   domain.OrderRepository
	Invoices domain.InvoiceCounter
	Catalog  *Catalog
	Events   events.Publisher

	mu     sync.RWMutex
	orders []domain.Order
	index  map[int64]int
}

func NewLedger(orders domain.OrderRepository, invoices domain.InvoiceCounter, catalog *Catalog, pub events.Publisher) *Ledger {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Ledger{
		Orders:   orders,
		Invoices: invoices,
		Catalog:  catalog,
		Events:   pub,
		index:    map[int64]int{},
	}
}

func (l *Ledger) Load(ctx context.Context) error {
	all, err := l.Orders.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].InvoiceID < all[j].InvoiceID })

	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = all
	l.index = make(map[int64]int, len(all))
	for i, o := range all {
		l.index[o.InvoiceID] = i
	}
	return nil
}

// Checkout turns the cart into an order. The order is persisted before the
// cart is cleared; if persisting fails the cart keeps its lines and its
// reservations. An invoice number drawn for a failed checkout is not reused.
func (l *Ledger) Checkout(ctx context.Context, cart *Cart, ts time.Time) (domain.Order, error) {
	cart.mu.Lock()
	defer cart.mu.Unlock()
	if len(cart.lines) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	id, err := l.Invoices.Next(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("next invoice: %w", err)
	}
	order := domain.Order{
		InvoiceID: id,
		Timestamp: ts,
		Lines:     make([]domain.OrderLine, 0, len(cart.lines)),
	}
	for _, cl := range cart.lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: cl.ProductID,
			Name:      cl.Name,
			UnitPrice: cl.UnitPrice,
			Quantity:  cl.Quantity,
		})
	}

	l.mu.Lock()
	if err := l.Orders.Append(ctx, order); err != nil {
		l.mu.Unlock()
		return domain.Order{}, fmt.Errorf("append order %d: %w", id, err)
	}
	l.index[order.InvoiceID] = len(l.orders)
	l.orders = append(l.orders, order.Clone())
	l.mu.Unlock()

	for _, ol := range order.Lines {
		l.Catalog.Consume(ol.ProductID, ol.Quantity)
	}
	cart.lines = nil
	cart.touched = time.Now()

	l.publish(ctx, events.TypeOrderFinalized, order)
	return order, nil
}

// LastInvoice is the highest invoice number on record, or 0 when the
// ledger is empty.
func (l *Ledger) LastInvoice() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.orders) == 0 {
		return 0
	}
	return l.orders[len(l.orders)-1].InvoiceID
}

// List returns every order, oldest invoice first.
func (l *Ledger) List() []domain.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

func (l *Ledger) Get(invoiceID int64) (domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[invoiceID]
	if !ok {
		return domain.Order{}, fmt.Errorf("invoice %d: %w", invoiceID, domain.ErrNotFound)
	}
	return l.orders[i].Clone(), nil
}

// EditLineQuantity corrects the quantity on one line of a finalized order.
// Catalog stock is not touched.
func (l *Ledger) EditLineQuantity(ctx context.Context, invoiceID int64, line, qty int) (domain.Order, error) {
	if qty < 1 {
		return domain.Order{}, fmt.Errorf("quantity %d: %w", qty, domain.ErrInvalidQuantity)
	}
	return l.edit(ctx, invoiceID, line, func(o *domain.Order) {
		o.Lines[line].Quantity = qty
	})
}

// RemoveLine drops one line of a finalized order. An order may end up with
// no lines; it is kept with a zero total.
func (l *Ledger) RemoveLine(ctx context.Context, invoiceID int64, line int) (domain.Order, error) {
	return l.edit(ctx, invoiceID, line, func(o *domain.Order) {
		o.Lines = append(o.Lines[:line], o.Lines[line+1:]...)
	})
}

func (l *Ledger) edit(ctx context.Context, invoiceID int64, line int, apply func(*domain.Order)) (domain.Order, error) {
	l.mu.Lock()
	i, ok := l.index[invoiceID]
	if !ok {
		l.mu.Unlock()
		return domain.Order{}, fmt.Errorf("invoice %d: %w", invoiceID, domain.ErrNotFound)
	}
	if line < 0 || line >= len(l.orders[i].Lines) {
		l.mu.Unlock()
		return domain.Order{}, fmt.Errorf("invoice %d line %d: %w", invoiceID, line, domain.ErrNotFound)
	}
	staged := l.orders[i].Clone()
	apply(&staged)
	if err := l.Orders.Update(ctx, staged); err != nil {
		l.mu.Unlock()
		return domain.Order{}, fmt.Errorf("update order %d: %w", invoiceID, err)
	}
	l.orders[i] = staged
	l.mu.Unlock()

	out := staged.Clone()
	l.publish(ctx, events.TypeOrderEdited, out)
	return out, nil
}

func (l *Ledger) publish(ctx context.Context, typ string, o domain.Order) {
	if err := l.Events.Publish(ctx, events.NewOrderEvent(typ, o)); err != nil {
		applog.Error(nil, "ledger.publish", err, map[string]any{"invoice": o.InvoiceID, "type": typ})
	}
}
