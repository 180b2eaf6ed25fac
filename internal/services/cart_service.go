package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feedshop/internal/domain"
	applog "feedshop/internal/log"

	"github.com/shopspring/decimal"
)

// Cart is one shopper's pending selection. Quantities in the cart are
// already out of catalog stock; every change goes through the catalog.
type Cart struct {
	catalog *Catalog

	mu      sync.Mutex
	lines   []domain.CartLine
	touched time.Time
	// dropped is set once the sweeper has returned every line to stock.
	dropped bool
}

func NewCart(catalog *Catalog) *Cart {
	return &Cart{catalog: catalog, touched: time.Now()}
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddLine reserves qty units and merges them into the product's line. The
// line keeps the unit price captured when it was first added.
func (c *Cart) AddLine(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("add %d: %w", qty, domain.ErrInvalidQuantity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(ctx, productID, qty)
}

func (c *Cart) addLocked(ctx context.Context, productID string, qty int) error {
	if c.dropped {
		return domain.ErrCartExpired
	}
	p, err := c.catalog.Reserve(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return fmt.Errorf("%w: %w", domain.ErrOutOfStock, err)
		}
		return err
	}
	c.touched = time.Now()
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity += qty
		return nil
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  qty,
	})
	return nil
}

// ChangeLineQuantity moves a line by delta. A positive delta on a product
// not in the cart adds it; a negative delta releases at most what the line
// holds and drops the line once it reaches zero.
func (c *Cart) ChangeLineQuantity(ctx context.Context, productID string, delta int) error {
	if delta == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if delta > 0 {
		return c.addLocked(ctx, productID, delta)
	}
	if i < 0 {
		return nil
	}
	release := -delta
	if release > c.lines[i].Quantity {
		release = c.lines[i].Quantity
	}
	if err := c.catalog.Release(ctx, productID, release); err != nil {
		return err
	}
	c.touched = time.Now()
	c.lines[i].Quantity -= release
	if c.lines[i].Quantity == 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return nil
}

// RemoveLine returns the whole line to stock. Removing a product that is
// not in the cart is a no-op.
func (c *Cart) RemoveLine(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	if err := c.catalog.Release(ctx, productID, c.lines[i].Quantity); err != nil {
		return err
	}
	c.touched = time.Now()
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// Clear empties the cart without touching stock. Checkout calls it once
// the reserved units belong to an order.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.touched = time.Now()
}

// retire returns every reserved unit to stock if the cart is still idle at
// now, then marks it dropped. Lines that fail to release stay in the cart
// for the next sweep.
func (c *Cart) retire(ctx context.Context, now time.Time, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return true, nil
	}
	if now.Sub(c.touched) <= ttl {
		return false, nil
	}
	for len(c.lines) > 0 {
		l := c.lines[0]
		if err := c.catalog.Release(ctx, l.ProductID, l.Quantity); err != nil {
			return false, err
		}
		c.lines = c.lines[1:]
	}
	c.dropped = true
	return true, nil
}

func (c *Cart) isDropped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Lines returns a copy of the cart lines in the order they were added.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Amount())
	}
	return total
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) lastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// Sessions maps session ids to carts and returns abandoned carts' stock.
type Sessions struct {
	Catalog *Catalog
	TTL     time.Duration

	mu    sync.Mutex
	carts map[string]*Cart
}

func NewSessions(catalog *Catalog, ttl time.Duration) *Sessions {
	return &Sessions{Catalog: catalog, TTL: ttl, carts: map[string]*Cart{}}
}

// Cart returns the cart for sid, creating it on first use or when the
// previous one was swept.
func (s *Sessions) Cart(sid string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sid]
	if !ok || c.isDropped() {
		c = NewCart(s.Catalog)
		s.carts[sid] = c
	}
	return c
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// Sweep releases and forgets carts idle for longer than TTL. A cart stays
// registered until all of its lines are back in stock, so a failed release
// is retried on the next sweep. It returns how many carts were dropped.
func (s *Sessions) Sweep(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var stale []string
	for sid, c := range s.carts {
		if now.Sub(c.lastTouched()) > s.TTL {
			stale = append(stale, sid)
		}
	}
	s.mu.Unlock()

	dropped := 0
	for _, sid := range stale {
		s.mu.Lock()
		c, ok := s.carts[sid]
		s.mu.Unlock()
		if !ok {
			continue
		}
		done, err := c.retire(ctx, now, s.TTL)
		if err != nil {
			applog.Error(nil, "cart.sweep.release", err, map[string]any{"sid": sid})
			continue
		}
		if !done {
			continue
		}
		s.mu.Lock()
		if s.carts[sid] == c {
			delete(s.carts, sid)
		}
		s.mu.Unlock()
		dropped++
	}
	return dropped
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Sweep(ctx, now); n > 0 {
				applog.Info(nil, "cart.sweep", map[string]any{"dropped": n})
			}
		}
	}
}
