package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"feedshop/internal/domain"
	applog "feedshop/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxStockRetries bounds how often AdjustStock re-reads a product after
// losing a compare-and-set to another writer.
const maxStockRetries = 3

// Catalog is the source of truth for products and stock. Every mutation is
// written to the repository first and applied to the cache only once the
// write succeeded.
type Catalog struct {
	Repo domain.ProductRepository

	mu      sync.RWMutex
	order   []string
	byID    map[string]domain.Product
	held    map[string]int
	lastSeq int64
}

func NewCatalog(repo domain.ProductRepository) *Catalog {
	return &Catalog{
		Repo: repo,
		byID: map[string]domain.Product{},
		held: map[string]int{},
	}
}

// SeedProducts is the starter catalog written to an empty store.
func SeedProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Qora (Cow Feed)", Price: decimal.RequireFromString("25.00"), Stock: 50, Seq: 1,
			ImageURL: "https://via.placeholder.com/250x150?text=Qora"},
		{ID: "2", Name: "Vushi (Protein Mix)", Price: decimal.RequireFromString("35.00"), Stock: 30, Seq: 2,
			ImageURL: "https://via.placeholder.com/250x150?text=Vushi"},
		{ID: "3", Name: "Cow Supplement", Price: decimal.RequireFromString("15.00"), Stock: 20, Seq: 3,
			ImageURL: "https://via.placeholder.com/250x150?text=Cow+Supplement"},
	}
}

// Load replaces the cache with the repository contents, seeding the
// repository first when it is empty. Reservation counts are kept.
func (c *Catalog) Load(ctx context.Context) error {
	products, err := c.Repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		products = SeedProducts()
		if err := c.Repo.SaveAll(ctx, products); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		applog.Info(nil, "catalog.seed", map[string]any{"count": len(products)})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.byID = make(map[string]domain.Product, len(products))
	for _, p := range products {
		c.order = append(c.order, p.ID)
		c.byID[p.ID] = p
		if p.Seq > c.lastSeq {
			c.lastSeq = p.Seq
		}
	}
	return nil
}

func (c *Catalog) Get(id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// List returns products in insertion order.
func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func validProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidProduct)
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, d domain.ProductDraft) (domain.Product, error) {
	p := domain.Product{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(d.Name),
		Price:    d.Price.Round(2),
		Stock:    d.Stock,
		ImageURL: d.ImageURL,
		Details:  d.Details,
	}
	if err := validProduct(p); err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p.Seq = c.lastSeq + 1
	if err := c.Repo.Upsert(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	c.lastSeq = p.Seq
	c.order = append(c.order, p.ID)
	c.byID[p.ID] = p
	return p, nil
}

// Update rewrites a product's descriptive fields. Stock only changes when
// the patch names it, and then by compare-and-set against the stored value,
// so reservations made through another catalog sharing the store survive.
func (c *Catalog) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		p.Price = patch.Price.Round(2)
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.Details != nil {
		p.Details = *patch.Details
	}
	check := p
	if patch.Stock != nil {
		check.Stock = *patch.Stock
	}
	if err := validProduct(check); err != nil {
		return domain.Product{}, err
	}

	if patch.Stock != nil {
		if err := c.setStockLocked(ctx, id, *patch.Stock); err != nil {
			return domain.Product{}, err
		}
	}
	if err := c.Repo.Upsert(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	p.Stock = c.byID[id].Stock
	if fresh, err := c.Repo.Get(ctx, id); err == nil {
		p.Stock = fresh.Stock
	} else {
		applog.Error(nil, "catalog.stock.refresh", err, map[string]any{"product": id})
	}
	c.byID[id] = p
	return p, nil
}

// setStockLocked overwrites stored stock with an absolute value. The swap is
// made against a fresh read and retried like AdjustStock.
func (c *Catalog) setStockLocked(ctx context.Context, id string, stock int) error {
	for attempt := 0; ; attempt++ {
		fresh, err := c.Repo.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reload product: %w", err)
		}
		swapped, err := c.Repo.SwapStock(ctx, id, fresh.Stock, stock)
		if err != nil {
			return fmt.Errorf("swap stock: %w", err)
		}
		if swapped {
			p := c.byID[id]
			p.Stock = stock
			c.byID[id] = p
			return nil
		}
		if attempt >= maxStockRetries {
			return fmt.Errorf("product %s: %w", id, domain.ErrStockConflict)
		}
	}
}

// Remove deletes a product that no cart currently holds.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if n := c.held[id]; n > 0 {
		return fmt.Errorf("product %s (%d reserved): %w", id, n, domain.ErrInUse)
	}
	if err := c.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	delete(c.byID, id)
	delete(c.held, id)
	for i, pid := range c.order {
		if pid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// AdjustStock applies stock += delta. It is the only place stock changes
// outside of an admin edit.
func (c *Catalog) AdjustStock(ctx context.Context, id string, delta int) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adjustLocked(ctx, id, delta)
}

func (c *Catalog) adjustLocked(ctx context.Context, id string, delta int) (domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	for attempt := 0; ; attempt++ {
		next := p.Stock + delta
		if next < 0 {
			return domain.Product{}, fmt.Errorf("product %s has %d, need %d: %w", id, p.Stock, -delta, domain.ErrInsufficientStock)
		}
		swapped, err := c.Repo.SwapStock(ctx, id, p.Stock, next)
		if err != nil {
			return domain.Product{}, fmt.Errorf("swap stock: %w", err)
		}
		if swapped {
			p.Stock = next
			c.byID[id] = p
			return p, nil
		}
		if attempt >= maxStockRetries {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrStockConflict)
		}
		// Someone else moved the stored stock; pick up their value and retry.
		fresh, err := c.Repo.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return domain.Product{}, fmt.Errorf("reload product: %w", err)
		}
		applog.Info(nil, "catalog.stock.reload", map[string]any{"product": id, "cached": p.Stock, "stored": fresh.Stock})
		p.Stock = fresh.Stock
		c.byID[id] = p
	}
}

// Reserve takes qty out of stock on behalf of a cart line.
func (c *Catalog) Reserve(ctx context.Context, id string, qty int) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.adjustLocked(ctx, id, -qty)
	if err != nil {
		return domain.Product{}, err
	}
	c.held[id] += qty
	return p, nil
}

// Release hands reserved units back to stock.
func (c *Catalog) Release(ctx context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.adjustLocked(ctx, id, qty); err != nil {
		return err
	}
	c.dropHold(id, qty)
	return nil
}

// Consume ends a reservation without touching stock: the units left the
// shop with an order.
func (c *Catalog) Consume(id string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropHold(id, qty)
}

func (c *Catalog) dropHold(id string, qty int) {
	if c.held[id] <= qty {
		delete(c.held, id)
		return
	}
	c.held[id] -= qty
}

// Held reports how many units of a product are reserved by live carts.
func (c *Catalog) Held(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.held[id]
}
