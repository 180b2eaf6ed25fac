package services_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedshop/internal/domain"
	"feedshop/internal/services"
)

func TestCart_AddThenRemoveRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := services.NewCart(f.catalog)

	require.NoError(t, cart.AddLine(ctx, "1", 3))
	assert.Equal(t, 47, f.stock(t, "1"))
	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "Qora (Cow Feed)", lines[0].Name)

	require.NoError(t, cart.RemoveLine(ctx, "1"))
	assert.Equal(t, 50, f.stock(t, "1"))
	assert.True(t, cart.Empty())

	require.NoError(t, cart.RemoveLine(ctx, "1"), "removing twice is a no-op")
	assert.Equal(t, 50, f.stock(t, "1"))
}

func TestCart_AddMoreThanStock(t *testing.T) {
	f := newFixture(t)
	cart := services.NewCart(f.catalog)

	err := cart.AddLine(context.Background(), "2", 1000)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 30, f.stock(t, "2"))
	assert.True(t, cart.Empty())
	assert.Equal(t, 0, f.catalog.Held("2"))
}

func TestCart_AddRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := services.NewCart(f.catalog)

	assert.ErrorIs(t, cart.AddLine(ctx, "1", 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddLine(ctx, "1", -4), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddLine(ctx, "missing", 1), domain.ErrNotFound)
	assert.True(t, cart.Empty())
	assert.Equal(t, 50, f.stock(t, "1"))
}

func TestCart_MergesLinesAndKeepsFirstPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := services.NewCart(f.catalog)

	require.NoError(t, cart.AddLine(ctx, "2", 1))
	newPrice := decimal.RequireFromString("40.00")
	_, err := f.catalog.Update(ctx, "2", domain.ProductPatch{Price: &newPrice})
	require.NoError(t, err)
	require.NoError(t, cart.AddLine(ctx, "2", 2))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "35.00", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "105.00", cart.Total().StringFixed(2))
}

func TestCart_ChangeLineQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := services.NewCart(f.catalog)

	require.NoError(t, cart.ChangeLineQuantity(ctx, "1", 0))
	require.NoError(t, cart.ChangeLineQuantity(ctx, "1", -2))
	assert.True(t, cart.Empty())
	assert.Equal(t, 50, f.stock(t, "1"))

	require.NoError(t, cart.ChangeLineQuantity(ctx, "1", 4))
	assert.Equal(t, 46, f.stock(t, "1"))

	require.NoError(t, cart.ChangeLineQuantity(ctx, "1", -1))
	assert.Equal(t, 3, cart.Lines()[0].Quantity)
	assert.Equal(t, 47, f.stock(t, "1"))

	require.NoError(t, cart.ChangeLineQuantity(ctx, "1", -10))
	assert.True(t, cart.Empty())
	assert.Equal(t, 50, f.stock(t, "1"))
	assert.Equal(t, 0, f.catalog.Held("1"))

	err := cart.ChangeLineQuantity(ctx, "3", 21)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, 20, f.stock(t, "3"))
}

func TestCart_StockPlusReservedIsConstant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := services.NewCart(f.catalog)
	rng := rand.New(rand.NewSource(7))
	initial := map[string]int{"1": 50, "3": 20}
	ids := []string{"1", "3"}

	for i := 0; i < 300; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			_ = cart.AddLine(ctx, id, rng.Intn(12)-1)
		case 1:
			_ = cart.ChangeLineQuantity(ctx, id, rng.Intn(16)-8)
		case 2:
			if rng.Intn(4) == 0 {
				_ = cart.RemoveLine(ctx, id)
			}
		}

		reserved := map[string]int{}
		for _, l := range cart.Lines() {
			reserved[l.ProductID] += l.Quantity
		}
		for _, pid := range ids {
			s := f.stock(t, pid)
			require.GreaterOrEqual(t, s, 0)
			require.Equal(t, initial[pid], s+reserved[pid], "step %d product %s", i, pid)
			require.Equal(t, reserved[pid], f.catalog.Held(pid))
		}
	}
}

func TestSessions_SameCartPerSession(t *testing.T) {
	f := newFixture(t)
	s := services.NewSessions(f.catalog, time.Minute)

	a := s.Cart("sid-a")
	assert.Same(t, a, s.Cart("sid-a"))
	assert.NotSame(t, a, s.Cart("sid-b"))
	assert.Equal(t, 2, s.Len())
}

func TestSessions_SweepReleasesIdleCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := services.NewSessions(f.catalog, 30*time.Minute)

	require.NoError(t, s.Cart("idle").AddLine(ctx, "1", 5))
	require.NoError(t, s.Cart("idle").AddLine(ctx, "2", 2))
	require.NoError(t, s.Cart("busy").AddLine(ctx, "1", 1))
	assert.Equal(t, 44, f.stock(t, "1"))

	assert.Equal(t, 0, s.Sweep(ctx, time.Now().Add(10*time.Minute)))
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, 2, s.Sweep(ctx, time.Now().Add(time.Hour)))
	assert.Equal(t, 50, f.stock(t, "1"))
	assert.Equal(t, 30, f.stock(t, "2"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, f.catalog.Held("1"))
}

func TestSessions_SweepRetriesFailedRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flaky := &flakyProducts{ProductRepo: f.products, failID: "2"}
	catalog := services.NewCatalog(flaky)
	require.NoError(t, catalog.Load(ctx))
	s := services.NewSessions(catalog, 30*time.Minute)

	require.NoError(t, s.Cart("idle").AddLine(ctx, "1", 2))
	require.NoError(t, s.Cart("idle").AddLine(ctx, "2", 3))
	flaky.fails = 1

	later := time.Now().Add(time.Hour)
	assert.Equal(t, 0, s.Sweep(ctx, later))
	assert.Equal(t, 1, s.Len(), "cart with unreleased lines stays registered")
	p1, _ := catalog.Get("1")
	assert.Equal(t, 50, p1.Stock)
	assert.Equal(t, 3, catalog.Held("2"))
	assert.ErrorIs(t, catalog.Remove(ctx, "2"), domain.ErrInUse)

	assert.Equal(t, 1, s.Sweep(ctx, later))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, catalog.Held("2"))
	stored, err := f.products.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 30, stored.Stock)
	require.NoError(t, catalog.Remove(ctx, "2"))
}

func TestSessions_SweptCartTakesNoReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := services.NewSessions(f.catalog, 30*time.Minute)

	stale := s.Cart("sid")
	require.NoError(t, stale.AddLine(ctx, "1", 4))
	assert.Equal(t, 1, s.Sweep(ctx, time.Now().Add(time.Hour)))
	assert.Equal(t, 50, f.stock(t, "1"))

	err := stale.AddLine(ctx, "1", 2)
	assert.ErrorIs(t, err, domain.ErrCartExpired)
	assert.ErrorIs(t, stale.ChangeLineQuantity(ctx, "1", 1), domain.ErrCartExpired)
	assert.Equal(t, 50, f.stock(t, "1"))
	assert.Equal(t, 0, f.catalog.Held("1"))

	fresh := s.Cart("sid")
	assert.NotSame(t, stale, fresh)
	require.NoError(t, fresh.AddLine(ctx, "1", 2))
	assert.Equal(t, 48, f.stock(t, "1"))
}
