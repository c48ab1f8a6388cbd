//go:build unit

package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/infra"
	"marketplace/internal/pkg/clock"
	"marketplace/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 15 * time.Minute

func stockFixture() (*memStore, commands.StockCommands, *clock.MockClock) {
	store := newMemStore()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	uc := commands.NewStockUseCase(store, ledgerReads{store}, clk)
	return store, uc, clk
}

func stockItem(key inventory.ItemKey, qty int32) commands.StockItem {
	return commands.StockItem{ProductID: key.ProductID, VariantID: key.VariantID, Quantity: qty}
}

func TestCheckStock(t *testing.T) {
	ctx := context.Background()

	t.Run("reports per item availability", func(t *testing.T) {
		store, uc, _ := stockFixture()
		inStock := inventory.ItemKey{ProductID: uuid.New()}
		short := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(inStock, 10, 0)
		store.seed(short, 5, 3)

		result, err := uc.CheckStock(ctx, []commands.StockItem{
			stockItem(inStock, 4),
			stockItem(short, 3),
		})
		require.NoError(t, err)

		assert.False(t, result.AllAvailable)
		assert.True(t, result.Items[0].IsAvailable)
		assert.Equal(t, int32(10), result.Items[0].SellableQuantity)
		assert.False(t, result.Items[1].IsAvailable)
		assert.Equal(t, int32(2), result.Items[1].SellableQuantity)
	})

	t.Run("unknown product is simply unavailable", func(t *testing.T) {
		_, uc, _ := stockFixture()

		result, err := uc.CheckStock(ctx, []commands.StockItem{
			stockItem(inventory.ItemKey{ProductID: uuid.New()}, 1),
		})
		require.NoError(t, err)
		assert.False(t, result.AllAvailable)
		assert.False(t, result.Items[0].IsAvailable)
	})

	t.Run("read failure marks service unavailable", func(t *testing.T) {
		store, uc, _ := stockFixture()
		store.fail["reads.sellable"] = errors.New("connection refused")

		_, err := uc.CheckStock(ctx, []commands.StockItem{
			stockItem(inventory.ItemKey{ProductID: uuid.New()}, 1),
		})
		assert.ErrorIs(t, err, commands.ErrServiceUnavailable)
	})
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("places hold and reduces sellable", func(t *testing.T) {
		store, uc, clk := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		result, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		assert.Equal(t, id, result.ReservationID)
		assert.False(t, result.AlreadyActive)
		assert.Equal(t, clk.Now().Add(testTTL), result.ExpiresAt)
		assert.Equal(t, int32(6), store.sellable(key))
	})

	t.Run("all or nothing across items", func(t *testing.T) {
		store, uc, _ := stockFixture()
		plenty := inventory.ItemKey{ProductID: uuid.New()}
		scarce := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(plenty, 100, 0)
		store.seed(scarce, 1, 0)

		_, err := uc.Reserve(ctx, uuid.New(), []commands.StockItem{
			stockItem(plenty, 5),
			stockItem(scarce, 2),
		}, testTTL)
		assert.ErrorIs(t, err, commands.ErrInsufficientStock)

		// The partial hold on the first item must not survive the rollback.
		assert.Equal(t, int32(100), store.sellable(plenty))
		assert.Equal(t, int32(1), store.sellable(scarce))
	})

	t.Run("unknown product is insufficient stock", func(t *testing.T) {
		_, uc, _ := stockFixture()

		_, err := uc.Reserve(ctx, uuid.New(), []commands.StockItem{
			stockItem(inventory.ItemKey{ProductID: uuid.New()}, 1),
		}, testTTL)
		assert.ErrorIs(t, err, commands.ErrInsufficientStock)
	})

	t.Run("replay with active id returns original outcome", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		first, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		second, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		assert.True(t, second.AlreadyActive)
		assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
		// No double hold.
		assert.Equal(t, int32(6), store.sellable(key))
	})

	t.Run("raced insert resolves to the winner's hold", func(t *testing.T) {
		store, uc, clk := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		// Two concurrent calls with the same id both pass the not-found
		// check; the loser's insert hits the unique key and its transaction
		// aborts, after which the winner's committed row becomes visible.
		id := uuid.New()
		winnerExpiry := clk.Now().Add(testTTL)
		store.failOnce["reservations.create"] = infra.WrapRepoErr("reservation id already exists", nil, infra.KindDuplicate)
		store.afterRollback = func(s *memStore) {
			s.reservations[id] = resRow{
				lines:     []inventory.Line{{Key: key, Quantity: 4}},
				status:    inventory.StatusActive,
				createdAt: clk.Now(),
				expiresAt: winnerExpiry,
			}
			row := s.inventory[key.String()]
			row.reserved += 4
			s.inventory[key.String()] = row
		}

		result, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		assert.True(t, result.AlreadyActive)
		assert.Equal(t, winnerExpiry, result.ExpiresAt)
		// Only the winner's hold reached the ledger.
		assert.Equal(t, int32(6), store.sellable(key))
	})

	t.Run("terminal id cannot be reused", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)
		require.NoError(t, uc.Release(ctx, id))

		_, err = uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		assert.ErrorIs(t, err, commands.ErrReservationNotReusable)
	})

	t.Run("variants are independent records", func(t *testing.T) {
		store, uc, _ := stockFixture()
		product := uuid.New()
		variant := uuid.New()
		plain := inventory.ItemKey{ProductID: product}
		varied := inventory.ItemKey{ProductID: product, VariantID: &variant}
		store.seed(plain, 5, 0)
		store.seed(varied, 5, 0)

		_, err := uc.Reserve(ctx, uuid.New(), []commands.StockItem{stockItem(varied, 5)}, testTTL)
		require.NoError(t, err)

		assert.Equal(t, int32(5), store.sellable(plain))
		assert.Equal(t, int32(0), store.sellable(varied))
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("returns hold to pool", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		require.NoError(t, uc.Release(ctx, id))
		assert.Equal(t, int32(10), store.sellable(key))

		status, ok := store.reservationStatus(id)
		require.True(t, ok)
		assert.Equal(t, inventory.StatusReleased, status)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		_, uc, _ := stockFixture()
		assert.NoError(t, uc.Release(ctx, uuid.New()))
	})

	t.Run("repeat release is a no-op", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)
		require.NoError(t, uc.Release(ctx, id))
		require.NoError(t, uc.Release(ctx, id))

		// Exactly one release reached the ledger.
		assert.Equal(t, int32(10), store.sellable(key))
	})

	t.Run("releasing a confirmed reservation is a no-op", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)
		require.NoError(t, uc.ConfirmDeduction(ctx, id))
		require.NoError(t, uc.Release(ctx, id))

		// Confirmed deduction stands.
		assert.Equal(t, int32(6), store.sellable(key))
		status, _ := store.reservationStatus(id)
		assert.Equal(t, inventory.StatusConfirmed, status)
	})
}

func TestConfirmDeduction(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts stock permanently", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		require.NoError(t, uc.ConfirmDeduction(ctx, id))
		row := store.inventory[key.String()]
		assert.Equal(t, int32(6), row.available)
		assert.Equal(t, int32(0), row.reserved)
	})

	t.Run("repeat confirm is a no-op", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)
		require.NoError(t, uc.ConfirmDeduction(ctx, id))
		require.NoError(t, uc.ConfirmDeduction(ctx, id))

		assert.Equal(t, int32(6), store.inventory[key.String()].available)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, uc, _ := stockFixture()
		assert.ErrorIs(t, uc.ConfirmDeduction(ctx, uuid.New()), commands.ErrReservationNotFound)
	})

	t.Run("confirm after ttl lapse expires the hold", func(t *testing.T) {
		store, uc, clk := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)

		clk.Advance(testTTL + time.Second)
		assert.ErrorIs(t, uc.ConfirmDeduction(ctx, id), commands.ErrReservationExpired)

		// The hold went back to the pool exactly as if the sweeper ran.
		assert.Equal(t, int32(10), store.sellable(key))
		status, _ := store.reservationStatus(id)
		assert.Equal(t, inventory.StatusExpired, status)
	})

	t.Run("confirm after release reports expired", func(t *testing.T) {
		store, uc, _ := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 10, 0)

		id := uuid.New()
		_, err := uc.Reserve(ctx, id, []commands.StockItem{stockItem(key, 4)}, testTTL)
		require.NoError(t, err)
		require.NoError(t, uc.Release(ctx, id))

		assert.ErrorIs(t, uc.ConfirmDeduction(ctx, id), commands.ErrReservationExpired)
	})
}

func TestExpireDue(t *testing.T) {
	ctx := context.Background()

	t.Run("expires only overdue holds", func(t *testing.T) {
		store, uc, clk := stockFixture()
		key := inventory.ItemKey{ProductID: uuid.New()}
		store.seed(key, 20, 0)

		overdue := uuid.New()
		_, err := uc.Reserve(ctx, overdue, []commands.StockItem{stockItem(key, 5)}, time.Minute)
		require.NoError(t, err)

		clk.Advance(30 * time.Second)
		fresh := uuid.New()
		_, err = uc.Reserve(ctx, fresh, []commands.StockItem{stockItem(key, 3)}, testTTL)
		require.NoError(t, err)

		clk.Advance(time.Minute)
		events, err := uc.ExpireDue(ctx, 100)
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, overdue, events[0].ReservationID)
		assert.Equal(t, 1, events[0].LineCount)

		// Only the overdue hold returned to the pool.
		assert.Equal(t, int32(17), store.sellable(key))
		status, _ := store.reservationStatus(overdue)
		assert.Equal(t, inventory.StatusExpired, status)
		status, _ = store.reservationStatus(fresh)
		assert.Equal(t, inventory.StatusActive, status)
	})

	t.Run("nothing due", func(t *testing.T) {
		_, uc, _ := stockFixture()
		events, err := uc.ExpireDue(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestReserveConcurrentNoOversell(t *testing.T) {
	ctx := context.Background()
	store, uc, _ := stockFixture()
	key := inventory.ItemKey{ProductID: uuid.New()}
	store.seed(key, 10, 0)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Reserve(ctx, uuid.New(), []commands.StockItem{stockItem(key, 1)}, testTTL)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, commands.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int32(0), store.sellable(key))
	assert.Equal(t, int32(10), store.inventory[key.String()].reserved)
}
