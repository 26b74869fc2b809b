package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	balances map[string]Balance
}

func newMemoryStore() *memoryStore {
	return &memoryStore{balances: make(map[string]Balance)}
}

func storeKey(k Key) string {
	return fmt.Sprintf("%d:%d:%d", k.CompanyID, k.LocationID, k.ProductID)
}

func (s *memoryStore) GetBalanceForUpdate(_ context.Context, k Key) (Balance, error) {
	if bal, ok := s.balances[storeKey(k)]; ok {
		return bal, nil
	}
	return Balance{}, ErrBalanceNotFound
}

func (s *memoryStore) UpsertBalance(_ context.Context, b Balance) error {
	s.balances[storeKey(b.Key())] = b
	return nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

var key = Key{CompanyID: 1, LocationID: 10, ProductID: 100}

func TestEntryThenExit(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})
	ctx := context.Background()

	change, err := led.Increment(ctx, store, key, d("100"), d("10.00"))
	require.NoError(t, err)
	require.True(t, change.Previous.IsZero())
	require.True(t, change.New.Equal(d("100")))
	require.True(t, change.NewAvgCost.Equal(d("10.00")))

	change, err = led.Decrement(ctx, store, key, d("40"))
	require.NoError(t, err)
	require.True(t, change.New.Equal(d("60")))
	require.True(t, change.NewAvgCost.Equal(d("10.00")), "exit must not re-average")

	_, err = led.Decrement(ctx, store, key, d("100"))
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(d("60")))
	require.True(t, insufficient.Requested.Equal(d("100")))

	// failed decrement leaves the balance unchanged
	bal := store.balances[storeKey(key)]
	require.True(t, bal.CurrentStock.Equal(d("60")))
}

func TestReaverageOnSecondEntry(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})
	ctx := context.Background()

	_, err := led.Increment(ctx, store, key, d("100"), d("10.00"))
	require.NoError(t, err)
	_, err = led.Decrement(ctx, store, key, d("40"))
	require.NoError(t, err)

	change, err := led.Increment(ctx, store, key, d("40"), d("16.00"))
	require.NoError(t, err)
	require.True(t, change.New.Equal(d("100")))
	require.True(t, change.NewAvgCost.Equal(d("12.40")), "got %s", change.NewAvgCost)
}

func TestZeroIncrementIsNoop(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})
	ctx := context.Background()

	_, err := led.Increment(ctx, store, key, d("60"), d("10.00"))
	require.NoError(t, err)

	change, err := led.Increment(ctx, store, key, decimal.Zero, d("99.00"))
	require.NoError(t, err)
	require.True(t, change.New.Equal(d("60")))
	require.True(t, change.NewAvgCost.Equal(d("10.00")))
}

func TestDecrementOnEmptyBalance(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})

	_, err := led.Decrement(context.Background(), store, key, d("1"))
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.IsZero())
}

func TestAllowNegativeStock(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{AllowNegativeStock: true})

	change, err := led.Decrement(context.Background(), store, key, d("5"))
	require.NoError(t, err)
	require.True(t, change.New.Equal(d("-5")))
}

func TestReserveAndRelease(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})
	ctx := context.Background()

	_, err := led.Increment(ctx, store, key, d("50"), d("4.00"))
	require.NoError(t, err)

	require.NoError(t, led.Reserve(ctx, store, key, d("30")))

	err = led.Reserve(ctx, store, key, d("30"))
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(d("20")))

	require.NoError(t, led.Release(ctx, store, key, d("30")))
	require.NoError(t, led.Reserve(ctx, store, key, d("50")))

	// double release clamps at zero
	require.NoError(t, led.Release(ctx, store, key, d("50")))
	require.NoError(t, led.Release(ctx, store, key, d("50")))
	bal := store.balances[storeKey(key)]
	require.True(t, bal.ReservedStock.IsZero())
}

func TestInvalidQuantities(t *testing.T) {
	store := newMemoryStore()
	led := New(Config{})
	ctx := context.Background()

	_, err := led.Increment(ctx, store, key, d("-1"), d("1"))
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = led.Increment(ctx, store, key, d("1"), d("-1"))
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = led.Decrement(ctx, store, key, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
