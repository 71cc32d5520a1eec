package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockOf(t *testing.T, s *LockingStore, id int64) int32 {
	stocks, err := s.GetStock([]int64{id})
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	return stocks[0].Stock
}

func TestLockingStore_SetStock_And_GetStock(t *testing.T) {
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, 100))
	require.NoError(t, store.SetStock(2, 200))

	stocks, err := store.GetStock([]int64{1, 2, 3})
	require.NoError(t, err)

	// Should return only existing products
	assert.Len(t, stocks, 2)
	assert.ErrorIs(t, store.SetStock(3, -1), ErrInvalidQuantity)
}

func TestLockingStore_Reserve_PartialFulfillment(t *testing.T) {
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, 5))
	require.NoError(t, store.SetStock(2, 0))

	reserved, err := store.Reserve(context.Background(), []Item{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 99, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, reserved)
	assert.Equal(t, int32(4), stockOf(t, store, 1))
	assert.Equal(t, int32(0), stockOf(t, store, 2))
}

func TestLockingStore_Reserve_MergesDuplicates(t *testing.T) {
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, 3))

	reserved, err := store.Reserve(context.Background(), []Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 1, Quantity: 2},
	})
	require.NoError(t, err)

	assert.Empty(t, reserved)
	assert.Equal(t, int32(3), stockOf(t, store, 1))
}

func TestLockingStore_Reserve_InvalidQuantity(t *testing.T) {
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, 3))

	_, err := store.Reserve(context.Background(), []Item{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLockingStore_Release(t *testing.T) {
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, 10))

	_, err := store.Reserve(context.Background(), []Item{{ProductID: 1, Quantity: 4}})
	require.NoError(t, err)
	require.NoError(t, store.Release(context.Background(), []Item{{ProductID: 1, Quantity: 4}}))
	assert.Equal(t, int32(10), stockOf(t, store, 1))

	err = store.Release(context.Background(), []Item{{ProductID: 42, Quantity: 1}})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestLockingStore_ConcurrentReservations(t *testing.T) {
	const stock, attempts = 25, 60
	store := NewLockingStore()
	require.NoError(t, store.SetStock(1, stock))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reserved, err := store.Reserve(context.Background(), []Item{{ProductID: 1, Quantity: 1}})
			if err == nil && len(reserved) == 1 {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, stock, successCount)
	assert.Equal(t, int32(0), stockOf(t, store, 1))
}

func TestLockingStore_OverlappingBasketsDoNotDeadlock(t *testing.T) {
	store := NewLockingStore()
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, store.SetStock(id, 1000))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Reserve(context.Background(), []Item{{4, 1}, {3, 1}, {2, 1}, {1, 1}})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Reserve(context.Background(), []Item{{1, 1}, {2, 1}, {3, 1}, {4, 1}})
		}()
	}
	wg.Wait()

	for id := int64(1); id <= 4; id++ {
		assert.Equal(t, int32(900), stockOf(t, store, id))
	}
}
