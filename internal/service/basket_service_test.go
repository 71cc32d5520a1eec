package service

import (
	"context"
	"sync"
	"testing"

	r "github.com/fjod/scalecommerce/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureBasket(t *testing.T) {
	f := setup(t)
	svc := NewBasketService(f.repo, nil)
	ctx := context.Background()

	created, isNew, err := svc.EnsureBasket(ctx, "")
	require.NoError(t, err)
	assert.True(t, isNew)
	_, err = uuid.Parse(created.UUID)
	assert.NoError(t, err)

	same, isNew, err := svc.EnsureBasket(ctx, created.UUID)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, same.ID)

	fresh, isNew, err := svc.EnsureBasket(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, created.ID, fresh.ID)
}

func TestUpdateItem(t *testing.T) {
	f := setup(t)
	svc := NewBasketService(f.repo, nil)
	ctx := context.Background()
	b, _, err := svc.EnsureBasket(ctx, "")
	require.NoError(t, err)

	b, err = svc.UpdateItem(ctx, b, keyboardID, 2)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, int32(2), b.Items[0].Quantity)
	total, err := b.TotalPrice()
	require.NoError(t, err)
	assert.Equal(t, int64(2*8999), total.Cents)

	b, err = svc.UpdateItem(ctx, b, keyboardID, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), b.Items[0].Quantity)

	b, err = svc.UpdateItem(ctx, b, keyboardID, 0)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())

	_, err = svc.UpdateItem(ctx, b, keyboardID, -1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateItem(ctx, b, 999, 1)
	assert.ErrorIs(t, err, r.ErrProductNotFound)
}

func TestGetBasket_ConcurrentCallers(t *testing.T) {
	f := setup(t)
	svc := NewBasketService(f.repo, nil)
	b := f.basket(t, map[int64]int32{mouseID: 1})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.GetBasket(context.Background(), b.UUID)
			assert.NoError(t, err)
			assert.Equal(t, b.ID, got.ID)
		}()
	}
	wg.Wait()

	_, err := svc.GetBasket(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, r.ErrBasketNotFound)
}

func TestCatalogService(t *testing.T) {
	f := setup(t)
	svc := NewCatalogService(f.repo, f.repo)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	page, err = svc.ListProducts(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	p, err := svc.GetProduct(ctx, monitorID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.Stock)

	_, err = svc.GetOrder(ctx, 42)
	assert.ErrorIs(t, err, r.ErrOrderNotFound)
}
