package service

import (
	"context"

	d "github.com/fjod/scalecommerce/domain"
	r "github.com/fjod/scalecommerce/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CatalogService struct {
	products r.ProductStore
	orders   r.OrderStore
}

func NewCatalogService(products r.ProductStore, orders r.OrderStore) *CatalogService {
	return &CatalogService{products: products, orders: orders}
}

// ListProducts pages by id: afterID is the last id of the previous page.
func (s *CatalogService) ListProducts(ctx context.Context, afterID int64, limit int) ([]*d.Product, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	return s.products.ListProducts(ctx, afterID, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*d.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *CatalogService) GetOrder(ctx context.Context, id int64) (*d.Order, error) {
	return s.orders.GetOrder(ctx, id)
}
