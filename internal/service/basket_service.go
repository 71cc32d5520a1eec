package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	d "github.com/fjod/scalecommerce/domain"
	r "github.com/fjod/scalecommerce/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type BasketService struct {
	repo   r.BasketStore
	sfg    singleflight.Group
	logger *slog.Logger
}

func NewBasketService(repo r.BasketStore, logger *slog.Logger) *BasketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasketService{repo: repo, logger: logger}
}

// GetBasket loads a basket with its items. Concurrent loads of one basket
// share a single query.
func (s *BasketService) GetBasket(ctx context.Context, token string) (*d.Basket, error) {
	v, err, _ := s.sfg.Do(token, func() (interface{}, error) {
		return s.repo.GetBasketByUUID(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return v.(*d.Basket), nil
}

// EnsureBasket returns the basket for token, creating a new one with a fresh
// token when token is empty or unknown. created reports the latter.
func (s *BasketService) EnsureBasket(ctx context.Context, token string) (basket *d.Basket, created bool, err error) {
	if token != "" {
		basket, err = s.GetBasket(ctx, token)
		if err == nil {
			return basket, false, nil
		}
		if !errors.Is(err, r.ErrBasketNotFound) {
			return nil, false, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("generate basket token: %w", err)
	}
	basket, err = s.repo.CreateBasket(ctx, id.String())
	if err != nil {
		return nil, false, err
	}
	s.logger.InfoContext(ctx, "basket created", "basket_id", basket.ID)
	return basket, true, nil
}

// UpdateItem sets the quantity of a product in the basket; zero removes it.
func (s *BasketService) UpdateItem(ctx context.Context, basket *d.Basket, productID int64, quantity int32) (*d.Basket, error) {
	switch {
	case productID <= 0:
		return nil, validationError("product_id is required")
	case quantity < 0:
		return nil, validationError("quantity must not be negative")
	case quantity == 0:
		if err := s.repo.RemoveBasketItem(ctx, basket.ID, productID); err != nil {
			return nil, err
		}
	default:
		if _, err := s.repo.UpsertBasketItem(ctx, basket.ID, productID, quantity); err != nil {
			return nil, err
		}
	}
	return s.repo.GetBasketByID(ctx, basket.ID)
}
