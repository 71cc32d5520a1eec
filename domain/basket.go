package domain

import (
	"fmt"
	"time"
)

type BasketItem struct {
	ID        int64    `json:"id"`
	BasketID  int64    `json:"basket_id"`
	ProductID int64    `json:"product_id"`
	Quantity  int32    `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// TotalPrice is the current price of the line; the product must be loaded.
func (i BasketItem) TotalPrice() (Money, error) {
	if i.Product == nil {
		return Money{}, fmt.Errorf("basket item %d: product not loaded", i.ID)
	}
	return i.Product.Price.Times(i.Quantity), nil
}

// Basket is identified publicly by UUID and internally by ID.
type Basket struct {
	ID        int64        `json:"id"`
	UUID      string       `json:"uuid"`
	Items     []BasketItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0
}

// TotalPrice sums current product prices over every item in the basket.
func (b *Basket) TotalPrice() (Money, error) {
	return ItemsTotal(b.Items)
}

func ItemsTotal(items []BasketItem) (Money, error) {
	lines := make([]Money, 0, len(items))
	for _, item := range items {
		line, err := item.TotalPrice()
		if err != nil {
			return Money{}, err
		}
		lines = append(lines, line)
	}
	return Sum(lines...)
}

func (b *Basket) ItemByProduct(productID int64) (BasketItem, bool) {
	for _, item := range b.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return BasketItem{}, false
}
