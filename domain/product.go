package domain

import "time"

type StockStatus string

const (
	StockAvailable  StockStatus = "AVAILABLE"
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
)

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price"`
	Stock       int32     `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) StockStatus() StockStatus {
	if p.Stock > 0 {
		return StockAvailable
	}
	return StockOutOfStock
}
