package domain

import (
	"fmt"
	"time"
)

// LineItem is the price snapshot of a purchased product; it is never
// recomputed from the current product price.
type LineItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
}

func (l LineItem) TotalPrice() Money {
	return l.UnitPrice.Times(l.Quantity)
}

type Order struct {
	ID              int64       `json:"id"`
	BasketID        *int64      `json:"-"`
	BasketUUID      string      `json:"basket_uuid"`
	Status          OrderStatus `json:"status"`
	Email           *string     `json:"email,omitempty"`
	TotalPrice      *Money      `json:"total_price,omitempty"`
	AddressID       *int64      `json:"-"`
	CreditCardID    *int64      `json:"-"`
	AuthorizationID *string     `json:"-"`
	TransactionID   *string     `json:"transaction_id,omitempty"`
	FailureReason   *string     `json:"failure_reason,omitempty"`
	LineItems       []LineItem  `json:"line_items"`
	Address         *Address    `json:"address,omitempty"`
	CreditCard      *CreditCard `json:"credit_card,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (o *Order) LineItemsTotal() (Money, error) {
	amounts := make([]Money, len(o.LineItems))
	for i, l := range o.LineItems {
		amounts[i] = l.TotalPrice()
	}
	return Sum(amounts...)
}

// ValidateTotal checks that the stored total equals the sum of the line items.
func (o *Order) ValidateTotal() error {
	if o.TotalPrice == nil {
		if len(o.LineItems) == 0 {
			return nil
		}
		return fmt.Errorf("order %d: total missing for %d line items", o.ID, len(o.LineItems))
	}
	sum, err := o.LineItemsTotal()
	if err != nil {
		return fmt.Errorf("order %d: %w", o.ID, err)
	}
	if len(o.LineItems) == 0 {
		sum.Currency = o.TotalPrice.Currency
	}
	if sum != *o.TotalPrice {
		return fmt.Errorf("order %d: total %s does not match line items %s", o.ID, o.TotalPrice, sum)
	}
	return nil
}
