package domain

import "fmt"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAuthorized OrderStatus = "authorized"
	OrderStatusCaptured   OrderStatus = "captured"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"

	// Declared for the order taxonomy; no workflow moves an order into them yet.
	OrderStatusInsufficientFunds  OrderStatus = "insufficient_funds"
	OrderStatusPartiallyFulfilled OrderStatus = "partially_fulfilled"
	OrderStatusFulfilled          OrderStatus = "fulfilled"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAuthorized,
	OrderStatusCaptured,
	OrderStatusCompleted,
	OrderStatusFailed,
	OrderStatusInsufficientFunds,
	OrderStatusPartiallyFulfilled,
	OrderStatusFulfilled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusAuthorized, OrderStatusFailed},
	OrderStatusFailed:     {OrderStatusAuthorized, OrderStatusPending},
	OrderStatusAuthorized: {OrderStatusCaptured, OrderStatusFailed},
	OrderStatusCaptured:   {OrderStatusCompleted},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range allOrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransitionTo reports whether an order may move from one status to another.
func CanTransitionTo(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanAuthorize guards the start of a checkout attempt.
func (s OrderStatus) CanAuthorize() bool {
	return s == OrderStatusPending || s == OrderStatusFailed
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted
}

func (s OrderStatus) IsReserved() bool {
	return s == OrderStatusInsufficientFunds || s == OrderStatusPartiallyFulfilled || s == OrderStatusFulfilled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}
