// Package notify reports checkout outcomes to whoever listens on the basket's
// topic. Delivery is best effort: nothing is stored or retried.
package notify

import (
	"context"
	"errors"

	d "github.com/fjod/scalecommerce/domain"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	CodeEmptyBasket     = "empty_basket"
	CodePaymentRequired = "payment_required"
)

type EventError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Event struct {
	Status string      `json:"status"`
	Order  *d.Order    `json:"order,omitempty"`
	Error  *EventError `json:"error,omitempty"`
}

func Completed(order *d.Order) Event {
	return Event{Status: StatusCompleted, Order: order}
}

func Failed(code, message string) Event {
	return Event{Status: StatusFailed, Error: &EventError{Code: code, Message: message}}
}

type Notifier interface {
	Publish(ctx context.Context, basketUUID string, ev Event) error
}

// Topic is the channel name for a basket.
func Topic(basketUUID string) string {
	return "checkout_" + basketUUID
}

type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }

// Fanout publishes to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, basketUUID string, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, basketUUID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
