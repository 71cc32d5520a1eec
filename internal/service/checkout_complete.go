package service

import (
	"context"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/inventory"
	r "github.com/fjod/scalecommerce/internal/repository"
)

func (s *CheckoutServiceImpl) captureAndComplete(ctx context.Context, order *d.Order, basketUUID string) (*d.Order, error) {
	capture, err := s.payment.capture(ctx, *order.AuthorizationID, *order.TotalPrice)
	if err != nil {
		// the outcome is unknown, so the order stays authorized for reconciliation
		s.logger.ErrorContext(ctx, "capture outcome unknown, order left authorized",
			"order_id", order.ID, "authorization_id", *order.AuthorizationID, "error", err)
		return nil, fmt.Errorf("capture payment for order %d: %w", order.ID, err)
	}
	if !capture.Success {
		if err := s.compensate(ctx, order, basketUUID, capture.Error); err != nil {
			return nil, fmt.Errorf("compensate order %d after declined capture: %w", order.ID, err)
		}
		return nil, &PaymentError{Phase: PhaseCapture, Message: capture.Error}
	}

	if err := s.complete(ctx, order.ID, capture.TransactionID); err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, order.ID)
}

// ResumeCapture settles an order left authorized by a capture whose outcome
// was never learned. The stored total is captured again under the stored
// authorization; a decline is compensated as in Checkout.
func (s *CheckoutServiceImpl) ResumeCapture(ctx context.Context, order *d.Order) (*d.Order, error) {
	if order.Status != d.OrderStatusAuthorized {
		return nil, fmt.Errorf("resume capture of order %d in status %s: %w", order.ID, order.Status, r.ErrOrderStateChanged)
	}
	if order.AuthorizationID == nil || order.TotalPrice == nil {
		return nil, fmt.Errorf("order %d has no authorization to capture", order.ID)
	}
	return s.captureAndComplete(ctx, order, order.BasketUUID)
}

func (s *CheckoutServiceImpl) complete(ctx context.Context, orderID int64, transactionID string) error {
	if err := s.repo.MarkOrderCaptured(ctx, orderID, transactionID); err != nil {
		return fmt.Errorf("mark order %d captured: %w", orderID, err)
	}
	if err := s.repo.TransitionOrder(ctx, orderID, d.OrderStatusCaptured, d.OrderStatusCompleted); err != nil {
		return fmt.Errorf("complete order %d: %w", orderID, err)
	}
	return nil
}

// compensate undoes a committed checkout whose capture was declined: the hold
// is voided, reserved stock and basket items come back, and the order is
// failed so the basket can be checked out again.
func (s *CheckoutServiceImpl) compensate(ctx context.Context, order *d.Order, basketUUID, reason string) error {
	s.voidAuthorization(ctx, order.ID, *order.AuthorizationID)

	return s.repo.InTx(ctx, func(tx r.CheckoutTx) error {
		items, err := tx.LineItems(ctx, order.ID)
		if err != nil {
			return err
		}

		release := make([]inventory.Item, len(items))
		for i, li := range items {
			release[i] = inventory.Item{ProductID: li.ProductID, Quantity: li.Quantity}
		}
		if err := tx.ReleaseStock(ctx, release); err != nil {
			return err
		}

		basketID, err := tx.RestoreBasket(ctx, basketUUID, items)
		if err != nil {
			return err
		}
		if err := tx.DeleteLineItems(ctx, order.ID); err != nil {
			return err
		}
		return tx.FailAuthorizedOrder(ctx, order.ID, basketID, reason)
	})
}
