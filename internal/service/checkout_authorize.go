package service

import (
	"context"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/inventory"
	"github.com/fjod/scalecommerce/internal/payment"
	r "github.com/fjod/scalecommerce/internal/repository"
)

// Checkout runs one checkout attempt for a pending or failed order.
//
// The basket's current total is authorized first, outside any transaction.
// Stock reservation, line items, basket cleanup and the move to authorized
// then commit together. Capture of the committed total happens after the
// commit; a declined capture is compensated and reported as a *PaymentError.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, cmd *d.CheckoutCommand) (*d.Order, error) {
	order := cmd.Order
	if !order.Status.CanAuthorize() {
		return nil, &PaymentError{Phase: PhaseGuard, Message: "Order must be pending or failed to authorize"}
	}

	details, err := s.payment.detailsFor(ctx, cmd.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("card details: %w", err)
	}

	basketTotal, err := cmd.Basket.TotalPrice()
	if err != nil {
		return nil, err
	}
	auth, err := s.payment.authorize(ctx, cmd.PaymentToken, basketTotal)
	if err != nil {
		return nil, fmt.Errorf("authorize payment: %w", err)
	}
	if !auth.Success {
		return nil, &PaymentError{Phase: PhaseAuthorize, Message: auth.Error}
	}

	authorized, err := s.reserveAndAuthorize(ctx, cmd, details, auth.AuthorizationID)
	if err != nil {
		s.voidAuthorization(ctx, order.ID, auth.AuthorizationID)
		return nil, err
	}

	return s.captureAndComplete(ctx, authorized, cmd.Basket.UUID)
}

// reserveAndAuthorize is the single transaction of a checkout. Nothing it
// writes survives an error.
func (s *CheckoutServiceImpl) reserveAndAuthorize(ctx context.Context, cmd *d.CheckoutCommand, details payment.CardDetails, authorizationID string) (*d.Order, error) {
	basket := cmd.Basket
	from := cmd.Order.Status

	var (
		card      = details.CreditCard()
		address   = cmd.Address
		lineItems []d.LineItem
		total     d.Money
	)
	err := s.repo.InTx(ctx, func(tx r.CheckoutTx) error {
		if err := tx.ClaimOrder(ctx, cmd.Order.ID, from); err != nil {
			return err
		}
		if err := tx.CreateCreditCard(ctx, card); err != nil {
			return err
		}
		if err := tx.CreateAddress(ctx, &address); err != nil {
			return err
		}

		fulfilled, err := s.reserveStock(ctx, tx, basket)
		if err != nil {
			return err
		}

		lineItems = make([]d.LineItem, 0, len(fulfilled))
		for _, item := range fulfilled {
			li := d.LineItem{
				OrderID:     cmd.Order.ID,
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   item.Product.Price,
			}
			if err := tx.InsertLineItem(ctx, &li); err != nil {
				return err
			}
			if err := tx.DeleteBasketItem(ctx, item.ID); err != nil {
				return err
			}
			lineItems = append(lineItems, li)
		}

		if total, err = d.ItemsTotal(fulfilled); err != nil {
			return err
		}

		remaining, err := tx.CountBasketItems(ctx, basket.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.DeleteBasket(ctx, basket.ID); err != nil {
				return err
			}
		}

		return tx.AuthorizeOrder(ctx, cmd.Order.ID, r.AuthorizeOrderParams{
			From:            from,
			Email:           cmd.Email,
			Total:           total,
			AddressID:       address.ID,
			CreditCardID:    card.ID,
			AuthorizationID: authorizationID,
		})
	})
	if err != nil {
		return nil, err
	}

	order := *cmd.Order
	order.Status = d.OrderStatusAuthorized
	order.Email = &cmd.Email
	order.TotalPrice = &total
	order.AddressID = &address.ID
	order.Address = &address
	order.CreditCardID = &card.ID
	order.CreditCard = card
	order.AuthorizationID = &authorizationID
	order.FailureReason = nil
	order.LineItems = lineItems
	return &order, nil
}

// reserveStock reserves every basket item it can and returns those items.
// Items without enough stock stay in the basket for a later attempt.
func (s *CheckoutServiceImpl) reserveStock(ctx context.Context, tx r.CheckoutTx, basket *d.Basket) ([]d.BasketItem, error) {
	items := make([]inventory.Item, len(basket.Items))
	for i, it := range basket.Items {
		items[i] = inventory.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	reservedIDs, err := tx.ReserveStock(ctx, items)
	if err != nil {
		return nil, err
	}
	reserved, skipped := inventory.Partition(items, reservedIDs)
	for _, it := range skipped {
		s.logger.InfoContext(ctx, "skipping item, insufficient stock",
			"basket_id", basket.ID, "product_id", it.ProductID, "quantity", it.Quantity)
	}
	s.metrics.Reservation(len(reserved), len(skipped))

	if len(reserved) == 0 {
		return nil, ErrEmptyBasket
	}

	fulfilled := make([]d.BasketItem, 0, len(reserved))
	for _, it := range reserved {
		item, _ := basket.ItemByProduct(it.ProductID)
		fulfilled = append(fulfilled, item)
	}
	return fulfilled, nil
}

func (s *CheckoutServiceImpl) voidAuthorization(ctx context.Context, orderID int64, authorizationID string) {
	if err := s.payment.void(ctx, authorizationID); err != nil {
		s.logger.ErrorContext(ctx, "failed to void authorization",
			"order_id", orderID, "authorization_id", authorizationID, "error", err)
	}
}
