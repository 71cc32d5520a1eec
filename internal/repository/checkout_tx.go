package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/inventory"
)

// CheckoutTx is the set of writes a checkout performs atomically.
type CheckoutTx interface {
	// ClaimOrder locks the order row and fails with ErrOrderStateChanged
	// unless it is still in the expected status.
	ClaimOrder(ctx context.Context, orderID int64, expected d.OrderStatus) error
	CreateCreditCard(ctx context.Context, card *d.CreditCard) error
	CreateAddress(ctx context.Context, addr *d.Address) error
	ReserveStock(ctx context.Context, items []inventory.Item) ([]int64, error)
	ReleaseStock(ctx context.Context, items []inventory.Item) error
	InsertLineItem(ctx context.Context, item *d.LineItem) error
	LineItems(ctx context.Context, orderID int64) ([]d.LineItem, error)
	DeleteLineItems(ctx context.Context, orderID int64) error
	DeleteBasketItem(ctx context.Context, itemID int64) error
	CountBasketItems(ctx context.Context, basketID int64) (int, error)
	DeleteBasket(ctx context.Context, basketID int64) error
	AuthorizeOrder(ctx context.Context, orderID int64, p AuthorizeOrderParams) error
	// RestoreBasket puts items back into the basket with the given uuid,
	// recreating the basket when it was deleted. It returns the basket id.
	RestoreBasket(ctx context.Context, basketUUID string, items []d.LineItem) (int64, error)
	// FailAuthorizedOrder undoes AuthorizeOrder: it drops the order's
	// address and card, clears the payment fields and marks it failed.
	FailAuthorizedOrder(ctx context.Context, orderID, basketID int64, reason string) error
}

type AuthorizeOrderParams struct {
	From            d.OrderStatus
	Email           string
	Total           d.Money
	AddressID       int64
	CreditCardID    int64
	AuthorizationID string
}

// InTx runs fn in one database transaction. The transaction commits when fn
// returns nil; fn's error is returned as is.
func (r *Repository) InTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&checkoutTx{tx: tx, reserver: r.reserver}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type checkoutTx struct {
	tx       *sql.Tx
	reserver inventory.Reserver
}

func (c *checkoutTx) ClaimOrder(ctx context.Context, orderID int64, expected d.OrderStatus) error {
	res, err := c.tx.ExecContext(ctx,
		`UPDATE orders SET updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND status = $2`,
		orderID, expected)
	if err != nil {
		return fmt.Errorf("claim order: %w", err)
	}
	return oneRow(res, ErrOrderStateChanged)
}

func (c *checkoutTx) CreateCreditCard(ctx context.Context, card *d.CreditCard) error {
	err := c.tx.QueryRowContext(ctx,
		`INSERT INTO credit_cards (token, brand, last4, exp_month, exp_year) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		card.Token, card.Brand, card.Last4, card.ExpMonth, card.ExpYear).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("insert credit card: %w", err)
	}
	return nil
}

func (c *checkoutTx) CreateAddress(ctx context.Context, addr *d.Address) error {
	err := c.tx.QueryRowContext(ctx,
		`INSERT INTO addresses (line_1, line_2, city, state, zip, country) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		addr.Line1, addr.Line2, addr.City, addr.State, addr.Zip, addr.Country).Scan(&addr.ID)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (c *checkoutTx) ReserveStock(ctx context.Context, items []inventory.Item) ([]int64, error) {
	return c.reserver.Reserve(ctx, c.tx, items)
}

func (c *checkoutTx) ReleaseStock(ctx context.Context, items []inventory.Item) error {
	return c.reserver.Release(ctx, c.tx, items)
}

func (c *checkoutTx) InsertLineItem(ctx context.Context, item *d.LineItem) error {
	err := c.tx.QueryRowContext(ctx,
		`INSERT INTO order_line_items (order_id, product_id, product_name, quantity, unit_price_cents, unit_price_currency)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice.Cents, item.UnitPrice.Currency).
		Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (c *checkoutTx) LineItems(ctx context.Context, orderID int64) ([]d.LineItem, error) {
	return lineItems(ctx, c.tx, orderID)
}

func (c *checkoutTx) DeleteLineItems(ctx context.Context, orderID int64) error {
	if _, err := c.tx.ExecContext(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}
	return nil
}

func (c *checkoutTx) DeleteBasketItem(ctx context.Context, itemID int64) error {
	if _, err := c.tx.ExecContext(ctx, `DELETE FROM basket_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("delete basket item: %w", err)
	}
	return nil
}

func (c *checkoutTx) CountBasketItems(ctx context.Context, basketID int64) (int, error) {
	var n int
	err := c.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM basket_items WHERE basket_id = $1`, basketID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count basket items: %w", err)
	}
	return n, nil
}

func (c *checkoutTx) DeleteBasket(ctx context.Context, basketID int64) error {
	if _, err := c.tx.ExecContext(ctx, `DELETE FROM baskets WHERE id = $1`, basketID); err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}
	return nil
}

func (c *checkoutTx) AuthorizeOrder(ctx context.Context, orderID int64, p AuthorizeOrderParams) error {
	res, err := c.tx.ExecContext(ctx,
		`UPDATE orders SET status = 'authorized', email = $2, total_price_cents = $3, total_price_currency = $4,
		        address_id = $5, credit_card_id = $6, authorization_id = $7, failure_reason = NULL,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = $8`,
		orderID, p.Email, p.Total.Cents, p.Total.Currency, p.AddressID, p.CreditCardID, p.AuthorizationID, p.From)
	if err != nil {
		return fmt.Errorf("authorize order: %w", err)
	}
	return oneRow(res, ErrOrderStateChanged)
}

func (c *checkoutTx) RestoreBasket(ctx context.Context, basketUUID string, items []d.LineItem) (int64, error) {
	if _, err := c.tx.ExecContext(ctx,
		`INSERT INTO baskets (uuid) VALUES ($1) ON CONFLICT (uuid) DO NOTHING`, basketUUID); err != nil {
		return 0, fmt.Errorf("recreate basket: %w", err)
	}

	var basketID int64
	if err := c.tx.QueryRowContext(ctx, `SELECT id FROM baskets WHERE uuid = $1`, basketUUID).Scan(&basketID); err != nil {
		return 0, fmt.Errorf("query basket by uuid: %w", err)
	}

	for _, it := range items {
		_, err := c.tx.ExecContext(ctx,
			`INSERT INTO basket_items (basket_id, product_id, quantity) VALUES ($1, $2, $3)
			 ON CONFLICT (basket_id, product_id)
			 DO UPDATE SET quantity = basket_items.quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP`,
			basketID, it.ProductID, it.Quantity)
		if err != nil {
			return 0, fmt.Errorf("restore basket item %d: %w", it.ProductID, err)
		}
	}
	return basketID, nil
}

func (c *checkoutTx) FailAuthorizedOrder(ctx context.Context, orderID, basketID int64, reason string) error {
	var addressID, cardID sql.NullInt64
	err := c.tx.QueryRowContext(ctx,
		`SELECT address_id, credit_card_id FROM orders WHERE id = $1`, orderID).Scan(&addressID, &cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query order by id: %w", err)
	}

	res, err := c.tx.ExecContext(ctx,
		`UPDATE orders SET status = 'failed', basket_id = $2, email = NULL, total_price_cents = NULL,
		        total_price_currency = NULL, address_id = NULL, credit_card_id = NULL, authorization_id = NULL,
		        transaction_id = NULL, failure_reason = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'authorized'`,
		orderID, basketID, reason)
	if err != nil {
		return fmt.Errorf("fail order: %w", err)
	}
	if err := oneRow(res, ErrOrderStateChanged); err != nil {
		return err
	}

	if addressID.Valid {
		if _, err := c.tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, addressID.Int64); err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
	}
	if cardID.Valid {
		if _, err := c.tx.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = $1`, cardID.Int64); err != nil {
			return fmt.Errorf("delete credit card: %w", err)
		}
	}
	return nil
}

func oneRow(res sql.Result, notMatched error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return notMatched
	}
	return nil
}
