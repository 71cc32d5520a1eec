package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/inventory"
)

const orderColumns = `o.id, o.basket_id, o.basket_uuid, o.status, o.email, o.total_price_cents, o.total_price_currency,
	o.address_id, o.credit_card_id, o.authorization_id, o.transaction_id, o.failure_reason, o.created_at, o.updated_at`

func scanOrder(row rowScanner) (*d.Order, error) {
	var (
		o                                      d.Order
		status                                 string
		basketID, addressID, cardID, total     sql.NullInt64
		email, currency, authID, txID, failure sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&basketID,
		&o.BasketUUID,
		&status,
		&email,
		&total,
		&currency,
		&addressID,
		&cardID,
		&authID,
		&txID,
		&failure,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Status, err = d.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	o.BasketID = nullInt(basketID)
	o.AddressID = nullInt(addressID)
	o.CreditCardID = nullInt(cardID)
	o.Email = nullString(email)
	o.AuthorizationID = nullString(authID)
	o.TransactionID = nullString(txID)
	o.FailureReason = nullString(failure)
	if total.Valid {
		m := d.NewMoney(total.Int64, currency.String)
		o.TotalPrice = &m
	}
	o.LineItems = []d.LineItem{}
	return &o, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// CreatePendingOrder is the duplicate-checkout guard. It creates the pending
// order for a basket together with the outbox event that schedules the
// checkout job. A failed order of the same basket is reopened instead; any
// other existing order yields ErrDuplicateCheckout.
func (r *Repository) CreatePendingOrder(ctx context.Context, basket *d.Basket, event *OutboxEvent) (*d.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var orderID int64
	err = tx.QueryRowContext(ctx,
		`UPDATE orders SET status = 'pending', failure_reason = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE basket_id = $1 AND status = 'failed'
		 RETURNING id`, basket.ID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (basket_id, basket_uuid, status) VALUES ($1, $2, 'pending') RETURNING id`,
			basket.ID, basket.UUID).Scan(&orderID)
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCheckout
		}
	}
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if event != nil {
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	basketID := basket.ID
	return &d.Order{
		ID:         orderID,
		BasketID:   &basketID,
		BasketUUID: basket.UUID,
		Status:     d.OrderStatusPending,
		LineItems:  []d.LineItem{},
	}, nil
}

// GetOrder loads an order with its line items, address and card.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*d.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if o.LineItems, err = lineItems(ctx, r.db, o.ID); err != nil {
		return nil, err
	}
	if o.AddressID != nil {
		if o.Address, err = r.getAddress(ctx, *o.AddressID); err != nil {
			return nil, err
		}
	}
	if o.CreditCardID != nil {
		if o.CreditCard, err = r.getCreditCard(ctx, *o.CreditCardID); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (r *Repository) GetOrderByBasketID(ctx context.Context, basketID int64) (*d.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.basket_id = $1`, basketID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by basket: %w", err)
	}
	return o, nil
}

// TransitionOrder moves an order between two statuses with a conditional
// update, so concurrent writers cannot both win.
func (r *Repository) TransitionOrder(ctx context.Context, id int64, from, to d.OrderStatus) error {
	if !d.CanTransitionTo(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return r.expectOneRow(ctx, res, id)
}

func (r *Repository) MarkOrderCaptured(ctx context.Context, id int64, transactionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = 'captured', transaction_id = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'authorized'`,
		id, transactionID)
	if err != nil {
		return fmt.Errorf("mark order captured: %w", err)
	}
	return r.expectOneRow(ctx, res, id)
}

// MarkOrderFailed records a checkout attempt that failed before anything was
// committed, which reopens the basket for another attempt.
func (r *Repository) MarkOrderFailed(ctx context.Context, id int64, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = 'failed', failure_reason = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status IN ('pending', 'failed')`,
		id, reason)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	return r.expectOneRow(ctx, res, id)
}

// GetStuckOrders returns orders that sat in status since before olderThan.
func (r *Repository) GetStuckOrders(ctx context.Context, status d.OrderStatus, olderThan time.Time, limit int) ([]*d.Order, error) {
	var cutoff any = olderThan.UTC()
	if r.dialect == inventory.SQLite {
		// CURRENT_TIMESTAMP is stored as UTC text in this layout
		cutoff = olderThan.UTC().Format(time.DateTime)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders o
		 WHERE o.status = $1 AND o.updated_at < $2
		 ORDER BY o.id LIMIT $3`,
		status, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stuck orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*d.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *Repository) expectOneRow(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query order by id: %w", err)
	}
	return ErrOrderStateChanged
}

func (r *Repository) getAddress(ctx context.Context, id int64) (*d.Address, error) {
	a := &d.Address{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, line_1, line_2, city, state, zip, country FROM addresses WHERE id = $1`, id).
		Scan(&a.ID, &a.Line1, &a.Line2, &a.City, &a.State, &a.Zip, &a.Country)
	if err != nil {
		return nil, fmt.Errorf("query address: %w", err)
	}
	return a, nil
}

func (r *Repository) getCreditCard(ctx context.Context, id int64) (*d.CreditCard, error) {
	c := &d.CreditCard{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, brand, last4, exp_month, exp_year FROM credit_cards WHERE id = $1`, id).
		Scan(&c.ID, &c.Token, &c.Brand, &c.Last4, &c.ExpMonth, &c.ExpYear)
	if err != nil {
		return nil, fmt.Errorf("query credit card: %w", err)
	}
	return c, nil
}

func lineItems(ctx context.Context, q inventory.Querier, orderID int64) ([]d.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, unit_price_currency
		 FROM order_line_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := make([]d.LineItem, 0)
	for rows.Next() {
		var l d.LineItem
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductID,
			&l.ProductName,
			&l.Quantity,
			&l.UnitPrice.Cents,
			&l.UnitPrice.Currency,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
