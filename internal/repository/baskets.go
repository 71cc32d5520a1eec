package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/google/uuid"
)

const basketItemsQuery = `
	SELECT bi.id, bi.basket_id, bi.product_id, bi.quantity,
	       p.id, p.name, p.description, p.price_cents, p.price_currency, p.stock, p.created_at, p.updated_at
	FROM basket_items bi
	JOIN products p ON p.id = bi.product_id
	WHERE bi.basket_id = $1
	ORDER BY bi.id`

func (r *Repository) CreateBasket(ctx context.Context, basketUUID string) (*d.Basket, error) {
	if _, err := uuid.Parse(basketUUID); err != nil {
		return nil, fmt.Errorf("invalid basket uuid %q: %w", basketUUID, err)
	}

	b := &d.Basket{UUID: basketUUID, Items: []d.BasketItem{}}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO baskets (uuid) VALUES ($1) RETURNING id`,
		basketUUID).Scan(&b.ID)
	if err != nil {
		return nil, fmt.Errorf("insert basket: %w", err)
	}
	return b, nil
}

// GetBasketByUUID loads a basket with its items and their products.
func (r *Repository) GetBasketByUUID(ctx context.Context, basketUUID string) (*d.Basket, error) {
	if _, err := uuid.Parse(basketUUID); err != nil {
		return nil, ErrBasketNotFound
	}
	return r.loadBasket(ctx, `SELECT id, uuid, created_at, updated_at FROM baskets WHERE uuid = $1`, basketUUID)
}

func (r *Repository) GetBasketByID(ctx context.Context, id int64) (*d.Basket, error) {
	return r.loadBasket(ctx, `SELECT id, uuid, created_at, updated_at FROM baskets WHERE id = $1`, id)
}

func (r *Repository) loadBasket(ctx context.Context, query string, arg any) (*d.Basket, error) {
	b := &d.Basket{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&b.ID, &b.UUID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBasketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query basket: %w", err)
	}

	items, err := r.basketItems(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

func (r *Repository) basketItems(ctx context.Context, basketID int64) ([]d.BasketItem, error) {
	rows, err := r.db.QueryContext(ctx, basketItemsQuery, basketID)
	if err != nil {
		return nil, fmt.Errorf("query basket items: %w", err)
	}
	defer rows.Close()

	items := make([]d.BasketItem, 0)
	for rows.Next() {
		var item d.BasketItem
		p := &d.Product{}
		if err := rows.Scan(
			&item.ID,
			&item.BasketID,
			&item.ProductID,
			&item.Quantity,
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price.Cents,
			&p.Price.Currency,
			&p.Stock,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan basket item: %w", err)
		}
		item.Product = p
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// UpsertBasketItem sets the quantity of a product in a basket, adding the item
// when it is not there yet.
func (r *Repository) UpsertBasketItem(ctx context.Context, basketID, productID int64, quantity int32) (*d.BasketItem, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO basket_items (basket_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (basket_id, product_id)
	          DO UPDATE SET quantity = excluded.quantity, updated_at = CURRENT_TIMESTAMP
	          RETURNING id`

	item := &d.BasketItem{BasketID: basketID, ProductID: productID, Quantity: quantity, Product: product}
	if err := r.db.QueryRowContext(ctx, query, basketID, productID, quantity).Scan(&item.ID); err != nil {
		return nil, fmt.Errorf("upsert basket item: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE baskets SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`, basketID); err != nil {
		return nil, fmt.Errorf("touch basket: %w", err)
	}
	return item, nil
}

func (r *Repository) RemoveBasketItem(ctx context.Context, basketID, productID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM basket_items WHERE basket_id = $1 AND product_id = $2`,
		basketID, productID)
	if err != nil {
		return fmt.Errorf("delete basket item: %w", err)
	}
	return nil
}
