package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
)

const productColumns = `id, name, description, price_cents, price_currency, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*d.Product, error) {
	p := &d.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price.Cents,
		&p.Price.Currency,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns up to limit products with id greater than afterID.
func (r *Repository) ListProducts(ctx context.Context, afterID int64, limit int) ([]*d.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id > $1 ORDER BY id LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*d.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*d.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *d.Product) error {
	query := `INSERT INTO products (name, description, price_cents, price_currency, stock)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	currency := p.Price.Currency
	if currency == "" {
		currency = d.DefaultCurrency
	}
	err := r.db.QueryRowContext(ctx, query,
		p.Name,
		p.Description,
		p.Price.Cents,
		currency,
		p.Stock).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.Price.Currency = currency
	return nil
}

// SetStock overwrites the stock counter; used for seeding and restocking, never
// by checkout.
func (r *Repository) SetStock(ctx context.Context, productID int64, stock int32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		productID, stock)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
