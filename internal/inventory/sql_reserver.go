package inventory

import (
	"context"
	"fmt"
	"strings"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQLReserver reserves stock with a single set-based conditional UPDATE, so
// per-row atomicity comes from the database and no application lock is held.
type SQLReserver struct {
	dialect Dialect
}

func NewSQLReserver(dialect Dialect) (*SQLReserver, error) {
	switch dialect {
	case Postgres, SQLite:
		return &SQLReserver{dialect: dialect}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
}

func (r *SQLReserver) Reserve(ctx context.Context, q Querier, items []Item) ([]int64, error) {
	merged, err := merge(items)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, nil
	}

	query, args := r.reserveQuery(merged)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}
	defer rows.Close()

	reserved := make([]int64, 0, len(merged))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reserved product: %w", err)
		}
		reserved = append(reserved, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return reserved, nil
}

// Release puts stock back, e.g. when a committed checkout is compensated.
func (r *SQLReserver) Release(ctx context.Context, q Querier, items []Item) error {
	merged, err := merge(items)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return nil
	}

	query, args := r.releaseQuery(merged)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (r *SQLReserver) reserveQuery(items []Item) (string, []any) {
	values, args := r.values(items)
	if r.dialect == Postgres {
		return `UPDATE products AS p
			SET stock = p.stock - items.quantity, updated_at = CURRENT_TIMESTAMP
			FROM (VALUES ` + values + `) AS items(product_id, quantity)
			WHERE p.id = items.product_id AND p.stock >= items.quantity
			RETURNING p.id`, args
	}
	// SQLite names VALUES columns column1..N and only lets RETURNING see the
	// updated table.
	return `UPDATE products
		SET stock = products.stock - items.quantity, updated_at = CURRENT_TIMESTAMP
		FROM (SELECT column1 AS product_id, column2 AS quantity FROM (VALUES ` + values + `)) AS items
		WHERE products.id = items.product_id AND products.stock >= items.quantity
		RETURNING id`, args
}

func (r *SQLReserver) releaseQuery(items []Item) (string, []any) {
	values, args := r.values(items)
	if r.dialect == Postgres {
		return `UPDATE products AS p
			SET stock = p.stock + items.quantity, updated_at = CURRENT_TIMESTAMP
			FROM (VALUES ` + values + `) AS items(product_id, quantity)
			WHERE p.id = items.product_id`, args
	}
	return `UPDATE products
		SET stock = products.stock + items.quantity, updated_at = CURRENT_TIMESTAMP
		FROM (SELECT column1 AS product_id, column2 AS quantity FROM (VALUES ` + values + `)) AS items
		WHERE products.id = items.product_id`, args
}

func (r *SQLReserver) values(items []Item) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(items)*2)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if r.dialect == Postgres {
			fmt.Fprintf(&b, "($%d::bigint, $%d::integer)", 2*i+1, 2*i+2)
		} else {
			fmt.Fprintf(&b, "($%d, $%d)", 2*i+1, 2*i+2)
		}
		args = append(args, it.ProductID, it.Quantity)
	}
	return b.String(), args
}
