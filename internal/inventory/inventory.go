package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidQuantity = errors.New("reservation quantity must be positive")
	ErrUnknownDialect  = errors.New("unknown sql dialect")
)

// Item is one (product, quantity) pair of a reservation request.
type Item struct {
	ProductID int64
	Quantity  int32
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Reserver decrements stock for every item whose product has enough of it
// and reports which products were reserved. Items that are not returned are
// left untouched.
type Reserver interface {
	Reserve(ctx context.Context, q Querier, items []Item) ([]int64, error)
	Release(ctx context.Context, q Querier, items []Item) error
}

// merge sums quantities of repeated products so one statement never matches
// the same row twice.
func merge(items []Item) ([]Item, error) {
	products := make([]int64, 0, len(items))
	totals := make(map[int64]int64, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d quantity %d", ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		if _, ok := totals[it.ProductID]; !ok {
			products = append(products, it.ProductID)
		}
		totals[it.ProductID] += int64(it.Quantity)
		if totals[it.ProductID] > math.MaxInt32 {
			return nil, fmt.Errorf("%w: product %d quantity exceeds %d", ErrInvalidQuantity, it.ProductID, math.MaxInt32)
		}
	}

	merged := make([]Item, len(products))
	for i, id := range products {
		merged[i] = Item{ProductID: id, Quantity: int32(totals[id])}
	}
	return merged, nil
}

// Partition splits items into the ones whose product was reserved and the
// ones that were skipped, keeping the input order.
func Partition(items []Item, reservedIDs []int64) (reserved, skipped []Item) {
	ok := make(map[int64]struct{}, len(reservedIDs))
	for _, id := range reservedIDs {
		ok[id] = struct{}{}
	}
	for _, it := range items {
		if _, hit := ok[it.ProductID]; hit {
			reserved = append(reserved, it)
		} else {
			skipped = append(skipped, it)
		}
	}
	return reserved, skipped
}
