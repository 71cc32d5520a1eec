package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrProductNotFound = errors.New("product not found")

// StockInfo contains stock information for a product
type StockInfo struct {
	ProductID int64
	Stock     int32
}

type stockRow struct {
	mu    sync.Mutex
	stock int32
}

// LockingStore is the explicit-lock reservation strategy for storage without a
// conditional bulk update: every implicated row lock is taken in ascending
// product id order, so overlapping reservations never deadlock. It honours
// the same partial-fulfillment contract as SQLReserver.
type LockingStore struct {
	mu   sync.RWMutex // guards rows, not stock values
	rows map[int64]*stockRow
}

func NewLockingStore() *LockingStore {
	return &LockingStore{rows: make(map[int64]*stockRow)}
}

// SetStock sets the stock level for a product (used for initialization)
func (s *LockingStore) SetStock(productID int64, quantity int32) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[productID]; ok {
		row.mu.Lock()
		row.stock = quantity
		row.mu.Unlock()
		return nil
	}
	s.rows[productID] = &stockRow{stock: quantity}
	return nil
}

// GetStock returns stock information for the given product IDs
func (s *LockingStore) GetStock(productIDs []int64) ([]StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		row, ok := s.rows[id]
		if !ok {
			continue
		}
		row.mu.Lock()
		result = append(result, StockInfo{ProductID: id, Stock: row.stock})
		row.mu.Unlock()
	}
	return result, nil
}

// Reserve returns the ids of products whose stock covered the request.
// Unknown products are treated like products without stock.
func (s *LockingStore) Reserve(ctx context.Context, items []Item) ([]int64, error) {
	merged, err := merge(items)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locked := s.lockOrdered(merged)
	defer unlockAll(locked)

	reserved := make([]int64, 0, len(merged))
	for _, it := range merged {
		row, ok := locked[it.ProductID]
		if !ok || row.stock < it.Quantity {
			continue
		}
		row.stock -= it.Quantity
		reserved = append(reserved, it.ProductID)
	}
	return reserved, nil
}

func (s *LockingStore) Release(ctx context.Context, items []Item) error {
	merged, err := merge(items)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	locked := s.lockOrdered(merged)
	defer unlockAll(locked)

	for _, it := range merged {
		row, ok := locked[it.ProductID]
		if !ok {
			return ErrProductNotFound
		}
		row.stock += it.Quantity
	}
	return nil
}

func (s *LockingStore) lockOrdered(items []Item) map[int64]*stockRow {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.mu.RLock()
	rows := make(map[int64]*stockRow, len(ids))
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			rows[id] = row
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if row, ok := rows[id]; ok {
			row.mu.Lock()
		}
	}
	return rows
}

func unlockAll(rows map[int64]*stockRow) {
	for _, row := range rows {
		row.mu.Unlock()
	}
}
