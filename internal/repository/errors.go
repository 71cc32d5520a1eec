package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrBasketNotFound    = errors.New("basket not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("an order already exists for this basket")
	ErrOrderStateChanged = errors.New("order status changed concurrently")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
