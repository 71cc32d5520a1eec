package inventory

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupSQLite(t *testing.T, stocks map[int64]int32) *sql.DB {
	path := filepath.Join(t.TempDir(), "inventory.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	for id, stock := range stocks {
		_, err := db.Exec(`INSERT INTO products (id, stock) VALUES ($1, $2)`, id, stock)
		require.NoError(t, err)
	}
	return db
}

func sqliteStock(t *testing.T, db *sql.DB, id int64) int32 {
	var stock int32
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, id).Scan(&stock))
	return stock
}

func TestNewSQLReserver_UnknownDialect(t *testing.T) {
	_, err := NewSQLReserver("mysql")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestSQLReserver_PostgresQueryShape(t *testing.T) {
	r, err := NewSQLReserver(Postgres)
	require.NoError(t, err)

	query, args := r.reserveQuery([]Item{{ProductID: 7, Quantity: 2}, {ProductID: 9, Quantity: 1}})

	assert.Contains(t, query, "($1::bigint, $2::integer), ($3::bigint, $4::integer)")
	assert.Contains(t, query, "p.stock >= items.quantity")
	assert.Equal(t, 1, strings.Count(query, "UPDATE"))
	assert.Equal(t, []any{int64(7), int32(2), int64(9), int32(1)}, args)
}

func TestSQLReserver_Reserve_PartialFulfillment(t *testing.T) {
	db := setupSQLite(t, map[int64]int32{1: 5, 2: 0, 3: 2})
	r, err := NewSQLReserver(SQLite)
	require.NoError(t, err)

	reserved, err := r.Reserve(context.Background(), db, []Item{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 3},
		{ProductID: 404, Quantity: 1},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1}, reserved)
	assert.Equal(t, int32(4), sqliteStock(t, db, 1))
	assert.Equal(t, int32(0), sqliteStock(t, db, 2))
	assert.Equal(t, int32(2), sqliteStock(t, db, 3))
}

func TestSQLReserver_Reserve_Empty(t *testing.T) {
	r, err := NewSQLReserver(SQLite)
	require.NoError(t, err)

	reserved, err := r.Reserve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, reserved)
}

func TestSQLReserver_Release(t *testing.T) {
	db := setupSQLite(t, map[int64]int32{1: 10, 2: 1})
	r, err := NewSQLReserver(SQLite)
	require.NoError(t, err)

	items := []Item{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}}
	reserved, err := r.Reserve(context.Background(), db, items)
	require.NoError(t, err)
	assert.Len(t, reserved, 2)
	assert.Equal(t, int32(7), sqliteStock(t, db, 1))

	require.NoError(t, r.Release(context.Background(), db, items))
	assert.Equal(t, int32(10), sqliteStock(t, db, 1))
	assert.Equal(t, int32(1), sqliteStock(t, db, 2))
}

func TestSQLReserver_RollbackLeavesStockUntouched(t *testing.T) {
	db := setupSQLite(t, map[int64]int32{1: 10})
	r, err := NewSQLReserver(SQLite)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	reserved, err := r.Reserve(context.Background(), tx, []Item{{ProductID: 1, Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, reserved)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, int32(10), sqliteStock(t, db, 1))
}

func TestSQLReserver_ConcurrentReservations(t *testing.T) {
	for _, tc := range []struct {
		name     string
		stock    int32
		attempts int
	}{
		{"more attempts than stock", 10, 40},
		{"more stock than attempts", 50, 20},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db := setupSQLite(t, map[int64]int32{1: tc.stock})
			r, err := NewSQLReserver(SQLite)
			require.NoError(t, err)

			var wg sync.WaitGroup
			var mu sync.Mutex
			successCount := 0
			for i := 0; i < tc.attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					reserved, err := r.Reserve(context.Background(), db, []Item{{ProductID: 1, Quantity: 1}})
					if err == nil && len(reserved) == 1 {
						mu.Lock()
						successCount++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, min(tc.attempts, int(tc.stock)), successCount)
			assert.Equal(t, int32(max(0, int(tc.stock)-tc.attempts)), sqliteStock(t, db, 1))
		})
	}
}

func TestPartition(t *testing.T) {
	items := []Item{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 5}}

	reserved, skipped := Partition(items, []int64{1, 3})

	assert.Equal(t, []Item{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}}, reserved)
	assert.Equal(t, []Item{{ProductID: 2, Quantity: 5}}, skipped)

	reserved, skipped = Partition(items, nil)
	assert.Empty(t, reserved)
	assert.Len(t, skipped, 3)
}

func TestMerge(t *testing.T) {
	merged, err := merge([]Item{{ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: 2, Quantity: 5}, {ProductID: 1, Quantity: 3}}, merged)

	_, err = merge([]Item{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMerge_QuantityOverflowIsRejected(t *testing.T) {
	items := []Item{{ProductID: 1, Quantity: math.MaxInt32}, {ProductID: 1, Quantity: 1}}

	_, err := merge(items)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	db := setupSQLite(t, map[int64]int32{1: 10})
	r, err := NewSQLReserver(SQLite)
	require.NoError(t, err)
	_, err = r.Reserve(context.Background(), db, items)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, int32(10), sqliteStock(t, db, 1))
}
