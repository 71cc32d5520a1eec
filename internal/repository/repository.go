package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/inventory"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type ProductStore interface {
	ListProducts(ctx context.Context, afterID int64, limit int) ([]*d.Product, error)
	GetProduct(ctx context.Context, id int64) (*d.Product, error)
}

type BasketStore interface {
	CreateBasket(ctx context.Context, basketUUID string) (*d.Basket, error)
	GetBasketByUUID(ctx context.Context, basketUUID string) (*d.Basket, error)
	GetBasketByID(ctx context.Context, id int64) (*d.Basket, error)
	UpsertBasketItem(ctx context.Context, basketID, productID int64, quantity int32) (*d.BasketItem, error)
	RemoveBasketItem(ctx context.Context, basketID, productID int64) error
}

type OrderStore interface {
	CreatePendingOrder(ctx context.Context, basket *d.Basket, event *OutboxEvent) (*d.Order, error)
	GetOrder(ctx context.Context, id int64) (*d.Order, error)
	GetOrderByBasketID(ctx context.Context, basketID int64) (*d.Order, error)
	TransitionOrder(ctx context.Context, id int64, from, to d.OrderStatus) error
	MarkOrderCaptured(ctx context.Context, id int64, transactionID string) error
	MarkOrderFailed(ctx context.Context, id int64, reason string) error
	GetStuckOrders(ctx context.Context, status d.OrderStatus, olderThan time.Time, limit int) ([]*d.Order, error)
	InTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
}

type RepoInterface interface {
	ProductStore
	BasketStore
	OrderStore
	OutboxStore
	Close() error
	RunMigrations(migrationsPath string) error
}

var _ RepoInterface = (*Repository)(nil)

type Repository struct {
	db       *sql.DB
	dialect  inventory.Dialect
	reserver inventory.Reserver
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	// open database
	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// check db
	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	slog.Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return newRepository(db, inventory.Postgres)
}

// NewSQLiteRepository opens a file backed database for local runs and tests.
// SQLite allows one writer, so the pool is limited to one connection.
func NewSQLiteRepository(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	return newRepository(db, inventory.SQLite)
}

func newRepository(db *sql.DB, dialect inventory.Dialect) (*Repository, error) {
	reserver, err := inventory.NewSQLReserver(dialect)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, dialect: dialect, reserver: reserver}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch r.dialect {
	case inventory.Postgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{})
	default:
		driver, err = migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		string(r.dialect),
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Dialect() inventory.Dialect {
	return r.dialect
}

func (r *Repository) Close() error {
	return r.db.Close()
}
