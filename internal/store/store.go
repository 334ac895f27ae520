package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetStock retrieves the authoritative stock level for a product
func (s *Store) GetStock(ctx context.Context, productID int64) (*models.Stock, error) {
	var st models.Stock
	err := s.db.GetContext(ctx, &st, "SELECT * FROM stocks WHERE product_id = $1", productID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stock for product %d: %w", productID, checkout.ErrUnitNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetAllStocks retrieves every stock row, used by the counter resync
func (s *Store) GetAllStocks(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	err := s.db.SelectContext(ctx, &stocks, "SELECT * FROM stocks ORDER BY product_id")
	return stocks, err
}
