package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"style-shopper/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	name        VARCHAR(500) NOT NULL,
	price       VARCHAR(100) NOT NULL,
	url         TEXT NOT NULL UNIQUE,
	image_url   TEXT NOT NULL DEFAULT '',
	retailer    VARCHAR(200) NOT NULL,
	category    VARCHAR(200),
	colors      JSONB NOT NULL DEFAULT '[]',
	sizes       JSONB NOT NULL DEFAULT '[]',
	description TEXT,
	scraped_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS products_scraped_at_idx ON products (scraped_at DESC);`

const postgresUpsert = `INSERT INTO products (name, price, url, image_url, retailer, category, colors, sizes, description, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (url) DO UPDATE SET
	  name = EXCLUDED.name, price = EXCLUDED.price, image_url = EXCLUDED.image_url,
	  retailer = EXCLUDED.retailer, category = EXCLUDED.category, colors = EXCLUDED.colors,
	  sizes = EXCLUDED.sizes, description = EXCLUDED.description, scraped_at = EXCLUDED.scraped_at`

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL. Heroku-style postgres:// URLs are accepted.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	if strings.HasPrefix(connStr, "postgres://") {
		connStr = "postgresql://" + strings.TrimPrefix(connStr, "postgres://")
	}
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Ping checks connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Migrate creates the products table if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveProducts upserts products by URL within a single transaction.
func (s *PostgresStore) SaveProducts(ctx context.Context, products []types.Product, scrapedAt time.Time) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(postgresUpsert,
			p.Name, p.Price, p.URL, p.ImageURL, p.Retailer, p.Category,
			nonNilStrings(p.Colors), nonNilStrings(p.Sizes), p.Description, scrapedAt.UTC())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to upsert products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(products), nil
}

// AllProducts returns every product, most recently scraped first
func (s *PostgresStore) AllProducts(ctx context.Context) ([]types.Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, price, url, image_url, retailer, category, colors, sizes, description
		 FROM products ORDER BY scraped_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		var p types.Product
		if err := rows.Scan(&p.Name, &p.Price, &p.URL, &p.ImageURL, &p.Retailer,
			&p.Category, &p.Colors, &p.Sizes, &p.Description); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
