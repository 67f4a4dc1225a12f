package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"style-shopper/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	price       TEXT NOT NULL,
	url         TEXT NOT NULL UNIQUE,
	image_url   TEXT NOT NULL DEFAULT '',
	retailer    TEXT NOT NULL,
	category    TEXT,
	colors      TEXT NOT NULL DEFAULT '[]',
	sizes       TEXT NOT NULL DEFAULT '[]',
	description TEXT,
	scraped_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS products_scraped_at_idx ON products (scraped_at DESC);`

// SQLiteStore is a local, file-backed product store with the same upsert-by-url
// contract as PostgresStore.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database and its schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Migrate creates the products table if it does not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveProducts upserts products by URL within a single transaction
func (s *SQLiteStore) SaveProducts(ctx context.Context, products []types.Product, scrapedAt time.Time) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (name, price, url, image_url, retailer, category, colors, sizes, description, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET
		   name = excluded.name, price = excluded.price, image_url = excluded.image_url,
		   retailer = excluded.retailer, category = excluded.category, colors = excluded.colors,
		   sizes = excluded.sizes, description = excluded.description, scraped_at = excluded.scraped_at`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	ts := scrapedAt.UTC().UnixNano()
	for _, p := range products {
		colors, err := json.Marshal(nonNilStrings(p.Colors))
		if err != nil {
			return 0, err
		}
		sizes, err := json.Marshal(nonNilStrings(p.Sizes))
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, p.Name, p.Price, p.URL, p.ImageURL, p.Retailer,
			p.Category, string(colors), string(sizes), p.Description, ts); err != nil {
			return 0, fmt.Errorf("failed to upsert %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(products), nil
}

// AllProducts returns every product, most recently scraped first
func (s *SQLiteStore) AllProducts(ctx context.Context) ([]types.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, price, url, image_url, retailer, category, colors, sizes, description
		 FROM products ORDER BY scraped_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		var (
			p             types.Product
			category      sql.NullString
			description   sql.NullString
			colors, sizes string
		)
		if err := rows.Scan(&p.Name, &p.Price, &p.URL, &p.ImageURL, &p.Retailer,
			&category, &colors, &sizes, &description); err != nil {
			return nil, err
		}
		if category.Valid {
			p.Category = &category.String
		}
		if description.Valid {
			p.Description = &description.String
		}
		if err := json.Unmarshal([]byte(colors), &p.Colors); err != nil {
			return nil, fmt.Errorf("corrupt colors for %s: %w", p.URL, err)
		}
		if err := json.Unmarshal([]byte(sizes), &p.Sizes); err != nil {
			return nil, fmt.Errorf("corrupt sizes for %s: %w", p.URL, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
