package storage

import (
	"context"
	"fmt"

	"style-shopper/internal/types"
)

// Migrator is implemented by relational stores that own a schema
type Migrator interface {
	Migrate(ctx context.Context) error
}

// OpenProductStore picks the product store from configuration: PostgreSQL when
// DATABASE_URL is set, then SQLite when SQLITE_PATH is set, else the JSON batch file.
func OpenProductStore(ctx context.Context, config *types.Config) (types.ProductStore, error) {
	switch {
	case config.DatabaseURL != "":
		store, err := NewPostgresStore(ctx, config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.SQLitePath != "":
		store, err := NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return NewJSONProductStore(ProductsPath(config.DataDir)), nil
	}
}

// IsRelational reports whether the store is backed by a database rather than the JSON file
func IsRelational(store types.ProductStore) bool {
	_, ok := store.(Migrator)
	return ok
}
