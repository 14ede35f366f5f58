package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a local SQLite file for runs without Postgres.
type SQLiteStore struct {
	db *sql.DB
}

var sqliteUpsertQuery = upsertQuery(func(int) string { return "?" }, "updated_at = CURRENT_TIMESTAMP")

// OpenSQLite opens path (":memory:" works) with a single connection, which SQLite
// needs for concurrent writers from the worker pool.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}

	existing, err := s.columns(ctx)
	if err != nil {
		return err
	}

	for _, c := range productColumns[1:] {
		if existing[c.name] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE products ADD COLUMN %s %s", c.name, c.liteType)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", c.name, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)`); err != nil {
		return fmt.Errorf("failed to create sku index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('products')`)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect products table: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func (s *SQLiteStore) ProductExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE url = ?)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, url string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE url = ?`, selectList())

	var row productRow
	var scrapedAt sql.NullString
	err := s.db.QueryRowContext(ctx, query, url).Scan(append(row.dest(), &scrapedAt)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if scrapedAt.Valid && scrapedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, scrapedAt.String); err == nil {
			row.scrapedAt = t.UTC()
		}
	}
	return row.toProduct(), nil
}

func (s *SQLiteStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	var scrapedAt sql.NullString
	if !p.ScrapedAt.IsZero() {
		scrapedAt = sql.NullString{String: p.ScrapedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	args := append(productValues(p), scrapedAt)
	if _, err := s.db.ExecContext(ctx, sqliteUpsertQuery, args...); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.URL, err)
	}
	return nil
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLiteStore)(nil)
)
