package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

type column struct {
	name     string
	pgType   string
	liteType string
	numeric  bool
}

// productColumns is the persisted layout of a record, identity column first.
var productColumns = []column{
	{name: "url", pgType: "TEXT", liteType: "TEXT"},
	{name: "name", pgType: "TEXT", liteType: "TEXT"},
	{name: "sku", pgType: "TEXT", liteType: "TEXT"},
	{name: "brand", pgType: "TEXT", liteType: "TEXT"},
	{name: "price", pgType: "NUMERIC", liteType: "REAL", numeric: true},
	{name: "region", pgType: "TEXT", liteType: "TEXT"},
	{name: "supplier", pgType: "TEXT", liteType: "TEXT"},
	{name: "all_images", pgType: "TEXT", liteType: "TEXT"},
	{name: "description", pgType: "TEXT", liteType: "TEXT"},
	{name: "quantity", pgType: "TEXT", liteType: "TEXT"},
	{name: "pieces_in_pack", pgType: "TEXT", liteType: "TEXT"},
	{name: "coverage_m2", pgType: "TEXT", liteType: "TEXT"},
	{name: "volume_m3", pgType: "TEXT", liteType: "TEXT"},
	{name: "product_length_m", pgType: "TEXT", liteType: "TEXT"},
	{name: "product_width", pgType: "TEXT", liteType: "TEXT"},
	{name: "product_thickness", pgType: "TEXT", liteType: "TEXT"},
	{name: "product_weight_kg", pgType: "TEXT", liteType: "TEXT"},
	{name: "product_type", pgType: "TEXT", liteType: "TEXT"},
	{name: "material", pgType: "TEXT", liteType: "TEXT"},
	{name: "scraped_at", pgType: "TIMESTAMPTZ", liteType: "TEXT"},
}

const scrapedAtColumn = "scraped_at"

func productValues(p *models.Product) []any {
	return []any{
		p.URL,
		p.Name,
		p.SKU,
		p.Brand,
		p.PriceIncVAT,
		p.Region,
		p.Supplier,
		p.ImagesString(),
		p.Description,
		p.Quantity,
		p.PiecesInPack,
		p.Coverage.String(),
		p.Volume.String(),
		p.Length.String(),
		p.Width.String(),
		p.Thickness.String(),
		p.Weight,
		p.ProductType,
		p.Material,
	}
}

// productRow holds one stored record in its rendered column form.
type productRow struct {
	url, name, sku, brand        string
	price                        float64
	region, supplier, allImages  string
	description, quantity        string
	piecesInPack, coverage       string
	volume, length, width        string
	thickness, weight            string
	productType, material        string
	scrapedAt                    time.Time
}

// dest returns scan targets for every column except scraped_at, which differs by driver.
func (r *productRow) dest() []any {
	return []any{
		&r.url, &r.name, &r.sku, &r.brand, &r.price, &r.region, &r.supplier,
		&r.allImages, &r.description, &r.quantity, &r.piecesInPack, &r.coverage,
		&r.volume, &r.length, &r.width, &r.thickness, &r.weight, &r.productType,
		&r.material,
	}
}

func (r *productRow) toProduct() *models.Product {
	p := models.NewProduct(r.url)
	p.Name = r.name
	p.SKU = r.sku
	p.Brand = r.brand
	p.PriceIncVAT = r.price
	p.Region = r.region
	p.Supplier = r.supplier
	p.Images = models.ParseImages(r.allImages)
	p.Description = r.description
	p.Quantity = r.quantity
	p.PiecesInPack = r.piecesInPack
	p.Coverage = models.ParseMeasure(r.coverage)
	p.Volume = models.ParseVolume(r.volume)
	p.Length = models.ParseMeasure(r.length)
	p.Width = models.ParseMeasure(r.width)
	p.Thickness = models.ParseMeasure(r.thickness)
	p.Weight = r.weight
	p.ProductType = r.productType
	p.Material = r.material
	p.ScrapedAt = r.scrapedAt
	return p
}

// selectList reads every column with legacy NULLs mapped to the unknown defaults.
func selectList() string {
	exprs := make([]string, 0, len(productColumns))
	for _, c := range productColumns {
		switch {
		case c.name == scrapedAtColumn:
			exprs = append(exprs, c.name)
		case c.numeric:
			exprs = append(exprs, fmt.Sprintf("COALESCE(%s, 0)", c.name))
		default:
			exprs = append(exprs, fmt.Sprintf("COALESCE(%s, '%s')", c.name, models.NotAvailable))
		}
	}
	return strings.Join(exprs, ", ")
}

// upsertQuery builds the insert-or-replace statement; placeholder renders the nth
// bind parameter for the driver.
func upsertQuery(placeholder func(n int) string, touchUpdatedAt string) string {
	names := make([]string, 0, len(productColumns))
	params := make([]string, 0, len(productColumns))
	updates := make([]string, 0, len(productColumns))

	for i, c := range productColumns {
		names = append(names, c.name)
		params = append(params, placeholder(i+1))
		if i > 0 {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c.name, c.name))
		}
	}
	updates = append(updates, touchUpdatedAt)

	return fmt.Sprintf("INSERT INTO products (%s) VALUES (%s) ON CONFLICT (url) DO UPDATE SET %s",
		strings.Join(names, ", "), strings.Join(params, ", "), strings.Join(updates, ", "))
}

var pgUpsertQuery = upsertQuery(func(n int) string { return fmt.Sprintf("$%d", n) }, "updated_at = CURRENT_TIMESTAMP")

func (db *DB) Migrate(ctx context.Context) error {
	return db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS products (
				id SERIAL PRIMARY KEY,
				url TEXT UNIQUE NOT NULL,
				created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
			)`); err != nil {
			return fmt.Errorf("failed to create products table: %w", err)
		}

		for _, c := range productColumns[1:] {
			query := fmt.Sprintf("ALTER TABLE products ADD COLUMN IF NOT EXISTS %s %s", c.name, c.pgType)
			if _, err := tx.Exec(ctx, query); err != nil {
				return fmt.Errorf("failed to add column %s: %w", c.name, err)
			}
		}

		if _, err := tx.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)`); err != nil {
			return fmt.Errorf("failed to create sku index: %w", err)
		}
		return nil
	})
}

func (db *DB) ProductExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return exists, nil
}

func (db *DB) GetProduct(ctx context.Context, url string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE url = $1`, selectList())

	var row productRow
	var scrapedAt *time.Time
	err := db.pool.QueryRow(ctx, query, url).Scan(append(row.dest(), &scrapedAt)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if scrapedAt != nil {
		row.scrapedAt = scrapedAt.UTC()
	}
	return row.toProduct(), nil
}

func (db *DB) UpsertProduct(ctx context.Context, p *models.Product) error {
	args := append(productValues(p), nullTime(p.ScrapedAt))
	if _, err := db.pool.Exec(ctx, pgUpsertQuery, args...); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.URL, err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
