package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
)

const (
	DefaultMaxDepth = 3
	defaultMaxPages = 50
)

// DefaultDepartments are the top-level Screwfix departments walked when no
// start URLs are configured.
var DefaultDepartments = []string{
	"https://www.screwfix.com/c/tools/cat830034",
	"https://www.screwfix.com/c/heating-plumbing/cat830950",
	"https://www.screwfix.com/c/electrical-lighting/cat840780",
	"https://www.screwfix.com/c/bathrooms-kitchens/cat810412",
	"https://www.screwfix.com/c/outdoor-gardening/cat840458",
	"https://www.screwfix.com/c/screws-nails-fixings/cat840002",
	"https://www.screwfix.com/c/security-ironmongery/cat4190012",
	"https://www.screwfix.com/c/building-doors/cat850188",
	"https://www.screwfix.com/c/safety-workwear/cat850322",
	"https://www.screwfix.com/c/sealants-adhesives/cat850030",
	"https://www.screwfix.com/c/storage-ladders/cat831422",
	"https://www.screwfix.com/c/auto-cleaning/cat7360001",
	"https://www.screwfix.com/c/painting-decorating/cat850130",
}

type CrawlerConfig struct {
	MaxDepth    int
	MaxProducts int // 0 means no limit
	MaxPages    int // pagination pages per category
}

// Crawler walks department pages down to product listings and hands each
// listing's products to the pool.
type Crawler struct {
	cfg        CrawlerConfig
	pool       *Pool
	newSession SessionFactory
	logger     *slog.Logger

	visited   map[string]bool
	collected int
}

func NewCrawler(cfg CrawlerConfig, pool *Pool, newSession SessionFactory, logger *slog.Logger) *Crawler {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		cfg:        cfg,
		pool:       pool,
		newSession: newSession,
		logger:     logger.With("component", "crawler"),
		visited:    make(map[string]bool),
	}
}

// Crawl walks every department and returns how many records were produced.
// It is not safe for concurrent use.
func (c *Crawler) Crawl(ctx context.Context, departments []string) (int, error) {
	session, err := c.newSession(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open listing session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.logger.Warn("failed to close listing session", "error", err)
		}
	}()

	if err := session.Prepare(ctx); err != nil {
		return 0, fmt.Errorf("failed to prepare listing session: %w", err)
	}

	for _, department := range departments {
		if c.limitReached() {
			c.logger.Info("reached product limit", "max_products", c.cfg.MaxProducts)
			break
		}
		if ctx.Err() != nil {
			return c.collected, ctx.Err()
		}

		c.logger.Info("starting department", "url", department)
		c.walk(ctx, session, department, 0)
	}

	return c.collected, nil
}

func (c *Crawler) walk(ctx context.Context, session Session, url string, depth int) {
	if depth > c.cfg.MaxDepth {
		c.logger.Debug("max depth reached", "url", url)
		return
	}
	if c.visited[url] || c.limitReached() || ctx.Err() != nil {
		return
	}
	c.visited[url] = true

	listing, err := session.FetchListing(ctx, url)
	if err != nil {
		c.logger.Error("failed to load category", "url", url, "error", err)
		return
	}

	if len(listing.Products) > 0 {
		items := c.collectPages(ctx, session, listing)
		c.runPool(ctx, url, items)
		return
	}

	if len(listing.CategoryLinks) == 0 {
		c.logger.Info("no products or sub-categories found", "url", url)
		return
	}

	c.logger.Info("found sub-categories", "url", url, "depth", depth, "count", len(listing.CategoryLinks))
	for _, link := range listing.CategoryLinks {
		if c.limitReached() {
			return
		}
		c.walk(ctx, session, link, depth+1)
	}
}

// collectPages follows next-page links from first and returns the cards of every
// page, deduplicated by URL.
func (c *Crawler) collectPages(ctx context.Context, session Session, first *parser.ListingPage) []parser.ListingItem {
	seen := make(map[string]bool)
	var items []parser.ListingItem
	add := func(page *parser.ListingPage) {
		for _, item := range page.Products {
			if !seen[item.URL] {
				seen[item.URL] = true
				items = append(items, item)
			}
		}
	}
	add(first)

	next := first.NextURL
	for pages := 1; next != "" && pages < c.cfg.MaxPages && ctx.Err() == nil; pages++ {
		if c.visited[next] {
			break
		}
		c.visited[next] = true

		page, err := session.FetchListing(ctx, next)
		if err != nil {
			c.logger.Warn("failed to load listing page", "url", next, "error", err)
			break
		}
		c.logger.Info("listing page", "url", next, "products", len(page.Products))
		add(page)
		next = page.NextURL
	}
	return items
}

func (c *Crawler) runPool(ctx context.Context, url string, items []parser.ListingItem) {
	if c.cfg.MaxProducts > 0 {
		items = items[:min(len(items), c.cfg.MaxProducts-c.collected)]
	}
	if len(items) == 0 {
		return
	}

	records, err := c.pool.Run(ctx, items)
	if err != nil {
		c.logger.Error("some partitions failed", "url", url, "error", err)
	}
	c.collected += len(records)
	c.logger.Info("category finished", "url", url, "records", len(records), "total", c.collected)
}

func (c *Crawler) limitReached() bool {
	return c.cfg.MaxProducts > 0 && c.collected >= c.cfg.MaxProducts
}
