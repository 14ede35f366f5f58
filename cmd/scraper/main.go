package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/maltedev/screwfix-catalog-scraper/internal/browser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/config"
	"github.com/maltedev/screwfix-catalog-scraper/internal/database"
	"github.com/maltedev/screwfix-catalog-scraper/internal/events"
	"github.com/maltedev/screwfix-catalog-scraper/internal/export"
	"github.com/maltedev/screwfix-catalog-scraper/internal/jobs"
	"github.com/maltedev/screwfix-catalog-scraper/internal/logging"
	"github.com/maltedev/screwfix-catalog-scraper/internal/observability"
	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/storage"
)

func main() {
	var (
		urls        = flag.String("urls", "", "Comma-separated list of product URLs to scrape")
		inputFile   = flag.String("file", "", "File containing product URLs (one per line)")
		departments = flag.String("departments", "", "Comma-separated category URLs to crawl instead of the configured departments")
		resume      = flag.Bool("resume", false, "Scrape the pending links left in the link file by an earlier run")
		maxProducts = flag.Int("max-products", -1, "Stop after this many records (overrides SCRAPER_MAX_PRODUCTS)")
		refresh     = flag.Bool("refresh", false, "Re-scrape products that are already stored")
		headless    = flag.Bool("headless", true, "Run browser in headless mode")
		migrateOnly = flag.Bool("migrate", false, "Run database migrations and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *maxProducts >= 0 {
		cfg.Scraper.MaxProducts = *maxProducts
	}
	cfg.Scraper.RefreshExisting = cfg.Scraper.RefreshExisting || *refresh
	cfg.Browser.Headless = *headless && cfg.Browser.Headless

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("Starting Screwfix catalog scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	store, err := database.OpenStore(ctx, cfg.Database.Driver, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	}, cfg.Database.SQLitePath)
	if err != nil {
		logger.Error("Failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateOnly {
		logger.Info("Migrations applied")
		return
	}

	publisher, err := events.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Stream, logger)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	links, err := storage.NewLinkStorage(cfg.Scraper.LinkFile)
	if err != nil {
		logger.Error("Failed to open link file", "path", cfg.Scraper.LinkFile, "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	if cfg.Metrics.Port != "" {
		srv := observability.Start(cfg.Metrics.Port, metrics, logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	accumulator := export.NewAccumulator(cfg.Export.BatchSize, logger,
		[]export.Writer{export.NewCSVWriter(cfg.Export.CSVPath), export.NewXLSXWriter(cfg.Export.XLSXPath)},
		export.WithFlushHook(func(int) { metrics.IncFlush() }))

	var sessions atomic.Int64
	newSession := func(ctx context.Context) (jobs.Session, error) {
		n := int(sessions.Add(1) - 1)
		b, err := browser.New(browser.OptionsFromConfig(cfg.Browser, cfg.Scraper, n), logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	pool := jobs.NewPool(jobs.PoolConfig{
		Workers:         cfg.Scraper.Workers,
		MinDelay:        cfg.Scraper.MinDelay,
		MaxDelay:        cfg.Scraper.MaxDelay,
		RefreshExisting: cfg.Scraper.RefreshExisting,
	}, newSession, parser.NewAssembler(cfg.Scraper.Region, cfg.Scraper.Supplier, logger), store, logger,
		jobs.WithPublisher(publisher),
		jobs.WithTracker(links),
		jobs.WithSink(accumulator),
		jobs.WithMetrics(metrics))

	items, err := loadItems(*urls, *inputFile, cfg.Scraper.Supplier)
	if err != nil {
		logger.Error("Failed to load product URLs", "error", err)
		os.Exit(1)
	}
	if *resume {
		items = append(items, pendingItems(links, cfg.Scraper.Supplier)...)
	}

	switch {
	case len(items) > 0:
		if cfg.Scraper.MaxProducts > 0 && len(items) > cfg.Scraper.MaxProducts {
			items = items[:cfg.Scraper.MaxProducts]
		}
		logger.Info("Scraping product list", "products", len(items))
		if _, err := pool.Run(ctx, items); err != nil {
			logger.Error("Some partitions failed", "error", err)
		}
	default:
		starts := splitList(*departments)
		if len(starts) == 0 {
			starts = cfg.Scraper.Departments
		}
		if len(starts) == 0 {
			starts = jobs.DefaultDepartments
		}

		crawler := jobs.NewCrawler(jobs.CrawlerConfig{
			MaxDepth:    cfg.Scraper.MaxDepth,
			MaxProducts: cfg.Scraper.MaxProducts,
			MaxPages:    cfg.Scraper.MaxPages,
		}, pool, newSession, logger)

		logger.Info("Crawling departments", "departments", len(starts))
		total, err := crawler.Crawl(ctx, starts)
		if err != nil {
			logger.Error("Crawl stopped early", "error", err)
		}
		logger.Info("Crawl finished", "records", total)
	}

	if err := accumulator.Flush(); err != nil {
		logger.Error("Failed to write final export", "error", err)
	}

	stats := links.Stats()
	logger.Info("Scraping completed",
		"exported", accumulator.Len(),
		"completed", stats[storage.StatusCompleted],
		"skipped", stats[storage.StatusSkipped],
		"failed", stats[storage.StatusFailed])
	fmt.Printf("Exported %d products to %s and %s\n", accumulator.Len(), cfg.Export.CSVPath, cfg.Export.XLSXPath)
}
