package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/screwfix-catalog-scraper/internal/api"
	"github.com/maltedev/screwfix-catalog-scraper/internal/browser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/config"
	"github.com/maltedev/screwfix-catalog-scraper/internal/database"
	"github.com/maltedev/screwfix-catalog-scraper/internal/events"
	"github.com/maltedev/screwfix-catalog-scraper/internal/logging"
	"github.com/maltedev/screwfix-catalog-scraper/internal/observability"
	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	publisher, err := events.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Stream, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	b, err := browser.New(browser.OptionsFromConfig(cfg.Browser, cfg.Scraper, 0), logger)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	if err := b.Prepare(ctx); err != nil {
		logger.Warn("failed to prepare browser session", "error", err)
	}

	metrics := observability.NewMetrics()
	handlers := api.NewHandlers(
		parser.NewAssembler(cfg.Scraper.Region, cfg.Scraper.Supplier, logger),
		store, b, publisher, metrics, logger)
	handlers.SetLimiter(ratelimit.NewJitteredLimiter(cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handlers, metrics, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * 4,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
