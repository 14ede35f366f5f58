package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/screwfix-catalog-scraper/internal/browser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/database"
	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/maltedev/screwfix-catalog-scraper/internal/observability"
	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/ratelimit"
)

// Fetcher loads one product page. *browser.Browser implements it.
type Fetcher interface {
	FetchProduct(ctx context.Context, url string) (*parser.PageContent, error)
}

type Publisher interface {
	PublishProductScraped(ctx context.Context, p *models.Product) error
}

type Handlers struct {
	assembler *parser.Assembler
	store     database.Store
	fetcher   Fetcher
	publisher Publisher
	metrics   *observability.Metrics
	limiter   ratelimit.RateLimiter
	logger    *slog.Logger

	// the browser drives a single page
	fetchMu sync.Mutex
	now     func() time.Time
}

// NewHandlers wires the API. fetcher, publisher and metrics may be nil.
func NewHandlers(assembler *parser.Assembler, store database.Store, fetcher Fetcher, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		assembler: assembler,
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("component", "api"),
		now:       time.Now,
	}
}

// SetLimiter spaces live fetches; without one they run back to back.
func (h *Handlers) SetLimiter(l ratelimit.RateLimiter) {
	h.limiter = l
}

// ScrapeRequest asks for a live fetch of one product page
type ScrapeRequest struct {
	URL string `json:"url"`
}

// Extract assembles a record from page content supplied by the caller.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var page parser.PageContent
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if page.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	h.respondJSON(w, http.StatusOK, h.assembler.Assemble(&page))
}

// Scrape fetches a product page, merges it into any stored record and saves it.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	if h.fetcher == nil {
		h.respondError(w, http.StatusServiceUnavailable, "scraping is not enabled")
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !isProductURL(req.URL) {
		h.respondError(w, http.StatusBadRequest, "a product url is required")
		return
	}

	ctx := r.Context()
	page, err := h.fetch(ctx, req.URL)
	if err != nil {
		h.logger.Error("failed to fetch product", "url", req.URL, "error", err)
		h.metrics.IncFailed()
		status := http.StatusInternalServerError
		if errors.Is(err, browser.ErrAccessDenied) {
			status = http.StatusBadGateway
		}
		h.respondError(w, status, "failed to fetch product")
		return
	}

	fresh := h.assembler.Assemble(page)
	fresh.URL = req.URL

	record := models.NewProduct(req.URL)
	if h.store != nil {
		stored, err := h.store.GetProduct(ctx, req.URL)
		switch {
		case err == nil:
			record = stored
		case !errors.Is(err, database.ErrNotFound):
			h.logger.Warn("failed to load stored product", "url", req.URL, "error", err)
		}
	}
	record.Merge(fresh)
	record.ScrapedAt = h.now().UTC()

	if h.store != nil {
		if err := h.store.UpsertProduct(ctx, record); err != nil {
			h.logger.Error("failed to save product", "url", req.URL, "error", err)
			h.metrics.IncFailed()
			h.respondError(w, http.StatusInternalServerError, "failed to save product")
			return
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishProductScraped(ctx, record); err != nil {
			h.logger.Warn("failed to publish event", "url", req.URL, "error", err)
		}
	}

	h.metrics.IncScraped()
	h.respondJSON(w, http.StatusOK, record)
}

// GetProduct returns the stored record for the url query parameter.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productURL := r.URL.Query().Get("url")
	if productURL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "no product store configured")
		return
	}

	product, err := h.store.GetProduct(r.Context(), productURL)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get product", "url", productURL, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"scraping": h.fetcher != nil,
	})
}

func (h *Handlers) fetch(ctx context.Context, productURL string) (*parser.PageContent, error) {
	h.fetchMu.Lock()
	defer h.fetchMu.Unlock()

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}
	return h.fetcher.FetchProduct(ctx, productURL)
}

func isProductURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(u.Path, "/p/")
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
