package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/screwfix-catalog-scraper/internal/browser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/database"
	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/maltedev/screwfix-catalog-scraper/internal/observability"
	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/screwfix-catalog-scraper/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Session is one isolated browser. *browser.Browser implements it.
type Session interface {
	Prepare(ctx context.Context) error
	FetchProduct(ctx context.Context, url string) (*parser.PageContent, error)
	FetchListing(ctx context.Context, url string) (*parser.ListingPage, error)
	Close() error
}

// SessionFactory opens a new, unprepared session.
type SessionFactory func(ctx context.Context) (Session, error)

type Publisher interface {
	PublishProductScraped(ctx context.Context, p *models.Product) error
}

// Tracker records per-URL progress. *storage.LinkStorage implements it.
type Tracker interface {
	AddBatch(links []*storage.ProductLink) error
	UpdateStatus(url string, status storage.Status, cause error) error
}

// Sink receives every record the pool produces. *export.Accumulator implements it.
type Sink interface {
	Add(p *models.Product) error
}

type PoolConfig struct {
	Workers         int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	RefreshExisting bool
}

// Pool fetches product pages across a fixed number of partitions, each with its
// own browser session, and persists the assembled records.
type Pool struct {
	cfg        PoolConfig
	newSession SessionFactory
	assembler  *parser.Assembler
	store      database.Store
	publisher  Publisher
	tracker    Tracker
	sink       Sink
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

type PoolOption func(*Pool)

func WithPublisher(p Publisher) PoolOption { return func(pool *Pool) { pool.publisher = p } }

func WithTracker(t Tracker) PoolOption { return func(pool *Pool) { pool.tracker = t } }

func WithSink(s Sink) PoolOption { return func(pool *Pool) { pool.sink = s } }

func WithMetrics(m *observability.Metrics) PoolOption { return func(pool *Pool) { pool.metrics = m } }

func NewPool(cfg PoolConfig, newSession SessionFactory, assembler *parser.Assembler, store database.Store, logger *slog.Logger, opts ...PoolOption) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		cfg:        cfg,
		newSession: newSession,
		assembler:  assembler,
		store:      store,
		logger:     logger.With("component", "pool"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition splits items into chunks of max(1, n/workers). The last chunk may
// be shorter, and there can be more chunks than workers.
func Partition(items []parser.ListingItem, workers int) [][]parser.ListingItem {
	if len(items) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	size := max(1, len(items)/workers)
	chunks := make([][]parser.ListingItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Run processes items and returns the records it produced. Failures on single
// records are logged and counted; only partitions whose session could not be
// set up are reported, joined into one error.
func (p *Pool) Run(ctx context.Context, items []parser.ListingItem) ([]*models.Product, error) {
	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)

	chunks := Partition(items, p.cfg.Workers)
	logger.Info("starting pool",
		"products", len(items),
		"workers", p.cfg.Workers,
		"partitions", len(chunks))

	p.registerPending(items)

	var (
		mu        sync.Mutex
		results   []*models.Product
		setupErrs []error
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			records, err := p.runPartition(ctx, logger.With("partition", i), chunk)

			mu.Lock()
			defer mu.Unlock()
			results = append(results, records...)
			if err != nil {
				setupErrs = append(setupErrs, fmt.Errorf("partition %d: %w", i, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("pool finished", "records", len(results), "failed_partitions", len(setupErrs))
	return results, errors.Join(setupErrs...)
}

func (p *Pool) registerPending(items []parser.ListingItem) {
	if p.tracker == nil {
		return
	}

	links := make([]*storage.ProductLink, 0, len(items))
	for _, item := range items {
		links = append(links, &storage.ProductLink{URL: item.URL, SKU: item.SKU, Name: item.Name})
	}
	if err := p.tracker.AddBatch(links); err != nil {
		p.logger.Warn("failed to record pending links", "error", err)
	}
}

func (p *Pool) runPartition(ctx context.Context, logger *slog.Logger, chunk []parser.ListingItem) ([]*models.Product, error) {
	session, err := p.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close browser session", "error", err)
		}
	}()

	if err := session.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare browser session: %w", err)
	}

	limiter := ratelimit.NewAdaptiveLimiter(p.cfg.MinDelay, p.cfg.MaxDelay)

	var records []*models.Product
	for idx, item := range chunk {
		if ctx.Err() != nil {
			logger.Warn("partition cancelled", "remaining", len(chunk)-idx)
			break
		}

		record := p.processItem(ctx, logger.With("item", fmt.Sprintf("%d/%d", idx+1, len(chunk))), session, limiter, item)
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

// processItem fetches, assembles and persists one product. It returns nil when
// the item was skipped or failed.
func (p *Pool) processItem(ctx context.Context, logger *slog.Logger, session Session, limiter *ratelimit.AdaptiveLimiter, item parser.ListingItem) *models.Product {
	logger = logger.With("url", item.URL)

	base := models.NewProduct(item.URL)
	if p.store != nil {
		if p.cfg.RefreshExisting {
			stored, err := p.store.GetProduct(ctx, item.URL)
			switch {
			case err == nil:
				base = stored
			case !errors.Is(err, database.ErrNotFound):
				logger.Warn("failed to load stored product", "error", err)
			}
		} else {
			exists, err := p.store.ProductExists(ctx, item.URL)
			if err != nil {
				logger.Warn("failed to check stored product", "error", err)
			}
			if exists {
				logger.Info("skipping stored product", "name", item.Name)
				p.metrics.IncSkipped()
				p.track(item.URL, storage.StatusSkipped, nil)
				return nil
			}
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil
	}

	logger.Info("fetching product", "name", item.Name)
	page, err := session.FetchProduct(ctx, item.URL)
	if err != nil {
		if errors.Is(err, browser.ErrAccessDenied) {
			limiter.RecordBlock()
			minDelay, maxDelay := limiter.Delays()
			logger.Warn("access denied, widening delays", "min_delay", minDelay, "max_delay", maxDelay)
		}
		logger.Error("failed to fetch product", "error", err)
		p.metrics.IncFailed()
		p.track(item.URL, storage.StatusFailed, err)
		return nil
	}
	limiter.RecordSuccess()

	fresh := p.assembler.Assemble(page)
	fresh.URL = item.URL

	record := base
	record.Merge(seedFromListing(item))
	record.Merge(fresh)
	record.ScrapedAt = p.now().UTC()

	if record.Volume.Known && record.Volume.Source != models.VolumeFromSpecification {
		p.metrics.IncVolumeDerived(string(record.Volume.Source))
	}

	if issues := record.Validate(); len(issues) > 0 {
		logger.Warn("incomplete product record", "issues", issues)
	}

	if p.store != nil {
		if err := p.store.UpsertProduct(ctx, record); err != nil {
			logger.Error("failed to save product", "error", err)
			p.metrics.IncFailed()
			p.track(item.URL, storage.StatusFailed, err)
			return nil
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishProductScraped(ctx, record); err != nil {
			logger.Warn("failed to publish event", "error", err)
		}
	}

	if p.sink != nil {
		if err := p.sink.Add(record); err != nil {
			logger.Warn("failed to export records", "error", err)
		}
	}

	p.metrics.IncScraped()
	p.track(item.URL, storage.StatusCompleted, nil)
	logger.Info("saved product", "name", record.Name, "sku", record.SKU)
	return record
}

func (p *Pool) track(url string, status storage.Status, cause error) {
	if p.tracker == nil {
		return
	}
	if err := p.tracker.UpdateStatus(url, status, cause); err != nil {
		p.logger.Warn("failed to record link progress", "url", url, "error", err)
	}
}

// seedFromListing turns a listing card into a partial record so that fields the
// product page lacks keep the card's values.
func seedFromListing(item parser.ListingItem) *models.Product {
	seed := models.NewProduct(item.URL)
	if item.Name != "" {
		seed.Name = item.Name
	}
	if item.SKU != "" {
		seed.SKU = item.SKU
	}
	if item.Supplier != "" {
		seed.Supplier = item.Supplier
	}
	return seed
}
