package export

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

const DefaultBatchSize = 20

// Accumulator collects records for the whole run and rewrites every export with the
// complete set each time BatchSize new records have arrived since the last flush.
// Records are keyed by URL; a re-scraped record replaces the earlier one in place.
type Accumulator struct {
	mu        sync.Mutex
	records   []*models.Product
	index     map[string]int
	added     int
	flushedAt int
	batchSize int
	writers   []Writer
	onFlush   func(records int)
	logger    *slog.Logger
}

type Option func(*Accumulator)

// WithFlushHook registers fn to run after every successful flush.
func WithFlushHook(fn func(records int)) Option {
	return func(a *Accumulator) {
		a.onFlush = fn
	}
}

func NewAccumulator(batchSize int, logger *slog.Logger, writers []Writer, opts ...Option) *Accumulator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Accumulator{
		index:     make(map[string]int),
		batchSize: batchSize,
		writers:   writers,
		logger:    logger.With("component", "export"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add records p and flushes when the batch threshold is crossed.
func (a *Accumulator) Add(p *models.Product) error {
	if p == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if i, ok := a.index[p.URL]; ok {
		a.records[i] = p
	} else {
		a.index[p.URL] = len(a.records)
		a.records = append(a.records, p)
	}
	a.added++

	if a.added-a.flushedAt >= a.batchSize {
		return a.flushLocked()
	}
	return nil
}

// Flush writes the complete set now. Call it once at the end of a run.
func (a *Accumulator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.flushLocked()
}

func (a *Accumulator) flushLocked() error {
	if len(a.records) == 0 {
		return nil
	}

	snapshot := make([]*models.Product, len(a.records))
	copy(snapshot, a.records)

	var errs []error
	for _, w := range a.writers {
		if err := w.Write(snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	a.flushedAt = a.added

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to flush %d records: %w", len(snapshot), err)
	}

	a.logger.Info("exported records", "records", len(snapshot))
	if a.onFlush != nil {
		a.onFlush(len(snapshot))
	}
	return nil
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Records returns a copy of everything collected so far.
func (a *Accumulator) Records() []*models.Product {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*models.Product, len(a.records))
	copy(out, a.records)
	return out
}
