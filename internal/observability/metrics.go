package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters on their own registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RecordsScraped prometheus.Counter
	RecordsFailed  prometheus.Counter
	RecordsSkipped prometheus.Counter
	ExportFlushes  prometheus.Counter
	VolumeDerived  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_records_scraped_total",
			Help: "Product records assembled and persisted",
		}),
		RecordsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_records_failed_total",
			Help: "Product pages that could not be fetched or stored",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_records_skipped_total",
			Help: "Product URLs skipped because they were already stored",
		}),
		ExportFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_export_flushes_total",
			Help: "Export accumulator flushes",
		}),
		VolumeDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_volume_derived_total",
			Help: "Volumes not taken from the specification, by method",
		}, []string{"method"}),
	}

	m.registry.MustRegister(m.RecordsScraped, m.RecordsFailed, m.RecordsSkipped, m.ExportFlushes, m.VolumeDerived)
	return m
}

func (m *Metrics) IncScraped() {
	if m != nil {
		m.RecordsScraped.Inc()
	}
}

func (m *Metrics) IncFailed() {
	if m != nil {
		m.RecordsFailed.Inc()
	}
}

func (m *Metrics) IncSkipped() {
	if m != nil {
		m.RecordsSkipped.Inc()
	}
}

func (m *Metrics) IncFlush() {
	if m != nil {
		m.ExportFlushes.Inc()
	}
}

// IncVolumeDerived counts a volume by its source annotation.
func (m *Metrics) IncVolumeDerived(method string) {
	if m != nil && method != "" {
		m.VolumeDerived.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Start serves /metrics on port in the background. The returned server is
// shut down by the caller.
func Start(port string, m *Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
