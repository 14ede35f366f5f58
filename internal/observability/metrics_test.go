package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncScraped()
	m.IncScraped()
	m.IncFailed()
	m.IncSkipped()
	m.IncFlush()
	m.IncVolumeDerived("calculated")
	m.IncVolumeDerived("estimated-from-density")
	m.IncVolumeDerived("calculated")
	m.IncVolumeDerived("")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsScraped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportFlushes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VolumeDerived.WithLabelValues("calculated")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.VolumeDerived))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncScraped()
		m.IncFailed()
		m.IncSkipped()
		m.IncFlush()
		m.IncVolumeDerived("calculated")
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.IncScraped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catalog_records_scraped_total 1")
}
