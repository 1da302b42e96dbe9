package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordRun("COMPLETED", 0.5)
	m.RecordRun("COMPLETED", 0.1)
	m.RecordBar()
	m.RecordBar()
	m.RecordOrder()
	m.RecordDroppedOrder("no_book")
	m.RecordFill("TAKER")
	m.RecordTrade("EXIT", "END_OF_BACKTEST")
	m.RecordDBQuery("postgres", "insert_result", 0.01, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("COMPLETED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BarsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersDropped.WithLabelValues("no_book")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FillsTotal.WithLabelValues("TAKER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("EXIT", "END_OF_BACKTEST")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert_result")))

	m.SweepJobStarted()
	m.SweepJobStarted()
	m.SweepJobFinished("ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepJobsInFlight))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun("COMPLETED", 1)
		m.RecordBar()
		m.RecordFill("MAKER")
		m.SweepJobStarted()
		m.SweepJobFinished("error")
		m.RecordDBQuery("clickhouse", "select", 1, nil)
	})
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)
	m.RecordBar()

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "backtest_lab_engine_bars_processed_total 1"))
}
