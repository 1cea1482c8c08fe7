package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life2you_mini/tradestats/internal/model"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.ObserveRefresh(nil, 20*time.Millisecond)
	c.ObserveRefresh(errors.New("boom"), time.Millisecond)
	c.SetFills(12)
	c.SetAccount("ACC1", 3, -250)
	c.IncAlert(model.LevelCritical)
	c.IncAlert(model.LevelCritical)
	c.IncDelivered("log", nil)
	c.IncThrottled()
	c.IncFallback("error")

	assert.InDelta(t, 1.0, testutil.ToFloat64(c.refreshes.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.refreshes.WithLabelValues("error")), 1e-9)
	assert.InDelta(t, 12.0, testutil.ToFloat64(c.fills), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(c.trades.WithLabelValues("ACC1")), 1e-9)
	assert.InDelta(t, -250.0, testutil.ToFloat64(c.profitOrLoss.WithLabelValues("ACC1")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.alerts.WithLabelValues("CRITICAL")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.delivered.WithLabelValues("log", "ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.throttled), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.fallbacks.WithLabelValues("error")), 1e-9)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRefresh(nil, time.Second)
		c.SetFills(1)
		c.SetAccount("A", 1, 1)
		c.IncAlert(model.LevelOK)
		c.IncDelivered("log", nil)
		c.IncThrottled()
		c.IncFallback("panic")
		assert.NoError(t, c.WriteTextfile("/nonexistent/metrics.prom"))
	})
	assert.Nil(t, c.Registry())
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.SetAccount("ACC1", 5, 100)

	path := filepath.Join(t.TempDir(), "tradestats.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tradestats_completed_trades{account="ACC1"} 5`)
}
