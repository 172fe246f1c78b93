package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics/metrics"
)

func TestCollector(t *testing.T) {
	c := metrics.NewCollector()

	c.ObserveRun("success", 2*time.Second)
	c.ObserveRun("failure", time.Second)
	c.ObserveStage("streaming", 500*time.Millisecond)
	c.AddPositions(1200)
	c.AddPositions(800)
	c.AddTrips(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(c.PositionsProcessed))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.TripsEmitted))
	assert.True(t, testutil.ToFloat64(c.LastRunTimestamp) > 0)
}

func TestCollectorNilReceiver(t *testing.T) {
	var c *metrics.Collector

	require.NotPanics(t, func() {
		c.ObserveRun("success", time.Second)
		c.ObserveStage("streaming", time.Second)
		c.AddPositions(10)
		c.AddTrips(1)
	})
}
