package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector instruments the daily aggregation pipeline. All methods
// are safe to call on a nil receiver, so callers can skip nil checks
// when metrics are disabled.
type Collector struct {
	reg *prometheus.Registry

	RunsTotal   *prometheus.CounterVec // result label: success|failure
	RunDuration prometheus.Histogram

	StageDuration *prometheus.HistogramVec // stage label

	PositionsProcessed prometheus.Counter
	TripsEmitted       prometheus.Counter

	LastRunTimestamp prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busmetrics_runs_total",
			Help: "Total daily aggregation runs by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busmetrics_run_duration_seconds",
			Help:    "Duration of full daily aggregation runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busmetrics_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		PositionsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmetrics_positions_processed_total",
			Help: "Raw position samples streamed through the pipeline.",
		}),
		TripsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmetrics_trips_emitted_total",
			Help: "Reconstructed trips persisted.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmetrics_last_run_timestamp_seconds",
			Help: "Unix time of the most recent completed run.",
		}),
	}

	reg.MustRegister(
		c.RunsTotal,
		c.RunDuration,
		c.StageDuration,
		c.PositionsProcessed,
		c.TripsEmitted,
		c.LastRunTimestamp,
	)

	return c
}

func (c *Collector) ObserveRun(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.RunsTotal.WithLabelValues(result).Inc()
	c.RunDuration.Observe(d.Seconds())
	c.LastRunTimestamp.SetToCurrentTime()
}

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) AddPositions(n int) {
	if c == nil {
		return
	}
	c.PositionsProcessed.Add(float64(n))
}

func (c *Collector) AddTrips(n int) {
	if c == nil {
		return
	}
	c.TripsEmitted.Add(float64(n))
}

// Serve exposes /metrics on addr. The returned server is already
// listening; shut it down via Server.Shutdown.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
