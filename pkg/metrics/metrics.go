// Package metrics provides Prometheus instrumentation for nebula-ml.
// It offers collectors for operation outcomes and latency, the model cache
// and snapshot sizes.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("train")
//	err := svc.Train(ctx, rows)
//	metrics.ObserveOperation("train", timer.Stop(), err)
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., cache hits)
// Gauge: Values that can go up or down (e.g., resident models)
// Histogram: Distribution of values (e.g., operation latency)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Snapshot direction label values
const (
	DirectionSave = "save"
	DirectionLoad = "load"
)

var (
	// OperationsTotal counts service operations by outcome.
	// Labels: operation, status (success/error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_ml_operations_total",
			Help: "Total number of service operations",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration tracks the distribution of operation latencies in seconds.
	// Training a forest can take minutes, so the buckets reach far.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nebula_ml_operation_duration_seconds",
			Help: "Operation latency in seconds",
			Buckets: []float64{
				0.001, // 1ms - Cache hits, listing
				0.01,  // 10ms - Snapshot loads
				0.1,   // 100ms - Small fits and predictions
				1,     // 1s
				10,    // 10s - Forest training
				60,    // 1m
				300,   // 5m - Large training sets
			},
		},
		[]string{"operation"},
	)

	// CacheHits counts model cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebula_ml_cache_hits_total",
			Help: "Total number of model cache hits",
		},
	)

	// CacheMisses counts model cache misses that fell back to the store
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebula_ml_cache_misses_total",
			Help: "Total number of model cache misses",
		},
	)

	// CacheEvictions counts least recently used evictions
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebula_ml_cache_evictions_total",
			Help: "Total number of model cache evictions",
		},
	)

	// CacheEntries tracks resident models
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_ml_cache_entries",
			Help: "Number of models resident in the cache",
		},
	)

	// SnapshotBytes tracks compressed snapshot sizes.
	// Labels: direction (save/load)
	SnapshotBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_ml_snapshot_bytes",
			Help:    "Compressed model snapshot size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
		},
		[]string{"direction"},
	)

	// ModelScore records the last test score of each trained model
	ModelScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_ml_model_score",
			Help: "Test score of the most recent training run",
		},
		[]string{"model"},
	)
)

// ObserveOperation records the outcome and duration of one operation
func ObserveOperation(operation string, d time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// CacheObserver forwards model cache events to the cache collectors
type CacheObserver struct{}

// Hit records a cache hit
func (CacheObserver) Hit() { CacheHits.Inc() }

// Miss records a cache miss
func (CacheObserver) Miss() { CacheMisses.Inc() }

// Evict records an eviction
func (CacheObserver) Evict() { CacheEvictions.Inc() }

// Size records the number of resident entries
func (CacheObserver) Size(n int) { CacheEntries.Set(float64(n)) }

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
