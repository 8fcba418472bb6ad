// Package metrics exposes Prometheus collectors for the encoding pipeline.
//
// # Overview
//
// The package provides:
//   - Pre-registered collectors for encoded records, unknown categories,
//     encode latency and output width
//   - A vectorizer.Reporter that counts unknown categorical values per column
//   - Timer and ThroughputTracker utilities for batch-level measurements
//
// # Basic Usage
//
//	timer := metrics.NewTimer("encode")
//	vec, warnings := v.Encode(rec)
//	metrics.EncodeLatency.WithLabelValues("csv").Observe(timer.Stop().Seconds())
//	metrics.RecordsEncoded.WithLabelValues("csv", "success").Inc()
//
// All collectors register against the default Prometheus registry on import.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

var (
	// RecordsEncoded tracks the total number of records pushed through a vectorizer.
	// Labels: source (input name), status (success/failure/rejected)
	//
	// Example:
	//	metrics.RecordsEncoded.WithLabelValues("train.csv", "success").Add(1000)
	RecordsEncoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurize_records_encoded_total",
			Help: "Total number of records encoded",
		},
		[]string{"source", "status"},
	)

	// UnknownCategories counts categorical values absent from the summary.
	// Labels: column (zero-based input column index)
	UnknownCategories = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurize_unknown_categories_total",
			Help: "Categorical values not present in the column summary",
		},
		[]string{"column"},
	)

	// EncodeLatency tracks the distribution of per-record encode latencies in seconds.
	// The buckets target the sub-millisecond range a single record usually takes.
	EncodeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "featurize_encode_latency_seconds",
			Help: "Per-record encode latency in seconds",
			Buckets: []float64{
				1e-7, // 100ns
				1e-6, // 1μs
				1e-5, // 10μs
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
			},
		},
		[]string{"source"},
	)

	// OutputWidth reports the vector length produced for a source.
	OutputWidth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "featurize_output_width",
			Help: "Length of the produced feature vectors",
		},
		[]string{"source"},
	)

	// Throughput tracks records per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "featurize_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"source"},
	)
)

// Reporter is a vectorizer.Reporter that increments UnknownCategories.
// Counter vectors are goroutine-safe, so one Reporter can be shared by all
// encoding workers.
type Reporter struct {
	unknown *prometheus.CounterVec
}

var _ vectorizer.Reporter = (*Reporter)(nil)

// NewReporter returns a Reporter backed by the package-level UnknownCategories
// counter.
func NewReporter() *Reporter {
	return &Reporter{unknown: UnknownCategories}
}

// NewReporterWith returns a Reporter that counts into the given vector, which
// must carry a single "column" label.
func NewReporterWith(counter *prometheus.CounterVec) *Reporter {
	return &Reporter{unknown: counter}
}

// ReportUnknown implements vectorizer.Reporter.
func (r *Reporter) ReportUnknown(u vectorizer.UnknownCategory) {
	r.unknown.WithLabelValues(strconv.Itoa(u.Column)).Inc()
}

// Timer provides a simple timing mechanism for measuring operation durations.
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

// Name returns the label the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks records per second over time windows.
// Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Records since last reset
	lastReset time.Time // Time of last reset
	source    string
}

// NewThroughputTracker creates a tracker whose readings are published under
// the given source label.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("train.csv")
//	for rec := range records {
//	    encode(rec)
//	    tracker.Increment(1)
//	}
//	logger.Info("throughput", zap.Float64("records_per_sec", tracker.GetAndReset()))
func NewThroughputTracker(source string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		source:    source,
	}
}

// Increment adds n to the record count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the throughput since the last reset, publishes it
// to the Throughput gauge, and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source).Set(throughput)

	return throughput
}
