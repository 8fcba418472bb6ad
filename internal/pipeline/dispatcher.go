package pipeline

import (
	"context"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/metrics"
	"github.com/ajitpratap0/featurize/pkg/observability"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

// Config contains dispatcher configuration
type Config struct {
	// Name labels metrics, spans and logs
	Name string
	// Workers is the number of concurrent encoders; 0 = NumCPU
	Workers int
	// BufferSize is the capacity of the record queue; 0 = 4 * Workers
	BufferSize int
	// FailOnReject stops the run at the first rejected record instead of
	// skipping it
	FailOnReject bool
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Name:    "featurize",
		Workers: runtime.NumCPU(),
	}
}

// Dispatcher runs records through Vectorizer.EncodeChecked on a worker pool.
type Dispatcher struct {
	vectorizer *vectorizer.Vectorizer
	sink       Sink
	config     Config
	logger     *zap.Logger

	recordsRead     atomic.Int64
	recordsEncoded  atomic.Int64
	recordsRejected atomic.Int64
	warnings        atomic.Int64
}

// New creates a dispatcher. A nil logger disables logging.
func New(v *vectorizer.Vectorizer, sink Sink, config Config, logger *zap.Logger) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4 * config.Workers
	}
	if config.Name == "" {
		config.Name = DefaultConfig().Name
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		vectorizer: v,
		sink:       sink,
		config:     config,
		logger:     logger.With(zap.String("component", "dispatcher"), zap.String("job", config.Name)),
	}
}

type job struct {
	seq int64
	rec record.Record
}

// Run reads src to exhaustion. It returns the first source, sink or fatal
// encoding error, or the context error when ctx is cancelled. Rejected
// records are counted and skipped unless FailOnReject is set.
func (d *Dispatcher) Run(ctx context.Context, src Source) (stats Stats, err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("job", d.config.Name),
		attribute.Int("workers", d.config.Workers),
	)
	start := time.Now()
	defer func() {
		stats = d.Stats(time.Since(start))
		span.SetAttributes(
			attribute.Int64("records.read", stats.RecordsRead),
			attribute.Int64("records.encoded", stats.RecordsEncoded),
			attribute.Int64("records.rejected", stats.RecordsRejected),
		)
		observability.EndSpan(span, err)
	}()

	d.logger.Info("starting pipeline",
		zap.Int("workers", d.config.Workers),
		zap.Int("buffer_size", d.config.BufferSize),
		zap.Int("expansion", d.vectorizer.Expansion()),
		zap.String("layout", d.vectorizer.Layout().String()))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, d.config.BufferSize)

	g.Go(func() error {
		defer close(jobs)
		return d.readSource(gctx, src, jobs)
	})
	for i := 0; i < d.config.Workers; i++ {
		g.Go(func() error {
			return d.encodeWorker(gctx, jobs)
		})
	}

	if err = g.Wait(); err != nil {
		d.logger.Error("pipeline failed", zap.Error(err))
		return d.Stats(time.Since(start)), err
	}

	final := d.Stats(time.Since(start))
	d.logger.Info("pipeline completed",
		zap.Int64("records_encoded", final.RecordsEncoded),
		zap.Int64("records_rejected", final.RecordsRejected),
		zap.Int64("warnings", final.Warnings),
		zap.Duration("duration", final.Duration),
		zap.Float64("records_per_sec", final.Throughput()))
	return final, nil
}

func (d *Dispatcher) readSource(ctx context.Context, src Source, out chan<- job) error {
	var seq int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.IsFatal(err) || d.config.FailOnReject {
				return err
			}
			d.reject(seq, err)
			seq++
			continue
		}
		d.recordsRead.Add(1)

		select {
		case out <- job{seq: seq, rec: rec}:
			seq++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) encodeWorker(ctx context.Context, in <-chan job) error {
	for j := range in {
		timer := metrics.NewTimer("encode")
		vec, warnings, err := d.vectorizer.EncodeChecked(j.rec)
		metrics.EncodeLatency.WithLabelValues(d.config.Name).Observe(timer.Stop().Seconds())
		d.warnings.Add(int64(len(warnings)))

		if err != nil {
			if errors.IsFatal(err) || d.config.FailOnReject {
				return err
			}
			d.reject(j.seq, err)
			continue
		}

		if err := d.sink.Consume(ctx, Encoded{Seq: j.seq, Vector: vec, Warnings: warnings}); err != nil {
			metrics.RecordsEncoded.WithLabelValues(d.config.Name, "failure").Inc()
			return errors.Wrap(err, errors.ErrorTypeFile, "sink rejected vector").
				WithDetail("seq", j.seq)
		}
		d.recordsEncoded.Add(1)
		metrics.RecordsEncoded.WithLabelValues(d.config.Name, "success").Inc()
		metrics.OutputWidth.WithLabelValues(d.config.Name).Set(float64(vec.Len()))
	}
	return nil
}

func (d *Dispatcher) reject(seq int64, err error) {
	d.recordsRejected.Add(1)
	metrics.RecordsEncoded.WithLabelValues(d.config.Name, "rejected").Inc()
	d.logger.Warn("record rejected", zap.Int64("seq", seq), zap.Error(err))
}

// Stats returns the counters accumulated so far.
func (d *Dispatcher) Stats(elapsed time.Duration) Stats {
	return Stats{
		RecordsRead:     d.recordsRead.Load(),
		RecordsEncoded:  d.recordsEncoded.Load(),
		RecordsRejected: d.recordsRejected.Load(),
		Warnings:        d.warnings.Load(),
		Duration:        elapsed,
	}
}
