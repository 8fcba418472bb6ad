// Package pipeline feeds record streams through a vectorizer with a pool of
// workers and hands the encoded vectors to a sink.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/ajitpratap0/featurize/pkg/formats"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/vector"
	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

// Source yields records until it returns io.EOF.
type Source interface {
	Next() (record.Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (record.Record, error)

// Next calls f.
func (f SourceFunc) Next() (record.Record, error) { return f() }

// CSVSource adapts a record.CSVReader to Source.
func CSVSource(r *record.CSVReader) Source {
	return SourceFunc(func() (record.Record, error) {
		row, err := r.Next()
		if err != nil {
			return nil, err
		}
		return row, nil
	})
}

// SliceSource yields recs in order.
func SliceSource(recs ...record.Record) Source {
	i := 0
	return SourceFunc(func() (record.Record, error) {
		if i >= len(recs) {
			return nil, io.EOF
		}
		i++
		return recs[i-1], nil
	})
}

// Encoded is one worker result. Seq is the zero-based position of the record
// in the source; results reach the sink in completion order, not Seq order.
type Encoded struct {
	Seq      int64
	Vector   *vector.FeatureVector
	Warnings []vectorizer.UnknownCategory
}

// Sink consumes encoded vectors. It is called from several workers at once
// and must be safe for concurrent use.
type Sink interface {
	Consume(ctx context.Context, e Encoded) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Encoded) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, e Encoded) error { return f(ctx, e) }

// WriterSink writes every vector to a formats.Writer.
func WriterSink(w formats.Writer) Sink {
	return SinkFunc(func(_ context.Context, e Encoded) error {
		return w.Write(e.Vector)
	})
}

// Stats summarizes a run.
type Stats struct {
	RecordsRead     int64         `json:"records_read"`
	RecordsEncoded  int64         `json:"records_encoded"`
	RecordsRejected int64         `json:"records_rejected"`
	Warnings        int64         `json:"warnings"`
	Duration        time.Duration `json:"duration"`
}

// Throughput returns encoded records per second.
func (s Stats) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.RecordsEncoded) / s.Duration.Seconds()
}
