// Package observability wires OpenTelemetry tracing for encoding jobs.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans produced by this module.
const InstrumentationName = "github.com/ajitpratap0/featurize"

// Exporter names accepted by Config.Exporter.
const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config contains tracing configuration
type Config struct {
	ServiceName    string        `yaml:"service_name" json:"service_name" split_words:"true"`
	ServiceVersion string        `yaml:"service_version" json:"service_version"`
	Environment    string        `yaml:"environment" json:"environment"`
	Exporter       string        `yaml:"exporter" json:"exporter" validate:"omitempty,oneof=stdout none"`
	SamplingRate   float64       `yaml:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`
	PrettyPrint    bool          `yaml:"pretty_print" json:"pretty_print"`
	BatchTimeout   time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
}

// DefaultConfig returns tracing disabled; jobs opt in from their config file.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "featurize",
		ServiceVersion: "dev",
		Environment:    "development",
		Exporter:       ExporterNone,
		SamplingRate:   1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// Tracer returns the module tracer from the global provider. Before Init it
// resolves to the OpenTelemetry no-op provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts a span named operation with the given attributes.
func StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, operation, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceBatch runs fn inside a span and annotates it with the batch size and
// the observed throughput.
func TraceBatch(ctx context.Context, operation string, batchSize int, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, operation, attribute.Int("batch.size", batchSize))

	start := time.Now()
	err := fn(ctx)
	if elapsed := time.Since(start).Seconds(); err == nil && elapsed > 0 {
		span.SetAttributes(attribute.Float64("batch.throughput", float64(batchSize)/elapsed))
	}

	EndSpan(span, err)
	return err
}

// Attr converts a loosely typed value to an attribute, falling back to its
// fmt representation.
func Attr(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
