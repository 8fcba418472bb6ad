// Package featurize converts tabular records into fixed-length numeric
// feature vectors for machine-learning pipelines.
//
// Every record is encoded independently against an immutable column summary
// computed by an upstream aggregation pass. Numeric columns are copied or
// transformed (standardized, min-max scaled, log), categorical columns are
// one-hot expanded over their known levels, and identifier or ignored
// columns are dropped. The output width is the input column count plus a
// fixed expansion, so every vector of a run has the same length.
//
// # Architecture
//
// The module is organized in layers:
//
//   - pkg/summary: column statistics and their JSON/YAML document form
//   - pkg/transform: numeric transform policies
//   - pkg/record: the record abstraction and a streaming CSV reader
//   - pkg/vector: immutable dense or sparse feature vectors
//   - pkg/vectorizer: the column plan and per-record encoding
//   - pkg/formats: JSONL, Avro, Arrow IPC and Parquet vector writers
//   - pkg/compression: stream compression (gzip, zstd, snappy, s2, lz4, deflate)
//   - internal/pipeline: concurrent dispatch of records to the vectorizer
//   - cmd/featurize: the command line tool
//
// Supporting packages cover configuration (pkg/config), typed errors
// (pkg/errors), logging (pkg/logger), Prometheus metrics (pkg/metrics) and
// OpenTelemetry tracing (pkg/observability).
//
// # Quick Start
//
// Encode a CSV file with the command line tool:
//
//	featurize inspect --summary summary.yaml --id-column 0
//	featurize encode --summary summary.yaml --input train.csv --header \
//	    --id-column 0 --transform z --output vectors.parquet
//
// Or use the library directly:
//
//	sum, err := summary.Load("summary.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg, err := vectorizer.NewConfig(
//	    vectorizer.WithIDColumn(0),
//	    vectorizer.WithDefaultTransform(transform.Policy{Kind: transform.Z}),
//	)
//	if err != nil {
//	    return err
//	}
//	v, err := vectorizer.Build(sum, cfg)
//	if err != nil {
//	    return err
//	}
//	vec, unknowns := v.Encode(row)
//
// Encode is safe for concurrent use; the summary and configuration are
// read-only after construction.
package featurize
