// Package formats serializes feature vectors to output files.
//
// Every format stores the same logical row per vector:
//
//	id      optional string identifier
//	dim     vector length
//	layout  "dense" or "sparse"
//	indices ascending positions of the stored values (sparse only)
//	values  every position (dense) or the non-zero positions (sparse)
//
// Writers are safe for concurrent use so unordered encoding workers can share
// one output. Close flushes buffered rows and the format trailer but never
// closes the destination.
package formats

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// Format names an output encoding.
type Format string

const (
	// JSONL writes one JSON object per line
	JSONL Format = "jsonl"
	// Avro writes an Avro object container file
	Avro Format = "avro"
	// Arrow writes an Arrow IPC file
	Arrow Format = "arrow"
	// Parquet writes an Apache Parquet file
	Parquet Format = "parquet"
)

// Formats lists every supported format.
var Formats = []Format{JSONL, Avro, Arrow, Parquet}

// Writer writes feature vectors in a specific format.
type Writer interface {
	// Write appends one vector
	Write(v *vector.FeatureVector) error
	// Close flushes pending rows and the format trailer
	Close() error
	// Format returns the output format
	Format() Format
	// RecordsWritten returns how many vectors were accepted
	RecordsWritten() int64
}

// Options tune the batching formats.
type Options struct {
	// BatchSize is the number of vectors per Arrow/Parquet record batch
	BatchSize int
	// Codec is the format-internal block codec: Avro accepts
	// null/deflate/snappy, Parquet accepts none/snappy/gzip/zstd/lz4.
	Codec string
}

// DefaultOptions returns default writer options
func DefaultOptions() Options {
	return Options{
		BatchSize: 1024,
	}
}

// ParseFormat converts a configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case JSONL, Avro, Arrow, Parquet:
		return f, nil
	case "json", "ndjson":
		return JSONL, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unknown output format %q", s)
}

// FromPath guesses the format from a file name, looking through one
// compression suffix such as ".zst" or ".gz".
func FromPath(path string) (Format, bool) {
	base := strings.ToLower(filepath.Base(path))
	for i := 0; i < 2; i++ {
		ext := filepath.Ext(base)
		switch ext {
		case ".jsonl", ".ndjson", ".json":
			return JSONL, true
		case ".avro":
			return Avro, true
		case ".arrow", ".ipc", ".feather":
			return Arrow, true
		case ".parquet":
			return Parquet, true
		}
		base = strings.TrimSuffix(base, ext)
	}
	return "", false
}

// NewWriter creates a writer for format on top of w.
func NewWriter(w io.Writer, format Format, opts Options) (Writer, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}

	switch format {
	case JSONL:
		return NewJSONLWriter(w), nil
	case Avro:
		return newAvroWriter(w, opts)
	case Arrow:
		return newArrowWriter(w, opts)
	case Parquet:
		return newParquetWriter(w, opts)
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "unsupported format: %s", format)
	}
}

// row is the per-vector layout shared by all formats.
type row struct {
	id      string
	named   bool
	dim     int
	sparse  bool
	indices []int
	values  []float64
}

func toRow(v *vector.FeatureVector) row {
	r := row{
		id:     v.Identifier(),
		named:  v.HasIdentifier(),
		dim:    v.Len(),
		sparse: v.Layout() == vector.Sparse,
	}
	if r.sparse {
		r.indices, r.values = v.Sparse()
	} else {
		r.values = v.Values()
	}
	return r
}

func (r row) vector() (*vector.FeatureVector, error) {
	var (
		v   *vector.FeatureVector
		err error
	)
	if r.sparse {
		v, err = vector.NewSparse(r.dim, r.indices, r.values)
		if err != nil {
			return nil, err
		}
	} else {
		if len(r.values) != r.dim {
			return nil, errors.Newf(errors.ErrorTypeData, "dense row has %d values, dim %d", len(r.values), r.dim)
		}
		v = vector.NewDense(r.values)
	}
	if r.named {
		v = v.WithIdentifier(r.id)
	}
	return v, nil
}

func layoutName(sparse bool) string {
	if sparse {
		return vector.Sparse.String()
	}
	return vector.Dense.String()
}

// noClose hides the destination's Close from writers that close their sink.
type noClose struct {
	io.Writer
}
