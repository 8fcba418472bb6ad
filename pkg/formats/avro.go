package formats

import (
	"io"
	"sync"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// AvroSchema is the writer schema of Avro vector files.
const AvroSchema = `{
  "type": "record",
  "name": "FeatureVector",
  "namespace": "featurize",
  "fields": [
    {"name": "id", "type": ["null", "string"], "default": null},
    {"name": "dim", "type": "long"},
    {"name": "layout", "type": {"type": "enum", "name": "Layout", "symbols": ["dense", "sparse"]}},
    {"name": "indices", "type": {"type": "array", "items": "long"}},
    {"name": "values", "type": {"type": "array", "items": "double"}}
  ]
}`

// avroWriter implements Writer for Avro object container files
type avroWriter struct {
	mu        sync.Mutex
	ocfWriter *goavro.OCFWriter
	buffer    []interface{}
	batchSize int
	records   int64
}

func newAvroWriter(w io.Writer, opts Options) (*avroWriter, error) {
	codec, err := goavro.NewCodec(AvroSchema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create Avro codec")
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: avroCompression(opts.Codec),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create Avro writer")
	}

	return &avroWriter{
		ocfWriter: ocfWriter,
		buffer:    make([]interface{}, 0, opts.BatchSize),
		batchSize: opts.BatchSize,
	}, nil
}

func (aw *avroWriter) Write(v *vector.FeatureVector) error {
	native := avroNative(toRow(v))

	aw.mu.Lock()
	defer aw.mu.Unlock()

	aw.buffer = append(aw.buffer, native)
	aw.records++
	if len(aw.buffer) >= aw.batchSize {
		return aw.flushBatch()
	}
	return nil
}

// Close appends remaining rows. OCFWriter has no trailer to write.
func (aw *avroWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.flushBatch()
}

func (aw *avroWriter) Format() Format { return Avro }

func (aw *avroWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.records
}

func (aw *avroWriter) flushBatch() error {
	if len(aw.buffer) == 0 {
		return nil
	}
	// Each Append writes one OCF block.
	if err := aw.ocfWriter.Append(aw.buffer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write Avro block")
	}
	aw.buffer = aw.buffer[:0]
	return nil
}

func avroNative(r row) map[string]interface{} {
	var id interface{}
	if r.named {
		id = goavro.Union("string", r.id)
	}
	indices := make([]interface{}, len(r.indices))
	for i, x := range r.indices {
		indices[i] = int64(x)
	}
	values := make([]interface{}, len(r.values))
	for i, x := range r.values {
		values[i] = x
	}
	return map[string]interface{}{
		"id":      id,
		"dim":     int64(r.dim),
		"layout":  layoutName(r.sparse),
		"indices": indices,
		"values":  values,
	}
}

// ReadAvro decodes every vector from an Avro container file.
func ReadAvro(r io.Reader) ([]*vector.FeatureVector, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Avro container")
	}

	var out []*vector.FeatureVector
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Avro record")
		}
		v, err := fromAvroNative(datum)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := ocf.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan Avro container")
	}
	return out, nil
}

func fromAvroNative(datum interface{}) (*vector.FeatureVector, error) {
	m, ok := datum.(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "unexpected Avro datum %T", datum)
	}

	r := row{dim: int(m["dim"].(int64))}
	r.sparse = m["layout"].(string) == vector.Sparse.String()
	if u, ok := m["id"].(map[string]interface{}); ok {
		r.id, r.named = u["string"].(string), true
	}
	for _, x := range m["indices"].([]interface{}) {
		r.indices = append(r.indices, int(x.(int64)))
	}
	for _, x := range m["values"].([]interface{}) {
		r.values = append(r.values, x.(float64))
	}
	return r.vector()
}

func avroCompression(codec string) string {
	switch codec {
	case "snappy":
		return goavro.CompressionSnappyLabel
	case "deflate", "gzip":
		return goavro.CompressionDeflateLabel
	default:
		return goavro.CompressionNullLabel
	}
}
