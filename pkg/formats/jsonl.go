package formats

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// jsonFloat encodes non-finite values as null, which JSON cannot represent.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, x, 'g', -1, 64), nil
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = jsonFloat(math.NaN())
		return nil
	}
	x, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = jsonFloat(x)
	return nil
}

type jsonlRow struct {
	ID      *string     `json:"id,omitempty"`
	Dim     int         `json:"dim"`
	Layout  string      `json:"layout"`
	Indices []int       `json:"indices,omitempty"`
	Values  []jsonFloat `json:"values"`
}

// JSONLWriter writes one JSON object per vector.
type JSONLWriter struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	enc     *json.Encoder
	records int64
}

// NewJSONLWriter creates a JSONL writer on w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	buf := bufio.NewWriter(w)
	return &JSONLWriter{buf: buf, enc: json.NewEncoder(buf)}
}

func (jw *JSONLWriter) Write(v *vector.FeatureVector) error {
	r := toRow(v)
	doc := jsonlRow{
		Dim:     r.dim,
		Layout:  layoutName(r.sparse),
		Indices: r.indices,
		Values:  make([]jsonFloat, len(r.values)),
	}
	if r.named {
		doc.ID = &r.id
	}
	for i, x := range r.values {
		doc.Values[i] = jsonFloat(x)
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if err := jw.enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write JSONL row")
	}
	jw.records++
	return nil
}

// Close flushes buffered output.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if err := jw.buf.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush JSONL output")
	}
	return nil
}

func (jw *JSONLWriter) Format() Format { return JSONL }

func (jw *JSONLWriter) RecordsWritten() int64 {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.records
}

// JSONLReader reads vectors written by JSONLWriter.
type JSONLReader struct {
	dec  *json.Decoder
	line int
}

// NewJSONLReader creates a reader on r.
func NewJSONLReader(r io.Reader) *JSONLReader {
	return &JSONLReader{dec: json.NewDecoder(r)}
}

// Next returns the next vector or io.EOF.
func (jr *JSONLReader) Next() (*vector.FeatureVector, error) {
	var doc jsonlRow
	if err := jr.dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode JSONL row").
			WithDetail("row", jr.line+1)
	}
	jr.line++

	layout, err := vector.ParseLayout(doc.Layout)
	if err != nil {
		return nil, err
	}
	r := row{
		dim:     doc.Dim,
		sparse:  layout == vector.Sparse,
		indices: doc.Indices,
		values:  make([]float64, len(doc.Values)),
	}
	if doc.ID != nil {
		r.id, r.named = *doc.ID, true
	}
	for i, x := range doc.Values {
		r.values[i] = float64(x)
	}
	return r.vector()
}
