package summary

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

// Format is a summary document encoding.
type Format string

const (
	// JSON documents, decoded with goccy/go-json
	JSON Format = "json"
	// YAML documents
	YAML Format = "yaml"
)

var validate = validator.New()

// Document is the on-disk form of a Summary.
//
//	record_count: 1000
//	columns:
//	  - index: 1
//	    type: numeric
//	    mean: 10
//	    variance: 4
//	  - index: 2
//	    type: categorical
//	    levels: [red, blue]
type Document struct {
	RecordCount int64            `json:"record_count" yaml:"record_count" validate:"gte=0"`
	Columns     []ColumnDocument `json:"columns" yaml:"columns" validate:"unique=Index,dive"`
}

// ColumnDocument is one column entry of a Document.
type ColumnDocument struct {
	Index    int      `json:"index" yaml:"index" validate:"gte=0"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string   `json:"type" yaml:"type" validate:"required,oneof=numeric categorical"`
	Count    int64    `json:"count,omitempty" yaml:"count,omitempty" validate:"gte=0"`
	Mean     float64  `json:"mean,omitempty" yaml:"mean,omitempty"`
	Variance float64  `json:"variance,omitempty" yaml:"variance,omitempty" validate:"gte=0"`
	Min      float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max      float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Sum      float64  `json:"sum,omitempty" yaml:"sum,omitempty"`
	Levels   []string `json:"levels,omitempty" yaml:"levels,omitempty" validate:"unique"`
}

// Load reads a summary document from path. The format is chosen by file
// extension: .yaml and .yml are YAML, everything else JSON.
func Load(path string) (*Summary, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open summary").
			WithDetail("path", path)
	}
	defer f.Close()

	s, err := Decode(f, FormatFromPath(path))
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return nil, e.WithDetail("path", path)
		}
		return nil, err
	}
	return s, nil
}

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Decode reads and validates a summary document.
func Decode(r io.Reader, format Format) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read summary")
	}

	var doc Document
	switch format {
	case JSON:
		dec := gojson.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse JSON summary")
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML summary")
		}
	default:
		return nil, errors.New(errors.ErrorTypeCapability, "unsupported summary format").
			WithDetail("format", string(format))
	}

	return FromDocument(doc)
}

// FromDocument validates doc and builds the frozen Summary.
func FromDocument(doc Document) (*Summary, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid summary document")
	}

	stats := make(map[int]Stats, len(doc.Columns))
	for _, c := range doc.Columns {
		switch c.Type {
		case Numeric.String():
			stats[c.Index] = NumericColumn(NumericStats{
				Count:    c.Count,
				Mean:     c.Mean,
				Variance: c.Variance,
				Min:      c.Min,
				Max:      c.Max,
				Sum:      c.Sum,
			})
		case Categorical.String():
			stats[c.Index] = CategoricalColumn(c.Levels...)
		}
	}
	return New(doc.RecordCount, stats)
}

// Document converts the summary back to its on-disk form, columns ordered by index.
func (s *Summary) Document() Document {
	doc := Document{
		RecordCount: s.recordCount,
		Columns:     make([]ColumnDocument, 0, len(s.columns)),
	}
	for _, col := range s.columns {
		st := s.stats[col]
		c := ColumnDocument{Index: col, Type: st.kind.String()}
		if st.kind == Numeric {
			c.Count = st.numeric.Count
			c.Mean = st.numeric.Mean
			c.Variance = st.numeric.Variance
			c.Min = st.numeric.Min
			c.Max = st.numeric.Max
			c.Sum = st.numeric.Sum
		} else {
			c.Levels = st.Levels()
		}
		doc.Columns = append(doc.Columns, c)
	}
	return doc
}

// Encode writes the summary as a document in the given format.
func (s *Summary) Encode(w io.Writer, format Format) error {
	doc := s.Document()
	switch format {
	case JSON:
		enc := gojson.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write JSON summary")
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write YAML summary")
		}
	default:
		return errors.New(errors.ErrorTypeCapability, "unsupported summary format").
			WithDetail("format", string(format))
	}
	return nil
}
