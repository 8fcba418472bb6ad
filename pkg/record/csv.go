package record

import (
	"encoding/csv"
	"io"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

// CSVConfig configures a CSVReader.
type CSVConfig struct {
	// Delimiter separates fields; ',' when zero
	Delimiter rune `yaml:"delimiter" json:"delimiter"`
	// HasHeader skips and keeps the first line as column names
	HasHeader bool `yaml:"has_header" json:"has_header"`
	// Comment starts a line to be ignored; disabled when zero
	Comment rune `yaml:"comment" json:"comment"`
}

// CSVReader streams Rows from CSV input. Every row must have the same number
// of fields as the first one.
type CSVReader struct {
	r       *csv.Reader
	headers []string
	line    int64
}

// NewCSVReader creates a reader over r. When cfg.HasHeader is set the header
// line is consumed immediately.
func NewCSVReader(r io.Reader, cfg CSVConfig) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = 0
	if cfg.Delimiter != 0 {
		cr.Comma = cfg.Delimiter
	}
	cr.Comment = cfg.Comment

	reader := &CSVReader{r: cr}
	if cfg.HasHeader {
		headers, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return reader, nil
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read CSV header")
		}
		reader.headers = append([]string(nil), headers...)
		reader.line++
	}
	return reader, nil
}

// Headers returns the header names, nil when the input has no header.
func (c *CSVReader) Headers() []string {
	return append([]string(nil), c.headers...)
}

// Next returns the next row, or io.EOF at the end of input.
func (c *CSVReader) Next() (*Row, error) {
	fields, err := c.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	c.line++
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse CSV row").
				WithDetail("line", perr.Line)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read CSV input").
			WithDetail("line", c.line)
	}
	return FromStrings(fields), nil
}

// Line returns the number of lines consumed, header included.
func (c *CSVReader) Line() int64 { return c.line }
