// Package record provides the read-only tabular records the vectorizer
// consumes.
package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is an ordered sequence of typed cells with a fixed column count.
// Implementations are read-only for the duration of an encode call.
type Record interface {
	// ColumnCount returns the number of columns
	ColumnCount() int
	// Numeric returns the numeric view of column col
	Numeric(col int) float64
	// String returns the string view of column col
	String(col int) string
}

// CellKind is the stored type of a cell.
type CellKind uint8

const (
	// Null cells read as NaN and "".
	Null CellKind = iota
	// Number cells hold a float64.
	Number
	// Text cells hold a string.
	Text
)

// Cell is one typed value of a Row.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
}

// Num returns a Number cell.
func Num(v float64) Cell { return Cell{Kind: Number, Num: v} }

// Str returns a Text cell.
func Str(s string) Cell { return Cell{Kind: Text, Str: s} }

// Float returns the numeric view of the cell. Text that does not parse is NaN.
func (c Cell) Float() float64 {
	switch c.Kind {
	case Number:
		return c.Num
	case Text:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Str), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	default:
		return math.NaN()
	}
}

// Text returns the string view of the cell. Numbers use the shortest
// representation that round-trips.
func (c Cell) Text() string {
	switch c.Kind {
	case Number:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case Text:
		return c.Str
	default:
		return ""
	}
}

// Row is a Record backed by a cell slice.
type Row struct {
	cells []Cell
}

// NewRow copies cells into a new Row.
func NewRow(cells ...Cell) *Row {
	return &Row{cells: append([]Cell(nil), cells...)}
}

// FromStrings builds a Row of Text cells; empty fields are Null. Text keeps
// the raw spelling ("007" stays "007") while Numeric still parses it.
func FromStrings(fields []string) *Row {
	cells := make([]Cell, len(fields))
	for i, f := range fields {
		if f != "" {
			cells[i] = Str(f)
		}
	}
	return &Row{cells: cells}
}

// FromValues builds a Row from Go values: numeric kinds become Number
// cells, strings Text cells, nil Null and anything else is formatted as Text.
func FromValues(values ...interface{}) *Row {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = cellOf(v)
	}
	return &Row{cells: cells}
}

func cellOf(v interface{}) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{}
	case float64:
		return Num(x)
	case float32:
		return Num(float64(x))
	case int:
		return Num(float64(x))
	case int32:
		return Num(float64(x))
	case int64:
		return Num(float64(x))
	case bool:
		if x {
			return Num(1)
		}
		return Num(0)
	case string:
		return Str(x)
	case Cell:
		return x
	default:
		return Str(fmt.Sprint(x))
	}
}

// ColumnCount returns the number of cells.
func (r *Row) ColumnCount() int { return len(r.cells) }

// Numeric returns the numeric view of column col.
func (r *Row) Numeric(col int) float64 { return r.cells[col].Float() }

// String returns the string view of column col.
func (r *Row) String(col int) string { return r.cells[col].Text() }

// Cell returns the raw cell at col.
func (r *Row) Cell(col int) Cell { return r.cells[col] }
