// Package summary holds the precomputed, immutable column statistics a
// vectorizer encodes records against.
//
// Computing the statistics is an upstream batch job; this package only
// represents them and loads them from JSON or YAML documents. A Summary is
// frozen once constructed and is safe for any number of concurrent readers.
package summary

import (
	"math"
	"sort"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

// NotFound is returned by LevelIndex for values absent from a column's level map.
const NotFound = -1

// Kind classifies a summarized column.
type Kind int

const (
	// Numeric columns carry moments used by numeric transforms.
	Numeric Kind = iota
	// Categorical columns carry a value <-> level index bijection.
	Categorical
)

// String returns the document name of the kind.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// NumericStats are the moments of a numeric column.
type NumericStats struct {
	Count    int64
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
	Sum      float64
}

// StdDev returns the standard deviation derived from Variance.
func (n NumericStats) StdDev() float64 {
	return math.Sqrt(n.Variance)
}

// Range returns Max - Min.
func (n NumericStats) Range() float64 {
	return n.Max - n.Min
}

// Stats describes one summarized column.
type Stats struct {
	kind    Kind
	numeric NumericStats
	levels  []string
	index   map[string]int
}

// NumericColumn returns stats for a numeric column.
func NumericColumn(n NumericStats) Stats {
	return Stats{kind: Numeric, numeric: n}
}

// CategoricalColumn returns stats for a categorical column whose level
// indices follow the order of levels.
func CategoricalColumn(levels ...string) Stats {
	return Stats{kind: Categorical, levels: append([]string(nil), levels...)}
}

// Kind returns the column kind.
func (s *Stats) Kind() Kind { return s.kind }

// IsNumeric reports whether the column is numeric.
func (s *Stats) IsNumeric() bool { return s.kind == Numeric }

// Numeric returns the numeric moments. Zero for categorical columns.
func (s *Stats) Numeric() NumericStats { return s.numeric }

// LevelCount returns the number of observed levels. Zero for numeric columns.
func (s *Stats) LevelCount() int { return len(s.levels) }

// Levels returns a copy of the level values ordered by index.
func (s *Stats) Levels() []string { return append([]string(nil), s.levels...) }

// Index returns the level index of value or NotFound.
func (s *Stats) Index(value string) int {
	if idx, ok := s.index[value]; ok {
		return idx
	}
	return NotFound
}

// Summary is the per-column statistics of a dataset.
type Summary struct {
	recordCount int64
	stats       map[int]*Stats
	columns     []int
	totalLevels int
}

// New builds a frozen summary. The stats map is copied; later changes to it
// are not observed.
func New(recordCount int64, stats map[int]Stats) (*Summary, error) {
	if recordCount < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "record count must not be negative").
			WithDetail("record_count", recordCount)
	}

	s := &Summary{
		recordCount: recordCount,
		stats:       make(map[int]*Stats, len(stats)),
		columns:     make([]int, 0, len(stats)),
	}

	for col, st := range stats {
		if col < 0 {
			return nil, errors.New(errors.ErrorTypeConfig, "column index must not be negative").
				WithDetail("column", col)
		}

		frozen := &Stats{kind: st.kind, numeric: st.numeric}
		switch st.kind {
		case Numeric:
		case Categorical:
			frozen.levels = append([]string(nil), st.levels...)
			frozen.index = make(map[string]int, len(st.levels))
			for i, level := range st.levels {
				if _, dup := frozen.index[level]; dup {
					return nil, errors.New(errors.ErrorTypeConfig, "duplicate categorical level").
						WithDetail("column", col).
						WithDetail("level", level)
				}
				frozen.index[level] = i
			}
			s.totalLevels += len(st.levels)
		default:
			return nil, errors.New(errors.ErrorTypeConfig, "unknown column kind").
				WithDetail("column", col).
				WithDetail("kind", int(st.kind))
		}

		s.stats[col] = frozen
		s.columns = append(s.columns, col)
	}
	sort.Ints(s.columns)

	return s, nil
}

// RecordCount returns the number of records the summary was computed over.
func (s *Summary) RecordCount() int64 { return s.recordCount }

// Stats returns the statistics for col, or false if the column is unknown to
// the summary.
func (s *Summary) Stats(col int) (*Stats, bool) {
	st, ok := s.stats[col]
	return st, ok
}

// IsNumeric reports whether col is a summarized numeric column.
func (s *Summary) IsNumeric(col int) bool {
	st, ok := s.stats[col]
	return ok && st.kind == Numeric
}

// NumericStats returns the moments of a numeric column.
func (s *Summary) NumericStats(col int) (*NumericStats, bool) {
	st, ok := s.stats[col]
	if !ok || st.kind != Numeric {
		return nil, false
	}
	n := st.numeric
	return &n, true
}

// LevelCount returns the level count of a categorical column, 0 otherwise.
func (s *Summary) LevelCount(col int) int {
	if st, ok := s.stats[col]; ok {
		return st.LevelCount()
	}
	return 0
}

// LevelIndex returns the level index of value in col, or NotFound.
func (s *Summary) LevelIndex(col int, value string) int {
	if st, ok := s.stats[col]; ok {
		return st.Index(value)
	}
	return NotFound
}

// TotalCategoricalLevels returns the sum of level counts over all
// categorical columns.
func (s *Summary) TotalCategoricalLevels() int { return s.totalLevels }

// Columns returns the summarized column indices in ascending order.
func (s *Summary) Columns() []int { return append([]int(nil), s.columns...) }
