package vectorizer

import (
	"github.com/ajitpratap0/featurize/pkg/summary"
	"github.com/ajitpratap0/featurize/pkg/transform"
)

// Role is the derived classification of an input column.
type Role int

const (
	// RawPassthrough columns are unknown to the summary; their numeric value
	// is copied unchanged into one slot.
	RawPassthrough Role = iota
	// Identifier is the configured id column; it tags the vector and has no width.
	Identifier
	// Ignored columns are skipped and have no width.
	Ignored
	// NumericTransformed columns occupy one slot holding the policy output.
	NumericTransformed
	// CategoricalOneHot columns occupy one slot per level.
	CategoricalOneHot
)

// String returns a readable role name.
func (r Role) String() string {
	switch r {
	case RawPassthrough:
		return "passthrough"
	case Identifier:
		return "identifier"
	case Ignored:
		return "ignored"
	case NumericTransformed:
		return "numeric"
	case CategoricalOneHot:
		return "categorical"
	default:
		return "unknown"
	}
}

// ColumnPlan is the cached encoding decision for one input column.
type ColumnPlan struct {
	Column int
	Role   Role
	// Offset is the first output position of the column, -1 when Width is 0.
	Offset int
	Width  int
	// Levels is the summary's level count for categorical columns.
	Levels    int
	Transform transform.Policy

	stats *summary.NumericStats
}

// classify derives the role of col. Id handling wins over ignoring so a
// column that is both is excluded exactly once.
func classify(col int, cfg *Config, s ColumnSummary, known map[int]struct{}) Role {
	switch {
	case col == cfg.idColumn:
		return Identifier
	case cfg.IsIgnored(col):
		return Ignored
	}
	if _, ok := known[col]; !ok {
		return RawPassthrough
	}
	if s.IsNumeric(col) {
		return NumericTransformed
	}
	return CategoricalOneHot
}

// categoricalWidth is the block width of a categorical column with the given
// number of levels.
func categoricalWidth(levels int, u UnknownPolicy) int {
	if u == UnknownBucket {
		return levels + 1
	}
	return levels
}
