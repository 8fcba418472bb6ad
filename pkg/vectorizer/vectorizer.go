// Package vectorizer turns heterogeneous tabular records into fixed-length
// numeric feature vectors against a precomputed column summary.
//
// For every input column the vectorizer decides, once at Build time, whether
// the column is the identifier, ignored, copied unchanged, numerically
// transformed or expanded into a one-hot block over its categorical levels.
// Encode then walks a record's columns in order, advancing a running output
// offset by each column's width (0, 1 or the level count), and assembles a
// dense or sparse vector tagged with the record's identifier.
//
// Encode is pure apart from warning delivery and may be called concurrently
// from any number of goroutines against one Vectorizer.
//
// Basic usage:
//
//	cfg, err := vectorizer.NewConfig(
//	    vectorizer.WithIDColumn(0),
//	    vectorizer.WithDefaultTransform(transform.Standardize),
//	    vectorizer.WithLayout(vector.Sparse),
//	)
//	v, err := vectorizer.Build(sum, cfg, vectorizer.WithReporter(vectorizer.NewLogReporter(log)))
//	vec, unknowns := v.Encode(row)
package vectorizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/pool"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/summary"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// ColumnSummary is the read-only view of column statistics the vectorizer
// needs. *summary.Summary implements it.
type ColumnSummary interface {
	Columns() []int
	IsNumeric(col int) bool
	NumericStats(col int) (*summary.NumericStats, bool)
	LevelCount(col int) int
	LevelIndex(col int, value string) int
	RecordCount() int64
	TotalCategoricalLevels() int
}

// Option configures a Vectorizer at Build time.
type Option func(*Vectorizer)

// WithReporter sets the receiver of unknown-category warnings.
func WithReporter(r Reporter) Option {
	return func(v *Vectorizer) {
		if r != nil {
			v.reporter = r
		}
	}
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(v *Vectorizer) {
		if l != nil {
			v.logger = l
		}
	}
}

// Vectorizer encodes records. It is immutable after Build.
type Vectorizer struct {
	summary     ColumnSummary
	cfg         *Config
	plan        []ColumnPlan
	dropped     []ColumnPlan // id and ignored columns past plan, ascending
	minColumns  int
	planWidth   int
	expansion   int
	recordCount int64
	reporter    Reporter
	logger      *zap.Logger
}

// ColumnCountError reports a record whose width does not match the width
// the vectorizer was built for.
type ColumnCountError struct {
	// Expected is the declared column count, or the minimum width implied
	// by the summary and configuration when none was declared.
	Expected int
	Actual   int
	// Exact is true when Expected is a declared column count.
	Exact bool
}

func (e *ColumnCountError) Error() string {
	if e.Exact {
		return fmt.Sprintf("record has %d columns, expected %d", e.Actual, e.Expected)
	}
	return fmt.Sprintf("record has %d columns, expected at least %d", e.Actual, e.Expected)
}

// Build validates summary against cfg and precomputes the column plan and
// the expansion. Failures are ErrorTypeConfig errors and should stop
// pipeline setup.
func Build(s ColumnSummary, cfg *Config, opts ...Option) (*Vectorizer, error) {
	if s == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "summary is required")
	}
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	v := &Vectorizer{
		summary:     s,
		cfg:         cfg,
		recordCount: s.RecordCount(),
		reporter:    NopReporter{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}

	// The dense plan spans the summarized columns only. Id and ignored
	// columns past it are resolved by lookup in Encode, so a large
	// configured index costs nothing but a comparison.
	columns := s.Columns()
	known := make(map[int]struct{}, len(columns))
	planLen := 0
	for _, col := range columns {
		if col < 0 {
			return nil, errors.New(errors.ErrorTypeConfig, "summary column index must not be negative").
				WithDetail("column", col)
		}
		known[col] = struct{}{}
		planLen = max(planLen, col+1)
	}
	if cfg.columnCount > 0 && planLen > cfg.columnCount {
		return nil, errors.New(errors.ErrorTypeConfig, "summary column outside the declared record width").
			WithDetail("column", planLen-1).
			WithDetail("column_count", cfg.columnCount)
	}

	minColumns := planLen
	drop := func(col int, role Role) {
		v.dropped = append(v.dropped, ColumnPlan{Column: col, Role: role, Offset: -1})
		minColumns = max(minColumns, col+1)
	}
	if cfg.HasIDColumn() && cfg.idColumn >= planLen {
		drop(cfg.idColumn, Identifier)
	}
	if uint64(planLen) <= math.MaxUint32 {
		it := cfg.ignored.Iterator()
		it.AdvanceIfNeeded(uint32(planLen))
		for it.HasNext() {
			if col := int(it.Next()); col != cfg.idColumn {
				drop(col, Ignored)
			}
		}
	}
	sort.Slice(v.dropped, func(i, j int) bool { return v.dropped[i].Column < v.dropped[j].Column })
	for col := range cfg.overrides {
		minColumns = max(minColumns, col+1)
	}
	if cfg.columnCount > 0 {
		minColumns = cfg.columnCount
	}
	v.minColumns = minColumns

	v.plan = make([]ColumnPlan, planLen)
	offset := 0
	for col := 0; col < planLen; col++ {
		p := ColumnPlan{Column: col, Role: classify(col, cfg, s, known), Offset: -1}
		switch p.Role {
		case RawPassthrough:
			p.Width = 1
		case NumericTransformed:
			p.Width = 1
			p.Transform = cfg.TransformFor(col)
			p.stats, _ = s.NumericStats(col)
		case CategoricalOneHot:
			if _, ok := cfg.overrides[col]; ok {
				return nil, errors.New(errors.ErrorTypeConfig, "transform override on a categorical column").
					WithDetail("column", col)
			}
			p.Levels = s.LevelCount(col)
			if p.Levels < 0 {
				return nil, errors.New(errors.ErrorTypeConfig, "negative level count").
					WithDetail("column", col)
			}
			p.Width = categoricalWidth(p.Levels, cfg.unknown)
		}
		if p.Width > 0 {
			p.Offset = offset
		}
		offset += p.Width
		v.plan[col] = p
	}
	v.planWidth = offset
	v.expansion = offset - planLen - len(v.dropped)

	v.logger.Debug("vectorizer built",
		zap.Int("planned_columns", planLen),
		zap.Int("dropped_past_plan", len(v.dropped)),
		zap.Int("min_columns", v.minColumns),
		zap.Int("planned_width", v.planWidth),
		zap.Int("expansion", v.expansion),
		zap.Int("categorical_levels", s.TotalCategoricalLevels()),
		zap.Stringer("layout", cfg.layout),
		zap.Stringer("unknown_policy", cfg.unknown))

	return v, nil
}

// Expansion returns output width minus input column count. It is the same
// for every record.
func (v *Vectorizer) Expansion() int { return v.expansion }

// Width returns the output vector length for records of columnCount columns.
func (v *Vectorizer) Width(columnCount int) int { return columnCount + v.expansion }

// MinColumns returns the smallest record width the plan covers: every
// summarized, ignored, overridden and id column must exist in the record.
func (v *Vectorizer) MinColumns() int { return v.minColumns }

// Layout returns the output vector layout.
func (v *Vectorizer) Layout() vector.Layout { return v.cfg.layout }

// Config returns the configuration the vectorizer was built with.
func (v *Vectorizer) Config() *Config { return v.cfg }

// Plan returns a copy of the cached per-column plan: every column up to the
// last summarized one, then id and ignored columns past it in ascending
// order. Unlisted columns are RawPassthrough.
func (v *Vectorizer) Plan() []ColumnPlan {
	out := make([]ColumnPlan, 0, len(v.plan)+len(v.dropped))
	out = append(out, v.plan...)
	return append(out, v.dropped...)
}

// Encode converts rec into a feature vector. Unknown categorical values are
// returned as warnings, delivered to the configured Reporter, and leave
// their block all zero; they never abort encoding.
//
// rec must have at least MinColumns columns (exactly the declared count when
// WithColumnCount was used). This is not checked here; use EncodeChecked
// when the input is untrusted.
func (v *Vectorizer) Encode(rec record.Record) (*vector.FeatureVector, []UnknownCategory) {
	n := rec.ColumnCount()
	var buf []float64
	if v.cfg.layout == vector.Sparse {
		// FromBuffer copies the non-zero entries, so the scratch can go back.
		scratch := pool.GetFloats(n + v.expansion)
		defer pool.PutFloats(scratch)
		buf = *scratch
	} else {
		buf = make([]float64, n+v.expansion)
	}

	var unknowns []UnknownCategory
	offset := 0
	for i := 0; i < n; i++ {
		if i >= len(v.plan) {
			if i == v.cfg.idColumn || v.cfg.IsIgnored(i) {
				continue
			}
			buf[offset] = rec.Numeric(i)
			offset++
			continue
		}

		p := &v.plan[i]
		switch p.Role {
		case Identifier, Ignored:
			continue
		case RawPassthrough:
			buf[offset] = rec.Numeric(i)
		case NumericTransformed:
			buf[offset] = p.Transform.Apply(rec.Numeric(i), v.recordCount, p.stats)
		case CategoricalOneHot:
			value := rec.String(i)
			if v.cfg.normalize {
				value = normalizeCategory(value)
			}
			if idx := v.summary.LevelIndex(i, value); idx >= 0 && idx < p.Levels {
				buf[offset+idx] = 1.0
			} else {
				if v.cfg.unknown == UnknownBucket {
					buf[offset+p.Levels] = 1.0
				}
				u := UnknownCategory{Column: i, Value: value}
				if v.cfg.HasIDColumn() {
					u.RecordID = rec.String(v.cfg.idColumn)
				}
				unknowns = append(unknowns, u)
				v.reporter.ReportUnknown(u)
			}
		}
		offset += p.Width
	}

	vec := vector.FromBuffer(buf, v.cfg.layout)
	if v.cfg.HasIDColumn() {
		vec = vec.WithIdentifier(rec.String(v.cfg.idColumn))
	}
	return vec, unknowns
}

// EncodeChecked is Encode with the record width verified first. A width
// mismatch returns a data error wrapping *ColumnCountError. Under
// UnknownReject an unseen categorical value returns a data error and no
// vector.
func (v *Vectorizer) EncodeChecked(rec record.Record) (*vector.FeatureVector, []UnknownCategory, error) {
	n := rec.ColumnCount()
	var cce *ColumnCountError
	switch {
	case v.cfg.columnCount > 0 && n != v.cfg.columnCount:
		cce = &ColumnCountError{Expected: v.cfg.columnCount, Actual: n, Exact: true}
	case n < len(v.plan):
		cce = &ColumnCountError{Expected: len(v.plan), Actual: n}
	}
	if cce != nil {
		return nil, nil, errors.Wrap(cce, errors.ErrorTypeData, "record column count mismatch").
			WithDetail("expected", cce.Expected).
			WithDetail("actual", cce.Actual)
	}

	vec, unknowns := v.Encode(rec)
	if len(unknowns) > 0 && v.cfg.unknown == UnknownReject {
		first := unknowns[0]
		return nil, unknowns, errors.New(errors.ErrorTypeData, "unknown categorical value").
			WithDetail("column", first.Column).
			WithDetail("value", first.Value).
			WithDetail("unknowns", len(unknowns))
	}
	return vec, unknowns, nil
}

func normalizeCategory(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
