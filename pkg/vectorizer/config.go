package vectorizer

import (
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/transform"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// NoIDColumn disables the identifier column.
const NoIDColumn = -1

// UnknownPolicy decides what happens to a categorical value that is absent
// from the summary's level map.
type UnknownPolicy int

const (
	// UnknownZero leaves the column's one-hot block all zero and reports a
	// warning.
	UnknownZero UnknownPolicy = iota
	// UnknownBucket gives every categorical block one trailing reserved slot
	// that is set for unseen values. The warning is still reported.
	UnknownBucket
	// UnknownReject behaves like UnknownZero for Encode; EncodeChecked
	// returns a data error instead of a vector.
	UnknownReject
)

var unknownNames = map[UnknownPolicy]string{
	UnknownZero:   "zero",
	UnknownBucket: "bucket",
	UnknownReject: "reject",
}

// String returns the configuration name of the policy.
func (u UnknownPolicy) String() string {
	if name, ok := unknownNames[u]; ok {
		return name
	}
	return "unknown"
}

// ParseUnknownPolicy parses "zero", "bucket" or "reject". The empty string
// is UnknownZero.
func ParseUnknownPolicy(name string) (UnknownPolicy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return UnknownZero, nil
	}
	for u, un := range unknownNames {
		if un == n {
			return u, nil
		}
	}
	return UnknownZero, errors.New(errors.ErrorTypeConfig, "unknown category policy").
		WithDetail("policy", name)
}

// Config is the immutable vectorization configuration. Build it with
// NewConfig; the zero value is not usable.
type Config struct {
	idColumn         int
	ignored          *roaring.Bitmap
	defaultTransform transform.Policy
	overrides        map[int]transform.Policy
	layout           vector.Layout
	unknown          UnknownPolicy
	normalize        bool
	columnCount      int
}

// ConfigOption sets one field of a Config under construction.
type ConfigOption func(*configDraft)

type configDraft struct {
	IDColumn         int   `validate:"gte=-1"`
	Ignored          []int `validate:"dive,gte=0"`
	DefaultTransform transform.Kind
	Overrides        map[int]transform.Kind `validate:"dive,keys,gte=0,endkeys"`
	Layout           vector.Layout
	Unknown          UnknownPolicy
	Normalize        bool
	ColumnCount      int `validate:"gte=0"`
}

// WithIDColumn sets the column whose string value tags every vector.
// NoIDColumn disables tagging.
func WithIDColumn(col int) ConfigOption {
	return func(d *configDraft) { d.IDColumn = col }
}

// WithIgnoredColumns adds columns that are skipped entirely.
func WithIgnoredColumns(cols ...int) ConfigOption {
	return func(d *configDraft) { d.Ignored = append(d.Ignored, cols...) }
}

// WithDefaultTransform sets the policy applied to numeric columns without an
// override.
func WithDefaultTransform(p transform.Policy) ConfigOption {
	return func(d *configDraft) { d.DefaultTransform = p.Kind }
}

// WithTransform overrides the policy of one numeric column.
func WithTransform(col int, p transform.Policy) ConfigOption {
	return func(d *configDraft) {
		if d.Overrides == nil {
			d.Overrides = make(map[int]transform.Kind)
		}
		d.Overrides[col] = p.Kind
	}
}

// WithLayout selects dense or sparse output vectors.
func WithLayout(l vector.Layout) ConfigOption {
	return func(d *configDraft) { d.Layout = l }
}

// WithUnknownPolicy selects the handling of unseen categorical values.
func WithUnknownPolicy(u UnknownPolicy) ConfigOption {
	return func(d *configDraft) { d.Unknown = u }
}

// WithCategoryNormalization applies NFKC normalization and whitespace
// trimming to categorical values before level lookup. The summary's levels
// are expected to be normalized the same way.
func WithCategoryNormalization(enabled bool) ConfigOption {
	return func(d *configDraft) { d.Normalize = enabled }
}

// WithColumnCount declares the exact record width. EncodeChecked then
// rejects records of any other width, and Build rejects configurations that
// reference columns past it.
func WithColumnCount(n int) ConfigOption {
	return func(d *configDraft) { d.ColumnCount = n }
}

var validate = validator.New()

// NewConfig validates the options and returns a frozen Config.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	d := &configDraft{IDColumn: NoIDColumn}
	for _, opt := range opts {
		opt(d)
	}

	if err := validate.Struct(d); err != nil {
		return nil, configError(err)
	}
	// The ignored set is a 32-bit bitmap; larger indices would alias.
	if big := lo.Filter(d.Ignored, func(col int, _ int) bool { return uint64(col) > math.MaxUint32 }); len(big) > 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "ignored column index out of range").
			WithDetail("columns", big).
			WithDetail("max", uint64(math.MaxUint32))
	}
	if !d.DefaultTransform.Valid() {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown default transform").
			WithDetail("transform", int(d.DefaultTransform))
	}
	for col, k := range d.Overrides {
		if !k.Valid() {
			return nil, errors.New(errors.ErrorTypeConfig, "unknown column transform").
				WithDetail("column", col).
				WithDetail("transform", int(k))
		}
		if col == d.IDColumn {
			return nil, errors.New(errors.ErrorTypeConfig, "transform override on the id column").
				WithDetail("column", col)
		}
	}
	if !d.Layout.Valid() {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown vector layout").
			WithDetail("layout", int(d.Layout))
	}
	if _, ok := unknownNames[d.Unknown]; !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown category policy").
			WithDetail("policy", int(d.Unknown))
	}
	if d.ColumnCount > 0 {
		referenced := append(lo.Keys(d.Overrides), d.Ignored...)
		if d.IDColumn != NoIDColumn {
			referenced = append(referenced, d.IDColumn)
		}
		if outside := lo.Filter(referenced, func(col int, _ int) bool { return col >= d.ColumnCount }); len(outside) > 0 {
			sort.Ints(outside)
			return nil, errors.New(errors.ErrorTypeConfig, "column outside the declared record width").
				WithDetail("columns", outside).
				WithDetail("column_count", d.ColumnCount)
		}
	}

	cfg := &Config{
		idColumn:         d.IDColumn,
		ignored:          roaring.New(),
		defaultTransform: transform.Policy{Kind: d.DefaultTransform},
		overrides:        make(map[int]transform.Policy, len(d.Overrides)),
		layout:           d.Layout,
		unknown:          d.Unknown,
		normalize:        d.Normalize,
		columnCount:      d.ColumnCount,
	}
	for _, col := range d.Ignored {
		cfg.ignored.Add(uint32(col))
	}
	cfg.ignored.RunOptimize()
	for col, k := range d.Overrides {
		cfg.overrides[col] = transform.Policy{Kind: k}
	}
	return cfg, nil
}

func configError(err error) error {
	e := errors.Wrap(err, errors.ErrorTypeConfig, "invalid vectorizer configuration")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		e = e.WithDetail("fields", lo.Map(verrs, func(fe validator.FieldError, _ int) string {
			return fe.Namespace()
		}))
	}
	return e
}

// IDColumn returns the identifier column or NoIDColumn.
func (c *Config) IDColumn() int { return c.idColumn }

// HasIDColumn reports whether vectors are tagged with an identifier.
func (c *Config) HasIDColumn() bool { return c.idColumn != NoIDColumn }

// IsIgnored reports whether col is skipped.
func (c *Config) IsIgnored(col int) bool {
	return col >= 0 && uint64(col) <= math.MaxUint32 && c.ignored.Contains(uint32(col))
}

// IgnoredColumns returns the ignored columns in ascending order.
func (c *Config) IgnoredColumns() []int {
	return lo.Map(c.ignored.ToArray(), func(col uint32, _ int) int { return int(col) })
}

// DefaultTransform returns the policy for numeric columns without an override.
func (c *Config) DefaultTransform() transform.Policy { return c.defaultTransform }

// TransformFor resolves the effective policy of col: its override if one is
// configured, the default otherwise.
func (c *Config) TransformFor(col int) transform.Policy {
	if p, ok := c.overrides[col]; ok {
		return p
	}
	return c.defaultTransform
}

// Overrides returns a copy of the per-column transform overrides.
func (c *Config) Overrides() map[int]transform.Policy {
	return lo.Assign(c.overrides)
}

// Layout returns the output vector layout.
func (c *Config) Layout() vector.Layout { return c.layout }

// UnknownPolicy returns the unseen category policy.
func (c *Config) UnknownPolicy() UnknownPolicy { return c.unknown }

// NormalizesCategories reports whether categorical values are normalized
// before lookup.
func (c *Config) NormalizesCategories() bool { return c.normalize }

// ColumnCount returns the declared record width, 0 when undeclared.
func (c *Config) ColumnCount() int { return c.columnCount }
