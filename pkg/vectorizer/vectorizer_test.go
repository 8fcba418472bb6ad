package vectorizer

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/summary"
	"github.com/ajitpratap0/featurize/pkg/transform"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// colorSummary: col1 numeric(mean=10, var=4), col2 categorical {red, blue}.
func colorSummary(t *testing.T) *summary.Summary {
	t.Helper()
	s, err := summary.New(50, map[int]summary.Stats{
		1: summary.NumericColumn(summary.NumericStats{Count: 50, Mean: 10, Variance: 4, Min: 0, Max: 20}),
		2: summary.CategoricalColumn("red", "blue"),
	})
	require.NoError(t, err)
	return s
}

func mustConfig(t *testing.T, opts ...ConfigOption) *Config {
	t.Helper()
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)
	return cfg
}

func mustBuild(t *testing.T, s ColumnSummary, cfg *Config, opts ...Option) *Vectorizer {
	t.Helper()
	v, err := Build(s, cfg, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestEncodeIdentifiedRecord(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0)))

	vec, unknowns := v.Encode(record.FromValues("id007", 12.0, "red"))

	assert.Empty(t, unknowns)
	assert.Equal(t, 0, v.Expansion())
	assert.Equal(t, []float64{12, 1, 0}, vec.Values())
	assert.True(t, vec.HasIdentifier())
	assert.Equal(t, "id007", vec.Identifier())
	assert.Equal(t, vector.Dense, vec.Layout())
}

func TestEncodeAppliesDefaultAndOverrideTransforms(t *testing.T) {
	s, err := summary.New(10, map[int]summary.Stats{
		0: summary.NumericColumn(summary.NumericStats{Mean: 10, Variance: 4, Min: 0, Max: 20}),
		1: summary.NumericColumn(summary.NumericStats{Mean: 10, Variance: 4, Min: 0, Max: 20}),
	})
	require.NoError(t, err)

	cfg := mustConfig(t,
		WithDefaultTransform(transform.Standardize),
		WithTransform(1, transform.Policy{Kind: transform.Linear}),
	)
	v := mustBuild(t, s, cfg)

	vec, _ := v.Encode(record.FromValues(12.0, 5.0))
	stats, _ := s.NumericStats(0)
	assert.Equal(t, transform.Standardize.Apply(12, 10, stats), vec.At(0))
	assert.Equal(t, transform.Policy{Kind: transform.Linear}.Apply(5, 10, stats), vec.At(1))
	assert.Equal(t, []float64{1, 0.25}, vec.Values())
	assert.False(t, vec.HasIdentifier())
}

func TestEncodeUnknownCategory(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	collector := &Collector{}
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0)),
		WithReporter(MultiReporter{collector, NewLogReporter(zap.New(core))}))

	vec, unknowns := v.Encode(record.FromValues("id009", 8.0, "green"))

	assert.Equal(t, []float64{8, 0, 0}, vec.Values())
	require.Len(t, unknowns, 1)
	assert.Equal(t, UnknownCategory{Column: 2, Value: "green", RecordID: "id009"}, unknowns[0])
	assert.Equal(t, unknowns, collector.Unknowns())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "unknown categorical value", entry.Message)
	assert.Equal(t, "green", entry.ContextMap()["value"])

	// later records are unaffected
	vec, unknowns = v.Encode(record.FromValues("id010", 8.0, "blue"))
	assert.Empty(t, unknowns)
	assert.Equal(t, []float64{8, 0, 1}, vec.Values())
}

func TestEncodePassthroughAndIgnored(t *testing.T) {
	// col0 ignored, col1 numeric, col2 categorical, col3 unknown to summary,
	// col4 ignored past the summary, col5 unplanned passthrough
	cfg := mustConfig(t, WithIgnoredColumns(0, 4), WithDefaultTransform(transform.Standardize))
	v := mustBuild(t, colorSummary(t), cfg)

	assert.Equal(t, 5, v.MinColumns())
	assert.Equal(t, -1, v.Expansion())

	rec := record.FromValues(99.0, 14.0, "blue", 7.5, 123.0, -1.0)
	vec, unknowns := v.Encode(rec)

	assert.Empty(t, unknowns)
	assert.Equal(t, rec.ColumnCount()+v.Expansion(), vec.Len())
	assert.Equal(t, []float64{2, 0, 1, 7.5, -1}, vec.Values())

	// col3 sits past the summary and is not listed
	plan := v.Plan()
	require.Len(t, plan, 4)
	assert.Equal(t, []int{0, 1, 2, 4},
		[]int{plan[0].Column, plan[1].Column, plan[2].Column, plan[3].Column})
	assert.Equal(t, []Role{Ignored, NumericTransformed, CategoricalOneHot, Ignored},
		[]Role{plan[0].Role, plan[1].Role, plan[2].Role, plan[3].Role})
	assert.Equal(t, []int{-1, 0, 1, -1},
		[]int{plan[0].Offset, plan[1].Offset, plan[2].Offset, plan[3].Offset})
}

func TestIDColumnAlsoIgnoredIsExcludedOnce(t *testing.T) {
	cfg := mustConfig(t, WithIDColumn(0), WithIgnoredColumns(0))
	v := mustBuild(t, colorSummary(t), cfg)

	assert.Equal(t, 0, v.Expansion())
	vec, _ := v.Encode(record.FromValues("id1", 3.0, "blue"))
	assert.Equal(t, 3, vec.Len())
	assert.Equal(t, []float64{3, 0, 1}, vec.Values())
	assert.Equal(t, "id1", vec.Identifier())
	assert.Equal(t, Identifier, v.Plan()[0].Role)
}

func TestZeroLevelCategoricalHasNoWidth(t *testing.T) {
	s, err := summary.New(1, map[int]summary.Stats{
		0: summary.CategoricalColumn(),
		1: summary.CategoricalColumn("x"),
	})
	require.NoError(t, err)
	v := mustBuild(t, s, mustConfig(t))

	assert.Equal(t, -1, v.Expansion())
	vec, unknowns := v.Encode(record.FromValues("anything", "x"))
	assert.Equal(t, []float64{1}, vec.Values())
	require.Len(t, unknowns, 1)
	assert.Equal(t, 0, unknowns[0].Column)
}

func TestSparseAndDenseAgree(t *testing.T) {
	s := colorSummary(t)
	dense := mustBuild(t, s, mustConfig(t, WithIDColumn(0), WithDefaultTransform(transform.Standardize)))
	sparse := mustBuild(t, s, mustConfig(t, WithIDColumn(0), WithDefaultTransform(transform.Standardize),
		WithLayout(vector.Sparse)))

	rec := record.FromValues("r1", 10.0, "blue")
	dv, _ := dense.Encode(rec)
	sv, _ := sparse.Encode(rec)

	assert.Equal(t, vector.Dense, dv.Layout())
	assert.Equal(t, vector.Sparse, sv.Layout())
	assert.True(t, dv.Equal(sv))
	assert.Equal(t, dv.Values(), sv.Values())
	assert.Equal(t, 1, sv.NNZ())
}

func TestEncodeIsIdempotent(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0), WithDefaultTransform(transform.Standardize)))
	rec := record.FromValues("r1", 11.3, "red")

	a, _ := v.Encode(rec)
	b, _ := v.Encode(rec)
	av, bv := a.Values(), b.Values()
	require.Equal(t, len(av), len(bv))
	for i := range av {
		assert.Equal(t, math.Float64bits(av[i]), math.Float64bits(bv[i]))
	}
	assert.Equal(t, a.Identifier(), b.Identifier())
}

func TestOneHotInvariantAndWidth(t *testing.T) {
	s, err := summary.New(3, map[int]summary.Stats{
		0: summary.CategoricalColumn("a", "b", "c"),
		1: summary.NumericColumn(summary.NumericStats{Mean: 1, Variance: 1}),
		2: summary.CategoricalColumn("x", "y"),
	})
	require.NoError(t, err)
	v := mustBuild(t, s, mustConfig(t, WithIgnoredColumns(3)))

	for _, row := range [][]interface{}{
		{"a", 1.0, "x", 0.0, 5.0},
		{"c", 2.0, "y", 0.0, 5.0},
		{"b", 3.0, "z", 0.0, 5.0},
		{"q", 4.0, "x", 0.0},
	} {
		rec := record.FromValues(row...)
		vec, unknowns := v.Encode(rec)
		require.Equal(t, rec.ColumnCount()+v.Expansion(), vec.Len())

		values := vec.Values()
		for _, block := range []struct{ col, off, width int }{{0, 0, 3}, {2, 4, 2}} {
			ones, zeros := 0, 0
			for _, x := range values[block.off : block.off+block.width] {
				switch x {
				case 1:
					ones++
				case 0:
					zeros++
				}
			}
			unknown := false
			for _, u := range unknowns {
				unknown = unknown || u.Column == block.col
			}
			if unknown {
				assert.Equal(t, block.width, zeros)
			} else {
				assert.Equal(t, 1, ones)
				assert.Equal(t, block.width-1, zeros)
			}
		}
	}
}

func TestUnknownBucket(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0), WithUnknownPolicy(UnknownBucket)))

	assert.Equal(t, 1, v.Expansion())

	vec, unknowns := v.Encode(record.FromValues("id", 1.0, "green"))
	assert.Equal(t, []float64{1, 0, 0, 1}, vec.Values())
	assert.Len(t, unknowns, 1)

	vec, unknowns = v.Encode(record.FromValues("id", 1.0, "blue"))
	assert.Equal(t, []float64{1, 0, 1, 0}, vec.Values())
	assert.Empty(t, unknowns)
}

func TestEncodeCheckedColumnCount(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0)))

	_, _, err := v.EncodeChecked(record.FromValues("id", 1.0))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	var cce *ColumnCountError
	require.True(t, errors.As(err, &cce))
	assert.Equal(t, 3, cce.Expected)
	assert.Equal(t, 2, cce.Actual)
	assert.False(t, cce.Exact)

	vec, _, err := v.EncodeChecked(record.FromValues("id", 1.0, "red", 4.0))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 4}, vec.Values())

	exact := mustBuild(t, colorSummary(t), mustConfig(t, WithIDColumn(0), WithColumnCount(3)))
	_, _, err = exact.EncodeChecked(record.FromValues("id", 1.0, "red", 4.0))
	require.True(t, errors.As(err, &cce))
	assert.True(t, cce.Exact)
	assert.Contains(t, err.Error(), "record has 4 columns, expected 3")
}

func TestEncodeCheckedReject(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithUnknownPolicy(UnknownReject)))

	vec, unknowns, err := v.EncodeChecked(record.FromValues(0.0, 1.0, "green"))
	require.Error(t, err)
	assert.Nil(t, vec)
	assert.Len(t, unknowns, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.False(t, errors.IsFatal(err))

	// the unchecked path still emits the record
	vec, unknowns = v.Encode(record.FromValues(0.0, 1.0, "green"))
	assert.Equal(t, []float64{0, 1, 0, 0}, vec.Values())
	assert.Len(t, unknowns, 1)
}

func TestCategoryNormalization(t *testing.T) {
	s, err := summary.New(1, map[int]summary.Stats{0: summary.CategoricalColumn("ABC", "x")})
	require.NoError(t, err)

	plain := mustBuild(t, s, mustConfig(t))
	normalized := mustBuild(t, s, mustConfig(t, WithCategoryNormalization(true)))

	// fullwidth letters fold to ASCII under NFKC
	rec := record.FromValues(" ＡＢＣ ")
	_, unknowns := plain.Encode(rec)
	assert.Len(t, unknowns, 1)

	vec, unknowns := normalized.Encode(rec)
	assert.Empty(t, unknowns)
	assert.Equal(t, []float64{1, 0}, vec.Values())
}

func TestConcurrentEncode(t *testing.T) {
	collector := &Collector{}
	v := mustBuild(t, colorSummary(t),
		mustConfig(t, WithIDColumn(0), WithDefaultTransform(transform.Standardize), WithLayout(vector.Sparse)),
		WithReporter(collector))

	const workers, perWorker = 8, 200
	want, _ := v.Encode(record.FromValues("r", 12.0, "red"))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				got, _ := v.Encode(record.FromValues("r", 12.0, "red"))
				assert.True(t, want.Equal(got))
				v.Encode(record.FromValues("r", 12.0, "purple"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers*perWorker, collector.Len())
}

func TestBuildErrors(t *testing.T) {
	s := colorSummary(t)

	_, err := Build(nil, mustConfig(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Build(s, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Build(s, mustConfig(t, WithTransform(2, transform.Standardize)))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Build(s, mustConfig(t, WithColumnCount(2)))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestBuildWithColumnCountCoversWholeRecord(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithColumnCount(5), WithIDColumn(0)))
	assert.Equal(t, 5, v.MinColumns())
	assert.Equal(t, 0, v.Expansion())
	assert.Equal(t, 5, v.Width(5))
	assert.Len(t, v.Plan(), 3)

	vec, _, err := v.EncodeChecked(record.FromValues("id1", 12.0, "red", 4.0, 5.0))
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 1, 0, 4, 5}, vec.Values())
}

func TestDroppedColumnsPastSummary(t *testing.T) {
	// summary covers cols 0..2; col4 ignored and col5 id lie past it
	cfg := mustConfig(t, WithIDColumn(5), WithIgnoredColumns(4))
	v := mustBuild(t, colorSummary(t), cfg)

	assert.Equal(t, 6, v.MinColumns())
	assert.Equal(t, -1, v.Expansion())

	rec := record.FromValues(1.0, 12.0, "red", 7.0, 99.0, "rid", 3.0)
	vec, _, err := v.EncodeChecked(rec)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 12, 1, 0, 7, 3}, vec.Values())
	assert.Equal(t, v.Width(rec.ColumnCount()), vec.Len())
	assert.Equal(t, "rid", vec.Identifier())

	plan := v.Plan()
	require.Len(t, plan, 5)
	assert.Equal(t, ColumnPlan{Column: 4, Role: Ignored, Offset: -1}, plan[3])
	assert.Equal(t, ColumnPlan{Column: 5, Role: Identifier, Offset: -1}, plan[4])
}

func TestLargeConfiguredIndicesDoNotGrowThePlan(t *testing.T) {
	cfg := mustConfig(t, WithIDColumn(2_000_000_000), WithIgnoredColumns(1<<30, 1<<30+1))
	v := mustBuild(t, colorSummary(t), cfg)

	assert.Equal(t, 2_000_000_001, v.MinColumns())
	assert.Equal(t, -2, v.Expansion())
	assert.Len(t, v.Plan(), 6)

	_, _, err := v.EncodeChecked(record.FromValues(1.0, 12.0, "red"))
	var cce *ColumnCountError
	require.True(t, errors.As(err, &cce))
	assert.Equal(t, 2_000_000_001, cce.Expected)
	assert.Equal(t, 3, cce.Actual)
}

func TestEncodeTwiceWithNaNIsEqual(t *testing.T) {
	v := mustBuild(t, colorSummary(t), mustConfig(t, WithTransform(1, transform.Policy{Kind: transform.Log})))

	rec := record.FromValues(math.NaN(), -5.0, "red")
	a, _ := v.Encode(rec)
	b, _ := v.Encode(rec)
	require.True(t, math.IsNaN(a.At(0)))
	assert.True(t, a.Equal(b))
}
