package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

func colorSummary(t *testing.T) *Summary {
	t.Helper()
	s, err := New(100, map[int]Stats{
		1: NumericColumn(NumericStats{Count: 100, Mean: 10, Variance: 4, Min: 2, Max: 18}),
		2: CategoricalColumn("red", "blue"),
		4: CategoricalColumn("s", "m", "l"),
	})
	require.NoError(t, err)
	return s
}

func TestSummaryLookups(t *testing.T) {
	s := colorSummary(t)

	assert.Equal(t, int64(100), s.RecordCount())
	assert.Equal(t, []int{1, 2, 4}, s.Columns())
	assert.Equal(t, 5, s.TotalCategoricalLevels())

	assert.True(t, s.IsNumeric(1))
	assert.False(t, s.IsNumeric(2))
	assert.False(t, s.IsNumeric(3))

	n, ok := s.NumericStats(1)
	require.True(t, ok)
	assert.Equal(t, 10.0, n.Mean)
	assert.Equal(t, 2.0, n.StdDev())
	assert.Equal(t, 16.0, n.Range())

	_, ok = s.NumericStats(2)
	assert.False(t, ok)

	assert.Equal(t, 2, s.LevelCount(2))
	assert.Equal(t, 0, s.LevelCount(1))
	assert.Equal(t, 0, s.LevelCount(3))

	assert.Equal(t, 0, s.LevelIndex(2, "red"))
	assert.Equal(t, 1, s.LevelIndex(2, "blue"))
	assert.Equal(t, NotFound, s.LevelIndex(2, "green"))
	assert.Equal(t, NotFound, s.LevelIndex(3, "red"))
	assert.Equal(t, 2, s.LevelIndex(4, "l"))

	_, ok = s.Stats(3)
	assert.False(t, ok)
}

func TestSummaryIsFrozen(t *testing.T) {
	levels := []string{"a", "b"}
	stats := map[int]Stats{0: CategoricalColumn(levels...)}
	s, err := New(1, stats)
	require.NoError(t, err)

	levels[0] = "z"
	stats[1] = NumericColumn(NumericStats{})
	st, _ := s.Stats(0)
	got := st.Levels()
	got[1] = "y"

	assert.Equal(t, 0, s.LevelIndex(0, "a"))
	assert.Equal(t, []string{"a", "b"}, st.Levels())
	assert.False(t, s.IsNumeric(1))
}

func TestNewRejectsInvalidStats(t *testing.T) {
	tests := []struct {
		name        string
		recordCount int64
		stats       map[int]Stats
	}{
		{"negative record count", -1, nil},
		{"negative column", 1, map[int]Stats{-2: NumericColumn(NumericStats{})}},
		{"duplicate level", 1, map[int]Stats{0: CategoricalColumn("a", "a")}},
		{"unknown kind", 1, map[int]Stats{0: {kind: Kind(7)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.recordCount, tt.stats)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestZeroLevelColumn(t *testing.T) {
	s, err := New(0, map[int]Stats{0: CategoricalColumn()})
	require.NoError(t, err)
	assert.False(t, s.IsNumeric(0))
	assert.Equal(t, 0, s.LevelCount(0))
	assert.Equal(t, 0, s.TotalCategoricalLevels())
}

const jsonDoc = `{
  "record_count": 100,
  "columns": [
    {"index": 1, "type": "numeric", "count": 100, "mean": 10, "variance": 4},
    {"index": 2, "type": "categorical", "levels": ["red", "blue"]}
  ]
}`

const yamlDoc = `
record_count: 100
columns:
  - index: 1
    type: numeric
    count: 100
    mean: 10
    variance: 4
  - index: 2
    type: categorical
    levels: [red, blue]
`

func TestDecode(t *testing.T) {
	for name, tc := range map[string]struct {
		doc    string
		format Format
	}{
		"json": {jsonDoc, JSON},
		"yaml": {yamlDoc, YAML},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := Decode(strings.NewReader(tc.doc), tc.format)
			require.NoError(t, err)
			assert.Equal(t, int64(100), s.RecordCount())
			assert.True(t, s.IsNumeric(1))
			n, _ := s.NumericStats(1)
			assert.Equal(t, 4.0, n.Variance)
			assert.Equal(t, 1, s.LevelIndex(2, "blue"))
		})
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	docs := map[string]string{
		"bad type":         `{"columns":[{"index":0,"type":"ordinal"}]}`,
		"duplicate index":  `{"columns":[{"index":0,"type":"numeric"},{"index":0,"type":"numeric"}]}`,
		"duplicate levels": `{"columns":[{"index":0,"type":"categorical","levels":["a","a"]}]}`,
		"negative index":   `{"columns":[{"index":-1,"type":"numeric"}]}`,
		"unknown field":    `{"columns":[],"extra":1}`,
		"malformed":        `{"columns":`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc), JSON)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}

	_, err := Decode(strings.NewReader(jsonDoc), Format("toml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestEncodeDecodeKeepsLevelOrder(t *testing.T) {
	s := colorSummary(t)

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf, YAML))

	back, err := Decode(&buf, YAML)
	require.NoError(t, err)
	assert.Equal(t, s.Document(), back.Document())
	assert.Equal(t, 2, back.LevelIndex(4, "l"))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, YAML, FormatFromPath("summary.YML"))
	assert.Equal(t, YAML, FormatFromPath("/tmp/s.yaml"))
	assert.Equal(t, JSON, FormatFromPath("s.json"))
	assert.Equal(t, JSON, FormatFromPath("s"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/summary.json")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
