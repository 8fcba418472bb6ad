package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/summary"
)

func TestApply(t *testing.T) {
	stats := &summary.NumericStats{Count: 10, Mean: 10, Variance: 4, Min: 0, Max: 20}

	tests := []struct {
		policy Policy
		value  float64
		want   float64
	}{
		{Identity, 12, 12},
		{Standardize, 12, 1},
		{Standardize, 6, -2},
		{Policy{Kind: Linear}, 5, 0.25},
		{Policy{Kind: Linear}, 20, 1},
		{Policy{Kind: Log}, math.E, 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.policy.Apply(tt.value, 10, stats), 1e-12)
		})
	}
}

func TestApplyDegenerateStats(t *testing.T) {
	flat := &summary.NumericStats{Mean: 3, Variance: 0, Min: 3, Max: 3}

	assert.Equal(t, 2.0, Standardize.Apply(5, 1, flat))
	assert.Equal(t, 0.0, Policy{Kind: Linear}.Apply(5, 1, flat))
	assert.Equal(t, 5.0, Standardize.Apply(5, 1, nil))
	assert.Equal(t, 5.0, Policy{Kind: Linear}.Apply(5, 1, nil))
}

func TestApplyIsPure(t *testing.T) {
	stats := &summary.NumericStats{Mean: 1.5, Variance: 2.25}
	a := Standardize.Apply(7.25, 3, stats)
	b := Standardize.Apply(7.25, 3, stats)
	assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
	assert.Equal(t, 1.5, stats.Mean)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"":         None,
		"none":     None,
		"identity": None,
		"Z":        Z,
		" linear ": Linear,
		"log":      Log,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("cube")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestKindText(t *testing.T) {
	text, err := Linear.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "linear", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("z")))
	assert.Equal(t, Z, k)

	_, err = Kind(42).MarshalText()
	assert.Error(t, err)
	assert.False(t, Kind(42).Valid())
	assert.Equal(t, "unknown", Kind(42).String())
}
