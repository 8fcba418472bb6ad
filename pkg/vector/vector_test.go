package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

func TestDenseAndSparseAgree(t *testing.T) {
	buf := []float64{0, 1.5, 0, 0, -2, 0}

	dense := FromBuffer(append([]float64(nil), buf...), Dense)
	sparse := FromBuffer(append([]float64(nil), buf...), Sparse)

	assert.Equal(t, Dense, dense.Layout())
	assert.Equal(t, Sparse, sparse.Layout())
	assert.Equal(t, 6, dense.Len())
	assert.Equal(t, 6, sparse.Len())
	assert.Equal(t, buf, dense.Values())
	assert.Equal(t, buf, sparse.Values())
	assert.Equal(t, 2, dense.NNZ())
	assert.Equal(t, 2, sparse.NNZ())
	assert.True(t, dense.Equal(sparse))

	for i := range buf {
		assert.Equal(t, buf[i], sparse.At(i), "position %d", i)
	}

	idx, vals := sparse.Sparse()
	assert.Equal(t, []int{1, 4}, idx)
	assert.Equal(t, []float64{1.5, -2}, vals)

	idx, vals = dense.Sparse()
	assert.Equal(t, []int{1, 4}, idx)
	assert.Equal(t, []float64{1.5, -2}, vals)
}

func TestValuesReturnsCopy(t *testing.T) {
	v := NewDense([]float64{1, 2, 3})
	got := v.Values()
	got[0] = 99
	assert.Equal(t, 1.0, v.At(0))
}

func TestWithIdentifier(t *testing.T) {
	v := NewDense([]float64{1, 0})
	assert.False(t, v.HasIdentifier())

	named := v.WithIdentifier("id007")
	assert.True(t, named.HasIdentifier())
	assert.Equal(t, "id007", named.Identifier())
	assert.False(t, v.HasIdentifier())
	assert.False(t, v.Equal(named))

	empty := v.WithIdentifier("")
	assert.True(t, empty.HasIdentifier())
	assert.False(t, v.Equal(empty))
}

func TestNewSparse(t *testing.T) {
	v, err := NewSparse(5, []int{3, 0}, []float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 2, 0}, v.Values())

	_, err = NewSparse(5, []int{5}, []float64{1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewSparse(5, []int{1, 1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = NewSparse(5, []int{1}, nil)
	assert.Error(t, err)
}

func TestAtOutOfRangePanics(t *testing.T) {
	v := FromBuffer(make([]float64, 2), Sparse)
	assert.Panics(t, func() { v.At(2) })
	assert.Panics(t, func() { v.At(-1) })
}

func TestEqual(t *testing.T) {
	a := NewDense([]float64{1, 0})
	assert.False(t, a.Equal(NewDense([]float64{1, 0, 0})))
	assert.False(t, a.Equal(NewDense([]float64{1, 1})))
	assert.False(t, a.Equal(nil))

	var nilVec *FeatureVector
	assert.True(t, nilVec.Equal(nil))
}

func TestEqualTreatsNaNAsEqual(t *testing.T) {
	buf := []float64{math.NaN(), 12, 1, 0}

	a := FromBuffer(append([]float64(nil), buf...), Dense)
	b := FromBuffer(append([]float64(nil), buf...), Dense)
	s := FromBuffer(append([]float64(nil), buf...), Sparse)
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(s))
	assert.True(t, s.Equal(a))

	c := NewDense([]float64{1, 12, 1, 0})
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))

	assert.True(t, NewDense([]float64{math.Copysign(0, -1)}).Equal(NewDense([]float64{0})))
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("Sparse")
	require.NoError(t, err)
	assert.Equal(t, Sparse, l)

	l, err = ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, Dense, l)

	_, err = ParseLayout("csr")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	var parsed Layout
	require.NoError(t, parsed.UnmarshalText([]byte("sparse")))
	assert.Equal(t, Sparse, parsed)

	text, err := Dense.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "dense", string(text))
	assert.False(t, Layout(9).Valid())
}
