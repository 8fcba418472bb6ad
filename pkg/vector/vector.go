// Package vector provides the fixed-length numeric feature vectors produced
// by the vectorizer, in dense or sparse storage, optionally tagged with a
// record identifier.
//
// A FeatureVector is immutable once built: accessors return copies and
// WithIdentifier returns a new vector.
package vector

import (
	"math"
	"strings"

	"github.com/ajitpratap0/featurize/pkg/errors"
)

// Layout selects the storage representation of a vector.
type Layout int

const (
	// Dense stores every position.
	Dense Layout = iota
	// Sparse stores only non-zero positions with their indices.
	Sparse
)

// String returns the configuration name of the layout.
func (l Layout) String() string {
	switch l {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == Dense || l == Sparse
}

// ParseLayout parses "dense" or "sparse". The empty string is Dense.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dense":
		return Dense, nil
	case "sparse":
		return Sparse, nil
	default:
		return Dense, errors.New(errors.ErrorTypeConfig, "unknown vector layout").
			WithDetail("layout", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown vector layout").
			WithDetail("layout", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(text []byte) error {
	parsed, err := ParseLayout(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FeatureVector is a fixed-length numeric vector.
type FeatureVector struct {
	layout Layout
	dim    int

	// dense storage
	values []float64

	// sparse storage, indices strictly ascending
	indices []int
	nz      []float64

	id    string
	named bool
}

// FromBuffer builds a vector of the given layout from buf. For Dense the
// buffer is owned by the vector afterwards and must not be modified by the
// caller; for Sparse only its non-zero entries are kept.
func FromBuffer(buf []float64, layout Layout) *FeatureVector {
	v := &FeatureVector{layout: layout, dim: len(buf)}
	if layout == Sparse {
		nnz := 0
		for _, x := range buf {
			if x != 0 {
				nnz++
			}
		}
		v.indices = make([]int, 0, nnz)
		v.nz = make([]float64, 0, nnz)
		for i, x := range buf {
			if x != 0 {
				v.indices = append(v.indices, i)
				v.nz = append(v.nz, x)
			}
		}
		return v
	}
	v.layout = Dense
	v.values = buf
	return v
}

// NewDense copies values into a new dense vector.
func NewDense(values []float64) *FeatureVector {
	return FromBuffer(append([]float64(nil), values...), Dense)
}

// NewSparse builds a sparse vector of length dim from parallel index/value
// slices. Indices must be within [0, dim) and unique; they need not be sorted.
func NewSparse(dim int, indices []int, values []float64) (*FeatureVector, error) {
	if len(indices) != len(values) {
		return nil, errors.New(errors.ErrorTypeValidation, "indices and values differ in length").
			WithDetail("indices", len(indices)).
			WithDetail("values", len(values))
	}
	buf := make([]float64, dim)
	seen := make(map[int]struct{}, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= dim {
			return nil, errors.New(errors.ErrorTypeValidation, "sparse index out of range").
				WithDetail("index", idx).
				WithDetail("dim", dim)
		}
		if _, dup := seen[idx]; dup {
			return nil, errors.New(errors.ErrorTypeValidation, "duplicate sparse index").
				WithDetail("index", idx)
		}
		seen[idx] = struct{}{}
		buf[idx] = values[i]
	}
	return FromBuffer(buf, Sparse), nil
}

// WithIdentifier returns a copy of v tagged with id. Storage is shared, which
// is safe because vectors are never mutated.
func (v *FeatureVector) WithIdentifier(id string) *FeatureVector {
	cp := *v
	cp.id = id
	cp.named = true
	return &cp
}

// Layout returns the storage layout.
func (v *FeatureVector) Layout() Layout { return v.layout }

// Len returns the vector length.
func (v *FeatureVector) Len() int { return v.dim }

// Identifier returns the identifier tag, empty when untagged.
func (v *FeatureVector) Identifier() string { return v.id }

// HasIdentifier reports whether the vector carries an identifier tag.
func (v *FeatureVector) HasIdentifier() bool { return v.named }

// At returns the value at position i. It panics if i is out of range.
func (v *FeatureVector) At(i int) float64 {
	if i < 0 || i >= v.dim {
		panic("vector: index out of range")
	}
	if v.layout == Dense {
		return v.values[i]
	}
	lo, hi := 0, len(v.indices)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if v.indices[mid] < i {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(v.indices) && v.indices[lo] == i {
		return v.nz[lo]
	}
	return 0
}

// Values returns a dense copy of the vector.
func (v *FeatureVector) Values() []float64 {
	if v.layout == Dense {
		return append([]float64(nil), v.values...)
	}
	out := make([]float64, v.dim)
	for k, i := range v.indices {
		out[i] = v.nz[k]
	}
	return out
}

// NonZero calls fn for every non-zero position in ascending index order.
func (v *FeatureVector) NonZero(fn func(i int, x float64)) {
	if v.layout == Sparse {
		for k, i := range v.indices {
			fn(i, v.nz[k])
		}
		return
	}
	for i, x := range v.values {
		if x != 0 {
			fn(i, x)
		}
	}
}

// NNZ returns the number of non-zero positions.
func (v *FeatureVector) NNZ() int {
	if v.layout == Sparse {
		return len(v.indices)
	}
	n := 0
	for _, x := range v.values {
		if x != 0 {
			n++
		}
	}
	return n
}

// Sparse returns copies of the non-zero indices and values.
func (v *FeatureVector) Sparse() ([]int, []float64) {
	indices := make([]int, 0, v.NNZ())
	values := make([]float64, 0, cap(indices))
	v.NonZero(func(i int, x float64) {
		indices = append(indices, i)
		values = append(values, x)
	})
	return indices, values
}

// Equal reports whether v and o have the same length, identifier tag and
// numeric content, regardless of layout. NaN equals NaN, so encoding the same
// record twice always yields equal vectors; -0 equals 0 because the sparse
// layout does not store zeros of either sign.
func (v *FeatureVector) Equal(o *FeatureVector) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.dim != o.dim || v.named != o.named || v.id != o.id {
		return false
	}
	for i := 0; i < v.dim; i++ {
		if a, b := v.At(i), o.At(i); a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			return false
		}
	}
	return true
}
