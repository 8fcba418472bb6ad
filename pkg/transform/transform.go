// Package transform provides the numeric transform policies applied to
// summarized numeric columns.
package transform

import (
	"math"
	"strings"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/summary"
)

// Kind enumerates the recognized transforms.
type Kind int

const (
	// None passes the raw value through unchanged.
	None Kind = iota
	// Z standardizes to zero mean and unit variance.
	Z
	// Linear scales the column's [min, max] range onto [0, 1].
	Linear
	// Log takes the natural logarithm.
	Log
)

var kindNames = map[Kind]string{
	None:   "none",
	Z:      "z",
	Linear: "linear",
	Log:    "log",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is a recognized transform.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses a configuration name ("none", "z", "linear", "log").
// The empty string is None.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "identity" {
		return None, nil
	}
	for k, kn := range kindNames {
		if kn == n {
			return k, nil
		}
	}
	return None, errors.New(errors.ErrorTypeConfig, "unknown transform").
		WithDetail("transform", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown transform").
			WithDetail("transform", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Policy is a pure numeric transform.
type Policy struct {
	Kind Kind
}

// Identity is the no-op policy.
var Identity = Policy{Kind: None}

// Standardize is the z-score policy.
var Standardize = Policy{Kind: Z}

// Apply transforms value given the summary's record count and the column's
// statistics. It has no side effects and returns the same result for the
// same inputs.
func (p Policy) Apply(value float64, recordCount int64, stats *summary.NumericStats) float64 {
	switch p.Kind {
	case Z:
		if stats == nil {
			return value
		}
		sd := stats.StdDev()
		if sd == 0 || math.IsNaN(sd) {
			return value - stats.Mean
		}
		return (value - stats.Mean) / sd
	case Linear:
		if stats == nil {
			return value
		}
		r := stats.Range()
		if r == 0 {
			return 0
		}
		return (value - stats.Min) / r
	case Log:
		return math.Log(value)
	default:
		return value
	}
}

// String returns the kind name.
func (p Policy) String() string { return p.Kind.String() }
