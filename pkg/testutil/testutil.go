// Package testutil provides shared fixtures for featurize tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/featurize/pkg/summary"
)

// SummaryYAML is the document form of Summary.
const SummaryYAML = `record_count: 10
columns:
  - index: 1
    name: amount
    type: numeric
    count: 10
    mean: 10
    variance: 4
    min: 0
    max: 20
    sum: 100
  - index: 2
    name: color
    type: categorical
    levels: [red, blue]
`

// CSV is a small input matching Summary: an id column, a numeric column and
// a categorical column. The last row carries an unseen category.
const CSV = `id,amount,color
id007,12,red
id008,8,blue
id009,10,green
`

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout, cancelled
// when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Summary returns the summary described by SummaryYAML.
func Summary(t *testing.T) *summary.Summary {
	t.Helper()
	s, err := summary.New(10, map[int]summary.Stats{
		1: summary.NumericColumn(summary.NumericStats{Count: 10, Mean: 10, Variance: 4, Min: 0, Max: 20, Sum: 100}),
		2: summary.CategoricalColumn("red", "blue"),
	})
	require.NoError(t, err)
	return s
}

// WriteFile writes content to name inside a per-test temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
