package formats

import (
	"bytes"
	"context"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

func sampleVectors(t *testing.T) []*vector.FeatureVector {
	t.Helper()
	sparse, err := vector.NewSparse(6, []int{0, 4}, []float64{12, 1})
	require.NoError(t, err)
	return []*vector.FeatureVector{
		vector.NewDense([]float64{12, 1, 0}).WithIdentifier("id007"),
		vector.NewDense([]float64{-0.5, 0, 3.25}),
		sparse.WithIdentifier("row-2"),
		vector.FromBuffer(make([]float64, 4), vector.Sparse),
	}
}

func writeAll(t *testing.T, format Format, vs []*vector.FeatureVector, opts Options) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format, opts)
	require.NoError(t, err)
	assert.Equal(t, format, w.Format())
	for _, v := range vs {
		require.NoError(t, w.Write(v))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, int64(len(vs)), w.RecordsWritten())
	return buf.Bytes()
}

func assertSameVectors(t *testing.T, want, got []*vector.FeatureVector) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "vector %d: want %v got %v", i, want[i].Values(), got[i].Values())
		assert.Equal(t, want[i].Layout(), got[i].Layout(), "vector %d", i)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	vs := sampleVectors(t)
	data := writeAll(t, JSONL, vs, DefaultOptions())

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, len(vs))
	assert.JSONEq(t, `{"id":"id007","dim":3,"layout":"dense","values":[12,1,0]}`, lines[0])
	assert.JSONEq(t, `{"id":"row-2","dim":6,"layout":"sparse","indices":[0,4],"values":[12,1]}`, lines[2])

	r := NewJSONLReader(bytes.NewReader(data))
	var got []*vector.FeatureVector
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, v)
	}
	assertSameVectors(t, vs, got)
}

func TestJSONLNonFinite(t *testing.T) {
	v := vector.NewDense([]float64{math.NaN(), 1})
	data := writeAll(t, JSONL, []*vector.FeatureVector{v}, DefaultOptions())
	assert.JSONEq(t, `{"dim":2,"layout":"dense","values":[null,1]}`, string(data))

	got, err := NewJSONLReader(bytes.NewReader(data)).Next()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.At(0)))
	assert.False(t, got.HasIdentifier())
}

func TestJSONLReaderRejectsGarbage(t *testing.T) {
	_, err := NewJSONLReader(strings.NewReader("{not json}\n")).Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestAvroRoundTrip(t *testing.T) {
	vs := sampleVectors(t)
	for _, codec := range []string{"", "deflate", "snappy"} {
		data := writeAll(t, Avro, vs, Options{BatchSize: 3, Codec: codec})
		got, err := ReadAvro(bytes.NewReader(data))
		require.NoError(t, err, codec)
		assertSameVectors(t, vs, got)
	}
}

func TestArrowRoundTrip(t *testing.T) {
	vs := sampleVectors(t)
	data := writeAll(t, Arrow, vs, Options{BatchSize: 3})

	got, err := ReadArrow(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assertSameVectors(t, vs, got)
}

func TestParquetRoundTrip(t *testing.T) {
	vs := sampleVectors(t)
	for _, codec := range []string{"", "zstd", "none"} {
		data := writeAll(t, Parquet, vs, Options{BatchSize: 2, Codec: codec})
		got, err := ReadParquet(context.Background(), bytes.NewReader(data))
		require.NoError(t, err, codec)
		assertSameVectors(t, vs, got)
	}
}

func TestConcurrentWrites(t *testing.T) {
	for _, format := range Formats {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, format, Options{BatchSize: 16})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					assert.NoError(t, w.Write(vector.NewDense([]float64{float64(i), 1})))
				}
			}()
		}
		wg.Wait()
		require.NoError(t, w.Close())
		assert.Equal(t, int64(200), w.RecordsWritten(), format)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("NDJSON")
	require.NoError(t, err)
	assert.Equal(t, JSONL, f)

	f, err = ParseFormat("parquet")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)

	_, err = ParseFormat("orc")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewWriter(io.Discard, Format("orc"), DefaultOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestFromPath(t *testing.T) {
	cases := map[string]Format{
		"out/vectors.jsonl": JSONL,
		"vectors.jsonl.zst": JSONL,
		"vectors.AVRO":      Avro,
		"vectors.arrow":     Arrow,
		"train.parquet":     Parquet,
		"/tmp/x.ndjson.gz":  JSONL,
	}
	for path, want := range cases {
		got, ok := FromPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := FromPath("vectors.bin")
	assert.False(t, ok)
}
