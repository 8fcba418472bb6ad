package formats

import (
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// ArrowSchema is the schema of Arrow and Parquet vector files.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "dim", Type: arrow.PrimitiveTypes.Int64},
	{Name: "layout", Type: arrow.BinaryTypes.String},
	{Name: "indices", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
	{Name: "values", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
}, nil)

// batchBuilder accumulates rows into Arrow record batches.
type batchBuilder struct {
	builder *array.RecordBuilder
	pending int
}

func newBatchBuilder(pool memory.Allocator) *batchBuilder {
	return &batchBuilder{builder: array.NewRecordBuilder(pool, ArrowSchema)}
}

func (b *batchBuilder) append(r row) {
	ids := b.builder.Field(0).(*array.StringBuilder)
	if r.named {
		ids.Append(r.id)
	} else {
		ids.AppendNull()
	}
	b.builder.Field(1).(*array.Int64Builder).Append(int64(r.dim))
	b.builder.Field(2).(*array.StringBuilder).Append(layoutName(r.sparse))

	lb := b.builder.Field(3).(*array.ListBuilder)
	lb.Append(true)
	ib := lb.ValueBuilder().(*array.Int64Builder)
	for _, x := range r.indices {
		ib.Append(int64(x))
	}

	vb := b.builder.Field(4).(*array.ListBuilder)
	vb.Append(true)
	vb.ValueBuilder().(*array.Float64Builder).AppendValues(r.values, nil)

	b.pending++
}

// flush hands the pending rows to write as one record batch.
func (b *batchBuilder) flush(write func(arrow.Record) error) error {
	if b.pending == 0 {
		return nil
	}
	rec := b.builder.NewRecord()
	defer rec.Release()
	b.pending = 0
	return write(rec)
}

// arrowWriter implements Writer for the Arrow IPC file format
type arrowWriter struct {
	mu         sync.Mutex
	fileWriter *ipc.FileWriter
	batch      *batchBuilder
	batchSize  int
	records    int64
}

func newArrowWriter(w io.Writer, opts Options) (*arrowWriter, error) {
	pool := memory.NewGoAllocator()

	fw, err := ipc.NewFileWriter(noClose{w}, ipc.WithSchema(ArrowSchema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}

	return &arrowWriter{
		fileWriter: fw,
		batch:      newBatchBuilder(pool),
		batchSize:  opts.BatchSize,
	}, nil
}

func (aw *arrowWriter) Write(v *vector.FeatureVector) error {
	r := toRow(v)

	aw.mu.Lock()
	defer aw.mu.Unlock()

	aw.batch.append(r)
	aw.records++
	if aw.batch.pending >= aw.batchSize {
		return aw.batch.flush(aw.writeBatch)
	}
	return nil
}

func (aw *arrowWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if err := aw.batch.flush(aw.writeBatch); err != nil {
		return err
	}
	aw.batch.builder.Release()
	if err := aw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter) Format() Format { return Arrow }

func (aw *arrowWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.records
}

func (aw *arrowWriter) writeBatch(rec arrow.Record) error {
	if err := aw.fileWriter.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}
	return nil
}

// ReadArrow decodes every vector from an Arrow IPC file.
func ReadArrow(r io.ReaderAt, size int64) ([]*vector.FeatureVector, error) {
	fr, err := ipc.NewFileReader(io.NewSectionReader(r, 0, size), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Arrow file")
	}
	defer fr.Close()

	var out []*vector.FeatureVector
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record batch")
		}
		vs, err := vectorsFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

func vectorsFromRecord(rec arrow.Record) ([]*vector.FeatureVector, error) {
	if !hasVectorColumns(rec.Schema()) {
		return nil, errors.New(errors.ErrorTypeData, "record batch does not carry the vector schema")
	}

	ids := rec.Column(0).(*array.String)
	dims := rec.Column(1).(*array.Int64)
	layouts := rec.Column(2).(*array.String)
	indices := rec.Column(3).(*array.List)
	indexValues := indices.ListValues().(*array.Int64)
	values := rec.Column(4).(*array.List)
	valueValues := values.ListValues().(*array.Float64)

	out := make([]*vector.FeatureVector, 0, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		r := row{
			dim:    int(dims.Value(i)),
			sparse: layouts.Value(i) == vector.Sparse.String(),
		}
		if ids.IsValid(i) {
			r.id, r.named = ids.Value(i), true
		}
		start, end := indices.ValueOffsets(i)
		for j := start; j < end; j++ {
			r.indices = append(r.indices, int(indexValues.Value(int(j))))
		}
		start, end = values.ValueOffsets(i)
		r.values = append([]float64(nil), valueValues.Float64Values()[start:end]...)

		v, err := r.vector()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func hasVectorColumns(s *arrow.Schema) bool {
	if s.NumFields() != ArrowSchema.NumFields() {
		return false
	}
	for i, f := range ArrowSchema.Fields() {
		if s.Field(i).Name != f.Name {
			return false
		}
	}
	return true
}
