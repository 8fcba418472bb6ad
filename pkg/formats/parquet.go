package formats

import (
	"context"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/vector"
)

// parquetWriter implements Writer for Parquet, one row group per batch
type parquetWriter struct {
	mu         sync.Mutex
	fileWriter *pqarrow.FileWriter
	batch      *batchBuilder
	batchSize  int
	records    int64
}

func newParquetWriter(w io.Writer, opts Options) (*parquetWriter, error) {
	pool := memory.NewGoAllocator()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCompression(opts.Codec)),
		parquet.WithAllocator(pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pool))

	fw, err := pqarrow.NewFileWriter(ArrowSchema, noClose{w}, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Parquet writer")
	}

	return &parquetWriter{
		fileWriter: fw,
		batch:      newBatchBuilder(pool),
		batchSize:  opts.BatchSize,
	}, nil
}

func (pw *parquetWriter) Write(v *vector.FeatureVector) error {
	r := toRow(v)

	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.batch.append(r)
	pw.records++
	if pw.batch.pending >= pw.batchSize {
		return pw.batch.flush(pw.writeBatch)
	}
	return nil
}

func (pw *parquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if err := pw.batch.flush(pw.writeBatch); err != nil {
		return err
	}
	pw.batch.builder.Release()
	if err := pw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Parquet writer")
	}
	return nil
}

func (pw *parquetWriter) Format() Format { return Parquet }

func (pw *parquetWriter) RecordsWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.records
}

func (pw *parquetWriter) writeBatch(rec arrow.Record) error {
	if err := pw.fileWriter.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row group")
	}
	return nil
}

// ReadParquet decodes every vector from a Parquet file.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) ([]*vector.FeatureVector, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Parquet file")
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create Parquet reader")
	}
	table, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Parquet table")
	}
	defer table.Release()
	if table.NumRows() == 0 {
		return nil, nil
	}

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	var out []*vector.FeatureVector
	for tr.Next() {
		vs, err := vectorsFromRecord(tr.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

func parquetCompression(codec string) compress.Compression {
	switch codec {
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}
