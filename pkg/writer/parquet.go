package writer

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// ParquetWriter writes event logs to Parquet using Apache Arrow. The
// schema is fixed by the first WriteLog call: the four event columns
// followed by one nullable string column per attribute key.
type ParquetWriter struct {
	cfg    Config
	output io.Writer

	allocator memory.Allocator
	schema    *arrow.Schema
	keys      []string
	writer    *pqarrow.FileWriter

	totalRowsWritten int64
	closed           bool
}

// eventSchema returns the Arrow schema for events with the given
// attribute columns.
func eventSchema(keys []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "case_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "activity", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		{Name: "resource", Type: arrow.BinaryTypes.String, Nullable: true},
	}
	for _, k := range keys {
		fields = append(fields, arrow.Field{Name: k, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(output io.Writer, cfg Config) *ParquetWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &ParquetWriter{
		cfg:       cfg,
		output:    output,
		allocator: memory.NewGoAllocator(),
	}
}

func (w *ParquetWriter) open(keys []string) error {
	var codec compress.Compression
	switch w.cfg.Compression {
	case CompressionSnappy:
		codec = compress.Codecs.Snappy
	case CompressionGzip:
		codec = compress.Codecs.Gzip
	case CompressionZstd:
		codec = compress.Codecs.Zstd
	default:
		codec = compress.Codecs.Uncompressed
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	w.keys = keys
	w.schema = eventSchema(keys)
	fw, err := pqarrow.NewFileWriter(w.schema, w.output, writerProps, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to create parquet writer")
	}
	w.writer = fw
	return nil
}

// WriteLog implements the Writer interface.
func (w *ParquetWriter) WriteLog(ctx context.Context, log *eventlog.Log) error {
	if w.closed {
		return errors.New(errors.CodeWriteFailed, "parquet writer is closed")
	}
	if w.writer == nil {
		if err := w.open(log.AttributeKeys()); err != nil {
			return err
		}
	}

	rb := array.NewRecordBuilder(w.allocator, w.schema)
	defer rb.Release()

	rows := 0
	for _, t := range log.Traces() {
		select {
		case <-ctx.Done():
			return errors.ContextCanceled("parquet write")
		default:
		}

		for _, e := range t.Events() {
			w.appendEvent(rb, t.CaseID(), e)
			rows++
			if rows >= w.cfg.BatchSize {
				if err := w.flushBatch(rb, rows); err != nil {
					return err
				}
				rows = 0
			}
		}
	}
	return w.flushBatch(rb, rows)
}

// appendEvent adds an event to the Arrow builders.
func (w *ParquetWriter) appendEvent(rb *array.RecordBuilder, caseID string, e eventlog.Event) {
	rb.Field(0).(*array.StringBuilder).Append(caseID)
	rb.Field(1).(*array.StringBuilder).Append(e.Activity)

	ts := rb.Field(2).(*array.TimestampBuilder)
	if e.Timestamp.IsZero() {
		ts.AppendNull()
	} else {
		ts.Append(arrow.Timestamp(e.Timestamp.UnixMicro()))
	}

	res := rb.Field(3).(*array.StringBuilder)
	if e.Resource != "" {
		res.Append(e.Resource)
	} else {
		res.AppendNull()
	}

	for i, k := range w.keys {
		b := rb.Field(4 + i).(*array.StringBuilder)
		if v, ok := e.Attributes[k]; ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	}
}

// flushBatch writes the current batch to Parquet.
func (w *ParquetWriter) flushBatch(rb *array.RecordBuilder, rows int) error {
	if rows == 0 {
		return nil
	}

	batch := rb.NewRecord()
	defer batch.Release()

	if err := w.writer.Write(batch); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write record batch")
	}
	w.totalRowsWritten += int64(rows)
	return nil
}

// Close implements the Writer interface. A writer that never received a
// log writes a file with only the event columns.
func (w *ParquetWriter) Close() error {
	if w.closed {
		return nil
	}
	if w.writer == nil {
		if err := w.open(nil); err != nil {
			return err
		}
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to close parquet writer")
	}
	return nil
}

// RowsWritten returns the total number of rows written.
func (w *ParquetWriter) RowsWritten() int64 {
	return w.totalRowsWritten
}
