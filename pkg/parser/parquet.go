package parser

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// ParquetReader reads flat Parquet event tables. Column names are resolved
// like CSV header names; every cell is rendered as text before mapping, and
// timestamp columns are rendered in RFC 3339.
type ParquetReader struct {
	cfg   Config
	alloc memory.Allocator
}

// NewParquetReader creates a new Parquet reader.
func NewParquetReader(cfg Config) *ParquetReader {
	return &ParquetReader{cfg: cfg, alloc: memory.DefaultAllocator}
}

// Read implements the Reader interface. Inputs that are not seekable are
// buffered in memory first.
func (p *ParquetReader) Read(ctx context.Context, r io.Reader) (*eventlog.Log, error) {
	src, ok := r.(parquet.ReaderAtSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.ParseError("parquet", 0, err)
		}
		src = bytes.NewReader(data)
	}

	pqReader, err := file.NewParquetReader(src)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to open parquet")
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, p.alloc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to create arrow reader")
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.ContextCanceled("parquet read")
		}
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to read parquet table")
	}
	defer table.Release()

	header := make([]string, table.Schema().NumFields())
	for i, f := range table.Schema().Fields() {
		header[i] = f.Name
	}
	mapping, err := NewColumnMapping(header, p.cfg)
	if err != nil {
		return nil, err
	}

	b := eventlog.NewBuilder()
	tr := array.NewTableReader(table, 8192)
	defer tr.Release()

	row := 0
	fields := make([]string, len(header))
	for tr.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.ContextCanceled("parquet read")
		default:
		}

		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row++
			for c := range fields {
				fields[c] = cellString(rec.Column(c), i)
			}
			caseID, ev, err := mapping.Event(fields, row)
			if err != nil {
				return nil, err
			}
			b.Add(caseID, ev)
		}
	}
	return b.Log(), nil
}

// cellString renders one cell as text; nulls become "".
func cellString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Float64:
		return strconv.FormatFloat(a.Value(i), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i))
	default:
		return col.ValueStr(i)
	}
}
