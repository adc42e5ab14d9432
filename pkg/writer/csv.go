package writer

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// CSVHeader lists the fixed leading columns of CSV output. Attribute
// columns follow in sorted key order.
var CSVHeader = []string{"case_id", "activity", "timestamp", "resource"}

// CSVWriter writes one row per event. Attributes missing from an event are
// written as empty values.
type CSVWriter struct {
	w    *csv.Writer
	rows int64
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(output io.Writer, cfg Config) *CSVWriter {
	cw := csv.NewWriter(output)
	if cfg.Delimiter != 0 {
		cw.Comma = cfg.Delimiter
	}
	return &CSVWriter{w: cw}
}

// WriteLog implements the Writer interface.
func (w *CSVWriter) WriteLog(ctx context.Context, log *eventlog.Log) error {
	keys := log.AttributeKeys()
	header := append(append([]string(nil), CSVHeader...), keys...)
	if err := w.w.Write(header); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write csv header")
	}

	record := make([]string, len(header))
	for i, t := range log.Traces() {
		if i%256 == 0 {
			select {
			case <-ctx.Done():
				return errors.ContextCanceled("csv write")
			default:
			}
		}

		for _, e := range t.Events() {
			record[0] = t.CaseID()
			record[1] = e.Activity
			record[2] = FormatTimestamp(e.Timestamp)
			record[3] = e.Resource
			for j, k := range keys {
				record[4+j] = e.Attributes[k]
			}
			if err := w.w.Write(record); err != nil {
				return errors.Wrap(err, errors.CodeWriteFailed, "failed to write csv row").
					WithContext("case_id", t.CaseID())
			}
			w.rows++
		}
	}
	return nil
}

// Close implements the Writer interface.
func (w *CSVWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to flush csv")
	}
	return nil
}

// RowsWritten returns the number of event rows written.
func (w *CSVWriter) RowsWritten() int64 {
	return w.rows
}

// FormatTimestamp renders ts in TimestampLayout (UTC), or "" for zero time.
func FormatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(TimestampLayout)
}
