// Package parser reads event logs from delimited text, XES, XLSX and
// Parquet files.
// Rows belonging to the same case are merged into one trace; traces keep
// first-seen case order and events keep row order.
package parser

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// Reader reads a complete event log.
type Reader interface {
	// Read consumes r and returns the assembled log.
	// It should respect context cancellation.
	Read(ctx context.Context, r io.Reader) (*eventlog.Log, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXES
	FormatXLSX
	FormatParquet
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXES:
		return "xes"
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv", "tsv", "txt":
		return FormatCSV
	case "xes":
		return FormatXES
	case "xlsx", "excel":
		return FormatXLSX
	case "parquet", "pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) Format {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Config holds common reader configuration.
type Config struct {
	// CaseIDColumn is the case identifier column (required).
	CaseIDColumn string

	// ActivityColumn is the activity column (required).
	ActivityColumn string

	// TimestampColumn is the timestamp column (optional).
	TimestampColumn string

	// ResourceColumn is the resource column (optional).
	ResourceColumn string

	// TimestampFormat is tried before the built-in layouts (Go time layout).
	TimestampFormat string

	// Delimiter is the field delimiter for CSV (default: comma).
	Delimiter rune
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CaseIDColumn:    "case_id",
		ActivityColumn:  "activity",
		TimestampColumn: "timestamp",
		ResourceColumn:  "resource",
		TimestampFormat: TimestampLayout,
		Delimiter:       ',',
	}
}

// NewReader creates a reader for the given format.
func NewReader(format Format, cfg Config) (Reader, error) {
	switch format {
	case FormatCSV:
		return NewCSVReader(cfg), nil
	case FormatXES:
		return NewXESReader(), nil
	case FormatXLSX:
		return NewXLSXReader(cfg), nil
	case FormatParquet:
		return NewParquetReader(cfg), nil
	default:
		return nil, errors.New(errors.CodeInvalidFormat, "unsupported input format").
			WithContext("format", format.String())
	}
}

// ReadFile opens path and reads it with the reader for format. When format
// is FormatUnknown it is detected from the extension.
func ReadFile(ctx context.Context, path string, format Format, cfg Config) (*eventlog.Log, error) {
	if format == FormatUnknown {
		format = DetectFormat(path)
	}
	reader, err := NewReader(format, cfg)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.Wrap(err, errors.CodeFileNotFound, "cannot open log").WithContext("path", path)
	}
	defer f.Close()

	return reader.Read(ctx, f)
}
