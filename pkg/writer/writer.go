// Package writer persists event logs as delimited text or Parquet.
package writer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// TimestampLayout is the textual timestamp format used for CSV output.
// Timestamps are written in UTC; zero timestamps are written empty.
const TimestampLayout = "2006-01-02 15:04:05"

// Writer writes a complete event log to an output.
type Writer interface {
	// WriteLog writes every event of log, one row per event.
	WriteLog(ctx context.Context, log *eventlog.Log) error

	// Close flushes buffered data and releases resources.
	Close() error
}

// Format represents a supported output format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatParquet
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// DetectFormat infers the output format from a file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV
	case "parquet", "pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// Config holds writer configuration.
type Config struct {
	// BatchSize is the number of rows per Arrow record batch.
	BatchSize int

	// Compression type for Parquet output.
	Compression CompressionType

	// Delimiter is the CSV field delimiter.
	Delimiter rune
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:   8192,
		Compression: CompressionSnappy,
		Delimiter:   ',',
	}
}

// NewWriter creates a writer for format on output.
func NewWriter(format Format, output io.Writer, cfg Config) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output, cfg), nil
	case FormatParquet:
		return NewParquetWriter(output, cfg), nil
	default:
		return nil, errors.New(errors.CodeInvalidFormat, "unsupported output format").
			WithContext("format", format.String())
	}
}

// WriteFile writes log to path. When format is FormatUnknown it is
// detected from the extension.
func WriteFile(ctx context.Context, path string, format Format, log *eventlog.Log, cfg Config) error {
	if format == FormatUnknown {
		format = DetectFormat(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "cannot create output").WithContext("path", path)
	}

	w, err := NewWriter(format, f, cfg)
	if err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := w.WriteLog(ctx, log); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	// The parquet writer may already have closed f.
	f.Close()
	return nil
}
