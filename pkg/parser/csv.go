package parser

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// CSVReader reads delimited text logs with a header row.
//
// Rows whose field count differs from the header are skipped. A non-empty
// timestamp that cannot be parsed is an error.
type CSVReader struct {
	cfg     Config
	skipped int
}

// NewCSVReader creates a new CSV reader.
func NewCSVReader(cfg Config) *CSVReader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &CSVReader{cfg: cfg}
}

// Read implements the Reader interface.
func (p *CSVReader) Read(ctx context.Context, r io.Reader) (*eventlog.Log, error) {
	cr := csv.NewReader(r)
	cr.Comma = p.cfg.Delimiter
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.CodeInvalidFormat, "csv input is empty")
	}
	if err != nil {
		return nil, errors.ParseError("csv", 0, err)
	}
	header = append([]string(nil), header...)

	mapping, err := NewColumnMapping(header, p.cfg)
	if err != nil {
		return nil, err
	}

	b := eventlog.NewBuilder()
	p.skipped = 0
	row := 0
	for {
		if row%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, errors.ContextCanceled("csv read")
			default:
			}
		}

		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, errors.ParseError("csv", row, err)
		}
		if len(fields) != mapping.Width() {
			p.skipped++
			continue
		}

		caseID, ev, err := mapping.Event(fields, row)
		if err != nil {
			return nil, err
		}
		b.Add(caseID, ev)
	}

	return b.Log(), nil
}

// Skipped returns how many malformed rows the last Read dropped.
func (p *CSVReader) Skipped() int {
	return p.skipped
}
