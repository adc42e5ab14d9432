package parser

import (
	"context"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// XLSXReader reads the first sheet of an Excel workbook. The first row is
// the header. Numeric timestamp cells are treated as Excel serial dates.
type XLSXReader struct {
	cfg   Config
	Sheet string // optional; defaults to the first sheet
}

// NewXLSXReader creates a new XLSX reader.
func NewXLSXReader(cfg Config) *XLSXReader {
	return &XLSXReader{cfg: cfg}
}

// Read implements the Reader interface.
func (p *XLSXReader) Read(ctx context.Context, r io.Reader) (*eventlog.Log, error) {
	var (
		xlFile *excelize.File
		err    error
	)
	if f, ok := r.(*os.File); ok {
		xlFile, err = excelize.OpenFile(f.Name())
	} else {
		xlFile, err = excelize.OpenReader(r)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to open xlsx")
	}
	defer xlFile.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheets := xlFile.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New(errors.CodeInvalidFormat, "no sheets found in xlsx file")
		}
		sheet = sheets[0]
	}

	rows, err := xlFile.Rows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to read rows").
			WithContext("sheet", sheet)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New(errors.CodeInvalidFormat, "xlsx sheet is empty").
			WithContext("sheet", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, errors.ParseError("xlsx", 0, err)
	}

	mapping, err := NewColumnMapping(header, p.cfg)
	if err != nil {
		return nil, err
	}
	mapping.excelDate = true

	b := eventlog.NewBuilder()
	row := 0
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.ContextCanceled("xlsx read")
		default:
		}

		row++
		cols, err := rows.Columns()
		if err != nil {
			return nil, errors.ParseError("xlsx", row, err)
		}
		if len(cols) == 0 {
			continue
		}
		// excelize trims trailing empty cells.
		for len(cols) < mapping.Width() {
			cols = append(cols, "")
		}
		if cols[mapping.caseIdx] == "" || cols[mapping.actIdx] == "" {
			continue
		}

		caseID, ev, err := mapping.Event(cols, row)
		if err != nil {
			return nil, err
		}
		b.Add(caseID, ev)
	}
	if err := rows.Error(); err != nil {
		return nil, errors.ParseError("xlsx", row, err)
	}

	return b.Log(), nil
}
