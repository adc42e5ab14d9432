package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// TimestampLayout is the fixed textual timestamp format used when writing logs.
const TimestampLayout = "2006-01-02 15:04:05"

var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	TimestampLayout,
	"2006-01-02 15:04:05.000",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp parses s with layout first, then with common layouts.
// Values without a zone are interpreted as UTC.
func ParseTimestamp(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.CodeInvalidTimestamp, "failed to parse timestamp").
		WithContext("value", s)
}

// ColumnMapping resolves the configured column names against a header.
type ColumnMapping struct {
	header    []string
	caseIdx   int
	actIdx    int
	tsIdx     int
	resIdx    int
	tsLayout  string
	excelDate bool
}

// NewColumnMapping locates the case, activity, timestamp and resource
// columns in header. Case and activity are required.
func NewColumnMapping(header []string, cfg Config) (*ColumnMapping, error) {
	m := &ColumnMapping{
		header:   header,
		caseIdx:  -1,
		actIdx:   -1,
		tsIdx:    -1,
		resIdx:   -1,
		tsLayout: cfg.TimestampFormat,
	}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		switch col {
		case cfg.CaseIDColumn:
			m.caseIdx = i
		case cfg.ActivityColumn:
			m.actIdx = i
		case cfg.TimestampColumn:
			m.tsIdx = i
		case cfg.ResourceColumn:
			m.resIdx = i
		}
	}

	if m.caseIdx < 0 {
		return nil, errors.MissingColumn(cfg.CaseIDColumn, header)
	}
	if m.actIdx < 0 {
		return nil, errors.MissingColumn(cfg.ActivityColumn, header)
	}
	return m, nil
}

// Width returns the number of header columns.
func (m *ColumnMapping) Width() int {
	return len(m.header)
}

// Event converts one row into a case identifier and an event. Columns other
// than the mapped ones become attributes; empty attribute values are
// omitted. row is the 1-based data row used in error context.
func (m *ColumnMapping) Event(fields []string, row int) (string, eventlog.Event, error) {
	ev := eventlog.Event{Activity: fields[m.actIdx]}

	if m.resIdx >= 0 && m.resIdx < len(fields) {
		ev.Resource = fields[m.resIdx]
	}

	if m.tsIdx >= 0 && m.tsIdx < len(fields) && strings.TrimSpace(fields[m.tsIdx]) != "" {
		ts, err := m.parseTimestamp(fields[m.tsIdx])
		if err != nil {
			return "", eventlog.Event{}, errors.InvalidTimestamp(fields[m.tsIdx], row)
		}
		ev.Timestamp = ts
	}

	for i, col := range m.header {
		if i == m.caseIdx || i == m.actIdx || i == m.tsIdx || i == m.resIdx {
			continue
		}
		if i < len(fields) && fields[i] != "" {
			if ev.Attributes == nil {
				ev.Attributes = make(map[string]string)
			}
			ev.Attributes[col] = fields[i]
		}
	}

	return fields[m.caseIdx], ev, nil
}

func (m *ColumnMapping) parseTimestamp(s string) (time.Time, error) {
	if m.excelDate {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 {
			return excelSerialTime(serial), nil
		}
	}
	return ParseTimestamp(s, m.tsLayout)
}

// excelSerialTime converts an Excel serial date (days since 1899-12-30).
func excelSerialTime(serial float64) time.Time {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return epoch.Add(time.Duration(serial * 24 * float64(time.Hour))).Round(time.Second)
}
