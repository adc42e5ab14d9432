package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// XES attribute keys
const (
	xesConceptName = "concept:name"
	xesTimestamp   = "time:timestamp"
	xesOrgResource = "org:resource"
)

// XESReader reads IEEE XES logs. Trace-level concept:name becomes the case
// identifier; other trace attributes become trace attributes. Nested
// attribute values (lists, containers, meta-attributes) and global/extension
// declarations are ignored.
type XESReader struct{}

// NewXESReader creates a new XES reader.
func NewXESReader() *XESReader {
	return &XESReader{}
}

type xesTrace struct {
	caseID string
	attrs  map[string]string
	events []eventlog.Event
}

// Read implements the Reader interface.
func (p *XESReader) Read(ctx context.Context, r io.Reader) (*eventlog.Log, error) {
	dec := xml.NewDecoder(r)
	b := eventlog.NewBuilder()

	var (
		trace    *xesTrace
		event    *eventlog.Event
		sawLog   bool
		traceNum int
		tokenNum int
	)

	for {
		tokenNum++
		if tokenNum%4096 == 0 {
			select {
			case <-ctx.Done():
				return nil, errors.ContextCanceled("xes read")
			default:
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseError("xes", traceNum, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "log":
				sawLog = true
			case "global", "extension", "classifier":
				if err := dec.Skip(); err != nil {
					return nil, errors.ParseError("xes", traceNum, err)
				}
			case "trace":
				traceNum++
				trace = &xesTrace{attrs: make(map[string]string)}
			case "event":
				if trace != nil {
					event = &eventlog.Event{}
				}
			case "string", "date", "int", "float", "boolean", "id":
				key, value := xmlAttr(el, "key"), xmlAttr(el, "value")
				if err := p.assign(trace, event, el.Name.Local, key, value); err != nil {
					return nil, err
				}
				if err := dec.Skip(); err != nil {
					return nil, errors.ParseError("xes", traceNum, err)
				}
			case "list", "container":
				if err := dec.Skip(); err != nil {
					return nil, errors.ParseError("xes", traceNum, err)
				}
			}

		case xml.EndElement:
			switch el.Name.Local {
			case "event":
				if trace != nil && event != nil {
					trace.events = append(trace.events, *event)
				}
				event = nil
			case "trace":
				if trace != nil {
					p.flush(b, trace, traceNum)
				}
				trace = nil
			}
		}
	}

	if !sawLog {
		return nil, errors.New(errors.CodeInvalidFormat, "xes input has no <log> element")
	}
	return b.Log(), nil
}

// assign routes an attribute to the current event or trace.
func (p *XESReader) assign(trace *xesTrace, event *eventlog.Event, kind, key, value string) error {
	if event != nil {
		switch {
		case key == xesConceptName:
			event.Activity = value
		case key == xesOrgResource:
			event.Resource = value
		case key == xesTimestamp && kind == "date":
			ts, err := ParseTimestamp(value, "")
			if err != nil {
				return errors.Wrap(err, errors.CodeInvalidTimestamp, "invalid xes timestamp").
					WithContext("value", value)
			}
			event.Timestamp = ts
		default:
			if event.Attributes == nil {
				event.Attributes = make(map[string]string)
			}
			event.Attributes[key] = value
		}
		return nil
	}

	if trace != nil {
		if key == xesConceptName {
			trace.caseID = value
			return nil
		}
		trace.attrs[key] = value
	}
	return nil
}

// flush adds a completed trace to the builder. Traces with the same case
// identifier are merged.
func (p *XESReader) flush(b *eventlog.Builder, t *xesTrace, n int) {
	caseID := t.caseID
	if caseID == "" {
		caseID = fmt.Sprintf("trace-%d", n)
	}

	tr := b.Ensure(caseID)
	for _, e := range t.events {
		tr.AddEvent(e)
	}
	for k, v := range t.attrs {
		tr.SetAttribute(k, v)
	}
}

func xmlAttr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
