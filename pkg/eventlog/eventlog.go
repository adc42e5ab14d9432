// Package eventlog defines the in-memory event log consumed by the miners,
// the frequency analyzer and the conformance checker.
package eventlog

import (
	"sort"
	"time"
)

// Event is a single recorded activity execution.
type Event struct {
	// Activity is the event name/activity label.
	Activity string

	// Resource is the actor/resource performing the activity (optional).
	Resource string

	// Timestamp of the execution.
	Timestamp time.Time

	// Attributes holds additional key-value pairs.
	Attributes map[string]string
}

// Attribute returns the attribute value for key, or "" when absent.
func (e Event) Attribute(key string) string {
	return e.Attributes[key]
}

// Trace is one process instance (a case): an ordered sequence of events.
// Event order is recording order; it is never re-sorted by timestamp.
type Trace struct {
	caseID     string
	events     []Event
	attributes map[string]string
}

// NewTrace creates an empty trace for the given case.
func NewTrace(caseID string) *Trace {
	return &Trace{caseID: caseID}
}

// CaseID returns the case identifier.
func (t *Trace) CaseID() string {
	return t.caseID
}

// AddEvent appends an event. The attribute map is copied so later changes
// by the caller do not leak into the trace.
func (t *Trace) AddEvent(e Event) {
	if len(e.Attributes) > 0 {
		attrs := make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = v
		}
		e.Attributes = attrs
	}
	t.events = append(t.events, e)
}

// Events returns the events in recording order. The slice is shared with
// the trace and must be treated as read-only.
func (t *Trace) Events() []Event {
	return t.events
}

// Len returns the number of events.
func (t *Trace) Len() int {
	return len(t.events)
}

// Activities returns the activity sequence of the trace (its variant).
func (t *Trace) Activities() []string {
	seq := make([]string, len(t.events))
	for i, e := range t.events {
		seq[i] = e.Activity
	}
	return seq
}

// Attribute returns a trace-level attribute, or "" when absent.
func (t *Trace) Attribute(key string) string {
	return t.attributes[key]
}

// SetAttribute sets a trace-level attribute.
func (t *Trace) SetAttribute(key, value string) {
	if t.attributes == nil {
		t.attributes = make(map[string]string)
	}
	t.attributes[key] = value
}

// Attributes returns a copy of the trace-level attributes.
func (t *Trace) Attributes() map[string]string {
	out := make(map[string]string, len(t.attributes))
	for k, v := range t.attributes {
		out[k] = v
	}
	return out
}

// Log is an ordered collection of traces. Insertion order is preserved.
// Case identifiers are not required to be unique; loaders merge rows of the
// same case before inserting.
type Log struct {
	traces []*Trace
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// AddTrace appends a trace.
func (l *Log) AddTrace(t *Trace) {
	l.traces = append(l.traces, t)
}

// Traces returns the traces in insertion order (read-only).
func (l *Log) Traces() []*Trace {
	return l.traces
}

// Len returns the number of traces.
func (l *Log) Len() int {
	return len(l.traces)
}

// EventCount returns the total number of events across all traces.
func (l *Log) EventCount() int {
	n := 0
	for _, t := range l.traces {
		n += len(t.events)
	}
	return n
}

// Activities returns the distinct activities in first-seen order.
func (l *Log) Activities() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range l.traces {
		for _, e := range t.events {
			if _, ok := seen[e.Activity]; ok {
				continue
			}
			seen[e.Activity] = struct{}{}
			out = append(out, e.Activity)
		}
	}
	return out
}

// AttributeKeys returns the sorted union of event attribute keys.
func (l *Log) AttributeKeys() []string {
	seen := make(map[string]struct{})
	for _, t := range l.traces {
		for _, e := range t.events {
			for k := range e.Attributes {
				seen[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FilterByActivity returns a new log holding, per trace, only the events of
// the given activity. Traces without such events are dropped.
func (l *Log) FilterByActivity(activity string) *Log {
	return l.filter(func(e Event) bool { return e.Activity == activity })
}

// FilterByTimeframe returns a new log holding only events with
// start <= timestamp <= end. Traces left empty are dropped.
func (l *Log) FilterByTimeframe(start, end time.Time) *Log {
	return l.filter(func(e Event) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
}

func (l *Log) filter(keep func(Event) bool) *Log {
	out := New()
	for _, t := range l.traces {
		ft := NewTrace(t.caseID)
		for k, v := range t.attributes {
			ft.SetAttribute(k, v)
		}
		for _, e := range t.events {
			if keep(e) {
				ft.events = append(ft.events, e)
			}
		}
		if len(ft.events) > 0 {
			out.AddTrace(ft)
		}
	}
	return out
}

// Builder assembles a log from rows arriving in any case order, merging
// rows of the same case into one trace. Traces keep first-seen case order.
type Builder struct {
	log   *Log
	index map[string]*Trace
}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{log: New(), index: make(map[string]*Trace)}
}

// Add appends an event to the trace of caseID, creating it if needed.
func (b *Builder) Add(caseID string, e Event) {
	b.Ensure(caseID).AddEvent(e)
}

// Ensure returns the trace of caseID, creating an empty one if needed.
func (b *Builder) Ensure(caseID string) *Trace {
	t, ok := b.index[caseID]
	if !ok {
		t = NewTrace(caseID)
		b.index[caseID] = t
		b.log.AddTrace(t)
	}
	return t
}

// Trace returns the trace for caseID, or nil.
func (b *Builder) Trace(caseID string) *Trace {
	return b.index[caseID]
}

// Log returns the assembled log.
func (b *Builder) Log() *Log {
	return b.log
}
