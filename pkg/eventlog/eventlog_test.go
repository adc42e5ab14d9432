package eventlog

import (
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func buildLog(cases map[string][]string, order []string) *Log {
	l := New()
	for _, id := range order {
		tr := NewTrace(id)
		for i, a := range cases[id] {
			tr.AddEvent(Event{Activity: a, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		}
		l.AddTrace(tr)
	}
	return l
}

func TestLog_ActivitiesFirstSeenOrder(t *testing.T) {
	l := buildLog(map[string][]string{
		"c1": {"A", "B", "C"},
		"c2": {"A", "D", "B"},
	}, []string{"c1", "c2"})

	got := l.Activities()
	want := []string{"A", "B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Activities()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLog_EmptyLog(t *testing.T) {
	l := New()
	if l.Len() != 0 || l.EventCount() != 0 || len(l.Activities()) != 0 {
		t.Error("Empty log should have no traces, events, or activities")
	}
}

func TestTrace_AddEventCopiesAttributes(t *testing.T) {
	attrs := map[string]string{"cost": "10"}
	tr := NewTrace("c1")
	tr.AddEvent(Event{Activity: "A", Attributes: attrs})

	attrs["cost"] = "20"
	if got := tr.Events()[0].Attribute("cost"); got != "10" {
		t.Errorf("Expected attribute to stay 10, got %q", got)
	}
}

func TestTrace_Attributes(t *testing.T) {
	tr := NewTrace("c1")
	if tr.Attribute("missing") != "" {
		t.Error("Missing attribute should be empty")
	}
	tr.SetAttribute("customer", "acme")
	if tr.Attribute("customer") != "acme" {
		t.Error("Attribute not set")
	}
	attrs := tr.Attributes()
	attrs["customer"] = "other"
	if tr.Attribute("customer") != "acme" {
		t.Error("Attributes() must return a copy")
	}
}

func TestLog_DuplicateCaseIDsKept(t *testing.T) {
	l := New()
	l.AddTrace(NewTrace("c1"))
	l.AddTrace(NewTrace("c1"))
	if l.Len() != 2 {
		t.Errorf("Expected 2 traces, got %d", l.Len())
	}
}

func TestLog_FilterByActivity(t *testing.T) {
	l := buildLog(map[string][]string{
		"c1": {"A", "B", "A"},
		"c2": {"C", "D"},
	}, []string{"c1", "c2"})

	f := l.FilterByActivity("A")
	if f.Len() != 1 {
		t.Fatalf("Expected 1 trace, got %d", f.Len())
	}
	tr := f.Traces()[0]
	if tr.CaseID() != "c1" || tr.Len() != 2 {
		t.Errorf("Unexpected filtered trace %s with %d events", tr.CaseID(), tr.Len())
	}
	if l.Traces()[0].Len() != 3 {
		t.Error("Filter mutated the source log")
	}
}

func TestLog_FilterByTimeframe(t *testing.T) {
	l := buildLog(map[string][]string{
		"c1": {"A", "B", "C"},
		"c2": {"D"},
	}, []string{"c1", "c2"})

	// Inclusive bounds: minute 1 through minute 2.
	f := l.FilterByTimeframe(base.Add(time.Minute), base.Add(2*time.Minute))
	if f.Len() != 1 {
		t.Fatalf("Expected 1 trace, got %d", f.Len())
	}
	seq := f.Traces()[0].Activities()
	if len(seq) != 2 || seq[0] != "B" || seq[1] != "C" {
		t.Errorf("Expected [B C], got %v", seq)
	}
}

func TestLog_AttributeKeys(t *testing.T) {
	l := New()
	tr := NewTrace("c1")
	tr.AddEvent(Event{Activity: "A", Attributes: map[string]string{"z": "1", "a": "2"}})
	tr.AddEvent(Event{Activity: "B", Attributes: map[string]string{"m": "3"}})
	l.AddTrace(tr)

	keys := l.AttributeKeys()
	want := []string{"a", "m", "z"}
	if len(keys) != 3 {
		t.Fatalf("Expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("AttributeKeys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestBuilder_MergesCases(t *testing.T) {
	b := NewBuilder()
	b.Add("c2", Event{Activity: "X"})
	b.Add("c1", Event{Activity: "A"})
	b.Add("c2", Event{Activity: "Y"})

	l := b.Log()
	if l.Len() != 2 {
		t.Fatalf("Expected 2 traces, got %d", l.Len())
	}
	if l.Traces()[0].CaseID() != "c2" {
		t.Error("Builder must keep first-seen case order")
	}
	if l.Traces()[0].Len() != 2 {
		t.Errorf("Expected c2 to hold 2 events, got %d", l.Traces()[0].Len())
	}
	if b.Trace("missing") != nil {
		t.Error("Unknown case should return nil")
	}
}
