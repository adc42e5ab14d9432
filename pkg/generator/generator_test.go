package generator

import (
	"context"
	"reflect"
	"testing"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

func generate(t *testing.T, cfg Config) *eventlog.Log {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return log
}

func isTemplateEdge(tmpl Template, from, to string) bool {
	for _, c := range tmpl.Successors[from] {
		if c.To == to {
			return true
		}
	}
	return false
}

func TestGenerate_FollowsTemplate(t *testing.T) {
	for _, name := range Templates() {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Template = name
			cfg.Cases = 50
			log := generate(t, cfg)

			if log.Len() != 50 {
				t.Fatalf("Expected 50 traces, got %d", log.Len())
			}
			tmpl, _ := Lookup(name)
			for _, trace := range log.Traces() {
				acts := trace.Activities()
				if acts[0] != tmpl.Start {
					t.Errorf("Expected trace %s to start at %s, got %s", trace.CaseID(), tmpl.Start, acts[0])
				}
				for i := 0; i+1 < len(acts); i++ {
					if !isTemplateEdge(tmpl, acts[i], acts[i+1]) {
						t.Errorf("Unexpected transition %s -> %s in %s", acts[i], acts[i+1], trace.CaseID())
					}
				}
				if len(acts) < cfg.MaxLength && len(tmpl.Successors[acts[len(acts)-1]]) != 0 {
					t.Errorf("Expected trace %s to end at a final activity, got %v", trace.CaseID(), acts)
				}
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Cases = 20
	cfg.Noise = 0.3

	a := generate(t, cfg)
	b := generate(t, cfg)
	for i, ta := range a.Traces() {
		tb := b.Traces()[i]
		if ta.CaseID() != tb.CaseID() {
			t.Fatalf("Expected case %s, got %s", ta.CaseID(), tb.CaseID())
		}
		if !reflect.DeepEqual(ta.Events(), tb.Events()) {
			t.Errorf("Expected identical events for %s", ta.CaseID())
		}
		if !reflect.DeepEqual(ta.Attributes(), tb.Attributes()) {
			t.Errorf("Expected identical attributes for %s", ta.CaseID())
		}
	}
}

func TestGenerate_EventsAreOrdered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cases = 10
	log := generate(t, cfg)

	first := log.Traces()[0]
	if first.CaseID() != "case-00001" {
		t.Errorf("Expected case-00001, got %s", first.CaseID())
	}
	if !first.Events()[0].Timestamp.Equal(cfg.Start) {
		t.Errorf("Expected first event at %v, got %v", cfg.Start, first.Events()[0].Timestamp)
	}
	for _, trace := range log.Traces() {
		events := trace.Events()
		for i := 1; i < len(events); i++ {
			if !events[i].Timestamp.After(events[i-1].Timestamp) {
				t.Errorf("Expected increasing timestamps in %s", trace.CaseID())
			}
		}
		for _, e := range events {
			if e.Resource == "" || e.Attribute("amount") == "" {
				t.Errorf("Expected resource and amount on every event, got %+v", e)
			}
		}
	}
}

func TestGenerate_MaxLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Template = "ticket"
	cfg.MaxLength = 3
	cfg.Cases = 30
	log := generate(t, cfg)

	for _, trace := range log.Traces() {
		if trace.Len() > 3 {
			t.Errorf("Expected at most 3 events, got %d", trace.Len())
		}
	}
}

func TestGenerate_Noise(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Template = "simple"
	cfg.Cases = 40
	cfg.Noise = 1
	log := generate(t, cfg)
	tmpl, _ := Lookup("simple")

	deviating := 0
	for _, trace := range log.Traces() {
		acts := trace.Activities()
		for i := 0; i+1 < len(acts); i++ {
			if !isTemplateEdge(tmpl, acts[i], acts[i+1]) {
				deviating++
				break
			}
		}
	}
	if deviating == 0 {
		t.Error("Expected some deviating traces with full noise")
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown template", func(c *Config) { c.Template = "payroll" }},
		{"negative cases", func(c *Config) { c.Cases = -1 }},
		{"noise above one", func(c *Config) { c.Noise = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			if !errors.IsCode(err, errors.CodeInvalidConfig) {
				t.Errorf("Expected invalid config, got %v", err)
			}
		})
	}
}

func TestGenerate_Canceled(t *testing.T) {
	g, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx); !errors.IsCode(err, errors.CodeContextCanceled) {
		t.Errorf("Expected canceled error, got %v", err)
	}
}
