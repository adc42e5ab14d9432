// Package generator produces synthetic event logs by walking weighted
// process templates. Resources and case attributes come from gofakeit so
// the output looks like real operational data.
package generator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// Choice is one weighted successor of an activity.
type Choice struct {
	To     string
	Weight float64
}

// Template describes a process as weighted successors per activity. A walk
// starts at Start and ends at an activity with no successors.
type Template struct {
	Name       string
	Start      string
	Successors map[string][]Choice
}

var templates = map[string]Template{
	"simple": {
		Name:  "simple",
		Start: "A",
		Successors: map[string][]Choice{
			"A": {{To: "B", Weight: 1}, {To: "C", Weight: 1}},
			"B": {{To: "C", Weight: 1}},
			"C": {{To: "D", Weight: 1}},
		},
	},
	"order": {
		Name:  "order",
		Start: "Create Order",
		Successors: map[string][]Choice{
			"Create Order":  {{To: "Check Credit", Weight: 1}},
			"Check Credit":  {{To: "Approve Order", Weight: 0.8}, {To: "Reject Order", Weight: 0.2}},
			"Approve Order": {{To: "Ship Goods", Weight: 1}},
			"Ship Goods":    {{To: "Send Invoice", Weight: 1}},
			"Send Invoice":  {{To: "Receive Payment", Weight: 0.9}, {To: "Send Reminder", Weight: 0.1}},
			"Send Reminder": {{To: "Receive Payment", Weight: 1}},
			"Reject Order":  {{To: "Notify Customer", Weight: 1}},
		},
	},
	"ticket": {
		Name:  "ticket",
		Start: "Open Ticket",
		Successors: map[string][]Choice{
			"Open Ticket":  {{To: "Triage", Weight: 1}},
			"Triage":       {{To: "Investigate", Weight: 0.7}, {To: "Close Ticket", Weight: 0.3}},
			"Investigate":  {{To: "Resolve", Weight: 0.6}, {To: "Request Info", Weight: 0.4}},
			"Request Info": {{To: "Investigate", Weight: 1}},
			"Resolve":      {{To: "Close Ticket", Weight: 0.85}, {To: "Reopen", Weight: 0.15}},
			"Reopen":       {{To: "Investigate", Weight: 1}},
		},
	},
}

// Templates returns the names of the built-in templates.
func Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a built-in template by name.
func Lookup(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, errors.New(errors.CodeInvalidConfig, "unknown process template").
			WithContext("template", name).
			WithContext("available", Templates())
	}
	return t, nil
}

// Config controls generation.
type Config struct {
	// Seed makes output reproducible. Zero picks a random seed.
	Seed uint64

	Cases     int
	Template  string
	Start     time.Time
	CaseGap   time.Duration // between case starts
	MaxStep   time.Duration // upper bound between events of a case
	MaxLength int           // caps looping templates
	Resources int           // size of the resource pool

	// Noise is the per-trace probability of swapping two adjacent events or
	// dropping one, producing deviating traces.
	Noise float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Seed:      1,
		Cases:     100,
		Template:  "order",
		Start:     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		CaseGap:   15 * time.Minute,
		MaxStep:   4 * time.Hour,
		MaxLength: 50,
		Resources: 8,
	}
}

// Generator builds synthetic logs.
type Generator struct {
	cfg       Config
	template  Template
	faker     *gofakeit.Faker
	resources []string
}

// New creates a generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Cases < 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "cases must not be negative").
			WithContext("cases", cfg.Cases)
	}
	if cfg.Noise < 0 || cfg.Noise > 1 {
		return nil, errors.New(errors.CodeInvalidConfig, "noise must be between 0 and 1").
			WithContext("noise", cfg.Noise)
	}
	tmpl, err := Lookup(cfg.Template)
	if err != nil {
		return nil, err
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultConfig().MaxLength
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = DefaultConfig().MaxStep
	}
	if cfg.Resources <= 0 {
		cfg.Resources = 1
	}

	faker := gofakeit.New(cfg.Seed)
	resources := make([]string, cfg.Resources)
	for i := range resources {
		resources[i] = faker.Name()
	}

	return &Generator{
		cfg:       cfg,
		template:  tmpl,
		faker:     faker,
		resources: resources,
	}, nil
}

// Generate builds a log of cfg.Cases traces.
func (g *Generator) Generate(ctx context.Context) (*eventlog.Log, error) {
	log := eventlog.New()
	for i := 0; i < g.cfg.Cases; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.ContextCanceled("generate")
			}
		}
		log.AddTrace(g.trace(i))
	}
	return log, nil
}

func (g *Generator) trace(i int) *eventlog.Trace {
	t := eventlog.NewTrace(fmt.Sprintf("case-%05d", i+1))
	t.SetAttribute("customer", g.faker.Company())
	t.SetAttribute("country", g.faker.Country())

	ts := g.cfg.Start.Add(time.Duration(i) * g.cfg.CaseGap)
	steps := int(g.cfg.MaxStep / time.Second)
	if steps < 1 {
		steps = 1
	}
	amount := strconv.FormatFloat(g.faker.Float64Range(10, 5000), 'f', 2, 64)

	var events []eventlog.Event
	for activity := g.template.Start; activity != "" && len(events) < g.cfg.MaxLength; activity = g.next(activity) {
		events = append(events, eventlog.Event{
			Activity:   activity,
			Resource:   g.resources[g.faker.IntRange(0, len(g.resources)-1)],
			Timestamp:  ts,
			Attributes: map[string]string{"amount": amount},
		})
		ts = ts.Add(time.Duration(g.faker.IntRange(1, steps)) * time.Second)
	}

	if g.cfg.Noise > 0 && len(events) > 1 && g.faker.Float64() < g.cfg.Noise {
		events = g.distort(events)
	}
	for _, e := range events {
		t.AddEvent(e)
	}
	return t
}

// next picks a weighted successor, or "" at the end of the process.
func (g *Generator) next(activity string) string {
	choices := g.template.Successors[activity]
	if len(choices) == 0 {
		return ""
	}
	total := 0.0
	for _, c := range choices {
		total += c.Weight
	}
	r := g.faker.Float64() * total
	for _, c := range choices {
		if r < c.Weight {
			return c.To
		}
		r -= c.Weight
	}
	return choices[len(choices)-1].To
}

// distort swaps two adjacent activities or drops one event. Timestamps stay
// in place so the trace remains chronologically ordered.
func (g *Generator) distort(events []eventlog.Event) []eventlog.Event {
	k := g.faker.IntRange(0, len(events)-2)
	if g.faker.Bool() {
		events[k].Activity, events[k+1].Activity = events[k+1].Activity, events[k].Activity
		return events
	}
	return append(events[:k+1], events[k+2:]...)
}
