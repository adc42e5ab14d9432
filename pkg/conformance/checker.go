// Package conformance replays traces against a process graph and scores
// their fitness.
package conformance

import (
	"fmt"

	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
)

// Result is the replay outcome for one trace.
type Result struct {
	CaseID            string   `json:"case_id"`
	Fitness           float64  `json:"fitness"`
	MatchedActivities int      `json:"matched_activities"`
	TotalActivities   int      `json:"total_activities"`
	Violations        []string `json:"violations,omitempty"`
}

// Summary aggregates per-trace results.
type Summary struct {
	Traces         int     `json:"traces"`
	FittingTraces  int     `json:"fitting_traces"`
	AverageFitness float64 `json:"average_fitness"`
	Violations     int     `json:"violations"`
}

// Checker scores traces against a model it does not own. The model is
// only read, never modified.
type Checker struct {
	model *graph.Graph
}

// NewChecker binds a checker to a model.
func NewChecker(model *graph.Graph) *Checker {
	return &Checker{model: model}
}

// CheckTrace replays a trace. Each consecutive pair matched by a model edge
// counts once; unmatched pairs are reported as violations in trace order.
// A non-empty trace whose last activity is a model node earns one extra
// match. An empty trace has fitness 1.
func (c *Checker) CheckTrace(trace *eventlog.Trace) Result {
	events := trace.Events()
	res := Result{
		CaseID:          trace.CaseID(),
		TotalActivities: len(events),
	}

	for i := 0; i+1 < len(events); i++ {
		from, to := events[i].Activity, events[i+1].Activity
		if c.matches(from, to) {
			res.MatchedActivities++
			continue
		}
		res.Violations = append(res.Violations, ViolationMessage(from, to))
	}

	if len(events) > 0 && c.model.HasNode(events[len(events)-1].Activity) {
		res.MatchedActivities++
	}

	if res.TotalActivities > 0 {
		res.Fitness = float64(res.MatchedActivities) / float64(res.TotalActivities)
	} else {
		res.Fitness = 1.0
	}

	return res
}

func (c *Checker) matches(from, to string) bool {
	for _, e := range c.model.OutgoingEdges(from) {
		if e.To == to {
			return true
		}
	}
	return false
}

// CheckLog checks every trace, preserving log order.
func (c *Checker) CheckLog(log *eventlog.Log) []Result {
	results := make([]Result, 0, log.Len())
	for _, trace := range log.Traces() {
		results = append(results, c.CheckTrace(trace))
	}
	return results
}

// OverallConformance returns the mean trace fitness; 0 for an empty log.
func (c *Checker) OverallConformance(log *eventlog.Log) float64 {
	return Summarize(c.CheckLog(log)).AverageFitness
}

// Summarize aggregates results. The average of no results is 0.
func Summarize(results []Result) Summary {
	s := Summary{Traces: len(results)}
	if len(results) == 0 {
		return s
	}

	total := 0.0
	for _, r := range results {
		total += r.Fitness
		if r.Fitness == 1.0 {
			s.FittingTraces++
		}
		s.Violations += len(r.Violations)
	}
	s.AverageFitness = total / float64(len(results))

	return s
}

// ViolationMessage describes an unmatched transition.
func ViolationMessage(from, to string) string {
	return fmt.Sprintf("transition from '%s' to '%s' not found in model", from, to)
}
