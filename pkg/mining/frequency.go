package mining

import (
	"sort"
	"strings"

	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
)

// FrequencyMetrics holds activity, transition and variant statistics.
type FrequencyMetrics struct {
	// ActivityFrequency counts events per activity.
	ActivityFrequency map[string]int

	// TransitionFrequency counts direct successions: from -> to -> count.
	TransitionFrequency map[string]map[string]int

	// VariantTraces maps a variant key to its activity sequence.
	VariantTraces map[string][]string

	// VariantFrequency counts traces per variant key.
	VariantFrequency map[string]int

	TraceCount int
	EventCount int
}

// VariantCount is a variant with its frequency.
type VariantCount struct {
	Key        string   `json:"key"`
	Activities []string `json:"activities"`
	Count      int      `json:"count"`
	Percent    float64  `json:"percent"`
}

// ActivityCount is an activity with its frequency.
type ActivityCount struct {
	Activity string  `json:"activity"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// FrequencyAnalyzer computes FrequencyMetrics.
type FrequencyAnalyzer struct{}

// NewFrequencyAnalyzer creates a frequency analyzer.
func NewFrequencyAnalyzer() *FrequencyAnalyzer {
	return &FrequencyAnalyzer{}
}

// Analyze computes activity, transition and variant frequencies.
func (a *FrequencyAnalyzer) Analyze(log *eventlog.Log) *FrequencyMetrics {
	m := &FrequencyMetrics{
		ActivityFrequency:   make(map[string]int),
		TransitionFrequency: make(map[string]map[string]int),
		VariantTraces:       make(map[string][]string),
		VariantFrequency:    make(map[string]int),
	}

	for _, trace := range log.Traces() {
		variant := trace.Activities()
		for _, activity := range variant {
			m.ActivityFrequency[activity]++
		}

		key := VariantKey(variant)
		m.VariantFrequency[key]++
		if _, ok := m.VariantTraces[key]; !ok {
			m.VariantTraces[key] = variant
		}

		for i := 0; i+1 < len(variant); i++ {
			targets, ok := m.TransitionFrequency[variant[i]]
			if !ok {
				targets = make(map[string]int)
				m.TransitionFrequency[variant[i]] = targets
			}
			targets[variant[i+1]]++
		}

		m.TraceCount++
		m.EventCount += len(variant)
	}

	return m
}

// BuildProcessGraph adds every counted activity as a node and an edge for
// every transition whose count is strictly greater than threshold, weighted
// by the raw count. Nodes and edges are added in sorted order.
func (a *FrequencyAnalyzer) BuildProcessGraph(m *FrequencyMetrics, threshold float64) *graph.Graph {
	g := graph.New()

	for _, activity := range sortedKeys(m.ActivityFrequency) {
		g.AddNode(activity)
	}

	froms := make([]string, 0, len(m.TransitionFrequency))
	for from := range m.TransitionFrequency {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		for _, to := range sortedKeys(m.TransitionFrequency[from]) {
			count := float64(m.TransitionFrequency[from][to])
			if count > threshold {
				g.AddEdge(from, to, count)
			}
		}
	}

	return g
}

// TransitionCount returns how often from was directly followed by to.
func (m *FrequencyMetrics) TransitionCount(from, to string) int {
	return m.TransitionFrequency[from][to]
}

// TopVariants returns the n most frequent variants (all when n <= 0),
// ordered by count descending, then key ascending.
func (m *FrequencyMetrics) TopVariants(n int) []VariantCount {
	out := make([]VariantCount, 0, len(m.VariantFrequency))
	for key, count := range m.VariantFrequency {
		out = append(out, VariantCount{
			Key:        key,
			Activities: m.VariantTraces[key],
			Count:      count,
			Percent:    percent(count, m.TraceCount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopActivities returns the n most frequent activities (all when n <= 0).
func (m *FrequencyMetrics) TopActivities(n int) []ActivityCount {
	out := make([]ActivityCount, 0, len(m.ActivityFrequency))
	for activity, count := range m.ActivityFrequency {
		out = append(out, ActivityCount{
			Activity: activity,
			Count:    count,
			Percent:  percent(count, m.EventCount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Activity < out[j].Activity
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FrequencyGraphBuilder mines a graph through the FrequencyAnalyzer.
type FrequencyGraphBuilder struct {
	Threshold float64
}

// NewFrequencyGraphBuilder creates a frequency-threshold miner.
func NewFrequencyGraphBuilder(threshold float64) *FrequencyGraphBuilder {
	return &FrequencyGraphBuilder{Threshold: threshold}
}

// Name implements Miner.
func (b *FrequencyGraphBuilder) Name() string {
	return AlgorithmFrequency.String()
}

// Mine implements Miner.
func (b *FrequencyGraphBuilder) Mine(log *eventlog.Log) *graph.Graph {
	a := NewFrequencyAnalyzer()
	return a.BuildProcessGraph(a.Analyze(log), b.Threshold)
}

// VariantSeparator joins activities in a variant key.
const VariantSeparator = "->"

var variantEscaper = strings.NewReplacer(`\`, `\\`, `>`, `\>`, `"`, `\"`)

// VariantKey joins an activity sequence into a comparable key. Backslash,
// '>' and '"' are escaped and an empty activity renders as "", so two keys
// are equal iff the sequences are element-wise equal.
func VariantKey(activities []string) string {
	parts := make([]string, len(activities))
	for i, a := range activities {
		if a == "" {
			parts[i] = `""`
			continue
		}
		parts[i] = variantEscaper.Replace(a)
	}
	return strings.Join(parts, VariantSeparator)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
