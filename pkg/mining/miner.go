// Package mining discovers process graphs from event logs.
//
// Three strategies are provided: a directly-follows ("alpha") miner, a
// dependency-threshold heuristic miner, and a frequency-threshold graph
// builder backed by the FrequencyAnalyzer. Every Mine call owns its own
// accumulators, so independent logs can be mined concurrently.
package mining

import (
	"strings"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
)

// Miner builds a process graph from an event log.
type Miner interface {
	// Name returns the algorithm name.
	Name() string

	// Mine builds a new graph. Mining never fails: an empty log yields an
	// empty graph.
	Mine(log *eventlog.Log) *graph.Graph
}

// Algorithm identifies a mining strategy.
type Algorithm uint8

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmAlpha
	AlgorithmHeuristic
	AlgorithmFrequency
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmAlpha:
		return "alpha"
	case AlgorithmHeuristic:
		return "heuristic"
	case AlgorithmFrequency:
		return "frequency"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses an algorithm name.
func ParseAlgorithm(s string) Algorithm {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alpha", "dfg", "directly-follows":
		return AlgorithmAlpha
	case "heuristic", "heuristics", "hm":
		return AlgorithmHeuristic
	case "frequency", "freq":
		return AlgorithmFrequency
	default:
		return AlgorithmUnknown
	}
}

// Options holds the thresholds used by the threshold-based miners.
type Options struct {
	// DependencyThreshold is the minimum (exclusive) dependency measure for
	// a heuristic edge.
	DependencyThreshold float64

	// PositiveObservationsThreshold is the minimum (exclusive) directly-follows
	// count for a heuristic edge.
	PositiveObservationsThreshold float64

	// FrequencyThreshold is the minimum (exclusive) transition count for a
	// frequency-graph edge.
	FrequencyThreshold float64
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		DependencyThreshold:           0.9,
		PositiveObservationsThreshold: 1.0,
		FrequencyThreshold:            0,
	}
}

// New returns the miner for an algorithm.
func New(algorithm Algorithm, opts Options) (Miner, error) {
	switch algorithm {
	case AlgorithmAlpha:
		return NewDirectlyFollowsMiner(), nil
	case AlgorithmHeuristic:
		return NewHeuristicMiner(opts.DependencyThreshold, opts.PositiveObservationsThreshold), nil
	case AlgorithmFrequency:
		return NewFrequencyGraphBuilder(opts.FrequencyThreshold), nil
	default:
		return nil, errors.New(errors.CodeUnknownAlgorithm, "unknown mining algorithm").
			WithContext("algorithm", algorithm.String())
	}
}

// transitionCounts maps from -> to -> number of direct successions.
type transitionCounts map[string]map[string]int

func (tc transitionCounts) add(from, to string) {
	targets, ok := tc[from]
	if !ok {
		targets = make(map[string]int)
		tc[from] = targets
	}
	targets[to]++
}

func (tc transitionCounts) get(from, to string) int {
	return tc[from][to]
}

// countTransitions counts every consecutive activity pair of every trace.
func countTransitions(log *eventlog.Log) transitionCounts {
	tc := make(transitionCounts)
	for _, trace := range log.Traces() {
		events := trace.Events()
		for i := 0; i+1 < len(events); i++ {
			tc.add(events[i].Activity, events[i+1].Activity)
		}
	}
	return tc
}
