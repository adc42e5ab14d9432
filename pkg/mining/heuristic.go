package mining

import (
	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
)

// HeuristicMiner keeps only edges with strong, frequent dependency evidence.
//
// For activities a != b the dependency measure is
//
//	dep(a,b) = (|a>b| - |b>a|) / (|a>b| + |b>a| + 1)
//
// and 0 when neither succession was observed. An edge a->b weighted by
// dep(a,b) is added iff dep(a,b) > DependencyThreshold and
// |a>b| > PositiveObservationsThreshold. Self-pairs are never considered.
type HeuristicMiner struct {
	DependencyThreshold           float64
	PositiveObservationsThreshold float64
}

// NewHeuristicMiner creates a heuristic miner.
func NewHeuristicMiner(dependencyThreshold, positiveObservationsThreshold float64) *HeuristicMiner {
	return &HeuristicMiner{
		DependencyThreshold:           dependencyThreshold,
		PositiveObservationsThreshold: positiveObservationsThreshold,
	}
}

// Name implements Miner.
func (m *HeuristicMiner) Name() string {
	return AlgorithmHeuristic.String()
}

// Mine implements Miner.
func (m *HeuristicMiner) Mine(log *eventlog.Log) *graph.Graph {
	g := graph.New()

	activities := log.Activities()
	for _, activity := range activities {
		g.AddNode(activity)
	}

	tc := countTransitions(log)

	for _, from := range activities {
		for _, to := range activities {
			if from == to {
				continue
			}
			ab := tc.get(from, to)
			ba := tc.get(to, from)
			dep := Dependency(ab, ba)
			if dep > m.DependencyThreshold && float64(ab) > m.PositiveObservationsThreshold {
				g.AddEdge(from, to, dep)
			}
		}
	}

	return g
}

// Dependency returns the smoothed dependency measure for forward count ab
// and reverse count ba. The result lies in (-1, 1).
func Dependency(ab, ba int) float64 {
	if ab+ba <= 0 {
		return 0
	}
	return float64(ab-ba) / float64(ab+ba+1)
}
