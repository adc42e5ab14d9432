package mining

import (
	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
)

// DirectlyFollowsMiner adds an edge for every observed direct succession.
// Repeated successions accumulate on the same edge, so edge weights equal
// the number of observations.
type DirectlyFollowsMiner struct{}

// NewDirectlyFollowsMiner creates a directly-follows miner.
func NewDirectlyFollowsMiner() *DirectlyFollowsMiner {
	return &DirectlyFollowsMiner{}
}

// Name implements Miner.
func (m *DirectlyFollowsMiner) Name() string {
	return AlgorithmAlpha.String()
}

// Mine implements Miner.
func (m *DirectlyFollowsMiner) Mine(log *eventlog.Log) *graph.Graph {
	g := graph.New()

	for _, activity := range log.Activities() {
		g.AddNode(activity)
	}

	for _, trace := range log.Traces() {
		events := trace.Events()
		for i := 0; i+1 < len(events); i++ {
			g.AddEdge(events[i].Activity, events[i+1].Activity, 1.0)
		}
	}

	return g
}
