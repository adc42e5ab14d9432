// Package graph provides the discovered process model: a set of uniquely
// named activity nodes and directed, weighted edges between them.
package graph

// Edge is a directed, weighted relation between two activities.
type Edge struct {
	From   string
	To     string
	Weight float64

	// Count is how many times the edge was added. Re-adding an existing
	// (From, To) pair accumulates Weight and increments Count.
	Count int
}

// Graph is a directed activity graph. Self-loops are allowed; there is at
// most one edge per ordered pair.
//
// A Graph is built by exactly one miner and is read-only afterwards. It has
// no internal locking.
type Graph struct {
	nodes     []string
	nodeIndex map[string]struct{}

	// from -> ordered outgoing edges
	out map[string][]*Edge
	// from -> to -> edge
	edgeIndex map[string]map[string]*Edge
	edgeCount int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodeIndex: make(map[string]struct{}),
		out:       make(map[string][]*Edge),
		edgeIndex: make(map[string]map[string]*Edge),
	}
}

// AddNode adds an activity node. Adding an existing node is a no-op.
func (g *Graph) AddNode(activity string) {
	if _, ok := g.nodeIndex[activity]; ok {
		return
	}
	g.nodeIndex[activity] = struct{}{}
	g.nodes = append(g.nodes, activity)
}

// AddEdge records a directed edge, creating both endpoints if absent.
func (g *Graph) AddEdge(from, to string, weight float64) {
	g.AddNode(from)
	g.AddNode(to)

	targets, ok := g.edgeIndex[from]
	if !ok {
		targets = make(map[string]*Edge)
		g.edgeIndex[from] = targets
	}
	if e, ok := targets[to]; ok {
		e.Weight += weight
		e.Count++
		return
	}

	e := &Edge{From: from, To: to, Weight: weight, Count: 1}
	targets[to] = e
	g.out[from] = append(g.out[from], e)
	g.edgeCount++
}

// Nodes returns the activity names in insertion order. Callers needing a
// canonical order must sort.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// HasNode reports whether the activity is a node of the graph.
func (g *Graph) HasNode(activity string) bool {
	_, ok := g.nodeIndex[activity]
	return ok
}

// HasEdge reports whether an edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edgeIndex[from][to]
	return ok
}

// Edge returns the edge from -> to, if present.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	e, ok := g.edgeIndex[from][to]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// OutgoingEdges returns the edges leaving node. Unknown nodes and nodes
// without successors both yield an empty slice.
func (g *Graph) OutgoingEdges(node string) []Edge {
	src := g.out[node]
	out := make([]Edge, len(src))
	for i, e := range src {
		out[i] = *e
	}
	return out
}

// Edges returns all edges, grouped by source in node insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edgeCount)
	for _, n := range g.nodes {
		for _, e := range g.out[n] {
			out = append(out, *e)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}
