package graph

import (
	"strconv"
	"strings"
)

// DOT renders the graph as a Graphviz digraph: every node once with a box
// shape, then every edge with its weight as label.
func (g *Graph) DOT() string {
	var sb strings.Builder

	sb.WriteString("digraph ProcessModel {\n")
	for _, n := range g.nodes {
		sb.WriteString("  \"")
		sb.WriteString(escapeID(n))
		sb.WriteString("\" [shape=box];\n")
	}
	for _, e := range g.Edges() {
		sb.WriteString("  \"")
		sb.WriteString(escapeID(e.From))
		sb.WriteString("\" -> \"")
		sb.WriteString(escapeID(e.To))
		sb.WriteString("\" [label=\"")
		sb.WriteString(FormatWeight(e.Weight))
		sb.WriteString("\"];\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}

// FormatWeight formats an edge weight with up to six significant digits
// ("1", "2", "0.333333").
func FormatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', 6, 64)
}

func escapeID(s string) string {
	if !strings.ContainsAny(s, "\"\\\n") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}
