package mining

import (
	"sort"
	"testing"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
)

// makeLog builds a log from case sequences, in the given order.
func makeLog(cases ...[]string) *eventlog.Log {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := eventlog.New()
	for i, seq := range cases {
		tr := eventlog.NewTrace("case" + string(rune('1'+i)))
		for j, a := range seq {
			tr.AddEvent(eventlog.Event{Activity: a, Timestamp: base.Add(time.Duration(j) * time.Second)})
		}
		l.AddTrace(tr)
	}
	return l
}

func referenceLog() *eventlog.Log {
	return makeLog(
		[]string{"A", "B", "C", "D"},
		[]string{"A", "C", "B", "D"},
	)
}

func TestDirectlyFollowsMiner_ReferenceLog(t *testing.T) {
	g := NewDirectlyFollowsMiner().Mine(referenceLog())

	if g.NodeCount() != 4 {
		t.Errorf("Expected 4 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 6 {
		t.Errorf("Expected 6 edges, got %d", g.EdgeCount())
	}

	want := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"A", "C"}, {"C", "B"}, {"B", "D"}}
	for _, e := range want {
		if !g.HasEdge(e[0], e[1]) {
			t.Errorf("Missing edge %s->%s", e[0], e[1])
		}
	}
}

func TestDirectlyFollowsMiner_RepeatsAccumulate(t *testing.T) {
	g := NewDirectlyFollowsMiner().Mine(makeLog(
		[]string{"A", "B"},
		[]string{"A", "B"},
		[]string{"A", "B"},
	))

	e, ok := g.Edge("A", "B")
	if !ok {
		t.Fatal("Missing edge A->B")
	}
	if e.Weight != 3 || e.Count != 3 {
		t.Errorf("Expected weight 3 and count 3, got %v/%d", e.Weight, e.Count)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestDirectlyFollowsMiner_EmptyAndShortTraces(t *testing.T) {
	g := NewDirectlyFollowsMiner().Mine(eventlog.New())
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Error("Empty log should yield an empty graph")
	}

	g = NewDirectlyFollowsMiner().Mine(makeLog([]string{"X"}, []string{}))
	if g.NodeCount() != 1 || g.EdgeCount() != 0 {
		t.Errorf("Expected 1 node and 0 edges, got %d/%d", g.NodeCount(), g.EdgeCount())
	}
}

func TestDirectlyFollowsMiner_Properties(t *testing.T) {
	logs := []*eventlog.Log{
		referenceLog(),
		makeLog([]string{"A", "A", "A"}, []string{"B"}),
		makeLog([]string{"X", "Y", "Z", "X", "Y"}, []string{"Z", "Z"}, []string{}),
	}

	for i, l := range logs {
		g := NewDirectlyFollowsMiner().Mine(l)
		if g.NodeCount() != len(l.Activities()) {
			t.Errorf("log %d: nodes %d != distinct activities %d", i, g.NodeCount(), len(l.Activities()))
		}
		for _, tr := range l.Traces() {
			seq := tr.Activities()
			for j := 0; j+1 < len(seq); j++ {
				if !g.HasEdge(seq[j], seq[j+1]) {
					t.Errorf("log %d: missing edge %s->%s", i, seq[j], seq[j+1])
				}
			}
		}
	}
}

func TestHeuristicMiner_ReferenceLog(t *testing.T) {
	g := NewHeuristicMiner(0.5, 1.0).Mine(referenceLog())

	if g.NodeCount() != 4 {
		t.Errorf("Expected 4 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("Expected 0 edges, got %d: %v", g.EdgeCount(), g.Edges())
	}
}

func TestHeuristicMiner_StrongDependency(t *testing.T) {
	// A->B observed 4 times, never B->A: dep = 4/5 = 0.8.
	l := makeLog(
		[]string{"A", "B"},
		[]string{"A", "B"},
		[]string{"A", "B"},
		[]string{"A", "B"},
	)

	g := NewHeuristicMiner(0.5, 1.0).Mine(l)
	e, ok := g.Edge("A", "B")
	if !ok {
		t.Fatal("Expected edge A->B")
	}
	if e.Weight != 0.8 {
		t.Errorf("Expected weight 0.8, got %v", e.Weight)
	}
	if g.HasEdge("B", "A") {
		t.Error("Reverse edge must not exist")
	}
}

func TestHeuristicMiner_StrictThresholds(t *testing.T) {
	// A->B twice: dep = 2/3.
	l := makeLog([]string{"A", "B"}, []string{"A", "B"})

	tests := []struct {
		name       string
		dep        float64
		positive   float64
		expectEdge bool
	}{
		{"both pass", 0.5, 1.0, true},
		{"dependency equal", Dependency(2, 0), 1.0, false},
		{"observations equal", 0.5, 2.0, false},
		{"observations below", 0.5, 0, true},
		{"threshold one", 1.0, 0, false},
		{"threshold above one", 1.5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewHeuristicMiner(tt.dep, tt.positive).Mine(l)
			if g.HasEdge("A", "B") != tt.expectEdge {
				t.Errorf("HasEdge(A,B) = %v, want %v", g.HasEdge("A", "B"), tt.expectEdge)
			}
		})
	}
}

func TestHeuristicMiner_NoSelfLoops(t *testing.T) {
	l := makeLog([]string{"A", "A", "A", "A", "A"})
	g := NewHeuristicMiner(-1, -1).Mine(l)
	if g.HasEdge("A", "A") {
		t.Error("Heuristic miner must skip self-pairs")
	}
}

func TestHeuristicMiner_EdgePresenceMatchesDefinition(t *testing.T) {
	l := makeLog(
		[]string{"A", "B", "C", "D"},
		[]string{"A", "B", "C", "D"},
		[]string{"A", "C", "B", "D"},
		[]string{"A", "B", "D"},
	)
	m := NewHeuristicMiner(0.3, 1.0)
	g := m.Mine(l)
	tc := countTransitions(l)

	for _, a := range l.Activities() {
		for _, b := range l.Activities() {
			if a == b {
				continue
			}
			ab, ba := tc.get(a, b), tc.get(b, a)
			want := Dependency(ab, ba) > 0.3 && float64(ab) > 1.0
			if g.HasEdge(a, b) != want {
				t.Errorf("edge %s->%s present=%v, want %v (ab=%d ba=%d)", a, b, g.HasEdge(a, b), want, ab, ba)
			}
		}
	}
}

func TestDependency(t *testing.T) {
	tests := []struct {
		ab, ba int
		want   float64
	}{
		{0, 0, 0},
		{1, 1, 0},
		{1, 0, 0.5},
		{0, 1, -0.5},
		{9, 0, 0.9},
		{3, 1, 0.4},
	}

	for _, tt := range tests {
		if got := Dependency(tt.ab, tt.ba); got != tt.want {
			t.Errorf("Dependency(%d,%d) = %v, want %v", tt.ab, tt.ba, got, tt.want)
		}
	}
}

func TestFrequencyAnalyzer_Sums(t *testing.T) {
	l := makeLog(
		[]string{"A", "B", "C"},
		[]string{"A", "B", "C"},
		[]string{"A", "C"},
		[]string{},
	)

	m := NewFrequencyAnalyzer().Analyze(l)

	activitySum := 0
	for _, c := range m.ActivityFrequency {
		activitySum += c
	}
	if activitySum != l.EventCount() {
		t.Errorf("Activity sum %d != event count %d", activitySum, l.EventCount())
	}

	variantSum := 0
	for _, c := range m.VariantFrequency {
		variantSum += c
	}
	if variantSum != l.Len() {
		t.Errorf("Variant sum %d != trace count %d", variantSum, l.Len())
	}

	if len(m.VariantFrequency) != 3 {
		t.Errorf("Expected 3 variants, got %d", len(m.VariantFrequency))
	}
	if m.VariantFrequency["A->B->C"] != 2 {
		t.Errorf("Expected A->B->C twice, got %d", m.VariantFrequency["A->B->C"])
	}
	if m.TransitionCount("A", "B") != 2 || m.TransitionCount("A", "C") != 1 {
		t.Errorf("Unexpected transition counts: %v", m.TransitionFrequency)
	}
}

func TestFrequencyAnalyzer_TopVariants(t *testing.T) {
	l := makeLog(
		[]string{"A", "C"},
		[]string{"A", "B"},
		[]string{"A", "B"},
	)

	top := NewFrequencyAnalyzer().Analyze(l).TopVariants(0)
	if len(top) != 2 {
		t.Fatalf("Expected 2 variants, got %d", len(top))
	}
	if top[0].Key != "A->B" || top[0].Count != 2 {
		t.Errorf("Unexpected top variant: %+v", top[0])
	}
	if top[1].Percent < 33.3 || top[1].Percent > 33.4 {
		t.Errorf("Unexpected percent: %v", top[1].Percent)
	}

	if got := NewFrequencyAnalyzer().Analyze(l).TopVariants(1); len(got) != 1 {
		t.Errorf("Expected 1 variant, got %d", len(got))
	}
}

func TestFrequencyAnalyzer_BuildProcessGraph(t *testing.T) {
	l := makeLog(
		[]string{"A", "B", "C"},
		[]string{"A", "B", "C"},
		[]string{"A", "C"},
	)
	a := NewFrequencyAnalyzer()
	m := a.Analyze(l)

	g := a.BuildProcessGraph(m, 0)
	if g.NodeCount() != 3 || g.EdgeCount() != 3 {
		t.Errorf("Expected 3 nodes/3 edges, got %d/%d", g.NodeCount(), g.EdgeCount())
	}
	e, _ := g.Edge("A", "B")
	if e.Weight != 2 {
		t.Errorf("Expected raw count weight 2, got %v", e.Weight)
	}

	g = a.BuildProcessGraph(m, 1)
	if g.EdgeCount() != 2 || g.HasEdge("A", "C") {
		t.Errorf("Threshold 1 must drop single transitions, got %v", g.Edges())
	}
	if g.NodeCount() != 3 {
		t.Errorf("Nodes must be kept regardless of threshold, got %d", g.NodeCount())
	}
}

func TestVariantKey_Injective(t *testing.T) {
	seqs := [][]string{
		{},
		{""},
		{"", ""},
		{"A"},
		{"A", "B"},
		{"A->B"},
		{"A-", ">B"},
		{"A-", "B"},
		{`A\`, "B"},
		{`""`},
	}

	seen := make(map[string][]string)
	for _, s := range seqs {
		key := VariantKey(s)
		if prev, ok := seen[key]; ok {
			t.Errorf("Key collision %q for %v and %v", key, prev, s)
		}
		seen[key] = s
	}
}

func TestNewMiner(t *testing.T) {
	for _, name := range []string{"alpha", "heuristic", "frequency", "DFG"} {
		m, err := New(ParseAlgorithm(name), DefaultOptions())
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if m.Mine(eventlog.New()).NodeCount() != 0 {
			t.Errorf("%s: empty log should mine an empty graph", name)
		}
	}

	_, err := New(ParseAlgorithm("petri"), DefaultOptions())
	if !errors.IsCode(err, errors.CodeUnknownAlgorithm) {
		t.Errorf("Expected unknown algorithm error, got %v", err)
	}
}

func TestMiners_DeterministicDOT(t *testing.T) {
	l := referenceLog()
	for _, alg := range []Algorithm{AlgorithmAlpha, AlgorithmHeuristic, AlgorithmFrequency} {
		m, _ := New(alg, DefaultOptions())
		if m.Mine(l).DOT() != m.Mine(l).DOT() {
			t.Errorf("%s: DOT output is not deterministic", alg)
		}
		nodes := m.Mine(l).Nodes()
		sort.Strings(nodes)
		if len(nodes) != 4 {
			t.Errorf("%s: expected 4 nodes, got %v", alg, nodes)
		}
	}
}
