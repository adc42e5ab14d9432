package analysis

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/metrics"
	"github.com/logflow/procmine/pkg/results"
	"github.com/logflow/procmine/pkg/store"
)

// Cases ABC, ABC, ACB, AD as rows in interleaved order.
const referenceCSV = `case_id,activity,timestamp
1,A,2024-03-01 09:00:00
2,A,2024-03-01 09:01:00
1,B,2024-03-01 09:02:00
3,A,2024-03-01 09:03:00
2,B,2024-03-01 09:04:00
1,C,2024-03-01 09:05:00
3,C,2024-03-01 09:06:00
2,C,2024-03-01 09:07:00
3,B,2024-03-01 09:08:00
4,A,2024-03-01 09:09:00
4,D,2024-03-01 09:10:00
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRunner(t *testing.T, algorithm string, opts ...Option) *Runner {
	t.Helper()
	cfg := config.Default()
	cfg.Mining.Algorithm = algorithm
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "log.csv", referenceCSV)

	backend, err := results.NewLocalBackend(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	m := metrics.NewLogMetrics(metrics.WithLogger(log.New(&buf, "", 0)))

	r := newRunner(t, "alpha", WithBackend(backend), WithMetrics(m), WithTopN(2))
	res, err := r.Run(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Model.NodeCount() != 4 || res.Model.EdgeCount() != 5 {
		t.Errorf("Expected 4 nodes and 5 edges, got %d and %d", res.Model.NodeCount(), res.Model.EdgeCount())
	}
	rep := res.Report
	if rep.Traces != 4 || rep.Events != 11 || rep.Variants != 3 || rep.Activities != 4 {
		t.Errorf("Unexpected report stats: %+v", rep)
	}
	if len(rep.TopVariants) != 2 || rep.TopVariants[0].Count != 2 {
		t.Errorf("Expected top variant with count 2, got %+v", rep.TopVariants)
	}
	if rep.Conformance == nil || rep.Conformance.AverageFitness != 1 {
		t.Errorf("A log replayed on its own directly-follows graph should fit, got %+v", rep.Conformance)
	}
	if !strings.HasPrefix(rep.Model, "digraph ProcessModel {") {
		t.Errorf("Unexpected model text %q", rep.Model)
	}

	saved, err := backend.Load(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("Report was not saved: %v", err)
	}
	if saved.Source != path || saved.Algorithm != "alpha" {
		t.Errorf("Unexpected saved report %+v", saved)
	}

	out := buf.String()
	for _, want := range []string{"counter procmine.log.traces=4", "gauge procmine.model.edges=5.0000", "timer procmine.mine.duration="} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunner_HeuristicSelfCheck(t *testing.T) {
	path := writeFile(t, t.TempDir(), "log.csv", referenceCSV)

	r := newRunner(t, "heuristic")
	res, err := r.Run(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	// No pair reaches a dependency above 0.9 with default thresholds, so
	// only the terminal activity of each trace matches.
	if res.Model.NodeCount() != 4 || res.Model.EdgeCount() != 0 {
		t.Errorf("Expected 4 nodes and no edges, got %d and %d", res.Model.NodeCount(), res.Model.EdgeCount())
	}
	if res.Report.Conformance.FittingTraces != 0 {
		t.Errorf("Expected no fitting traces, got %d", res.Report.Conformance.FittingTraces)
	}
	if got := res.Conformance[3].Fitness; got != 0.5 {
		t.Errorf("Expected fitness 0.5 for trace AD, got %v", got)
	}
}

func TestRunner_CheckAgainst(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.csv", referenceCSV)
	input := writeFile(t, dir, "input.csv", "case_id,activity\nx,A\nx,B\nx,C\ny,A\ny,C\ny,D\n")

	r := newRunner(t, "alpha")
	res, err := r.CheckAgainst(context.Background(), Source{Path: input}, Source{Path: ref})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Conformance) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(res.Conformance))
	}
	if res.Conformance[0].Fitness != 1 {
		t.Errorf("Expected trace x to fit, got %v", res.Conformance[0].Fitness)
	}
	y := res.Conformance[1]
	if len(y.Violations) != 1 || y.Violations[0] != "transition from 'C' to 'D' not found in model" {
		t.Errorf("Unexpected violations for y: %v", y.Violations)
	}
	if res.Report.Metadata["reference"] != ref {
		t.Errorf("Expected reference metadata, got %v", res.Report.Metadata)
	}
}

func TestRunner_QuerySource(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r := newRunner(t, "alpha", WithStore(s))
	seed, err := r.Load(ctx, Source{Path: writeFile(t, t.TempDir(), "log.csv", referenceCSV)})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLog(ctx, seed, "events"); err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(ctx, Source{Query: store.TableQuery("events")})
	if err != nil {
		t.Fatalf("Run from store failed: %v", err)
	}
	if res.Log.Len() != 4 || res.Model.EdgeCount() != 5 {
		t.Errorf("Unexpected result from store: %d traces, %d edges", res.Log.Len(), res.Model.EdgeCount())
	}
}

func TestRunner_QueryWithoutStore(t *testing.T) {
	r := newRunner(t, "alpha")
	_, err := r.Run(context.Background(), Source{Query: "SELECT 1"})
	if !errors.IsCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Expected invalid config error, got %v", err)
	}
}

func TestNewRunner_UnknownAlgorithm(t *testing.T) {
	cfg := config.Default()
	cfg.Mining.Algorithm = "inductive"
	if _, err := NewRunner(cfg); !errors.IsCode(err, errors.CodeUnknownAlgorithm) {
		t.Errorf("Expected unknown algorithm error, got %v", err)
	}
}

func TestParserConfig(t *testing.T) {
	c := config.Default().Columns
	c.CaseID = "order"
	c.Delimiter = ";"
	pc := ParserConfig(c)
	if pc.CaseIDColumn != "order" || pc.Delimiter != ';' || pc.ActivityColumn != "activity" {
		t.Errorf("Unexpected parser config %+v", pc)
	}
}

func TestRunner_RunBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.csv", referenceCSV)
	other := writeFile(t, dir, "b.csv", "case_id,activity\n1,X\n1,Y\n")
	missing := filepath.Join(dir, "missing.csv")

	r := newRunner(t, "frequency")
	var calls int
	out, err := r.RunBatch(context.Background(), []Source{{Path: good}, {Path: missing}, {Path: other}}, BatchOptions{
		Workers: 1,
		OnDone:  func(done int, res BatchResult) { calls = done },
	})

	if err == nil || !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("Expected file not found error, got %v", err)
	}
	if len(out) != 3 || calls != 3 {
		t.Fatalf("Expected 3 results and callbacks, got %d and %d", len(out), calls)
	}
	if out[0].Err != nil || out[0].Result.Model.EdgeCount() != 5 {
		t.Errorf("Unexpected first result: %+v", out[0])
	}
	if out[1].Err == nil || out[1].Source.Path != missing {
		t.Errorf("Expected failure for missing source, got %+v", out[1])
	}
	if out[2].Err != nil || out[2].Result.Model.EdgeCount() != 1 {
		t.Errorf("Unexpected third result: %+v", out[2])
	}
}
