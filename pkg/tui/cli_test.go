package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logflow/procmine/pkg/conformance"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/results"
)

func sampleReport() *results.Report {
	r := results.NewReport("orders.csv", "alpha")
	r.Traces = 4
	r.Events = 11
	r.Variants = 3
	r.Nodes = 4
	r.Edges = 5
	r.DurationMS = 1500
	r.TopVariants = []mining.VariantCount{
		{Key: "A->B->C", Activities: []string{"A", "B", "C"}, Count: 2, Percent: 50},
	}
	r.TopActivities = []mining.ActivityCount{{Activity: "A", Count: 4, Percent: 36.4}}
	r.Conformance = &conformance.Summary{Traces: 4, FittingTraces: 3, AverageFitness: 0.917, Violations: 1}
	r.Metadata["reference"] = "ref.csv"
	return r
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	PrintReport(&buf, r)
	out := buf.String()

	for _, want := range []string{
		r.ID,
		"orders.csv",
		"4 nodes, 5 edges",
		"1.5s",
		"reference:",
		"0.917",
		"3/4 traces",
		"A → B → C",
		"36.4%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintViolations(t *testing.T) {
	checks := []conformance.Result{
		{CaseID: "1", Fitness: 1},
		{CaseID: "2", Fitness: 0.5, Violations: []string{conformance.ViolationMessage("C", "D")}},
		{CaseID: "3", Fitness: 0.5, Violations: []string{conformance.ViolationMessage("X", "Y")}},
	}

	var buf bytes.Buffer
	PrintViolations(&buf, checks, 1)
	out := buf.String()
	if !strings.Contains(out, "transition from 'C' to 'D' not found in model") {
		t.Errorf("Expected first violation, got:\n%s", out)
	}
	if strings.Contains(out, "'X'") {
		t.Errorf("Expected limit to hide the second deviating trace, got:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("Expected truncation marker, got:\n%s", out)
	}

	buf.Reset()
	PrintViolations(&buf, checks[:1], 0)
	if buf.Len() != 0 {
		t.Errorf("Expected no output for fitting traces, got %q", buf.String())
	}
}

func TestPrintReportList(t *testing.T) {
	var buf bytes.Buffer
	PrintReportList(&buf, nil)
	if !strings.Contains(buf.String(), "No reports.") {
		t.Errorf("Expected empty marker, got %q", buf.String())
	}

	buf.Reset()
	r := sampleReport()
	r.Conformance = nil
	PrintReportList(&buf, []*results.Report{r})
	if !strings.Contains(buf.String(), r.ID) || !strings.Contains(buf.String(), " - ") {
		t.Errorf("Expected report line with no fitness, got %q", buf.String())
	}
}

func TestRunWizard(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "log.csv")
	if err := os.WriteFile(input, []byte("case_id,activity,timestamp\n"), 0644); err != nil {
		t.Fatal(err)
	}

	answers := strings.Join([]string{
		`"` + input + `"`, // quoted like a drag & drop
		"heuristic",
		"",
		"task",
		"",
		"",
		"y",
	}, "\n") + "\n"

	var out bytes.Buffer
	res, err := RunWizard(strings.NewReader(answers), &out, parser.DefaultConfig())
	if err != nil {
		t.Fatalf("RunWizard failed: %v", err)
	}
	if res == nil {
		t.Fatal("Expected a result")
	}
	if res.InputFile != input {
		t.Errorf("Expected input %s, got %s", input, res.InputFile)
	}
	if res.OutputFile != filepath.Join(dir, "log.dot") {
		t.Errorf("Expected log.dot output, got %s", res.OutputFile)
	}
	if res.Algorithm != "heuristic" {
		t.Errorf("Expected heuristic, got %s", res.Algorithm)
	}
	if res.CaseID != parser.DefaultConfig().CaseIDColumn || res.Activity != "task" {
		t.Errorf("Unexpected column mapping: %+v", res)
	}
}

func TestRunWizard_Declined(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "log.csv")
	if err := os.WriteFile(input, nil, 0644); err != nil {
		t.Fatal(err)
	}

	answers := input + "\n\n\n\n\n\nn\n"
	var out bytes.Buffer
	res, err := RunWizard(strings.NewReader(answers), &out, parser.DefaultConfig())
	if err != nil || res != nil {
		t.Errorf("Expected nil result and no error, got %+v, %v", res, err)
	}
	if !strings.Contains(out.String(), "Cancelled.") {
		t.Errorf("Expected cancellation message")
	}
}

func TestRunWizard_MissingFile(t *testing.T) {
	var out bytes.Buffer
	_, err := RunWizard(strings.NewReader("/no/such/log.csv\n"), &out, parser.DefaultConfig())
	if err == nil {
		t.Error("Expected error for missing input")
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{formatNumber(999), "999"},
		{formatNumber(1500), "1.5K"},
		{formatNumber(2500000), "2.5M"},
		{formatBytes(512), "512 B"},
		{formatBytes(2048), "2.0 KB"},
		{formatDuration(250 * time.Millisecond), "250ms"},
		{formatDuration(90 * time.Second), "1m30s"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, tt.got)
		}
	}
}

func TestShowProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := ShowProgress(&buf, 3, "mining")
	for i := 0; i < 3; i++ {
		if err := bar.Add(1); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if !bar.IsFinished() {
		t.Error("Expected bar to be finished")
	}
}
