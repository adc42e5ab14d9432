package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logflow/procmine/pkg/analysis"
	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/errors"
)

const sampleCSV = `case_id,activity,timestamp
1,A,2024-03-01 09:00:00
1,B,2024-03-01 09:01:00
`

func newRemine(t *testing.T, outDir string) *Remine {
	t.Helper()
	r, err := analysis.NewRunner(config.Default())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return &Remine{Runner: r, OutputDir: outDir}
}

func TestRemine_Handle(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "orders.csv")
	if err := os.WriteFile(input, []byte(sampleCSV), 0644); err != nil {
		t.Fatal(err)
	}

	m := newRemine(t, "")
	var got *analysis.Result
	m.OnResult = func(path string, res *analysis.Result) { got = res }

	if err := m.Handle(context.Background(), input); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got == nil || got.Report.Traces != 1 {
		t.Fatalf("Expected OnResult with 1 trace, got %+v", got)
	}

	out := filepath.Join(dir, "orders.dot")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected DOT output: %v", err)
	}
	if !strings.Contains(string(data), `"A" -> "B" [label="1"];`) {
		t.Errorf("Expected edge A->B in output, got %s", data)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be removed")
	}
}

func TestRemine_OutputPath(t *testing.T) {
	m := &Remine{OutputDir: "/out"}
	if got := m.OutputPath("/data/log.xes"); got != filepath.Join("/out", "log.dot") {
		t.Errorf("Expected /out/log.dot, got %s", got)
	}
	m.OutputDir = ""
	if got := m.OutputPath("/data/log.csv"); got != filepath.Join("/data", "log.dot") {
		t.Errorf("Expected /data/log.dot, got %s", got)
	}
}

func TestRemine_HandleMissingFile(t *testing.T) {
	m := newRemine(t, t.TempDir())
	err := m.Handle(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}
}

func TestWatcher_WatchMissingFile(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}
}

func TestWatcher_RemineOnWrite(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "live.csv")
	if err := os.WriteFile(input, []byte(sampleCSV), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(WithDebounce(50 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(input); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(w.Files()) != 1 {
		t.Fatalf("Expected 1 watched file, got %d", len(w.Files()))
	}

	m := newRemine(t, "")
	done := make(chan int, 1)
	m.OnResult = func(path string, res *analysis.Result) {
		select {
		case done <- res.Report.Traces:
		default:
		}
	}
	w.OnChange = m.Handle
	w.OnError = func(path string, err error) { t.Logf("watch error on %s: %v", path, err) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	appended := sampleCSV + "2,A,2024-03-01 10:00:00\n"
	if err := os.WriteFile(input, []byte(appended), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case traces := <-done:
		if traces != 2 {
			t.Errorf("Expected 2 traces after change, got %d", traces)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected re-mine after file change")
	}
}
