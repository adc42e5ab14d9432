package metrics

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func newTestMetrics(opts ...LogMetricsOption) (*LogMetrics, *bytes.Buffer) {
	var buf bytes.Buffer
	opts = append([]LogMetricsOption{WithLogger(log.New(&buf, "", 0))}, opts...)
	return NewLogMetrics(opts...), &buf
}

func TestLogMetrics_Lines(t *testing.T) {
	m, buf := newTestMetrics()

	m.Counter(MetricTraces, 2, map[string]string{TagAlgorithm: "alpha", TagSource: "log.csv"})
	m.Gauge(MetricFitness, 0.75, nil)
	m.Timer(MetricMineDuration, 1500*time.Millisecond, nil)

	want := strings.Join([]string{
		"[metrics] counter procmine.log.traces=2 {algorithm=alpha, source=log.csv}",
		"[metrics] gauge procmine.conformance.fitness=0.7500",
		"[metrics] timer procmine.mine.duration=1.5s",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestLogMetrics_MinLevel(t *testing.T) {
	m, buf := newTestMetrics(WithMinLevel(LogLevelTimers))
	m.Counter("c", 1, nil)
	m.Gauge("g", 1, nil)
	m.Timer("t", time.Second, nil)

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("Expected only the timer line, got %d lines: %s", got, buf.String())
	}
}

func TestLogMetrics_Buffered(t *testing.T) {
	m, buf := newTestMetrics(WithBufferSize(3), WithPrefix("[pm]"))
	m.Counter("a", 1, nil)
	m.Counter("b", 2, nil)
	if buf.Len() != 0 {
		t.Fatalf("Expected nothing before buffer fills, got %q", buf.String())
	}

	m.Counter("c", 3, nil)
	if strings.Count(buf.String(), "[pm] counter") != 3 {
		t.Errorf("Expected 3 lines after buffer filled, got %q", buf.String())
	}

	m.Counter("d", 4, nil)
	m.Flush()
	if !strings.Contains(buf.String(), "[pm] counter d=4") {
		t.Errorf("Expected flushed line, got %q", buf.String())
	}
}
