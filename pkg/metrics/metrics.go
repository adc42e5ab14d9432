// Package metrics exports counters, gauges and timers for mining runs.
package metrics

import "time"

// Exporter exports metrics to a monitoring backend.
type Exporter interface {
	// Counter increments a counter metric.
	Counter(name string, value int64, tags map[string]string)

	// Gauge sets a gauge metric to the specified value.
	Gauge(name string, value float64, tags map[string]string)

	// Timer records a duration.
	Timer(name string, duration time.Duration, tags map[string]string)

	// Flush sends any buffered metrics to the backend.
	Flush() error
}

// Metric names used throughout procmine.
const (
	MetricLoadDuration  = "procmine.load.duration"
	MetricMineDuration  = "procmine.mine.duration"
	MetricCheckDuration = "procmine.check.duration"
	MetricTraces        = "procmine.log.traces"
	MetricEvents        = "procmine.log.events"
	MetricVariants      = "procmine.log.variants"
	MetricModelNodes    = "procmine.model.nodes"
	MetricModelEdges    = "procmine.model.edges"
	MetricFitness       = "procmine.conformance.fitness"
	MetricRunsFailed    = "procmine.runs.failed"
)

// Tag names.
const (
	TagAlgorithm = "algorithm"
	TagSource    = "source"
)

// Noop discards all metrics.
type Noop struct{}

func (Noop) Counter(string, int64, map[string]string)       {}
func (Noop) Gauge(string, float64, map[string]string)       {}
func (Noop) Timer(string, time.Duration, map[string]string) {}
func (Noop) Flush() error                                   { return nil }
