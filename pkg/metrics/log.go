package metrics

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogMetrics writes metrics as lines on a logger.
type LogMetrics struct {
	mu         sync.Mutex
	logger     *log.Logger
	prefix     string
	minLevel   LogLevel
	buffer     []string
	bufferSize int
}

// LogLevel controls which metrics are logged.
type LogLevel int

const (
	LogLevelAll LogLevel = iota
	LogLevelTimers
	LogLevelNone
)

// LogMetricsOption configures LogMetrics.
type LogMetricsOption func(*LogMetrics)

// WithPrefix sets the line prefix.
func WithPrefix(prefix string) LogMetricsOption {
	return func(m *LogMetrics) {
		m.prefix = prefix
	}
}

// WithLogger sets the destination logger (default: the standard logger).
func WithLogger(l *log.Logger) LogMetricsOption {
	return func(m *LogMetrics) {
		m.logger = l
	}
}

// WithMinLevel sets the minimum log level.
func WithMinLevel(level LogLevel) LogMetricsOption {
	return func(m *LogMetrics) {
		m.minLevel = level
	}
}

// WithBufferSize batches lines until size are pending.
func WithBufferSize(size int) LogMetricsOption {
	return func(m *LogMetrics) {
		m.bufferSize = size
	}
}

// NewLogMetrics creates a new log-based metrics exporter.
func NewLogMetrics(opts ...LogMetricsOption) *LogMetrics {
	m := &LogMetrics{
		logger:   log.Default(),
		prefix:   "[metrics]",
		minLevel: LogLevelAll,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Counter logs a counter metric.
func (m *LogMetrics) Counter(name string, value int64, tags map[string]string) {
	if m.minLevel >= LogLevelTimers {
		return
	}
	m.log("counter", name, fmt.Sprintf("%d", value), tags)
}

// Gauge logs a gauge metric.
func (m *LogMetrics) Gauge(name string, value float64, tags map[string]string) {
	if m.minLevel >= LogLevelTimers {
		return
	}
	m.log("gauge", name, fmt.Sprintf("%.4f", value), tags)
}

// Timer logs a timer metric.
func (m *LogMetrics) Timer(name string, duration time.Duration, tags map[string]string) {
	if m.minLevel >= LogLevelNone {
		return
	}
	m.log("timer", name, duration.String(), tags)
}

// Flush outputs any buffered metrics.
func (m *LogMetrics) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()
	return nil
}

func (m *LogMetrics) flushLocked() {
	for _, line := range m.buffer {
		m.logger.Println(line)
	}
	m.buffer = nil
}

func (m *LogMetrics) log(metricType, name, value string, tags map[string]string) {
	line := fmt.Sprintf("%s %s %s=%s%s", m.prefix, metricType, name, value, formatTags(tags))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bufferSize <= 0 {
		m.logger.Println(line)
		return
	}
	m.buffer = append(m.buffer, line)
	if len(m.buffer) >= m.bufferSize {
		m.flushLocked()
	}
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

var _ Exporter = (*LogMetrics)(nil)
var _ Exporter = Noop{}
