// Package analysis runs the end-to-end mining workflow: load a log, mine a
// model, compute frequency statistics, replay the log against a model and
// persist the resulting report.
package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/conformance"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/graph"
	"github.com/logflow/procmine/pkg/metrics"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/results"
	"github.com/logflow/procmine/pkg/store"
	"github.com/logflow/procmine/pkg/telemetry"
)

// DefaultTopN is the number of variants and activities kept in reports.
const DefaultTopN = 10

// Source names where a log comes from: a file, or a query against the
// runner's store when Query is set.
type Source struct {
	Path   string
	Format parser.Format
	Query  string
}

// String returns a short label for the source.
func (s Source) String() string {
	if s.Query != "" {
		return "sql:" + s.Query
	}
	return s.Path
}

// Result is the outcome of one run.
type Result struct {
	Log         *eventlog.Log
	Model       *graph.Graph
	Frequency   *mining.FrequencyMetrics
	Conformance []conformance.Result
	Report      *results.Report
}

// Runner executes mining runs with one configuration. A Runner holds no
// per-run state and may be shared by concurrent runs.
type Runner struct {
	algorithm mining.Algorithm
	options   mining.Options
	columns   parser.Config
	workers   int
	topN      int

	store   *store.Store
	backend results.Backend
	metrics metrics.Exporter
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets the store used for query sources.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithBackend sets where reports are saved.
func WithBackend(b results.Backend) Option {
	return func(r *Runner) { r.backend = b }
}

// WithMetrics sets the metrics exporter.
func WithMetrics(m metrics.Exporter) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTopN sets how many variants and activities reports keep.
func WithTopN(n int) Option {
	return func(r *Runner) { r.topN = n }
}

// NewRunner creates a runner from cfg.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	alg := mining.ParseAlgorithm(cfg.Mining.Algorithm)
	if alg == mining.AlgorithmUnknown {
		return nil, errors.New(errors.CodeUnknownAlgorithm, "unknown mining algorithm").
			WithContext("algorithm", cfg.Mining.Algorithm)
	}

	r := &Runner{
		algorithm: alg,
		options:   MiningOptions(cfg.Mining),
		columns:   ParserConfig(cfg.Columns),
		workers:   cfg.Mining.Workers,
		topN:      DefaultTopN,
		backend:   results.Discard{},
		metrics:   metrics.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ParserConfig converts the columns section of the configuration.
func ParserConfig(c config.ColumnsConfig) parser.Config {
	pc := parser.Config{
		CaseIDColumn:    c.CaseID,
		ActivityColumn:  c.Activity,
		TimestampColumn: c.Timestamp,
		ResourceColumn:  c.Resource,
		TimestampFormat: c.TimestampFormat,
		Delimiter:       ',',
	}
	if len(c.Delimiter) == 1 {
		pc.Delimiter = rune(c.Delimiter[0])
	}
	return pc
}

// MiningOptions converts the mining section of the configuration.
func MiningOptions(c config.MiningConfig) mining.Options {
	return mining.Options{
		DependencyThreshold:           c.DependencyThreshold,
		PositiveObservationsThreshold: c.PositiveObservationsThreshold,
		FrequencyThreshold:            c.FrequencyThreshold,
	}
}

// Algorithm returns the configured algorithm.
func (r *Runner) Algorithm() mining.Algorithm {
	return r.algorithm
}

// Load reads the log named by src.
func (r *Runner) Load(ctx context.Context, src Source) (*eventlog.Log, error) {
	ctx, span := telemetry.StartSpan(ctx, "procmine.load", attribute.String("source", src.String()))
	defer span.End()
	start := time.Now()

	var (
		log *eventlog.Log
		err error
	)
	if src.Query != "" {
		if r.store == nil {
			err = errors.New(errors.CodeInvalidConfig, "query source requires a store")
		} else {
			log, err = r.store.ReadLog(ctx, src.Query, r.columns)
		}
	} else {
		log, err = parser.ReadFile(ctx, src.Path, src.Format, r.columns)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	tags := map[string]string{metrics.TagSource: src.String()}
	r.metrics.Timer(metrics.MetricLoadDuration, time.Since(start), tags)
	r.metrics.Counter(metrics.MetricTraces, int64(log.Len()), tags)
	r.metrics.Counter(metrics.MetricEvents, int64(log.EventCount()), tags)
	telemetry.SetAttributes(ctx,
		attribute.Int("traces", log.Len()),
		attribute.Int("events", log.EventCount()),
	)
	return log, nil
}

// Mine discovers a model from log with the configured algorithm.
func (r *Runner) Mine(ctx context.Context, log *eventlog.Log) *graph.Graph {
	_, span := telemetry.StartSpan(ctx, "procmine.mine", attribute.String("algorithm", r.algorithm.String()))
	defer span.End()
	start := time.Now()

	// The algorithm was validated by NewRunner.
	miner, _ := mining.New(r.algorithm, r.options)
	model := miner.Mine(log)

	tags := map[string]string{metrics.TagAlgorithm: r.algorithm.String()}
	r.metrics.Timer(metrics.MetricMineDuration, time.Since(start), tags)
	r.metrics.Gauge(metrics.MetricModelNodes, float64(model.NodeCount()), tags)
	r.metrics.Gauge(metrics.MetricModelEdges, float64(model.EdgeCount()), tags)
	span.SetAttributes(
		attribute.Int("nodes", model.NodeCount()),
		attribute.Int("edges", model.EdgeCount()),
	)
	return model
}

// Check replays log against model.
func (r *Runner) Check(ctx context.Context, model *graph.Graph, log *eventlog.Log) []conformance.Result {
	_, span := telemetry.StartSpan(ctx, "procmine.check")
	defer span.End()
	start := time.Now()

	res := conformance.NewChecker(model).CheckLog(log)

	sum := conformance.Summarize(res)
	r.metrics.Timer(metrics.MetricCheckDuration, time.Since(start), nil)
	r.metrics.Gauge(metrics.MetricFitness, sum.AverageFitness, nil)
	span.SetAttributes(attribute.Float64("fitness", sum.AverageFitness))
	return res
}

// Run loads src, mines a model from it and replays the log against its own
// model. The report is saved to the backend.
func (r *Runner) Run(ctx context.Context, src Source) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "procmine.run")
	defer span.End()

	started := time.Now()
	log, err := r.Load(ctx, src)
	if err != nil {
		r.metrics.Counter(metrics.MetricRunsFailed, 1, nil)
		return nil, err
	}
	model := r.Mine(ctx, log)
	return r.finish(ctx, src, log, model, started)
}

// CheckAgainst mines a model from reference and replays src against it.
func (r *Runner) CheckAgainst(ctx context.Context, src, reference Source) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "procmine.check_against")
	defer span.End()

	started := time.Now()
	ref, err := r.Load(ctx, reference)
	if err != nil {
		r.metrics.Counter(metrics.MetricRunsFailed, 1, nil)
		return nil, err
	}
	model := r.Mine(ctx, ref)

	log, err := r.Load(ctx, src)
	if err != nil {
		r.metrics.Counter(metrics.MetricRunsFailed, 1, nil)
		return nil, err
	}
	res, err := r.finish(ctx, src, log, model, started)
	if err != nil {
		return nil, err
	}
	res.Report.Metadata["reference"] = reference.String()
	return res, nil
}

func (r *Runner) finish(ctx context.Context, src Source, log *eventlog.Log, model *graph.Graph, started time.Time) (*Result, error) {
	freq := mining.NewFrequencyAnalyzer().Analyze(log)
	checks := r.Check(ctx, model, log)
	summary := conformance.Summarize(checks)

	r.metrics.Counter(metrics.MetricVariants, int64(len(freq.VariantFrequency)),
		map[string]string{metrics.TagSource: src.String()})

	report := results.NewReport(src.String(), r.algorithm.String())
	report.Traces = log.Len()
	report.Events = log.EventCount()
	report.Activities = len(freq.ActivityFrequency)
	report.Variants = len(freq.VariantFrequency)
	report.Nodes = model.NodeCount()
	report.Edges = model.EdgeCount()
	report.Model = model.DOT()
	report.TopVariants = freq.TopVariants(r.topN)
	report.TopActivities = freq.TopActivities(r.topN)
	report.Conformance = &summary
	report.DurationMS = time.Since(started).Milliseconds()

	if err := r.backend.Save(ctx, report); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	return &Result{
		Log:         log,
		Model:       model,
		Frequency:   freq,
		Conformance: checks,
		Report:      report,
	}, nil
}
