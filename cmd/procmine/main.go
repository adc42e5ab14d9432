// Procmine - process discovery and conformance checking for event logs.
// Reads CSV, XES, XLSX and Parquet logs or SQL tables, mines process
// graphs and scores traces against them.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/analysis"
	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/metrics"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/results"
	"github.com/logflow/procmine/pkg/store"
	"github.com/logflow/procmine/pkg/telemetry"
	"github.com/logflow/procmine/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	cfgFile     string
	verbose     bool
	sqlQuery    string
	storeDriver string
	storeDSN    string

	// Mining flags
	algorithmFlag       string
	dependencyThreshold float64
	positiveThreshold   float64
	frequencyThreshold  float64

	// Column flags
	caseIDColumn    string
	activityColumn  string
	timestampColumn string
	resourceColumn  string
	timestampFormat string
	delimiter       string

	// Results flags
	resultsBackend string
	resultsDir     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "procmine",
	Short: "Procmine - discover process models from event logs",
	Long: `Procmine mines process graphs from event logs (CSV, XES, XLSX, Parquet or SQL)
and checks how well traces conform to them.

Run without arguments to launch the interactive wizard.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWizard,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.procmine/config.yaml, ./.procmine.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and metrics")
	pf.StringVar(&sqlQuery, "sql", "", "Read the log from the store with this query instead of a file")
	pf.StringVar(&storeDriver, "store-driver", "", "Store driver (duckdb, sqlite)")
	pf.StringVar(&storeDSN, "store-dsn", "", "Store data source name (file path; empty = in-memory)")

	pf.StringVar(&algorithmFlag, "algorithm", "", "Mining algorithm (alpha, heuristic, frequency)")
	pf.Float64Var(&dependencyThreshold, "dependency-threshold", 0, "Heuristic miner dependency threshold")
	pf.Float64Var(&positiveThreshold, "positive-threshold", 0, "Heuristic miner positive observations threshold")
	pf.Float64Var(&frequencyThreshold, "frequency-threshold", 0, "Minimum transition count for the frequency graph")

	pf.StringVar(&caseIDColumn, "case-id", "", "Case ID column name")
	pf.StringVar(&activityColumn, "activity", "", "Activity column name")
	pf.StringVar(&timestampColumn, "timestamp", "", "Timestamp column name")
	pf.StringVar(&resourceColumn, "resource", "", "Resource column name")
	pf.StringVar(&timestampFormat, "timestamp-format", "", "Timestamp format (Go time layout)")
	pf.StringVar(&delimiter, "delimiter", "", "CSV field delimiter")

	pf.StringVar(&resultsBackend, "results", "", "Results backend (none, local, redis, s3)")
	pf.StringVar(&resultsDir, "results-dir", "", "Directory for the local results backend")
}

// loadConfig reads configuration files and environment, then applies the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(cfgFile); err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	flags := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64, v float64) {
		if flags.Changed(name) {
			*dst = v
		}
	}

	setString("algorithm", &cfg.Mining.Algorithm, algorithmFlag)
	setFloat("dependency-threshold", &cfg.Mining.DependencyThreshold, dependencyThreshold)
	setFloat("positive-threshold", &cfg.Mining.PositiveObservationsThreshold, positiveThreshold)
	setFloat("frequency-threshold", &cfg.Mining.FrequencyThreshold, frequencyThreshold)

	setString("case-id", &cfg.Columns.CaseID, caseIDColumn)
	setString("activity", &cfg.Columns.Activity, activityColumn)
	setString("timestamp", &cfg.Columns.Timestamp, timestampColumn)
	setString("resource", &cfg.Columns.Resource, resourceColumn)
	setString("timestamp-format", &cfg.Columns.TimestampFormat, timestampFormat)
	setString("delimiter", &cfg.Columns.Delimiter, delimiter)

	setString("store-driver", &cfg.Store.Driver, storeDriver)
	setString("store-dsn", &cfg.Store.DSN, storeDSN)

	setString("results", &cfg.Results.Backend, resultsBackend)
	setString("results-dir", &cfg.Results.Dir, resultsDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles what a command needs to run and tears it down in Close.
type app struct {
	cfg      *config.Config
	runner   *analysis.Runner
	store    *store.Store
	backend  results.Backend
	metrics  metrics.Exporter
	shutdown func(context.Context) error
}

// newApp wires the store, results backend, metrics and tracing for cmd.
// The store is opened when a --sql source is used or needStore is set.
func newApp(ctx context.Context, cmd *cobra.Command, needStore bool, extra ...analysis.Option) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.Noop{}}
	if verbose {
		a.metrics = metrics.NewLogMetrics(metrics.WithLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags)))
	}

	a.shutdown, err = telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry))
	if err != nil {
		return nil, err
	}

	a.backend, err = results.New(ctx, cfg.Results)
	if err != nil {
		a.Close()
		return nil, err
	}

	if needStore || sqlQuery != "" {
		a.store, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	opts := []analysis.Option{analysis.WithBackend(a.backend), analysis.WithMetrics(a.metrics)}
	if a.store != nil {
		opts = append(opts, analysis.WithStore(a.store))
	}
	opts = append(opts, extra...)
	a.runner, err = analysis.NewRunner(cfg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases everything newApp opened.
func (a *app) Close() {
	if a.metrics != nil {
		a.metrics.Flush()
	}
	if a.store != nil {
		a.store.Close()
	}
	if c, ok := a.backend.(io.Closer); ok {
		c.Close()
	}
	if a.shutdown != nil {
		a.shutdown(context.Background())
	}
}

// source returns the log source for an input path, honoring --sql.
func source(path, format string) (analysis.Source, error) {
	if sqlQuery != "" {
		return analysis.Source{Query: sqlQuery}, nil
	}
	if path == "" {
		return analysis.Source{}, errors.New(errors.CodeInvalidConfig, "an input file (-i) or --sql query is required")
	}
	src := analysis.Source{Path: path}
	if format != "" {
		src.Format = parser.ParseFormat(format)
		if src.Format == parser.FormatUnknown {
			return analysis.Source{}, errors.New(errors.CodeInvalidFormat, "unknown input format").
				WithContext("format", format)
		}
	}
	return src, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// writeModel writes DOT text to path, creating parent directories.
func writeModel(path, dot string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to create output directory").
				WithContext("path", dir)
		}
	}
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write model").
			WithContext("path", path)
	}
	return nil
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	res, err := tui.RunWizard(cmd.InOrStdin(), cmd.OutOrStdout(), analysis.ParserConfig(cfg.Columns))
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	inputFile = res.InputFile
	outputFile = res.OutputFile
	answers := map[string]string{
		"algorithm": res.Algorithm,
		"case-id":   res.CaseID,
		"activity":  res.Activity,
		"timestamp": res.Timestamp,
		"resource":  res.Resource,
	}
	for name, value := range answers {
		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}

	return runMine(cmd, nil)
}
