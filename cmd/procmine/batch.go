package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/analysis"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/tui"
	"github.com/logflow/procmine/pkg/watch"
)

var (
	batchOutputDir  string
	parallelWorkers int
	failFast        bool
	watchInterval   time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Mine multiple event logs in parallel",
	Long: `Mine multiple event logs concurrently and print one summary line per log.

Supports glob patterns. With -o, each model is written as <name>.dot.

Examples:
  procmine batch logs/*.csv
  procmine batch -o models/ -w 4 jan.xes feb.xes mar.xes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch [files...]",
	Short: "Re-mine event logs whenever they change",
	Long: `Watch event log files and re-mine each one when it is written, writing the
model next to it (or into -o) as <name>.dot.

Examples:
  procmine watch live.csv
  procmine watch -o models/ --algorithm heuristic logs/*.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutputDir, "output", "o", "", "Output directory for DOT models")
	batchCmd.Flags().IntVarP(&parallelWorkers, "workers", "w", runtime.NumCPU(), "Number of parallel workers")
	batchCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop on first error")
	batchCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (auto-detect if not specified)")

	watchCmd.Flags().StringVarP(&batchOutputDir, "output", "o", "", "Output directory for DOT models (default: next to input)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultDebounce, "Debounce interval for change detection")
	watchCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (auto-detect if not specified)")

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
}

// expandInputs resolves glob patterns; patterns without matches are kept
// when they name an existing file.
func expandInputs(cmd *cobra.Command, patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid glob pattern").
				WithContext("pattern", pattern)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: no files match pattern %q\n", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, errors.New(errors.CodeFileNotFound, "no input files found")
	}
	return files, nil
}

func modelPath(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".dot"
	return filepath.Join(dir, base)
}

func runBatch(cmd *cobra.Command, args []string) error {
	files, err := expandInputs(cmd, args)
	if err != nil {
		return err
	}

	var format parser.Format
	if formatFlag != "" {
		if format = parser.ParseFormat(formatFlag); format == parser.FormatUnknown {
			return errors.New(errors.CodeInvalidFormat, "unknown input format").WithContext("format", formatFlag)
		}
	}
	sources := make([]analysis.Source, len(files))
	for i, f := range files {
		sources[i] = analysis.Source{Path: f, Format: format}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mining %d logs with %d workers...\n\n", len(files), parallelWorkers)

	bar := tui.ShowProgress(cmd.ErrOrStderr(), int64(len(files)), "mining")
	var barMu sync.Mutex
	start := time.Now()

	results, batchErr := a.runner.RunBatch(ctx, sources, analysis.BatchOptions{
		Workers:  parallelWorkers,
		FailFast: failFast,
		OnDone: func(done int, res analysis.BatchResult) {
			barMu.Lock()
			bar.Add(1)
			barMu.Unlock()
		},
	})
	bar.Finish()

	succeeded := 0
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		succeeded++
		fmt.Fprintf(out, "  %s\n", r.Result.Report)
		if batchOutputDir != "" {
			if err := writeModel(modelPath(batchOutputDir, r.Source.Path), r.Result.Model.DOT()); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "=== Batch Mining Complete ===\n\n")
	fmt.Fprintf(out, "  Total logs:  %d\n", len(files))
	fmt.Fprintf(out, "  Succeeded:   %d\n", succeeded)
	fmt.Fprintf(out, "  Failed:      %d\n", len(files)-succeeded)
	fmt.Fprintf(out, "  Duration:    %v\n", time.Since(start).Round(time.Millisecond))

	if batchErr != nil {
		fmt.Fprintln(out, "\nErrors:")
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "  %s: %v\n", filepath.Base(r.Source.Path), r.Err)
			}
		}
		return fmt.Errorf("%d logs failed to mine: %w", len(files)-succeeded, batchErr)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	files, err := expandInputs(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	remine := &watch.Remine{
		Runner:    a.runner,
		Format:    parser.ParseFormat(formatFlag),
		OutputDir: batchOutputDir,
		OnResult: func(path string, res *analysis.Result) {
			fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), res.Report)
		},
	}
	if batchOutputDir != "" {
		if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to create output directory")
		}
	}

	w, err := watch.NewWatcher(watch.WithDebounce(watchInterval))
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnChange = remine.Handle
	w.OnError = func(path string, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] Error: %s: %v\n", time.Now().Format("15:04:05"), path, err)
	}

	for _, f := range files {
		if err := w.Watch(f); err != nil {
			return err
		}
		if err := remine.Handle(ctx, f); err != nil {
			w.OnError(f, err)
		}
	}

	fmt.Fprintf(out, "Watching %d logs\n", len(files))
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
