package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/analysis"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/tui"
)

// Command flags
var (
	inputFile      string
	outputFile     string
	formatFlag     string
	modelLog       string
	topN           int
	showViolations int
	jsonOutput     bool
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Discover a process graph from an event log",
	Long: `Mine a process graph from an event log and write it as Graphviz DOT.

Without -o the DOT text is printed to stdout.

Examples:
  procmine mine -i orders.csv -o orders.dot
  procmine mine -i orders.xes --algorithm heuristic --dependency-threshold 0.5
  procmine mine --sql "SELECT * FROM events" --store-dsn events.duckdb`,
	RunE: runMine,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show activity and variant frequencies of an event log",
	Long: `Analyze an event log: trace, event and variant counts, the most frequent
variants and activities, and how well the log fits its own mined model.`,
	RunE: runAnalyze,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check an event log against a model mined from a reference log",
	Long: `Mine a model from the reference log, then replay every trace of the input
log against it and report fitness and deviating transitions.

Examples:
  procmine check -i march.csv --model-log reference.csv
  procmine check -i march.csv --model-log reference.csv --algorithm heuristic --show-violations 0`,
	RunE: runCheck,
}

func init() {
	for _, cmd := range []*cobra.Command{mineCmd, analyzeCmd, checkCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input log path")
		cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx, parquet) - auto-detected if not specified")
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	}

	mineCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output DOT file")

	analyzeCmd.Flags().IntVar(&topN, "top", analysis.DefaultTopN, "Number of variants and activities to show")

	checkCmd.Flags().StringVar(&modelLog, "model-log", "", "Reference log the model is mined from (required)")
	checkCmd.Flags().IntVar(&showViolations, "show-violations", 10, "Deviating traces to list (0 = all)")
	checkCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output DOT file for the reference model")
	checkCmd.MarkFlagRequired("model-log")

	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(checkCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	src, err := source(inputFile, formatFlag)
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

	res, err := a.runner.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFile == "" {
		fmt.Fprint(out, res.Model.DOT())
		return nil
	}
	if err := writeModel(outputFile, res.Model.DOT()); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, res.Report)
	}
	tui.PrintReport(out, res.Report)
	tui.PrintSuccess(out, "Model written to "+outputFile)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	src, err := source(inputFile, formatFlag)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, false, analysis.WithTopN(topN))
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runner.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, res.Report)
	}
	tui.PrintReport(cmd.OutOrStdout(), res.Report)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	src, err := source(inputFile, formatFlag)
	if err != nil {
		return err
	}
	if modelLog == "" {
		return errors.New(errors.CodeInvalidConfig, "--model-log is required")
	}
	ref := analysis.Source{Path: modelLog}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runner.CheckAgainst(ctx, src, ref)
	if err != nil {
		return fmt.Errorf("conformance check failed: %w", err)
	}

	if outputFile != "" {
		if err := writeModel(outputFile, res.Model.DOT()); err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(cmd, struct {
			Report any `json:"report"`
			Traces any `json:"traces"`
		}{res.Report, res.Conformance})
	}

	out := cmd.OutOrStdout()
	tui.PrintReport(out, res.Report)
	tui.PrintViolations(out, res.Conformance, showViolations)
	fmt.Fprintln(out)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to encode report")
	}
	return nil
}
