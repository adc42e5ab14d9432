package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/results"
	"github.com/logflow/procmine/pkg/tui"
)

var showModel bool

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List, show and delete persisted mining reports",
	Long: `Read reports from the configured results backend (local, redis or s3).

Examples:
  procmine reports list --results local
  procmine reports show 3f0c... --dot | dot -Tpng -o model.png
  procmine reports delete 3f0c...`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsDelete,
}

func init() {
	reportsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print reports as JSON")
	reportsShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	reportsShowCmd.Flags().BoolVar(&showModel, "dot", false, "Print only the model as DOT")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}

// openBackend opens only the results backend; reports need no runner.
func openBackend(cmd *cobra.Command) (results.Backend, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	b, err := results.New(context.Background(), cfg.Results)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if c, ok := b.(io.Closer); ok {
			c.Close()
		}
	}
	return b, closeFn, nil
}

func runReportsList(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	reports, err := b.List(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, reports)
	}
	tui.PrintReportList(cmd.OutOrStdout(), reports)
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := b.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	switch {
	case showModel:
		fmt.Fprint(cmd.OutOrStdout(), r.Model)
	case jsonOutput:
		return printJSON(cmd, r)
	default:
		tui.PrintReport(cmd.OutOrStdout(), r)
	}
	return nil
}

func runReportsDelete(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := b.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	tui.PrintSuccess(cmd.OutOrStdout(), "Deleted report "+args[0])
	return nil
}
