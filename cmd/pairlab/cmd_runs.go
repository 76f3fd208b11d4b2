package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pairlab/internal/domain"
	"pairlab/internal/report"
)

var (
	runsLimit int

	runsCmd = &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored backtest runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRuns,
	}
)

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "runs to list (0 for all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		runs, err := a.db.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.Runs(runs))
		return nil
	}

	run, err := a.db.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, report.Runs([]domain.RunSummary{*run}))
	fmt.Fprintf(out, "params %s\n", run.Params)

	rows, err := a.bars.ReadRunTable(ctx, run.ID)
	if err != nil {
		return err
	}
	equity := make([]float64, len(rows))
	for i, r := range rows {
		equity[i] = r.Equity
	}
	fmt.Fprintf(out, "equity %s\n", report.Sparkline(equity, report.SparklineWidth))
	return nil
}
