package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pairlab/internal/engine"
	"pairlab/internal/report"
	"pairlab/internal/strategy"
)

var (
	sweepGrid    engine.Grid
	sweepWorkers int
	sweepTop     int

	sweepCmd = &cobra.Command{
		Use:   "sweep [preset]",
		Short: "Backtest a parameter grid over one pair",
		Long: `Run every combination of the sweep grid over one pair's aligned closes
and rank the runs by Sharpe ratio. Grid flags replace the config's sweep
axes; empty axes keep the backtest value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSweep,
	}
)

func init() {
	addPairFlags(sweepCmd)
	fs := sweepCmd.Flags()
	fs.Float64SliceVar(&sweepGrid.EntryZ, "entry-z", nil, "entry thresholds")
	fs.Float64SliceVar(&sweepGrid.ExitZ, "exit-z", nil, "exit thresholds")
	fs.IntSliceVar(&sweepGrid.Window, "window", nil, "windows")
	fs.IntSliceVar(&sweepGrid.RefreshBeta, "refresh-beta", nil, "refit intervals")
	fs.IntSliceVar(&sweepGrid.MaxHold, "max-hold", nil, "holding limits")
	fs.Float64SliceVar(&sweepGrid.CostBP, "cost-bp", nil, "costs in basis points")
	fs.IntVar(&sweepWorkers, "workers", 0, "concurrent runs (default sweep.workers)")
	fs.IntVar(&sweepTop, "top", 20, "runs to show (0 for all)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	reg, err := strategy.NewRegistryFromConfig(cfg)
	if err != nil {
		return err
	}
	spec, err := resolveSpec(cmd, a, reg, args)
	if err != nil {
		return err
	}
	p, err := a.provider()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	tab, err := p.FetchDailyCloses(ctx, []string{spec.SymbolA, spec.SymbolB}, spec.Span.Start, spec.Span.End)
	if err != nil {
		return err
	}
	h, err := tab.Pair(spec.SymbolA, spec.SymbolB)
	if err != nil {
		return err
	}

	grid := engine.GridFromConfig(cfg.Sweep)
	fs := cmd.Flags()
	for name, axis := range map[string]func(){
		"entry-z":      func() { grid.EntryZ = sweepGrid.EntryZ },
		"exit-z":       func() { grid.ExitZ = sweepGrid.ExitZ },
		"window":       func() { grid.Window = sweepGrid.Window },
		"refresh-beta": func() { grid.RefreshBeta = sweepGrid.RefreshBeta },
		"max-hold":     func() { grid.MaxHold = sweepGrid.MaxHold },
		"cost-bp":      func() { grid.CostBP = sweepGrid.CostBP },
	} {
		if fs.Changed(name) {
			axis()
		}
	}

	runner := engine.NewRunner(firstPositive(sweepWorkers, cfg.Sweep.Workers))
	outcomes, err := runner.Sweep(ctx, h, spec.Params, grid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  B=%s A=%s  %s  %d runs over %d days\n",
		spec.Label(), spec.SymbolB, spec.SymbolA, spec.Span, len(outcomes), h.Len())
	fmt.Fprintln(out, report.Sweep(outcomes, sweepTop))
	return nil
}
