package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pairlab/internal/gather"
	"pairlab/internal/report"
	"pairlab/internal/strategy"
	"pairlab/internal/strategy/pairs"
)

var (
	pairA      string
	pairB      string
	pairStart  string
	pairEnd    string
	showTrades int

	override pairs.Params

	backtestCmd = &cobra.Command{
		Use:   "backtest [preset]",
		Short: "Backtest a pair preset or an ad-hoc pair",
		Long: `Backtest a named pair preset from the config, or an ad-hoc pair given with
--a (regressor leg) and --b (dependent leg). Without either, the first preset
is used. Parameter flags override the config's backtest section.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBacktest,
	}
)

func init() {
	addPairFlags(backtestCmd)
	fs := backtestCmd.Flags()
	fs.Float64Var(&override.CapitalStart, "capital", 0, "starting capital")
	fs.Float64Var(&override.LegFraction, "leg-fraction", 0, "fraction of equity per leg")
	fs.Float64Var(&override.EntryZ, "entry-z", 0, "entry z-score threshold")
	fs.Float64Var(&override.ExitZ, "exit-z", 0, "exit z-score threshold")
	fs.IntVar(&override.Window, "window", 0, "hedge regression and z-score window (days)")
	fs.IntVar(&override.RefreshBeta, "refresh-beta", 0, "days between hedge refits")
	fs.IntVar(&override.MaxHold, "max-hold", 0, "maximum days in a position")
	fs.Float64Var(&override.CostBP, "cost-bp", 0, "cost per leg per transition (basis points)")
	fs.BoolVar(&override.InvertB, "invert-b", false, "negate leg B before fitting")
	fs.IntVar(&showTrades, "trades", 10, "trades to list (0 for all)")
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pairA, "a", "", "regressor leg symbol")
	cmd.Flags().StringVar(&pairB, "b", "", "dependent leg symbol")
	cmd.Flags().StringVar(&pairStart, "start", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&pairEnd, "end", "", "last date (YYYY-MM-DD)")
}

// applyOverrides copies every parameter flag set on the command line onto p.
func applyOverrides(fs *pflag.FlagSet, p pairs.Params) pairs.Params {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "capital":
			p.CapitalStart = override.CapitalStart
		case "leg-fraction":
			p.LegFraction = override.LegFraction
		case "entry-z":
			p.EntryZ = override.EntryZ
		case "exit-z":
			p.ExitZ = override.ExitZ
		case "window":
			p.Window = override.Window
		case "refresh-beta":
			p.RefreshBeta = override.RefreshBeta
		case "max-hold":
			p.MaxHold = override.MaxHold
		case "cost-bp":
			p.CostBP = override.CostBP
		case "invert-b":
			p.InvertB = override.InvertB
		}
	})
	return p
}

// resolveSpec picks the pair to run from the positional preset name or the
// --a/--b flags, then applies the date flags. The returned span is always
// closed.
func resolveSpec(cmd *cobra.Command, a *app, reg *strategy.Registry, args []string) (strategy.PairSpec, error) {
	var spec strategy.PairSpec
	switch {
	case pairA != "" || pairB != "":
		if pairA == "" || pairB == "" {
			return spec, errors.New("--a and --b must be given together")
		}
		spec = strategy.PairSpec{
			SymbolA: strings.ToUpper(pairA),
			SymbolB: strings.ToUpper(pairB),
			Params:  a.cfg.Backtest,
		}
		if len(args) == 1 {
			spec.Name = args[0]
		}
	case len(args) == 1:
		s, ok := reg.Get(args[0])
		if !ok {
			return spec, fmt.Errorf("unknown pair preset %q (have %v)", args[0], reg.List())
		}
		spec = s
	default:
		if len(a.cfg.Pairs) == 0 {
			return spec, errors.New("no pair presets configured; pass a preset name or --a/--b")
		}
		spec, _ = reg.Get(a.cfg.Pairs[0].Name)
	}

	start, end := pairStart, pairEnd
	if start == "" && !spec.Span.Start.IsZero() {
		start = spec.Span.Start.Format(gather.DateLayout)
	}
	if end == "" && !spec.Span.OpenEnded() {
		end = spec.Span.End.Format(gather.DateLayout)
	}
	span, err := a.span(cmd.Context(), start, end)
	if err != nil {
		return spec, err
	}
	spec.Span = span
	return spec, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	bt, reg, err := a.backtester()
	if err != nil {
		return err
	}
	spec, err := resolveSpec(cmd, a, reg, args)
	if err != nil {
		return err
	}
	spec.Params = applyOverrides(cmd.Flags(), spec.Params)

	res, err := bt.Run(cmd.Context(), spec)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Backtest(res, showTrades))
	return nil
}
