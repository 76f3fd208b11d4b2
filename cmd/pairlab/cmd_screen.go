package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pairlab/internal/report"
	"pairlab/internal/screener"
	"pairlab/internal/strategy"
)

var (
	screenSymbols     []string
	screenStart       string
	screenEnd         string
	screenTop         int
	screenWorkers     int
	screenMaxLag      int
	screenBacktestTop int
	screenShow        string

	screenCmd = &cobra.Command{
		Use:   "screen",
		Short: "Rank every pair in a universe by residual stationarity",
		Long: `Regress every pair of symbols in the universe, run an augmented
Dickey-Fuller test on the residual, and rank pairs by p-value. The ranking is
saved to sqlite; --backtest-top K also backtests the K best candidates.`,
		Args: cobra.NoArgs,
		RunE: runScreen,
	}
)

func init() {
	fs := screenCmd.Flags()
	fs.StringSliceVar(&screenSymbols, "symbols", nil, "universe (default screener.symbols)")
	fs.StringVar(&screenStart, "start", "", "first date (YYYY-MM-DD)")
	fs.StringVar(&screenEnd, "end", "", "last date (YYYY-MM-DD)")
	fs.IntVar(&screenTop, "top", 0, "candidates to show (default screener.top)")
	fs.IntVar(&screenWorkers, "workers", 0, "concurrent pair tests (default screener.workers)")
	fs.IntVar(&screenMaxLag, "max-lag", 0, "ADF lag cap (default 12*(n/100)^(1/4))")
	fs.IntVar(&screenBacktestTop, "backtest-top", 0, "backtest the best K candidates")
	fs.StringVar(&screenShow, "show", "", "print a saved screen by id instead of screening")
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if screenShow != "" {
		cands, err := a.db.ListCandidates(cmd.Context(), screenShow, screenTop)
		if err != nil {
			return err
		}
		if len(cands) == 0 {
			return fmt.Errorf("no saved screen %q", screenShow)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Candidates(cands))
		return nil
	}

	sc := cfg.Screener
	list := sc.Symbols
	if len(screenSymbols) > 0 {
		list = screenSymbols
	}
	symbols := make([]string, len(list))
	for i, s := range list {
		symbols[i] = strings.ToUpper(s)
	}
	top := firstPositive(screenTop, sc.Top)
	backtestTop := firstPositive(screenBacktestTop, sc.BacktestTop)

	ctx := cmd.Context()
	span, err := a.span(ctx, screenStart, screenEnd)
	if err != nil {
		return err
	}
	p, err := a.provider()
	if err != nil {
		return err
	}

	s := screener.New(p, screener.Options{
		Workers: firstPositive(screenWorkers, sc.Workers),
		MaxLag:  firstPositive(screenMaxLag, sc.MaxLag),
	})
	res, err := s.Screen(ctx, symbols, span.Start, span.End)
	if err != nil {
		return err
	}

	screenID := uuid.NewString()
	if err := a.db.SaveScreen(ctx, screenID, time.Now().UTC(), res.Candidates); err != nil {
		return err
	}
	slog.Info("screen saved", "screen", screenID, "candidates", len(res.Candidates), "skipped", res.Skipped)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "screen %s: %d symbols, %d dates, %d pairs ranked, %d skipped (%s)\n",
		screenID, len(res.Symbols), res.Dates, len(res.Candidates), res.Skipped, span)
	fmt.Fprintln(out, report.Candidates(res.Top(top)))

	if backtestTop <= 0 || len(res.Candidates) == 0 {
		return nil
	}
	bt, _, err := a.backtester()
	if err != nil {
		return err
	}
	specs := make([]strategy.PairSpec, 0, backtestTop)
	for _, c := range res.Top(backtestTop) {
		specs = append(specs, strategy.PairSpec{
			SymbolA: c.SymbolA,
			SymbolB: c.SymbolB,
			Span:    span,
			Params:  cfg.Backtest,
		})
	}
	results, errs := bt.RunBatch(ctx, specs, cfg.Sweep.Workers)
	for i, r := range results {
		if errs[i] != nil {
			fmt.Fprintf(out, "%s: %v\n", specs[i].Label(), errs[i])
			continue
		}
		fmt.Fprintln(out, report.Backtest(r, 5))
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
