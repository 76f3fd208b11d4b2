package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pairlab/internal/config"
	"pairlab/internal/domain"
	"pairlab/internal/gather/us"
	"pairlab/internal/store"
)

var (
	fetchStart string
	fetchEnd   string
	fetchList  bool

	fetchCmd = &cobra.Command{
		Use:   "fetch [symbol...]",
		Short: "Download adjusted daily bars into the local cache",
		Long: `Download split- and dividend-adjusted daily bars from Alpaca into the
parquet bar cache. Without arguments the screener universe and every preset
leg are fetched.`,
		RunE: runFetch,
	}
)

func init() {
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "first date (YYYY-MM-DD, default fetch.start_date)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "last date (default latest finished trading day)")
	fetchCmd.Flags().BoolVar(&fetchList, "list", false, "list cached symbols instead of fetching")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchList {
		syms, err := store.NewParquetStore(cfg.Storage.DataDir).ListSymbols(cmd.Context(), string(domain.MarketUS))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d cached symbols\n%s\n", len(syms), strings.Join(syms, " "))
		return nil
	}
	if cfg.Fetch.Offline {
		return errors.New("fetch needs network access; drop --offline")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	span, err := a.span(ctx, fetchStart, fetchEnd)
	if err != nil {
		return err
	}
	f, err := a.fetcher()
	if err != nil {
		return err
	}

	symbols := args
	if len(symbols) == 0 {
		symbols = universe(cfg)
	}
	return us.NewCacheFiller(f, symbols, span).Run(ctx)
}

// universe is the screener symbol list plus every preset leg, deduplicated.
func universe(c *config.Config) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToUpper(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range c.Screener.Symbols {
		add(s)
	}
	for _, p := range c.Pairs {
		add(p.SymbolA)
		add(p.SymbolB)
	}
	sort.Strings(out)
	return out
}
