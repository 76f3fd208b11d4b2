// Package screener ranks candidate pairs from a symbol universe by the
// stationarity of their static regression residual.
package screener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"pairlab/internal/domain"
	"pairlab/internal/prices"
	"pairlab/internal/strategy/pairs"
)

// Options tunes a screen.
type Options struct {
	Workers int // concurrent pair analyses; < 1 means 1
	MaxLag  int // ADF lag cap; <= 0 selects DefaultMaxLag
}

// Result is a ranked screen.
type Result struct {
	Symbols    []string           // universe after alignment, in test order
	Dates      int                // aligned observations per series
	Candidates []domain.Candidate // ascending p-value
	Skipped    int                // pairs whose regression or test was degenerate
}

// Top returns at most n leading candidates.
func (r *Result) Top(n int) []domain.Candidate {
	if n <= 0 || n >= len(r.Candidates) {
		return r.Candidates
	}
	return r.Candidates[:n]
}

// Screener pulls aligned closes from a provider and tests every pair.
type Screener struct {
	provider prices.Provider
	opts     Options
	log      *slog.Logger
}

// New creates a Screener.
func New(provider prices.Provider, opts Options) *Screener {
	return &Screener{
		provider: provider,
		opts:     opts,
		log:      slog.Default().With("component", "screener"),
	}
}

// Screen fetches closes for symbols over [start, end] and ranks every pair.
func (s *Screener) Screen(ctx context.Context, symbols []string, start, end time.Time) (*Result, error) {
	tab, err := s.provider.FetchDailyCloses(ctx, symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching closes: %w", err)
	}
	return s.Rank(ctx, tab)
}

// Rank tests every unordered pair of the table's symbols, taken in
// alphabetical order. For a pair (s1, s2) the first symbol is regressed on
// the second, so the candidate's dependent leg SymbolB is s1 and SymbolA is
// s2.
func (s *Screener) Rank(ctx context.Context, tab *prices.Table) (*Result, error) {
	symbols := append([]string(nil), tab.Symbols...)
	sort.Strings(symbols)
	if len(symbols) < 2 {
		return nil, fmt.Errorf("screen needs at least 2 symbols with data, have %d", len(symbols))
	}

	type job struct{ s1, s2 string }
	var jobs []job
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			jobs = append(jobs, job{symbols[i], symbols[j]})
		}
	}
	s.log.Info("screening", "symbols", len(symbols), "pairs", len(jobs), "observations", tab.Len())

	results := make([]*domain.Candidate, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.opts.Workers, 1))
	for i, jb := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := AnalysePair(tab.Close(jb.s1), tab.Close(jb.s2), s.opts.MaxLag)
			if err != nil {
				if errors.Is(err, pairs.ErrDegenerateRegression) || errors.Is(err, ErrSingular) || errors.Is(err, ErrTooShort) {
					s.log.Warn("skipping pair", "s1", jb.s1, "s2", jb.s2, "err", err)
					return nil
				}
				return fmt.Errorf("%s/%s: %w", jb.s1, jb.s2, err)
			}
			c.SymbolB, c.SymbolA = jb.s1, jb.s2
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Symbols: symbols, Dates: tab.Len()}
	for _, c := range results {
		if c == nil {
			res.Skipped++
			continue
		}
		res.Candidates = append(res.Candidates, *c)
	}
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].PValue < res.Candidates[j].PValue
	})
	s.log.Info("screen done", "ranked", len(res.Candidates), "skipped", res.Skipped)
	return res, nil
}

// AnalysePair regresses y on x with an intercept over the full sample, runs
// an ADF test on the residual, and measures the Pearson correlation. Symbol
// fields of the returned candidate are left empty.
func AnalysePair(y, x []float64, maxLag int) (domain.Candidate, error) {
	alpha, beta, err := pairs.FitHedge(x, y)
	if err != nil {
		return domain.Candidate{}, err
	}
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - (alpha + beta*x[i])
	}
	adf, err := ADF(resid, maxLag)
	if err != nil {
		return domain.Candidate{}, err
	}
	return domain.Candidate{
		Correlation: stat.Correlation(y, x, nil),
		ADFStat:     adf.Stat,
		PValue:      adf.PValue,
		UsedLag:     adf.UsedLag,
		Alpha:       alpha,
		Beta:        beta,
	}, nil
}
