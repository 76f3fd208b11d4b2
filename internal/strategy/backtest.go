package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pairlab/internal/domain"
	"pairlab/internal/prices"
	"pairlab/internal/store"
	"pairlab/internal/strategy/pairs"
)

// BacktestResult is a finished, persisted backtest.
type BacktestResult struct {
	RunID     string
	Spec      PairSpec
	Start     time.Time // first aligned date
	End       time.Time // last aligned date
	Result    *pairs.Result
	Trades    []pairs.TradeEvent
	CreatedAt time.Time
}

// Summary is shorthand for the simulation summary.
func (r *BacktestResult) Summary() pairs.Summary { return r.Result.Summary }

// Backtester fetches aligned prices for a pair, runs the simulation, and
// records the outcome. Either store may be nil to skip that output.
type Backtester struct {
	provider prices.Provider
	tables   store.RunTableStore
	runs     store.RunStore
	registry *Registry
	now      func() time.Time
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads prices from provider, looks
// up presets in registry, and persists to tables and runs.
func NewBacktester(provider prices.Provider, registry *Registry, tables store.RunTableStore, runs store.RunStore) *Backtester {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Backtester{
		provider: provider,
		tables:   tables,
		runs:     runs,
		registry: registry,
		now:      time.Now,
		log:      slog.Default().With("component", "backtest"),
	}
}

// RunPreset backtests a registered spec by name.
func (bt *Backtester) RunPreset(ctx context.Context, name string) (*BacktestResult, error) {
	spec, ok := bt.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown pair preset %q (have %v)", name, bt.registry.List())
	}
	return bt.Run(ctx, spec)
}

// Run backtests spec. An open-ended span runs through today.
func (bt *Backtester) Run(ctx context.Context, spec PairSpec) (*BacktestResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	end := spec.Span.End
	if spec.Span.OpenEnded() {
		end = bt.now().UTC()
	}

	tab, err := bt.provider.FetchDailyCloses(ctx, []string{spec.SymbolA, spec.SymbolB}, spec.Span.Start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", spec.Label(), err)
	}
	h, err := tab.Pair(spec.SymbolA, spec.SymbolB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Label(), err)
	}
	return bt.Simulate(ctx, spec, h)
}

// Simulate runs spec's parameters over an already aligned history and
// persists the outcome.
func (bt *Backtester) Simulate(ctx context.Context, spec PairSpec, h *pairs.PriceHistory) (*BacktestResult, error) {
	res, err := pairs.Run(h, spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Label(), err)
	}

	out := &BacktestResult{
		RunID:     uuid.NewString(),
		Spec:      spec,
		Start:     h.Row(0).Date,
		End:       h.Row(h.Len() - 1).Date,
		Result:    res,
		Trades:    res.Trades(),
		CreatedAt: bt.now().UTC(),
	}
	bt.log.Info("backtest done",
		"run", out.RunID,
		"pair", spec.Label(),
		"days", h.Len(),
		"trades", res.Summary.TradeCount,
		"sharpe", res.Summary.Sharpe.String(),
		"final_equity", res.Summary.FinalEquity,
		"degenerate_fits", res.DegenerateFits,
	)

	if err := bt.persist(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RunBatch backtests specs with up to workers running at once. Results keep
// the order of specs; a failed spec leaves a nil entry and its error in the
// matching errs slot.
func (bt *Backtester) RunBatch(ctx context.Context, specs []PairSpec, workers int) ([]*BacktestResult, []error) {
	results := make([]*BacktestResult, len(specs))
	errs := make([]error, len(specs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, spec := range specs {
		g.Go(func() error {
			r, err := bt.Run(gctx, spec)
			mu.Lock()
			results[i], errs[i] = r, err
			mu.Unlock()
			if err != nil {
				bt.log.Warn("backtest failed", "pair", spec.Label(), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

func (bt *Backtester) persist(ctx context.Context, r *BacktestResult) error {
	if bt.tables != nil {
		if err := bt.tables.WriteRunTable(ctx, r.RunID, RunRows(r.Result.Records)); err != nil {
			return err
		}
	}
	if bt.runs != nil {
		summary, err := RunSummary(r)
		if err != nil {
			return err
		}
		if err := bt.runs.SaveRun(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}

// RunSummary converts a result into its persisted summary row.
func RunSummary(r *BacktestResult) (*domain.RunSummary, error) {
	params, err := json.Marshal(r.Spec.Params)
	if err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	s := r.Result.Summary
	return &domain.RunSummary{
		ID:          r.RunID,
		SymbolA:     r.Spec.SymbolA,
		SymbolB:     r.Spec.SymbolB,
		Start:       r.Start,
		End:         r.End,
		Params:      string(params),
		TradeCount:  s.TradeCount,
		CAGR:        s.CAGR.Ptr(),
		Sharpe:      s.Sharpe.Ptr(),
		MaxDrawdown: s.MaxDrawdown,
		FinalEquity: s.FinalEquity,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// RunRows flattens simulation records into the on-disk run table.
func RunRows(records []pairs.Record) []store.RunRow {
	rows := make([]store.RunRow, len(records))
	for i, rec := range records {
		row := store.RunRow{
			Date:     rec.Date.UnixMilli(),
			HasModel: rec.HasModel,
			Refit:    rec.Refit,
			Signal:   int32(rec.Signal),
			Position: int32(rec.Position),
			DaysHeld: int32(rec.DaysHeld),
			Cost:     rec.Cost,
			PnL:      rec.PnL,
			Equity:   rec.Equity,
		}
		if rec.HasModel {
			row.Alpha = rec.Model.Alpha
			row.Beta = rec.Model.Beta
			row.Spread = rec.Obs.Spread
			row.RollMean = rec.Obs.RollMean
			row.RollStd = rec.Obs.RollStd
			row.Z = rec.Obs.Z
			row.ZDefined = rec.Obs.ZDefined
		}
		rows[i] = row
	}
	return rows
}
