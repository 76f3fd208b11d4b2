// Package engine runs many independent pair simulations in parallel. Each
// job owns its simulation state; only the read-only price history is shared.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"pairlab/internal/config"
	"pairlab/internal/strategy/pairs"
)

// Job is one simulation to evaluate.
type Job struct {
	Label   string
	History *pairs.PriceHistory
	Params  pairs.Params
}

// Outcome pairs a job with its result. Exactly one of Result and Err is set.
type Outcome struct {
	Job    Job
	Result *pairs.Result
	Err    error
}

// Sharpe returns the outcome's Sharpe ratio, undefined for failed runs.
func (o Outcome) Sharpe() pairs.Metric {
	if o.Result == nil {
		return pairs.Metric{}
	}
	return o.Result.Summary.Sharpe
}

// Runner evaluates jobs with a bounded number of workers.
type Runner struct {
	workers int
	log     *slog.Logger
}

// NewRunner creates a Runner with up to workers simulations in flight.
func NewRunner(workers int) *Runner {
	return &Runner{
		workers: max(workers, 1),
		log:     slog.Default().With("component", "runner"),
	}
}

// Run evaluates every job and returns outcomes in job order. A failing job
// records its error in its outcome; Run itself fails only when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	out := make([]Outcome, len(jobs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := pairs.Run(job.History, job.Params)
			out[i] = Outcome{Job: job, Result: res, Err: err}
			if err != nil {
				r.log.Debug("job failed", "job", job.Label, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.Info("runs complete",
		"jobs", len(jobs),
		"workers", r.workers,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// SortBySharpe orders outcomes by descending Sharpe ratio. Undefined Sharpe
// ratios and failed runs sort last; ties keep their original order.
func SortBySharpe(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		si, sj := outcomes[i].Sharpe(), outcomes[j].Sharpe()
		switch {
		case si.Defined && sj.Defined:
			return si.Value > sj.Value
		default:
			return si.Defined && !sj.Defined
		}
	})
}

// ---------------------------------------------------------------------------
// Parameter grid
// ---------------------------------------------------------------------------

// Grid lists candidate values per parameter. An empty axis keeps the base
// parameter's value.
type Grid struct {
	EntryZ      []float64
	ExitZ       []float64
	Window      []int
	RefreshBeta []int
	MaxHold     []int
	CostBP      []float64
}

// GridFromConfig copies the sweep axes out of the configuration.
func GridFromConfig(c config.SweepConfig) Grid {
	return Grid{
		EntryZ:      c.EntryZ,
		ExitZ:       c.ExitZ,
		Window:      c.Window,
		RefreshBeta: c.RefreshBeta,
		MaxHold:     c.MaxHold,
		CostBP:      c.CostBP,
	}
}

// Expand returns the cartesian product of the grid applied to base, in a
// fixed nesting order (entry, exit, window, refresh, hold, cost). Combinations
// that fail validation, such as an exit threshold above the entry threshold,
// are left out.
func (g Grid) Expand(base pairs.Params) []pairs.Params {
	var out []pairs.Params
	for _, entry := range orBase(g.EntryZ, base.EntryZ) {
		for _, exit := range orBase(g.ExitZ, base.ExitZ) {
			for _, window := range orBase(g.Window, base.Window) {
				for _, refresh := range orBase(g.RefreshBeta, base.RefreshBeta) {
					for _, hold := range orBase(g.MaxHold, base.MaxHold) {
						for _, cost := range orBase(g.CostBP, base.CostBP) {
							p := base
							p.EntryZ, p.ExitZ = entry, exit
							p.Window, p.RefreshBeta = window, refresh
							p.MaxHold, p.CostBP = hold, cost
							if p.Validate() != nil {
								continue
							}
							out = append(out, p)
						}
					}
				}
			}
		}
	}
	return out
}

func orBase[T any](axis []T, base T) []T {
	if len(axis) == 0 {
		return []T{base}
	}
	return axis
}

// Sweep runs every grid combination over one price history and returns the
// outcomes sorted by Sharpe ratio.
func (r *Runner) Sweep(ctx context.Context, h *pairs.PriceHistory, base pairs.Params, g Grid) ([]Outcome, error) {
	grid := g.Expand(base)
	if len(grid) == 0 {
		return nil, fmt.Errorf("sweep: no valid parameter combinations")
	}
	jobs := make([]Job, len(grid))
	for i, p := range grid {
		jobs[i] = Job{Label: ParamsLabel(p), History: h, Params: p}
	}
	out, err := r.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	SortBySharpe(out)
	return out, nil
}

// ParamsLabel is a compact description of the swept parameters.
func ParamsLabel(p pairs.Params) string {
	return fmt.Sprintf("entry=%g exit=%g w=%d r=%d hold=%d cost=%gbp",
		p.EntryZ, p.ExitZ, p.Window, p.RefreshBeta, p.MaxHold, p.CostBP)
}
