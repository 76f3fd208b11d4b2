// Package report renders backtest, screener, and sweep results for the
// terminal.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pairlab/internal/domain"
	"pairlab/internal/engine"
	"pairlab/internal/strategy"
	"pairlab/internal/strategy/pairs"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sparkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	colHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// SparklineWidth is the default equity curve width in cells.
const SparklineWidth = 60

// signed colors s by the sign of v.
func signed(v float64, s string) string {
	switch {
	case v > 0:
		return gainStyle.Render(s)
	case v < 0:
		return lossStyle.Render(s)
	default:
		return s
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return colHeaderStyle
			}
			return cellStyle
		})
}

func date(t time.Time) string { return t.Format(time.DateOnly) }

// Backtest renders a finished backtest: headline statistics, the equity
// sparkline, and the most recent trades (all when maxTrades <= 0).
func Backtest(r *strategy.BacktestResult, maxTrades int) string {
	s := r.Summary()
	p := r.Spec.Params
	var b strings.Builder

	title := fmt.Sprintf("%s  B=%s A=%s", r.Spec.Label(), r.Spec.SymbolB, r.Spec.SymbolA)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s..%s (%s days)  %s %s\n",
		labelStyle.Render("period"), date(r.Start), date(r.End), FormatCount(len(r.Result.Records)),
		labelStyle.Render("run"), dimStyle.Render(r.RunID))
	fmt.Fprintf(&b, "%s entry=%g exit=%g window=%d refresh=%d hold=%d cost=%gbp invert_b=%t\n\n",
		labelStyle.Render("params"), p.EntryZ, p.ExitZ, p.Window, p.RefreshBeta, p.MaxHold, p.CostBP, p.InvertB)

	ret := s.FinalEquity/p.CapitalStart - 1
	stats := newTable("metric", "value").Rows(
		[]string{"Start capital", FormatMoney(p.CapitalStart)},
		[]string{"Final equity", signed(ret, FormatMoney(s.FinalEquity))},
		[]string{"Total return", signed(ret, FormatPct(ret))},
		[]string{"CAGR", FormatMetric(s.CAGR, FormatPct)},
		[]string{"Sharpe", FormatMetric(s.Sharpe, FormatRatio)},
		[]string{"Max drawdown", FormatDrawdown(s.MaxDrawdown)},
		[]string{"Trades", FormatInt(s.TradeCount)},
		[]string{"Days in market", FormatInt(s.DaysInMarket)},
		[]string{"Degenerate fits", FormatInt(r.Result.DegenerateFits)},
	)
	b.WriteString(stats.String())
	b.WriteString("\n")

	for _, line := range []struct {
		label  string
		points []pairs.Point
	}{
		{"equity", r.Result.EquitySeries()},
		{"spread", r.Result.SpreadSeries()},
		{"z     ", r.Result.ZSeries()},
	} {
		if len(line.points) == 0 {
			continue
		}
		b.WriteString(labelStyle.Render(line.label + " "))
		b.WriteString(sparkStyle.Render(Sparkline(values(line.points), SparklineWidth)))
		b.WriteString("\n")
	}

	trades := r.Trades
	if maxTrades > 0 && len(trades) > maxTrades {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("last %d of %d trades", maxTrades, len(trades))))
		trades = trades[len(trades)-maxTrades:]
	}
	if len(trades) > 0 {
		b.WriteString(Trades(trades))
		b.WriteString("\n")
	}
	return b.String()
}

// Trades renders position transitions.
func Trades(events []pairs.TradeEvent) string {
	t := newTable("date", "from", "to", "cost", "equity")
	for _, e := range events {
		t.Row(date(e.Date), e.From.String(), e.To.String(), FormatMoney(e.Cost), FormatMoney(e.Equity))
	}
	return t.String()
}

// Candidates renders ranked screener candidates.
func Candidates(cands []domain.Candidate) string {
	t := newTable("#", "B (dep)", "A", "p-value", "adf", "lag", "beta", "corr")
	for i, c := range cands {
		t.Row(
			fmt.Sprint(i+1),
			symbolStyle.Render(c.SymbolB),
			symbolStyle.Render(c.SymbolA),
			FormatPValue(c.PValue),
			fmt.Sprintf("%.3f", c.ADFStat),
			fmt.Sprint(c.UsedLag),
			fmt.Sprintf("%.4f", c.Beta),
			fmt.Sprintf("%.3f", c.Correlation),
		)
	}
	return t.String()
}

// Sweep renders sweep outcomes in the given order, at most top rows when top
// is positive.
func Sweep(outcomes []engine.Outcome, top int) string {
	if top > 0 && len(outcomes) > top {
		outcomes = outcomes[:top]
	}
	t := newTable("#", "entry", "exit", "window", "refresh", "hold", "cost", "sharpe", "cagr", "maxdd", "trades", "final")
	for i, o := range outcomes {
		p := o.Job.Params
		row := []string{
			fmt.Sprint(i + 1),
			fmt.Sprintf("%g", p.EntryZ),
			fmt.Sprintf("%g", p.ExitZ),
			fmt.Sprint(p.Window),
			fmt.Sprint(p.RefreshBeta),
			fmt.Sprint(p.MaxHold),
			fmt.Sprintf("%g", p.CostBP),
		}
		if o.Err != nil {
			row = append(row, lossStyle.Render("error"), "", "", "", o.Err.Error())
		} else {
			s := o.Result.Summary
			row = append(row,
				FormatMetric(s.Sharpe, FormatRatio),
				FormatMetric(s.CAGR, FormatPct),
				FormatDrawdown(s.MaxDrawdown),
				FormatInt(s.TradeCount),
				signed(s.FinalEquity-p.CapitalStart, FormatMoney(s.FinalEquity)),
			)
		}
		t.Row(row...)
	}
	return t.String()
}

// Runs renders stored run summaries.
func Runs(runs []domain.RunSummary) string {
	t := newTable("created", "id", "B", "A", "period", "trades", "sharpe", "cagr", "maxdd", "final")
	for _, r := range runs {
		t.Row(
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			dimStyle.Render(shortID(r.ID)),
			symbolStyle.Render(r.SymbolB),
			symbolStyle.Render(r.SymbolA),
			date(r.Start)+".."+date(r.End),
			FormatInt(r.TradeCount),
			FormatOptional(r.Sharpe, FormatRatio),
			FormatOptional(r.CAGR, FormatPct),
			FormatDrawdown(r.MaxDrawdown),
			FormatMoney(r.FinalEquity),
		)
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func values(points []pairs.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a single line of block characters at most
// width cells wide. Longer series are averaged into width buckets.
func Sparkline(vals []float64, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	if len(vals) > width {
		vals = bucket(vals, width)
	}

	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := make([]rune, len(vals))
	for i, v := range vals {
		idx := len(sparkTicks) / 2
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkTicks)-1)))
		}
		out[i] = sparkTicks[idx]
	}
	return string(out)
}

// bucket averages vals into n consecutive buckets of near-equal size.
func bucket(vals []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		lo := i * len(vals) / n
		hi := (i + 1) * len(vals) / n
		sum := 0.0
		for _, v := range vals[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
