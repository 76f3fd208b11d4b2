package pairs

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"pairlab/internal/domain"
)

// Metric is a statistic that may be undefined, such as a Sharpe ratio over
// returns with no variance.
type Metric struct {
	Value   float64
	Defined bool
}

// Known wraps a defined value.
func Known(v float64) Metric { return Metric{Value: v, Defined: true} }

// Undefined is the missing statistic.
var Undefined = Metric{}

// Ptr returns the value's address, or nil when undefined.
func (m Metric) Ptr() *float64 {
	if !m.Defined {
		return nil
	}
	v := m.Value
	return &v
}

func (m Metric) String() string {
	if !m.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// Summary holds the run-level performance statistics.
type Summary struct {
	TradeCount   int
	CAGR         Metric
	Sharpe       Metric
	MaxDrawdown  float64
	FinalEquity  float64
	ReturnDays   int
	DaysInMarket int
}

// Summarize derives performance statistics from the completed records.
func Summarize(records []Record, capitalStart float64) Summary {
	s := Summary{FinalEquity: capitalStart}
	if len(records) == 0 {
		return s
	}

	equity := make([]float64, len(records))
	for i, r := range records {
		equity[i] = r.Equity
		if r.Position != domain.SideFlat {
			s.DaysInMarket++
		}
		if i > 0 && r.Position != records[i-1].Position {
			s.TradeCount++
		}
	}
	s.FinalEquity = equity[len(equity)-1]

	returns := DailyReturns(equity)
	s.ReturnDays = len(returns)
	s.CAGR = cagr(capitalStart, s.FinalEquity, len(returns))
	s.Sharpe = SharpeRatio(returns)
	s.MaxDrawdown = MaxDrawdown(equity)
	return s
}

// DailyReturns is the percentage change of equity, first value dropped.
func DailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		out[i-1] = equity[i]/equity[i-1] - 1
	}
	return out
}

func cagr(start, final float64, returnDays int) Metric {
	if returnDays == 0 || !(start > 0) || !(final > 0) {
		return Undefined
	}
	return Known(math.Pow(final/start, float64(TradingDaysPerYear)/float64(returnDays)) - 1)
}

// SharpeRatio is the annualized mean over sample standard deviation of the
// returns. It is undefined for fewer than two returns or zero deviation.
func SharpeRatio(returns []float64) Metric {
	if len(returns) < 2 {
		return Undefined
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || !finite(std) {
		return Undefined
	}
	return Known(mean / std * math.Sqrt(TradingDaysPerYear))
}

// MaxDrawdown is 1 - min(equity / running max of equity).
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 1.0
	for _, e := range equity {
		peak = max(peak, e)
		if peak > 0 {
			worst = min(worst, e/peak)
		}
	}
	return 1 - worst
}

// TradeEvent is a date on which the position changed.
type TradeEvent struct {
	Date   time.Time
	From   domain.PositionSide
	To     domain.PositionSide
	Cost   float64
	Equity float64
}

// Trades derives the position transitions from the records.
func (r *Result) Trades() []TradeEvent {
	var events []TradeEvent
	prev := domain.SideFlat
	for _, rec := range r.Records {
		if rec.Position != prev {
			events = append(events, TradeEvent{
				Date:   rec.Date,
				From:   prev,
				To:     rec.Position,
				Cost:   rec.Cost,
				Equity: rec.Equity,
			})
		}
		prev = rec.Position
	}
	return events
}

// Point is one (date, value) observation of a chartable series.
type Point struct {
	Date  time.Time
	Value float64
}

// EquitySeries returns equity for every date.
func (r *Result) EquitySeries() []Point {
	return r.series(true, func(rec Record) float64 { return rec.Equity })
}

// SpreadSeries returns the spread for every date with a hedge model.
func (r *Result) SpreadSeries() []Point {
	return r.series(false, func(rec Record) float64 { return rec.Obs.Spread })
}

// ZSeries returns the z-score for every date with a hedge model.
func (r *Result) ZSeries() []Point {
	return r.series(false, func(rec Record) float64 { return rec.Obs.Z })
}

// RollMeanSeries returns the trailing spread mean for every modelled date.
func (r *Result) RollMeanSeries() []Point {
	return r.series(false, func(rec Record) float64 { return rec.Obs.RollMean })
}

// RollStdSeries returns the trailing spread deviation for every modelled date.
func (r *Result) RollStdSeries() []Point {
	return r.series(false, func(rec Record) float64 { return rec.Obs.RollStd })
}

func (r *Result) series(all bool, value func(Record) float64) []Point {
	out := make([]Point, 0, len(r.Records))
	for _, rec := range r.Records {
		if !all && !rec.HasModel {
			continue
		}
		out = append(out, Point{Date: rec.Date, Value: value(rec)})
	}
	return out
}
