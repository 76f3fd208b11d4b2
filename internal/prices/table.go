// Package prices turns raw daily bars into the aligned, gap-free close table
// that simulations and the screener consume.
package prices

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"pairlab/internal/domain"
	"pairlab/internal/strategy/pairs"
)

// Provider supplies aligned daily closes for a set of symbols.
type Provider interface {
	FetchDailyCloses(ctx context.Context, symbols []string, start, end time.Time) (*Table, error)
}

// Table is a date-ordered matrix of closes with no missing values.
type Table struct {
	Dates   []time.Time
	Symbols []string
	closes  map[string][]float64
}

// Close returns the close column for symbol, or nil if it is not present.
func (t *Table) Close(symbol string) []float64 {
	return t.closes[symbol]
}

// Has reports whether symbol survived alignment.
func (t *Table) Has(symbol string) bool {
	_, ok := t.closes[symbol]
	return ok
}

// Len returns the number of aligned dates.
func (t *Table) Len() int { return len(t.Dates) }

// Pair builds the simulation input for leg A (regressor) and leg B
// (dependent).
func (t *Table) Pair(symbolA, symbolB string) (*pairs.PriceHistory, error) {
	for _, sym := range []string{symbolA, symbolB} {
		if !t.Has(sym) {
			return nil, fmt.Errorf("no aligned data for %s", sym)
		}
	}
	a, b := t.Close(symbolA), t.Close(symbolB)
	rows := make([]pairs.PriceRow, len(t.Dates))
	for i, d := range t.Dates {
		rows[i] = pairs.PriceRow{Date: d, CloseA: a[i], CloseB: b[i]}
	}
	return pairs.NewPriceHistory(symbolA, symbolB, rows)
}

// Align builds a Table from bars: dates are the sorted union of bar dates,
// each symbol is forward-filled, symbols with no bars are dropped, and
// leading dates on which any remaining symbol has no value yet are dropped.
// Symbols keep the order they were requested in.
func Align(bars []domain.Bar, symbols []string) *Table {
	bySymbol := make(map[string]map[time.Time]float64, len(symbols))
	dateSet := make(map[time.Time]struct{})
	for _, b := range bars {
		if !(b.Close > 0) || math.IsInf(b.Close, 0) {
			continue
		}
		d := dateOf(b.Timestamp)
		m := bySymbol[b.Symbol]
		if m == nil {
			m = make(map[time.Time]float64)
			bySymbol[b.Symbol] = m
		}
		m[d] = b.Close
		dateSet[d] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	t := &Table{closes: make(map[string][]float64)}
	first := 0
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		m, ok := bySymbol[sym]
		if !ok || seen[sym] {
			continue
		}
		seen[sym] = true

		col := make([]float64, len(dates))
		last := math.NaN()
		start := -1
		for i, d := range dates {
			if v, ok := m[d]; ok {
				last = v
				if start < 0 {
					start = i
				}
			}
			col[i] = last
		}
		first = max(first, start)
		t.Symbols = append(t.Symbols, sym)
		t.closes[sym] = col
	}

	t.Dates = dates[first:]
	for sym, col := range t.closes {
		t.closes[sym] = col[first:]
	}
	return t
}

// DayEnd returns the last instant of t's UTC calendar date, so that a range
// ending on a date includes bars stamped later that day.
func DayEnd(t time.Time) time.Time {
	return dateOf(t).Add(24*time.Hour - time.Nanosecond)
}

// dateOf truncates a bar timestamp to its UTC calendar date.
func dateOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
