package pairs

import (
	"fmt"
	"math"
	"time"
)

// PriceRow is one aligned observation of both legs' closes.
type PriceRow struct {
	Date   time.Time
	CloseA float64
	CloseB float64
}

// PriceHistory is an immutable, date-ordered, gap-free series of paired
// closes. Leg B is the dependent leg of the hedge regression.
type PriceHistory struct {
	symbolA string
	symbolB string
	rows    []PriceRow
}

// NewPriceHistory validates rows and returns a history that owns a copy of
// them. Dates must be strictly increasing and every close finite and
// positive.
func NewPriceHistory(symbolA, symbolB string, rows []PriceRow) (*PriceHistory, error) {
	owned := make([]PriceRow, len(rows))
	copy(owned, rows)

	for i, r := range owned {
		if !validClose(r.CloseA) || !validClose(r.CloseB) {
			return nil, fmt.Errorf("%w: row %d (%s) has invalid close A=%v B=%v",
				ErrMisaligned, i, r.Date.Format(time.DateOnly), r.CloseA, r.CloseB)
		}
		if i > 0 && !r.Date.After(owned[i-1].Date) {
			return nil, fmt.Errorf("%w: row %d date %s not after %s",
				ErrMisaligned, i, r.Date.Format(time.DateOnly), owned[i-1].Date.Format(time.DateOnly))
		}
	}
	return &PriceHistory{symbolA: symbolA, symbolB: symbolB, rows: owned}, nil
}

func validClose(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// SymbolA returns the regressor leg's symbol.
func (h *PriceHistory) SymbolA() string { return h.symbolA }

// SymbolB returns the dependent leg's symbol.
func (h *PriceHistory) SymbolB() string { return h.symbolB }

// Len returns the number of observations.
func (h *PriceHistory) Len() int { return len(h.rows) }

// Row returns the i-th observation.
func (h *PriceHistory) Row(i int) PriceRow { return h.rows[i] }

// Truncate returns the first n observations as a new history.
func (h *PriceHistory) Truncate(n int) *PriceHistory {
	n = min(max(n, 0), len(h.rows))
	return &PriceHistory{symbolA: h.symbolA, symbolB: h.symbolB, rows: h.rows[:n:n]}
}

// legs holds the regression inputs derived once from the raw closes.
type legs struct {
	a []float64
	b []float64
}

// buildLegs applies the leg B sign convention to every observation so that
// fitting, spreads, and rolling statistics all see the same series.
func buildLegs(h *PriceHistory, invertB bool) legs {
	sign := 1.0
	if invertB {
		sign = -1.0
	}
	l := legs{a: make([]float64, len(h.rows)), b: make([]float64, len(h.rows))}
	for i, r := range h.rows {
		l.a[i] = r.CloseA
		l.b[i] = sign * r.CloseB
	}
	return l
}
