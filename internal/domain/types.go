// Package domain holds the plain data types shared across pairlab packages:
// market bars, screener candidates, and persisted run summaries.
package domain

import "time"

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
)

// Bar is a single daily OHLCV bar for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Candidate is one screened pair. SymbolB is the dependent leg of the static
// regression SymbolB = Alpha + Beta*SymbolA.
type Candidate struct {
	SymbolA     string
	SymbolB     string
	Correlation float64
	ADFStat     float64
	PValue      float64
	UsedLag     int
	Alpha       float64
	Beta        float64
}

// PositionSide is the direction of a pair position.
type PositionSide int

const (
	SideShortSpread PositionSide = -1
	SideFlat        PositionSide = 0
	SideLongSpread  PositionSide = 1
)

// String returns the state name used in reports.
func (s PositionSide) String() string {
	switch s {
	case SideShortSpread:
		return "SHORT_SPREAD"
	case SideLongSpread:
		return "LONG_SPREAD"
	default:
		return "FLAT"
	}
}

// RunSummary is the persisted outcome of a single backtest run. Sharpe and
// CAGR are nil when undefined.
type RunSummary struct {
	ID          string
	SymbolA     string
	SymbolB     string
	Start       time.Time
	End         time.Time
	Params      string // JSON-encoded parameters
	TradeCount  int
	CAGR        *float64
	Sharpe      *float64
	MaxDrawdown float64
	FinalEquity float64
	CreatedAt   time.Time
}
