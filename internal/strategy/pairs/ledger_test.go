package pairs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pairlab/internal/domain"
)

func TestTransitionCost_DirectionIndependent(t *testing.T) {
	p := DefaultParams()
	equity := 12_345.67

	entryShort := TransitionCost(equity, domain.SideFlat, domain.SideShortSpread, p)
	entryLong := TransitionCost(equity, domain.SideFlat, domain.SideLongSpread, p)
	exitLong := TransitionCost(equity, domain.SideLongSpread, domain.SideFlat, p)
	exitShort := TransitionCost(equity, domain.SideShortSpread, domain.SideFlat, p)

	assert.InDelta(t, equity*0.10*2*10/10_000, entryShort, 1e-12)
	assert.Equal(t, entryShort, entryLong)
	assert.Equal(t, entryShort, exitLong)
	assert.Equal(t, entryShort, exitShort)

	// A full reversal is two units of change.
	reversal := TransitionCost(equity, domain.SideShortSpread, domain.SideLongSpread, p)
	assert.InDelta(t, 2*entryShort, reversal, 1e-12)

	assert.Zero(t, TransitionCost(equity, domain.SideLongSpread, domain.SideLongSpread, p))
}

func TestTransitionCost_ScalesWithCostBP(t *testing.T) {
	p := DefaultParams()
	p.CostBP = 0
	assert.Zero(t, TransitionCost(10_000, domain.SideFlat, domain.SideLongSpread, p))

	p.CostBP = 25
	assert.InDelta(t, 10_000*0.10*2*0.0025, TransitionCost(10_000, domain.SideFlat, domain.SideLongSpread, p), 1e-12)
}

func TestDailyPnL(t *testing.T) {
	// Long spread: short leg B, long beta units of leg A.
	pnl := DailyPnL(domain.SideLongSpread, 1.5, 1_000, 0.02, 0.01)
	assert.InDelta(t, -1_000*0.01+1.5*1_000*0.02, pnl, 1e-12)

	short := DailyPnL(domain.SideShortSpread, 1.5, 1_000, 0.02, 0.01)
	assert.InDelta(t, -pnl, short, 1e-12)

	assert.Zero(t, DailyPnL(domain.SideFlat, 1.5, 1_000, 0.02, 0.01))
}

func TestAdvance_ChargesCostBeforePnL(t *testing.T) {
	p := DefaultParams()
	st := State{Equity: 10_000}
	in := DayInput{
		Model:      HedgeModel{Beta: 0.5},
		PrevZ:      -1.5,
		HasPrevZ:   true,
		RetA:       0.01,
		RetB:       -0.02,
		HasReturns: true,
	}

	next, rec := Advance(st, in, p)
	assert.Equal(t, domain.SideLongSpread, rec.Position)
	assert.InDelta(t, 2.0, rec.Cost, 1e-12)

	afterCost := 10_000 - 2.0
	wantPnL := -1*afterCost*0.10*-0.02 + 1*0.5*afterCost*0.10*0.01
	assert.InDelta(t, wantPnL, rec.PnL, 1e-9)
	assert.InDelta(t, afterCost+wantPnL, next.Equity, 1e-9)
	assert.Equal(t, next.Equity, rec.Equity)
}

func TestSimpleReturn(t *testing.T) {
	assert.InDelta(t, 0.05, simpleReturn(100, 105), 1e-12)
	assert.InDelta(t, -0.5, simpleReturn(10, 5), 1e-12)
}
