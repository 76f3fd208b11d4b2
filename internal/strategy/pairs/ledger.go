package pairs

import (
	"math"

	"pairlab/internal/domain"
)

// TransitionCost is the cost of moving from position from to position to
// with the given equity: |Δ| · equity · legFraction · 2 · costBP/10000.
func TransitionCost(equity float64, from, to domain.PositionSide, p Params) float64 {
	delta := math.Abs(float64(to - from))
	if delta == 0 {
		return 0
	}
	return delta * equity * p.LegFraction * p.costRate()
}

// DailyPnL is the profit of holding pos for one day with the given leg
// notional. Leg B is held against the position and leg A with it, scaled by
// beta.
func DailyPnL(pos domain.PositionSide, beta, legNotional, retA, retB float64) float64 {
	s := float64(pos)
	return -s*legNotional*retB + s*beta*legNotional*retA
}

// simpleReturn is the close-to-close return from prev to cur.
func simpleReturn(prev, cur float64) float64 {
	return cur/prev - 1
}
