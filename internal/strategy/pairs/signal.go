package pairs

import (
	"math"

	"pairlab/internal/domain"
)

// Thresholds parameterize the position state machine.
type Thresholds struct {
	EntryZ  float64
	ExitZ   float64
	MaxHold int
}

// NextPosition decides today's target position from yesterday's z-score.
//
// From flat it enters against the sign of z when |z| exceeds EntryZ. From a
// held position it exits when |z| falls below ExitZ or the position has
// already been held MaxHold days; otherwise it holds. It never reverses
// directly from one side to the other.
func NextPosition(pos domain.PositionSide, daysHeld int, zPrev float64, th Thresholds) domain.PositionSide {
	absZ := math.Abs(zPrev)
	switch {
	case pos == domain.SideFlat && absZ > th.EntryZ:
		if zPrev > 0 {
			return domain.SideShortSpread
		}
		return domain.SideLongSpread
	case pos != domain.SideFlat && (absZ < th.ExitZ || daysHeld >= th.MaxHold):
		return domain.SideFlat
	default:
		return pos
	}
}

// advanceHeld returns the holding counter after adopting pos.
func advanceHeld(pos domain.PositionSide, daysHeld int) int {
	if pos == domain.SideFlat {
		return 0
	}
	return daysHeld + 1
}
