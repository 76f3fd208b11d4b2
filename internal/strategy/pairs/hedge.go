package pairs

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// HedgeModel is a fitted linear hedge legB = Alpha + Beta*legA, valid from
// FittedOn until the next refresh.
type HedgeModel struct {
	Alpha    float64
	Beta     float64
	FittedOn time.Time
}

// FitHedge regresses y on x with an intercept by ordinary least squares.
// A window whose regressor has zero variance returns ErrDegenerateRegression.
func FitHedge(x, y []float64) (alpha, beta float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("fit hedge: length mismatch %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("%w: %d observations", ErrDegenerateRegression, len(x))
	}
	if v := stat.Variance(x, nil); !(v > 0) || math.IsInf(v, 0) {
		return 0, 0, fmt.Errorf("%w: regressor variance %v", ErrDegenerateRegression, v)
	}

	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if !finite(alpha) || !finite(beta) {
		return 0, 0, fmt.Errorf("%w: non-finite fit alpha=%v beta=%v", ErrDegenerateRegression, alpha, beta)
	}
	return alpha, beta, nil
}

// refreshDue reports whether the hedge model is refitted on date index i.
func refreshDue(i, window, refresh int) bool {
	return i >= window && (i-window)%refresh == 0
}

// fitWindow fits the hedge over the window observations strictly before i.
func fitWindow(l legs, i, window int, date time.Time) (HedgeModel, error) {
	alpha, beta, err := FitHedge(l.a[i-window:i], l.b[i-window:i])
	if err != nil {
		return HedgeModel{}, err
	}
	return HedgeModel{Alpha: alpha, Beta: beta, FittedOn: date}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
