package pairs

import "gonum.org/v1/gonum/stat"

// SpreadObservation is the spread state for one date. RollMean and RollStd
// summarize the window of spreads strictly before the date, evaluated under
// the model valid on the date.
type SpreadObservation struct {
	Spread   float64
	RollMean float64
	RollStd  float64

	// Z is the normalized spread. It is zero and ZDefined is false when
	// RollStd is zero.
	Z        float64
	ZDefined bool
}

// residual returns legB - (alpha + beta*legA).
func (m HedgeModel) residual(a, b float64) float64 {
	return b - (m.Alpha + m.Beta*a)
}

// observeSpread computes the spread on index i and its trailing statistics
// over indices [i-window, i).
func observeSpread(l legs, i, window int, m HedgeModel) SpreadObservation {
	hist := make([]float64, window)
	for k := range hist {
		j := i - window + k
		hist[k] = m.residual(l.a[j], l.b[j])
	}
	mean, std := stat.MeanStdDev(hist, nil)

	obs := SpreadObservation{
		Spread:   m.residual(l.a[i], l.b[i]),
		RollMean: mean,
		RollStd:  std,
	}
	if std != 0 && finite(std) {
		obs.Z = (obs.Spread - mean) / std
		obs.ZDefined = true
	}
	return obs
}
