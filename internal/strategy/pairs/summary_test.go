package pairs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/domain"
)

func recordsFrom(equity []float64, positions []domain.PositionSide) []Record {
	out := make([]Record, len(equity))
	for i := range equity {
		out[i] = Record{Date: testStart.AddDate(0, 0, i), Equity: equity[i]}
		if positions != nil {
			out[i].Position = positions[i]
		}
	}
	return out
}

func TestSummarize_TradeCount(t *testing.T) {
	pos := []domain.PositionSide{0, 0, -1, -1, 0, 1, 0}
	eq := []float64{100, 100, 100, 100, 100, 100, 100}
	s := Summarize(recordsFrom(eq, pos), 100)
	assert.Equal(t, 4, s.TradeCount)
	assert.Equal(t, 3, s.DaysInMarket)
}

func TestSummarize_ConstantEquitySharpeUndefined(t *testing.T) {
	s := Summarize(recordsFrom([]float64{100, 100, 100, 100}, nil), 100)
	assert.False(t, s.Sharpe.Defined)
	assert.Nil(t, s.Sharpe.Ptr())
	assert.Equal(t, "undefined", s.Sharpe.String())

	require.True(t, s.CAGR.Defined)
	assert.Zero(t, s.CAGR.Value)
	assert.Zero(t, s.MaxDrawdown)
}

func TestSummarize_CAGR(t *testing.T) {
	s := Summarize(recordsFrom([]float64{100, 110}, nil), 100)
	require.True(t, s.CAGR.Defined)
	assert.InDelta(t, math.Pow(1.1, 252)-1, s.CAGR.Value, 1e-6*math.Pow(1.1, 252))
	assert.Equal(t, 1, s.ReturnDays)
	assert.Equal(t, 110.0, s.FinalEquity)

	single := Summarize(recordsFrom([]float64{100}, nil), 100)
	assert.False(t, single.CAGR.Defined)
	assert.False(t, single.Sharpe.Defined)
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.0}
	mean := (0.01 - 0.005 + 0.02) / 4
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 3)

	got := SharpeRatio(returns)
	require.True(t, got.Defined)
	assert.InDelta(t, mean/std*math.Sqrt(252), got.Value, 1e-9)
	assert.NotNil(t, got.Ptr())

	assert.False(t, SharpeRatio([]float64{0.01}).Defined)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 0.25, MaxDrawdown([]float64{100, 120, 90, 130}), 1e-12)
	assert.Zero(t, MaxDrawdown([]float64{100, 101, 102}))
}

func TestDailyReturns(t *testing.T) {
	r := DailyReturns([]float64{100, 110, 99})
	require.Len(t, r, 2)
	assert.InDelta(t, 0.1, r[0], 1e-12)
	assert.InDelta(t, -0.1, r[1], 1e-12)
	assert.Nil(t, DailyReturns([]float64{100}))
}

func TestResultSeries(t *testing.T) {
	res := &Result{Records: []Record{
		{Date: testStart, Equity: 100},
		{Date: testStart.AddDate(0, 0, 1), Equity: 101, HasModel: true, Obs: SpreadObservation{Spread: 0.5, Z: 1.1, RollMean: 0.2, RollStd: 0.3}},
	}}
	assert.Len(t, res.EquitySeries(), 2)

	z := res.ZSeries()
	require.Len(t, z, 1)
	assert.Equal(t, 1.1, z[0].Value)
	assert.Equal(t, testStart.AddDate(0, 0, 1), z[0].Date)
	assert.Equal(t, 0.5, res.SpreadSeries()[0].Value)
	assert.Equal(t, 0.2, res.RollMeanSeries()[0].Value)
	assert.Equal(t, 0.3, res.RollStdSeries()[0].Value)
}
