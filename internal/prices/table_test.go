package prices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/domain"
	"pairlab/internal/store"
)

func day(d int) time.Time {
	// Alpaca stamps daily bars at midnight New York time.
	return time.Date(2024, 1, d, 5, 0, 0, 0, time.UTC)
}

func TestAlign_ForwardFillAndDropLeading(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "AAA", Timestamp: day(2), Close: 10},
		{Symbol: "AAA", Timestamp: day(3), Close: 11},
		{Symbol: "AAA", Timestamp: day(5), Close: 12},
		{Symbol: "BBB", Timestamp: day(3), Close: 20},
		{Symbol: "BBB", Timestamp: day(4), Close: 21},
		{Symbol: "BBB", Timestamp: day(5), Close: 22},
	}
	tab := Align(bars, []string{"AAA", "BBB", "ZZZ"})

	assert.Equal(t, []string{"AAA", "BBB"}, tab.Symbols)
	assert.False(t, tab.Has("ZZZ"))
	require.Equal(t, 3, tab.Len())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), tab.Dates[0])

	assert.Equal(t, []float64{11, 11, 12}, tab.Close("AAA"))
	assert.Equal(t, []float64{20, 21, 22}, tab.Close("BBB"))
}

func TestAlign_IgnoresBadClosesAndDuplicates(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "AAA", Timestamp: day(2), Close: 0},
		{Symbol: "AAA", Timestamp: day(3), Close: 5},
	}
	tab := Align(bars, []string{"AAA", "AAA"})
	assert.Equal(t, []string{"AAA"}, tab.Symbols)
	assert.Equal(t, []float64{5}, tab.Close("AAA"))
}

func TestTable_Pair(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "AAA", Timestamp: day(2), Close: 10},
		{Symbol: "BBB", Timestamp: day(2), Close: 20},
		{Symbol: "AAA", Timestamp: day(3), Close: 11},
		{Symbol: "BBB", Timestamp: day(3), Close: 19},
	}
	tab := Align(bars, []string{"AAA", "BBB"})

	h, err := tab.Pair("AAA", "BBB")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 19.0, h.Row(1).CloseB)

	_, err = tab.Pair("AAA", "CCC")
	assert.Error(t, err)
}

func TestStoreProvider(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, ps.WriteBarsForMarket([]domain.Bar{
		{Symbol: "AAA", Timestamp: day(2), Close: 10},
		{Symbol: "AAA", Timestamp: day(3), Close: 11},
		{Symbol: "BBB", Timestamp: day(2), Close: 20},
		{Symbol: "BBB", Timestamp: day(3), Close: 21},
	}, "us"))

	p := NewStoreProvider(ps, domain.MarketUS)
	tab, err := p.FetchDailyCloses(ctx, []string{"AAA", "BBB", "MISSING"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, tab.Symbols)
	assert.Equal(t, []float64{10, 11}, tab.Close("AAA"))
}
