package us

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/gather"
	"pairlab/internal/store"
)

type fakeBars struct {
	mu       sync.Mutex
	data     map[string][]marketdata.Bar
	calls    [][]string
	requests []marketdata.GetBarsRequest
	failures int // fail this many calls before succeeding
}

func (f *fakeBars) GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), symbols...))
	f.requests = append(f.requests, req)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("429 too many requests")
	}
	out := make(map[string][]marketdata.Bar)
	for _, s := range symbols {
		if bars, ok := f.data[s]; ok {
			out[s] = bars
		}
	}
	return out, nil
}

func nyMidnight(d int) time.Time {
	return time.Date(2024, 3, d, 4, 0, 0, 0, time.UTC)
}

func testData() map[string][]marketdata.Bar {
	return map[string][]marketdata.Bar{
		"AMAT": {
			{Timestamp: nyMidnight(4), Close: 200, Volume: 10},
			{Timestamp: nyMidnight(5), Close: 202, Volume: 11},
		},
		"NXPI": {
			{Timestamp: nyMidnight(4), Close: 240, Volume: 12},
			{Timestamp: nyMidnight(5), Close: 238, Volume: 13},
		},
		"KLAC": {
			{Timestamp: nyMidnight(5), Close: 700, Volume: 14},
		},
	}
}

func TestFetchDailyCloses(t *testing.T) {
	client := &fakeBars{data: testData()}
	f := newDailyCloseFetcher(client, nil, FetcherOptions{BatchSize: 2, MaxWorkers: 2})

	tab, err := f.FetchDailyCloses(context.Background(), []string{"amat", "nxpi", "klac", "NOPE"},
		nyMidnight(1), nyMidnight(31))
	require.NoError(t, err)

	// Two batches of at most two symbols each.
	require.Len(t, client.calls, 2)
	for _, c := range client.calls {
		assert.LessOrEqual(t, len(c), 2)
	}
	for _, r := range client.requests {
		assert.Equal(t, marketdata.OneDay, r.TimeFrame)
		assert.Equal(t, marketdata.Adjustment("all"), r.Adjustment)
		assert.EqualValues(t, "sip", r.Feed)
	}

	assert.Equal(t, []string{"AMAT", "NXPI", "KLAC"}, tab.Symbols)
	// KLAC has no bar on the 4th, so that leading row is dropped.
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, []float64{202}, tab.Close("AMAT"))
	assert.Equal(t, []float64{238}, tab.Close("NXPI"))
}

func TestFetchBars_RetriesAndCaches(t *testing.T) {
	client := &fakeBars{data: testData(), failures: 2}
	cache := store.NewParquetStore(t.TempDir())
	f := newDailyCloseFetcher(client, cache, FetcherOptions{
		BatchSize:   10,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})

	ctx := context.Background()
	bars, err := f.FetchBars(ctx, []string{"AMAT", "NXPI"}, nyMidnight(1), nyMidnight(31))
	require.NoError(t, err)
	assert.Len(t, bars, 4)
	assert.Len(t, client.calls, 3)

	cached, err := cache.ListSymbols(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMAT", "NXPI"}, cached)
}

func TestFetchBars_GivesUp(t *testing.T) {
	client := &fakeBars{data: testData(), failures: 5}
	f := newDailyCloseFetcher(client, nil, FetcherOptions{MaxAttempts: 2, RetryDelay: time.Millisecond})

	_, err := f.FetchBars(context.Background(), []string{"AMAT"}, nyMidnight(1), nyMidnight(31))
	assert.ErrorContains(t, err, "429")
	assert.Len(t, client.calls, 2)
}

func TestCacheFiller(t *testing.T) {
	client := &fakeBars{data: testData()}
	cache := store.NewParquetStore(t.TempDir())
	f := newDailyCloseFetcher(client, cache, FetcherOptions{BatchSize: 1, MaxWorkers: 3})

	span := gather.DateRange{Start: nyMidnight(1), End: nyMidnight(31)}
	g := NewCacheFiller(f, []string{"KLAC", "AMAT", "ZZZZ"}, span)
	assert.Equal(t, "us-daily", g.Name())
	require.NoError(t, g.Run(context.Background()))

	syms, err := cache.ListSymbols(context.Background(), "us")
	require.NoError(t, err)
	sort.Strings(syms)
	assert.Equal(t, []string{"AMAT", "KLAC"}, syms)

	open := NewCacheFiller(f, []string{"AMAT"}, gather.DateRange{Start: nyMidnight(1)})
	assert.Error(t, open.Run(context.Background()))

	noCache := NewCacheFiller(newDailyCloseFetcher(client, nil, FetcherOptions{}), []string{"AMAT"}, span)
	assert.Error(t, noCache.Run(context.Background()))
}

func TestBatch(t *testing.T) {
	got := batch([]string{"A", "B", "C", "D", "E"}, 2)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}, {"E"}}, got)
	assert.Empty(t, batch(nil, 3))
}

type fakeCalendar struct {
	days []alpaca.CalendarDay
	err  error
}

func (f fakeCalendar) GetCalendar(alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	return f.days, f.err
}

func TestLatestFinishedTradingDay(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cal := fakeCalendar{days: []alpaca.CalendarDay{
		{Date: "2024-03-07"},
		{Date: "2024-03-08"},
		{Date: "2024-03-11"},
	}}

	// Monday before the cutoff: Friday is the latest finished day.
	got, err := LatestFinishedTradingDay(cal, time.Date(2024, 3, 11, 15, 0, 0, 0, et))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), got)

	// Monday evening: Monday itself.
	got, err = LatestFinishedTradingDay(cal, time.Date(2024, 3, 11, 21, 0, 0, 0, et))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = LatestFinishedTradingDay(fakeCalendar{}, time.Now())
	assert.Error(t, err)

	_, err = LatestFinishedTradingDay(fakeCalendar{err: errors.New("down")}, time.Now())
	assert.Error(t, err)
}
