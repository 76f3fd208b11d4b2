package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pairlab/internal/domain"
	"pairlab/internal/gather"
	"pairlab/internal/prices"
	"pairlab/internal/store"
	"pairlab/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ prices.Provider = (*DailyCloseFetcher)(nil)
var _ gather.Gatherer = (*CacheFiller)(nil)

// barsClient is the subset of the Alpaca market-data client used here.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// FetcherOptions tunes batching, pacing, and retries.
type FetcherOptions struct {
	Feed            string // "sip" or "iex"
	BatchSize       int    // symbols per API call
	MaxWorkers      int    // concurrent batch requests
	RateLimitPerMin int    // API calls per minute; 0 disables pacing
	MaxAttempts     int
	RetryDelay      time.Duration
}

// ---------------------------------------------------------------------------
// DailyCloseFetcher: split- and dividend-adjusted daily bars from Alpaca.
// ---------------------------------------------------------------------------

// DailyCloseFetcher downloads daily bars for a symbol list via the Alpaca
// market-data API and aligns their closes. Downloaded bars are written
// through to the bar cache when one is configured.
type DailyCloseFetcher struct {
	client  barsClient
	cache   store.BarStore // optional
	opts    FetcherOptions
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewDailyCloseFetcher creates a fetcher using the given Alpaca credentials.
// cache may be nil.
func NewDailyCloseFetcher(apiKey, apiSecret, dataURL string, cache store.BarStore, opts FetcherOptions) *DailyCloseFetcher {
	mdOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		mdOpts.BaseURL = dataURL
	}
	return newDailyCloseFetcher(marketdata.NewClient(mdOpts), cache, opts)
}

func newDailyCloseFetcher(client barsClient, cache store.BarStore, opts FetcherOptions) *DailyCloseFetcher {
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.Feed == "" {
		opts.Feed = "sip"
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}

	limit := rate.Inf
	if opts.RateLimitPerMin > 0 {
		limit = rate.Limit(float64(opts.RateLimitPerMin) / 60)
	}
	return &DailyCloseFetcher{
		client:  client,
		cache:   cache,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     slog.Default().With("component", "us-daily"),
	}
}

// FetchDailyCloses downloads adjusted daily bars for symbols over
// [start, end], end date inclusive, and returns the aligned close table.
// Symbols Alpaca has no data for are dropped with a warning.
func (f *DailyCloseFetcher) FetchDailyCloses(ctx context.Context, symbols []string, start, end time.Time) (*prices.Table, error) {
	bars, err := f.FetchBars(ctx, symbols, start, prices.DayEnd(end))
	if err != nil {
		return nil, err
	}

	got := make(map[string]bool)
	for _, b := range bars {
		got[b.Symbol] = true
	}
	for _, sym := range symbols {
		if !got[strings.ToUpper(sym)] {
			f.log.Warn("no bars returned, dropping symbol", "symbol", sym)
		}
	}
	return prices.Align(bars, upper(symbols)), nil
}

// FetchBars downloads daily bars in batches of BatchSize symbols, with up to
// MaxWorkers requests in flight. When a cache is configured the bars are
// written to it before returning.
func (f *DailyCloseFetcher) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	batches := batch(upper(symbols), f.opts.BatchSize)
	runStart := time.Now()

	var (
		mu  sync.Mutex
		all []domain.Bar
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.MaxWorkers)
	for i, syms := range batches {
		g.Go(func() error {
			bars, err := f.fetchBatch(gctx, syms, start, end)
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			if f.cache != nil && len(bars) > 0 {
				if err := f.cache.WriteBars(gctx, bars); err != nil {
					return fmt.Errorf("caching batch %d/%d: %w", i+1, len(batches), err)
				}
			}
			mu.Lock()
			all = append(all, bars...)
			mu.Unlock()

			f.log.Info("batch done",
				"batch", fmt.Sprintf("%d/%d", i+1, len(batches)),
				"symbols", len(syms),
				"bars", len(bars),
				"elapsed", time.Since(runStart).Round(time.Millisecond),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// fetchBatch fetches daily bars for multiple symbols in a single paced,
// retried API call.
func (f *DailyCloseFetcher) fetchBatch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var multiBars map[string][]marketdata.Bar
	backoff := util.Backoff{MaxAttempts: f.opts.MaxAttempts, BaseDelay: f.opts.RetryDelay, MaxDelay: time.Minute}
	err := backoff.Do(ctx, "GetMultiBars", func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		multiBars, err = f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Adjustment: marketdata.Adjustment("all"),
			Start:      start,
			End:        end,
			Feed:       marketdata.Feed(f.opts.Feed),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}

// ---------------------------------------------------------------------------
// CacheFiller: populates the local bar cache for a configured universe.
// ---------------------------------------------------------------------------

// CacheFiller downloads a fixed symbol list into the bar cache so later
// backtests and screens can run offline.
type CacheFiller struct {
	fetcher *DailyCloseFetcher
	symbols []string
	span    gather.DateRange
	log     *slog.Logger
}

// NewCacheFiller creates a gatherer filling the fetcher's cache with symbols
// over span. The fetcher must have a cache.
func NewCacheFiller(f *DailyCloseFetcher, symbols []string, span gather.DateRange) *CacheFiller {
	return &CacheFiller{
		fetcher: f,
		symbols: symbols,
		span:    span,
		log:     slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (c *CacheFiller) Name() string { return "us-daily" }

// Run fetches every symbol over the configured span and writes the bars to
// the cache. The span must be closed; see LatestFinishedTradingDay.
func (c *CacheFiller) Run(ctx context.Context) error {
	if c.fetcher.cache == nil {
		return fmt.Errorf("us-daily: fetcher has no bar cache")
	}
	if err := c.span.Validate(); err != nil {
		return err
	}
	if c.span.OpenEnded() {
		return fmt.Errorf("us-daily: open-ended range %s", c.span)
	}

	runStart := time.Now()
	c.log.Info("starting us-daily", "range", c.span.String(), "symbols", len(c.symbols))
	bars, err := c.fetcher.FetchBars(ctx, c.symbols, c.span.Start, prices.DayEnd(c.span.End))
	if err != nil {
		return err
	}

	hits := make(map[string]struct{})
	for _, b := range bars {
		hits[b.Symbol] = struct{}{}
	}
	c.log.Info("complete",
		"hits", len(hits),
		"empty", len(c.symbols)-len(hits),
		"bars", len(bars),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

func upper(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func batch(symbols []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(symbols); i += size {
		end := min(i+size, len(symbols))
		batches = append(batches, symbols[i:end])
	}
	return batches
}
