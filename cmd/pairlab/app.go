package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pairlab/internal/config"
	"pairlab/internal/domain"
	"pairlab/internal/gather"
	"pairlab/internal/gather/us"
	"pairlab/internal/prices"
	"pairlab/internal/store"
	"pairlab/internal/strategy"
)

// app holds the stores and price source shared by the commands.
type app struct {
	cfg  *config.Config
	bars *store.ParquetStore
	db   *store.SQLiteStore
}

func openApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating sqlite dir: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:  cfg,
		bars: store.NewParquetStore(cfg.Storage.DataDir),
		db:   db,
	}, nil
}

func (a *app) Close() error { return a.db.Close() }

func (a *app) online() bool { return !a.cfg.Fetch.Offline }

// fetcher builds the Alpaca fetcher, writing through to the bar cache.
func (a *app) fetcher() (*us.DailyCloseFetcher, error) {
	if a.cfg.Alpaca.APIKey == "" || a.cfg.Alpaca.APISecret == "" {
		return nil, errors.New("alpaca credentials are not set (APCA_API_KEY_ID / APCA_API_SECRET_KEY); use --offline to read the bar cache")
	}
	f := a.cfg.Fetch
	return us.NewDailyCloseFetcher(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL, a.bars, us.FetcherOptions{
		Feed:            a.cfg.Alpaca.Feed,
		BatchSize:       f.BatchSize,
		MaxWorkers:      f.MaxWorkers,
		RateLimitPerMin: f.RateLimitPerMin,
		MaxAttempts:     f.MaxAttempts,
	}), nil
}

// provider returns the price source: the bar cache when offline, Alpaca
// otherwise.
func (a *app) provider() (prices.Provider, error) {
	if !a.online() {
		return prices.NewStoreProvider(a.bars, domain.MarketUS), nil
	}
	return a.fetcher()
}

// span parses start and end, falling back to the fetch range, and closes an
// open end at the latest finished trading day (today when offline).
func (a *app) span(ctx context.Context, start, end string) (gather.DateRange, error) {
	if start == "" {
		start = a.cfg.Fetch.StartDate
	}
	if end == "" {
		end = a.cfg.Fetch.EndDate
	}
	r, err := gather.ParseDateRange(start, end)
	if err != nil {
		return r, err
	}
	return a.closeSpan(ctx, r)
}

func (a *app) closeSpan(ctx context.Context, r gather.DateRange) (gather.DateRange, error) {
	if !r.OpenEnded() {
		return r, nil
	}
	if !a.online() {
		now := time.Now().UTC()
		r.End = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}
	client := us.NewCalendarClient(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.BaseURL)
	end, err := us.LatestFinishedTradingDay(client, time.Now())
	if err != nil {
		return r, err
	}
	slog.Debug("resolved end date", "end", end.Format(gather.DateLayout))
	r.End = end
	return r, nil
}

// backtester wires a Backtester to the app's stores and presets.
func (a *app) backtester() (*strategy.Backtester, *strategy.Registry, error) {
	p, err := a.provider()
	if err != nil {
		return nil, nil, err
	}
	reg, err := strategy.NewRegistryFromConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	return strategy.NewBacktester(p, reg, a.bars, a.db), reg, nil
}
