// Package store defines storage interfaces for persisting and retrieving
// daily bars, per-date backtest tables, run summaries, and screener results.
package store

import (
	"context"
	"time"

	"pairlab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// RunTableStore persists the per-date output table of a backtest run.
type RunTableStore interface {
	WriteRunTable(ctx context.Context, runID string, rows []RunRow) error
	ReadRunTable(ctx context.Context, runID string) ([]RunRow, error)
}

// RunStore persists run summaries.
type RunStore interface {
	// SaveRun inserts a run summary.
	SaveRun(ctx context.Context, run *domain.RunSummary) error

	// GetRun retrieves a run summary by ID.
	GetRun(ctx context.Context, id string) (*domain.RunSummary, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// ScreenStore persists screener output.
type ScreenStore interface {
	// SaveScreen stores a ranked candidate list under a new screen ID.
	SaveScreen(ctx context.Context, screenID string, createdAt time.Time, candidates []domain.Candidate) error

	// ListCandidates returns a screen's candidates in rank order, up to limit.
	ListCandidates(ctx context.Context, screenID string, limit int) ([]domain.Candidate, error)
}
