package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pairlab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ RunStore = (*SQLiteStore)(nil)
var _ ScreenStore = (*SQLiteStore)(nil)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements RunStore and ScreenStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		symbol_a     TEXT    NOT NULL,
		symbol_b     TEXT    NOT NULL,
		start_ms     INTEGER NOT NULL,
		end_ms       INTEGER NOT NULL,
		params       TEXT    NOT NULL,
		trade_count  INTEGER NOT NULL,
		cagr         REAL,
		sharpe       REAL,
		max_drawdown REAL    NOT NULL,
		final_equity REAL    NOT NULL,
		created_ms   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_created ON runs (created_ms DESC)`,
	`CREATE TABLE IF NOT EXISTS screen_candidates (
		screen_id   TEXT    NOT NULL,
		rank        INTEGER NOT NULL,
		created_ms  INTEGER NOT NULL,
		symbol_a    TEXT    NOT NULL,
		symbol_b    TEXT    NOT NULL,
		correlation REAL    NOT NULL,
		adf_stat    REAL    NOT NULL,
		p_value     REAL    NOT NULL,
		used_lag    INTEGER NOT NULL,
		alpha       REAL    NOT NULL,
		beta        REAL    NOT NULL,
		PRIMARY KEY (screen_id, rank)
	)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, symbol_a, symbol_b, start_ms, end_ms, params, trade_count, cagr, sharpe, max_drawdown, final_equity, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SymbolA, run.SymbolB,
		run.Start.UnixMilli(), run.End.UnixMilli(), run.Params, run.TradeCount,
		nullFloat(run.CAGR), nullFloat(run.Sharpe),
		run.MaxDrawdown, run.FinalEquity, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, symbol_a, symbol_b, start_ms, end_ms, params, trade_count, cagr, sharpe, max_drawdown, final_equity, created_ms`

// GetRun retrieves a run summary by ID. It returns ErrNotFound when no such
// run exists.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, up to limit. A
// non-positive limit returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_ms DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.RunSummary, error) {
	var (
		run                       domain.RunSummary
		startMS, endMS, createdMS int64
		cagr, sharpe              sql.NullFloat64
	)
	err := sc.Scan(&run.ID, &run.SymbolA, &run.SymbolB, &startMS, &endMS, &run.Params,
		&run.TradeCount, &cagr, &sharpe, &run.MaxDrawdown, &run.FinalEquity, &createdMS)
	if err != nil {
		return nil, err
	}
	run.Start = time.UnixMilli(startMS).UTC()
	run.End = time.UnixMilli(endMS).UTC()
	run.CreatedAt = time.UnixMilli(createdMS).UTC()
	run.CAGR = floatPtr(cagr)
	run.Sharpe = floatPtr(sharpe)
	return &run, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ---------------------------------------------------------------------------
// ScreenStore implementation
// ---------------------------------------------------------------------------

// SaveScreen stores candidates in the given order; rank 1 is the first.
func (s *SQLiteStore) SaveScreen(ctx context.Context, screenID string, createdAt time.Time, candidates []domain.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO screen_candidates
		(screen_id, rank, created_ms, symbol_a, symbol_b, correlation, adf_stat, p_value, used_lag, alpha, beta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range candidates {
		if _, err := stmt.ExecContext(ctx, screenID, i+1, createdAt.UnixMilli(),
			c.SymbolA, c.SymbolB, c.Correlation, c.ADFStat, c.PValue, c.UsedLag, c.Alpha, c.Beta); err != nil {
			return fmt.Errorf("saving candidate %s/%s: %w", c.SymbolA, c.SymbolB, err)
		}
	}
	return tx.Commit()
}

// ListCandidates returns a screen's candidates in rank order, up to limit. A
// non-positive limit returns every candidate.
func (s *SQLiteStore) ListCandidates(ctx context.Context, screenID string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT symbol_a, symbol_b, correlation, adf_stat, p_value, used_lag, alpha, beta
		FROM screen_candidates WHERE screen_id = ? ORDER BY rank LIMIT ?`, screenID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing candidates for %s: %w", screenID, err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.SymbolA, &c.SymbolB, &c.Correlation, &c.ADFStat, &c.PValue, &c.UsedLag, &c.Alpha, &c.Beta); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
