package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pairlab/internal/strategy/pairs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairlab.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "ALPACA_BASE_URL", "ALPACA_DATA_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/pairlab/data"
  sqlite_path: "/tmp/pairlab/pairlab.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  feed: "iex"
logging:
  level: "debug"
  format: "text"
  file: "/tmp/pairlab/pairlab.log"
fetch:
  start_date: "2020-01-01"
  batch_size: 50
backtest:
  entry_z: 2.0
  window: 126
  invert_b: false
pairs:
  - name: ko-pep
    symbol_a: KO
    symbol_b: PEP
    start: "2018-01-01"
screener:
  symbols: [KO, PEP, XOM]
  top: 5
sweep:
  entry_z: [1.5, 2.5]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/pairlab/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/pairlab/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/pairlab/pairlab.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/pairlab/pairlab.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "iex" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "iex")
	}
	if cfg.Alpaca.DataURL != "https://data.alpaca.markets" {
		t.Errorf("Alpaca.DataURL = %q, want default", cfg.Alpaca.DataURL)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 100 {
		t.Errorf("Logging.MaxSizeMB = %d, want default 100", cfg.Logging.MaxSizeMB)
	}

	// -- Fetch --
	if cfg.Fetch.BatchSize != 50 {
		t.Errorf("Fetch.BatchSize = %d, want %d", cfg.Fetch.BatchSize, 50)
	}
	if cfg.Fetch.MaxAttempts != 3 {
		t.Errorf("Fetch.MaxAttempts = %d, want default 3", cfg.Fetch.MaxAttempts)
	}

	// -- Backtest: unset keys keep defaults --
	want := pairs.DefaultParams()
	want.EntryZ = 2.0
	want.Window = 126
	want.InvertB = false
	if cfg.Backtest != want {
		t.Errorf("Backtest = %+v, want %+v", cfg.Backtest, want)
	}

	// -- Presets --
	p, ok := cfg.Preset("ko-pep")
	if !ok || p.SymbolA != "KO" || p.SymbolB != "PEP" || p.Start != "2018-01-01" {
		t.Errorf("Preset(ko-pep) = %+v, %v", p, ok)
	}
	if _, ok := cfg.Preset("nxpi-amat"); ok {
		t.Error("file presets should replace the default list")
	}

	// -- Screener / Sweep --
	if len(cfg.Screener.Symbols) != 3 || cfg.Screener.Top != 5 {
		t.Errorf("Screener = %+v", cfg.Screener)
	}
	if len(cfg.Sweep.EntryZ) != 2 || len(cfg.Sweep.MaxHold) != 3 {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}

	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want APCA_API_KEY_ID to win", cfg.Alpaca.APIKey)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}

	bad := writeConfig(t, "backtest:\n  entry_z: 0.2\n  exit_z: 0.5\n")
	if _, err := Load(bad); !errors.Is(err, pairs.ErrInvalidParams) {
		t.Errorf("Load(exit > entry) error = %v, want ErrInvalidParams", err)
	}

	dup := writeConfig(t, "pairs:\n  - {name: x, symbol_a: A, symbol_b: B}\n  - {name: x, symbol_a: C, symbol_b: D}\n")
	if _, err := Load(dup); err == nil {
		t.Error("Load(duplicate presets) returned nil error")
	}

	garbage := writeConfig(t, "storage: [not, a, map]\n")
	if _, err := Load(garbage); err == nil {
		t.Error("Load(garbage) returned nil error")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("PAIRLAB_CONFIG", "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultPath)
	}
	t.Setenv("PAIRLAB_CONFIG", "/etc/pairlab.yaml")
	if got := ResolvePath(""); got != "/etc/pairlab.yaml" {
		t.Errorf("ResolvePath with env = %q", got)
	}
	if got := ResolvePath("flag.yaml"); got != "flag.yaml" {
		t.Errorf("ResolvePath(flag) = %q", got)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}
