package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pairlab/internal/strategy/pairs"
)

// DefaultPath is used when neither --config nor PAIRLAB_CONFIG is set.
const DefaultPath = "config/pairlab.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for pairlab.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Fetch    Fetch          `yaml:"fetch"`
	Backtest pairs.Params   `yaml:"backtest"`
	Pairs    []PairPreset   `yaml:"pairs"`
	Screener ScreenerConfig `yaml:"screener"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger. File is optional; when set,
// output is also written to a rotating log file.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Fetch controls daily bar downloads.
type Fetch struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"` // empty: latest finished trading day
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
	Offline         bool   `yaml:"offline"` // read only the local bar cache
}

// PairPreset names a pair to backtest. Empty dates fall back to Fetch.
type PairPreset struct {
	Name    string `yaml:"name"`
	SymbolA string `yaml:"symbol_a"`
	SymbolB string `yaml:"symbol_b"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

// ScreenerConfig controls the cointegration screener.
type ScreenerConfig struct {
	Symbols     []string `yaml:"symbols"`
	Workers     int      `yaml:"workers"`
	MaxLag      int      `yaml:"max_lag"` // 0: 12*(n/100)^(1/4)
	Top         int      `yaml:"top"`
	BacktestTop int      `yaml:"backtest_top"`
}

// SweepConfig is the parameter grid for sweeps. Empty axes keep the
// backtest value.
type SweepConfig struct {
	EntryZ      []float64 `yaml:"entry_z"`
	ExitZ       []float64 `yaml:"exit_z"`
	Window      []int     `yaml:"window"`
	RefreshBeta []int     `yaml:"refresh_beta"`
	MaxHold     []int     `yaml:"max_hold"`
	CostBP      []float64 `yaml:"cost_bp"`
	Workers     int       `yaml:"workers"`
}

// XLKSymbols is the default screener universe.
var XLKSymbols = []string{
	"AAPL", "MSFT", "NVDA", "AVGO", "ADBE", "CRM", "AMD", "CSCO", "NFLX", "INTU",
	"QCOM", "ORCL", "ACN", "TXN", "AMAT", "IBM", "ADP", "LRCX", "MU", "NOW", "PANW",
	"INTC", "KLAC", "SNPS", "ANET", "CDNS", "MSI", "FTNT", "MCHP", "PAYX", "CTSH",
	"APH", "ADI", "NXPI", "AKAM", "HPE", "STX", "TEL", "KEYS", "GLW", "HPQ", "ZBRA",
	"TER", "WDAY", "TYL", "EPAM", "GPN", "GRMN", "DXC", "FFIV", "CDW", "PTC", "IT",
	"JKHY", "ON", "SWKS", "QRVO", "ENPH", "SEDG", "RNG", "DOCU", "OKTA", "DDOG",
	"ZS", "CRWD",
}

// Default returns the configuration used before any file or environment
// values are applied.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/pairlab.db",
		},
		Alpaca: Alpaca{
			BaseURL: "https://api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
			Feed:    "sip",
		},
		Logging: Logging{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxAgeDays: 30,
			MaxBackups: 5,
		},
		Fetch: Fetch{
			StartDate:       "2021-01-01",
			BatchSize:       100,
			MaxWorkers:      4,
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
		Backtest: pairs.DefaultParams(),
		Pairs: []PairPreset{
			{Name: "nxpi-amat", SymbolA: "AMAT", SymbolB: "NXPI"},
		},
		Screener: ScreenerConfig{
			Symbols: append([]string(nil), XLKSymbols...),
			Workers: 8,
			Top:     10,
		},
		Sweep: SweepConfig{
			EntryZ:  []float64{1.0, 1.5, 2.0},
			ExitZ:   []float64{0.0, 0.5},
			MaxHold: []int{5, 10, 20},
			Workers: 8,
		},
	}
}

// Preset returns the named pair preset.
func (c *Config) Preset(name string) (PairPreset, bool) {
	for _, p := range c.Pairs {
		if p.Name == name {
			return p, true
		}
	}
	return PairPreset{}, false
}

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if err := c.Backtest.Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	if c.Fetch.BatchSize < 1 {
		return fmt.Errorf("fetch.batch_size must be positive, got %d", c.Fetch.BatchSize)
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.Name == "" || p.SymbolA == "" || p.SymbolB == "" {
			return fmt.Errorf("pair preset %q needs name, symbol_a and symbol_b", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pair preset %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over Default(),
// then applies environment variable overrides. A missing file at DefaultPath
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath picks the config path: the flag value, then PAIRLAB_CONFIG,
// then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("PAIRLAB_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars win over the pairlab-specific ones.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
