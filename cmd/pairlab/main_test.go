package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/config"
	"pairlab/internal/strategy/pairs"
)

func TestUniverse(t *testing.T) {
	c := config.Default()
	c.Screener.Symbols = []string{"msft", "AAPL", "AMAT"}
	c.Pairs = []config.PairPreset{{Name: "x", SymbolA: "AMAT", SymbolB: "nxpi"}}
	assert.Equal(t, []string{"AAPL", "AMAT", "MSFT", "NXPI"}, universe(c))
}

func TestFirstPositive(t *testing.T) {
	assert.Equal(t, 5, firstPositive(0, 5, 7))
	assert.Equal(t, 3, firstPositive(3, 5))
	assert.Equal(t, 0, firstPositive(0, -1))
}

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	fs := cmd.Flags()
	fs.Float64Var(&override.EntryZ, "entry-z", 0, "")
	fs.IntVar(&override.Window, "window", 0, "")
	fs.BoolVar(&override.InvertB, "invert-b", false, "")
	require.NoError(t, fs.Parse([]string{"--entry-z", "2.5", "--invert-b=false"}))

	base := pairs.DefaultParams()
	got := applyOverrides(fs, base)
	assert.Equal(t, 2.5, got.EntryZ)
	assert.False(t, got.InvertB)
	assert.Equal(t, base.Window, got.Window, "unset flags keep the base value")
	assert.Equal(t, base.ExitZ, got.ExitZ)
}

func TestLoadExampleConfig(t *testing.T) {
	c, err := config.Load("../../config/pairlab.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Pairs, 2)
	assert.Equal(t, []float64{5, 10}, c.Sweep.CostBP)
	assert.Equal(t, 252, c.Backtest.Window)
}
