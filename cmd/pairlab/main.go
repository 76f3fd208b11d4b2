// Command pairlab backtests, screens, and sweeps mean-reversion pairs
// strategies on daily closes.
//
// Usage:
//
//	pairlab fetch
//	pairlab backtest nxpi-amat
//	pairlab screen --backtest-top 3
//	pairlab sweep --a KO --b PEP
//	pairlab runs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pairlab/internal/config"
	"pairlab/internal/util"
)

const version = "0.1.0"

var (
	cfgFlag      string
	logLevelFlag string
	offlineFlag  bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:          "pairlab",
		Short:        "Pairs-trading backtests on daily closes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(cfgFlag)
			c, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if logLevelFlag != "" {
				c.Logging.Level = logLevelFlag
			}
			if offlineFlag {
				c.Fetch.Offline = true
			}
			cfg = c
			util.SetDefault(util.NewLogger(cfg.Logging))
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the pairlab version",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairlab %s\n", version)
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFlag, "config", "", "config file (default $PAIRLAB_CONFIG or "+config.DefaultPath+")")
	pf.StringVar(&logLevelFlag, "log-level", "", "override logging.level (debug, info, warn, error)")
	pf.BoolVar(&offlineFlag, "offline", false, "read prices only from the local bar cache")

	rootCmd.AddCommand(versionCmd, fetchCmd, backtestCmd, screenCmd, sweepCmd, runsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
