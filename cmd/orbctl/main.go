package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applogger "ORBLab/pkg/logger"
)

const version = "v0.4.0"

func main() {
	root := &cobra.Command{
		Use:           "orbctl",
		Short:         "Offline opening-range-breakout backtests over CSV bars",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	root.PersistentFlags().String("strategies", "configs/strategies.yaml", "Strategy registry file")
	root.PersistentFlags().String("costs", "configs/costs.yaml", "Cost spec file")

	root.AddCommand(newRunCmd(), newStrategiesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger writes human-readable logs to stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command) (*applogger.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr", TimeFormat: "15:04:05"})
}
