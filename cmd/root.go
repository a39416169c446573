package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fidata",
	Short: "Append-only enrichment log for financial inclusion data",
	Long:  "Collects, validates, and analyzes manually gathered financial inclusion data points with full provenance. Records are never edited; corrections supersede.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
