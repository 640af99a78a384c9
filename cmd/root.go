package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealsync",
	Short: "Sale-to-CRM sync pipeline",
	Long:  "Extracts sale proposals from the policy database, matches them to Pipedrive deals by seller phone, and logs each sale as a completed activity on its deal, exactly once.",
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
