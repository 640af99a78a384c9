package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger status",
	Long:  "Displays how many proposals the configured ledger records as already synced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger(cfg.Ledger)
		if err != nil {
			return eris.Wrap(err, "status: open ledger")
		}
		defer led.Close()

		fmt.Printf("Ledger %s (%s): %d proposals synced\n",
			cfg.Ledger.Path, cfg.Ledger.Driver, led.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
