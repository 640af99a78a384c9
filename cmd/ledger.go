package main

import (
	"github.com/rotisserie/eris"

	"github.com/cabure-tech/dealsync/internal/config"
	"github.com/cabure-tech/dealsync/internal/ledger"
)

// openLedger opens the synced-proposal ledger configured in cfg.
func openLedger(cfg config.LedgerConfig) (ledger.Ledger, error) {
	switch cfg.Driver {
	case "file":
		return ledger.OpenFile(cfg.Path)
	case "sqlite":
		return ledger.OpenSQLite(cfg.Path)
	default:
		return nil, eris.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
