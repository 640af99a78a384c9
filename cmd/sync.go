package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/db"
	"github.com/cabure-tech/dealsync/internal/directory"
	"github.com/cabure-tech/dealsync/internal/extract"
	"github.com/cabure-tech/dealsync/internal/reconcile"
	"github.com/cabure-tech/dealsync/pkg/pipedrive"
)

const dateLayout = "2006-01-02"

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync sales into Pipedrive",
	Long: `Sync sale proposals from the policy database into Pipedrive.

Sales in the [--from, --to) window are matched to deals by the seller's
phone number. Each matched sale is logged as a completed activity on its
deal; proposals already recorded in the ledger are skipped. Delivery is
all-or-nothing per deal: a failed push leaves the whole deal's batch out
of the ledger so the next run retries it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		if err := cfg.Validate(); err != nil {
			return err
		}

		from, to, err := parseWindow(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		pool, err := db.Connect(ctx, cfg.Source.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "sync: connect source db")
		}
		defer pool.Close()

		led, err := openLedger(cfg.Ledger)
		if err != nil {
			return eris.Wrap(err, "sync: open ledger")
		}
		defer led.Close()

		crm := pipedrive.NewClient(cfg.Pipedrive.APIToken, cfg.Pipedrive.FilterID,
			pipedrive.WithBaseURL(cfg.Pipedrive.BaseURL))

		builder := directory.NewBuilder(crm,
			directory.CollisionPolicy(cfg.Sync.CollisionPolicy), cfg.Sync.MaxPages)
		dispatcher := reconcile.NewDispatcher(crm, led, reconcile.DispatcherConfig{
			ActivityType:  cfg.Pipedrive.ActivityType,
			PushProducts:  cfg.Pipedrive.PushProducts,
			CommitPerSale: cfg.Ledger.CommitPerSale,
		})
		engine := reconcile.NewEngine(extract.New(pool), builder, led, dispatcher, dryRun)

		log.Info("starting sync",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Bool("dry_run", dryRun),
		)

		report, err := engine.Run(ctx, from, to)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		printReport(report)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("from", "", "window start date, inclusive (YYYY-MM-DD)")
	syncCmd.Flags().String("to", "", "window end date, exclusive (default: today)")
	syncCmd.Flags().Bool("dry-run", false, "plan and report groups without delivering")
	_ = syncCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(syncCmd)
}

// parseWindow extracts the [from, to) dates from the command flags.
func parseWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "sync: parse --from %q", fromStr)
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	if toStr != "" {
		to, err = time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrapf(err, "sync: parse --to %q", toStr)
		}
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, eris.Errorf("sync: --to %s must be after --from %s",
			to.Format(dateLayout), from.Format(dateLayout))
	}
	return from, to, nil
}

// printReport writes the run summary to stdout. Group failures are listed
// but do not change the exit status; they retry naturally on the next run.
func printReport(r *reconcile.Report) {
	if r.DryRun {
		pending := r.Extracted - r.Unmatched - r.AlreadySynced
		fmt.Printf("Dry run: %d sales extracted, %d unmatched, %d already synced, would deliver %d in %d groups\n",
			r.Extracted, r.Unmatched, r.AlreadySynced, pending, r.Groups)
		return
	}

	fmt.Printf("Extracted %d sales: %d unmatched, %d already synced, %d delivered in %d/%d groups\n",
		r.Extracted, r.Unmatched, r.AlreadySynced, r.SalesDelivered, r.GroupsDone, r.Groups)

	for _, f := range r.Failures {
		fmt.Printf("FAILED deal %d (proposals %s): %v\n",
			f.DealID, strings.Join(f.ProposalIDs, ", "), f.Err)
	}
}
