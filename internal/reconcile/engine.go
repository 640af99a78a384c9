package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/ledger"
	"github.com/cabure-tech/dealsync/internal/model"
)

// SaleSource yields the sales of a date window, start inclusive, end
// exclusive.
type SaleSource interface {
	Extract(ctx context.Context, from, to time.Time) ([]model.Sale, error)
}

// DealSource builds the phone-key to deal directory.
type DealSource interface {
	Build(ctx context.Context) (map[string]model.Deal, error)
}

// Deliverer delivers one group, all-or-nothing.
type Deliverer interface {
	Deliver(ctx context.Context, g Group) error
}

// GroupFailure reports one failed delivery group: the target deal and
// every proposal id that was part of the attempt.
type GroupFailure struct {
	DealID      int
	ProposalIDs []string
	Err         error
}

// Report summarizes a run.
type Report struct {
	Extracted      int
	Unmatched      int
	AlreadySynced  int
	Groups         int
	GroupsDone     int
	SalesDelivered int
	Failures       []GroupFailure
	DryRun         bool
}

// Engine runs the pipeline: extract and build the directory, reconcile
// against the ledger, then deliver group by group. Execution is strictly
// sequential; the ledger is the only mutable state.
type Engine struct {
	sales  SaleSource
	deals  DealSource
	led    ledger.Ledger
	deliv  Deliverer
	dryRun bool
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(sales SaleSource, deals DealSource, led ledger.Ledger, deliv Deliverer, dryRun bool) *Engine {
	return &Engine{sales: sales, deals: deals, led: led, deliv: deliv, dryRun: dryRun}
}

// Run executes one sync for the [from, to) window. Extraction or directory
// failure aborts with nothing delivered. Delivery failures are scoped to
// their group: they land in the report and the run moves on, so the exit
// is clean even when groups failed.
func (e *Engine) Run(ctx context.Context, from, to time.Time) (*Report, error) {
	log := zap.L().With(zap.String("component", "reconcile"))

	deals, err := e.deals.Build(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: build deal directory")
	}

	sales, err := e.sales.Extract(ctx, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: extract sales")
	}

	plan := BuildPlan(sales, deals, e.led)
	for _, s := range plan.Unmatched {
		log.Warn("no deal for seller phone",
			zap.String("proposal_id", s.ProposalID),
			zap.String("phone_key", s.PhoneKey),
		)
	}
	for _, s := range plan.AlreadySynced {
		log.Debug("already synced, skipping", zap.String("proposal_id", s.ProposalID))
	}

	report := &Report{
		Extracted:     len(sales),
		Unmatched:     len(plan.Unmatched),
		AlreadySynced: len(plan.AlreadySynced),
		Groups:        len(plan.Groups),
		DryRun:        e.dryRun,
	}

	for _, g := range plan.Groups {
		log.Info("delivering group",
			zap.Int("deal_id", g.DealID),
			zap.Int("sales", len(g.Sales)),
			zap.Bool("dry_run", e.dryRun),
		)
		if e.dryRun {
			continue
		}

		if err := e.deliv.Deliver(ctx, g); err != nil {
			log.Error("group delivery failed",
				zap.Int("deal_id", g.DealID),
				zap.Strings("proposal_ids", g.ProposalIDs()),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, GroupFailure{
				DealID:      g.DealID,
				ProposalIDs: g.ProposalIDs(),
				Err:         err,
			})
			continue
		}
		report.GroupsDone++
		report.SalesDelivered += len(g.Sales)
	}

	return report, nil
}
