package reconcile

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/ledger"
	"github.com/cabure-tech/dealsync/internal/model"
	"github.com/cabure-tech/dealsync/pkg/pipedrive"
)

// CRM is the write side of the Pipedrive client the dispatcher needs.
type CRM interface {
	AddDealProduct(ctx context.Context, dealID int, req pipedrive.AddProductRequest) error
	CreateActivity(ctx context.Context, req pipedrive.ActivityRequest) error
}

// DispatcherConfig controls how groups are delivered.
type DispatcherConfig struct {
	// ActivityType is the CRM activity type key for a completed sale.
	ActivityType string
	// PushProducts also attaches each sale as a priced line item before
	// logging its activity.
	PushProducts bool
	// CommitPerSale appends each proposal id to the ledger right after
	// its own delivery succeeds, instead of once per group. This trades
	// group-level ledger atomicity for no redelivery of the succeeded
	// prefix when a group fails partway.
	CommitPerSale bool
}

// Dispatcher delivers deal groups to the CRM. A group is all-or-nothing:
// the first failed call fails the whole group and nothing further in it is
// attempted.
type Dispatcher struct {
	crm CRM
	led ledger.Ledger
	cfg DispatcherConfig
}

// NewDispatcher creates a Dispatcher writing through the given CRM client
// and committing successes to led.
func NewDispatcher(crm CRM, led ledger.Ledger, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{crm: crm, led: led, cfg: cfg}
}

// Deliver pushes every sale of the group to the CRM. On full success the
// group's proposal ids are durably appended to the ledger before Deliver
// returns, so a crash afterward cannot redeliver them. On any failure the
// group is reported failed and (in per-group mode) none of its ids are
// committed; the next run re-attempts the whole group.
func (d *Dispatcher) Deliver(ctx context.Context, g Group) error {
	log := zap.L().With(zap.Int("deal_id", g.DealID))

	for _, sale := range g.Sales {
		if err := d.deliverSale(ctx, g.DealID, sale); err != nil {
			return eris.Wrapf(err, "deliver: deal %d proposal %s", g.DealID, sale.ProposalID)
		}
		if d.cfg.CommitPerSale {
			if err := d.led.AppendAll(ctx, []string{sale.ProposalID}); err != nil {
				return eris.Wrapf(err, "deliver: commit proposal %s", sale.ProposalID)
			}
		}
		log.Debug("delivered sale", zap.String("proposal_id", sale.ProposalID))
	}

	if !d.cfg.CommitPerSale {
		if err := d.led.AppendAll(ctx, g.ProposalIDs()); err != nil {
			// Delivery side effects happened but the ledger did not
			// record them; the next run will redeliver this group.
			return eris.Wrapf(err, "deliver: commit group for deal %d", g.DealID)
		}
	}
	return nil
}

func (d *Dispatcher) deliverSale(ctx context.Context, dealID int, sale model.Sale) error {
	if d.cfg.PushProducts {
		err := d.crm.AddDealProduct(ctx, dealID, pipedrive.AddProductRequest{
			ProductID: sale.CRMProductID,
			ItemPrice: sale.Premium,
			Quantity:  1,
		})
		if err != nil {
			return err
		}
	}

	return d.crm.CreateActivity(ctx, pipedrive.ActivityRequest{
		DealID:  dealID,
		DueDate: sale.SaleDate.Format("2006-01-02"),
		Type:    d.cfg.ActivityType,
		Subject: fmt.Sprintf("Venda - Segurado %d", sale.InsuredID),
		Done:    1,
	})
}
