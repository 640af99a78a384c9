// Package reconcile joins extracted sales against the deal directory and
// the sync ledger, groups the survivors per deal, and delivers each group
// to the CRM with all-or-nothing semantics.
package reconcile

import (
	"github.com/cabure-tech/dealsync/internal/ledger"
	"github.com/cabure-tech/dealsync/internal/model"
)

// Group is the unit of delivery: every pending sale destined for one deal,
// in extraction encounter order.
type Group struct {
	DealID int
	Sales  []model.Sale
}

// ProposalIDs returns the proposal ids of the group's sales, in order.
func (g Group) ProposalIDs() []string {
	ids := make([]string, len(g.Sales))
	for i, s := range g.Sales {
		ids[i] = s.ProposalID
	}
	return ids
}

// Plan is the outcome of reconciliation. Groups holds deliverable work in
// first-encounter order of the target deal; Unmatched and AlreadySynced
// are diagnostics only.
type Plan struct {
	Groups        []Group
	Unmatched     []model.Sale
	AlreadySynced []model.Sale
}

// Sales returns the total number of sales across all groups.
func (p Plan) Sales() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Sales)
	}
	return n
}

// BuildPlan classifies every sale exactly once. A sale with no directory
// entry for its phone key goes to Unmatched and stays eligible next run,
// since nothing is written to the ledger. A sale whose proposal id is
// already in the ledger goes to AlreadySynced. Anything else joins the
// group of its matched deal. A sale never lands in more than one group.
func BuildPlan(sales []model.Sale, deals map[string]model.Deal, led ledger.Ledger) Plan {
	var plan Plan
	groupIdx := make(map[int]int)

	for _, sale := range sales {
		deal, ok := deals[sale.PhoneKey]
		if !ok {
			plan.Unmatched = append(plan.Unmatched, sale)
			continue
		}
		if led.Contains(sale.ProposalID) {
			plan.AlreadySynced = append(plan.AlreadySynced, sale)
			continue
		}

		i, ok := groupIdx[deal.ID]
		if !ok {
			i = len(plan.Groups)
			groupIdx[deal.ID] = i
			plan.Groups = append(plan.Groups, Group{DealID: deal.ID})
		}
		plan.Groups[i].Sales = append(plan.Groups[i].Sales, sale)
	}

	return plan
}
