package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/model"
	"github.com/cabure-tech/dealsync/pkg/pipedrive"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// memLedger is an in-memory ledger recording every committed batch.
type memLedger struct {
	ids       map[string]struct{}
	batches   [][]string
	appendErr error
}

func newMemLedger(ids ...string) *memLedger {
	l := &memLedger{ids: make(map[string]struct{})}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return l
}

func (l *memLedger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l *memLedger) Len() int { return len(l.ids) }

func (l *memLedger) AppendAll(_ context.Context, ids []string) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.batches = append(l.batches, ids)
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return nil
}

func (l *memLedger) Close() error { return nil }

// fakeCRM records delivery calls and can fail the nth activity.
type fakeCRM struct {
	products      []pipedrive.AddProductRequest
	activities    []pipedrive.ActivityRequest
	activityCalls int
	failAt        int // fail the nth CreateActivity call (1-based); 0 = never
	productErr    error
}

func (c *fakeCRM) AddDealProduct(_ context.Context, _ int, req pipedrive.AddProductRequest) error {
	if c.productErr != nil {
		return c.productErr
	}
	c.products = append(c.products, req)
	return nil
}

func (c *fakeCRM) CreateActivity(_ context.Context, req pipedrive.ActivityRequest) error {
	c.activityCalls++
	if c.failAt > 0 && c.activityCalls == c.failAt {
		return errActivityRejected
	}
	c.activities = append(c.activities, req)
	return nil
}

var errActivityRejected = pipedriveStatusError{}

type pipedriveStatusError struct{}

func (pipedriveStatusError) Error() string { return "pipedrive: unexpected status 400" }

// saleFixture builds a sale with the canonical test phone.
func saleFixture(proposalID string, insuredID int) model.Sale {
	return model.Sale{
		ProposalID:   proposalID,
		ProductID:    100002,
		Premium:      150.50,
		SaleDate:     time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		SellerPhone:  "+55 (11) 98888-7777",
		PhoneKey:     "11988887777",
		CRMProductID: 3,
		InsuredID:    insuredID,
	}
}

func twoSales() []model.Sale {
	return []model.Sale{saleFixture("A1", 1), saleFixture("A2", 2)}
}

func threeSales() []model.Sale {
	return []model.Sale{saleFixture("A1", 1), saleFixture("A2", 2), saleFixture("A3", 3)}
}

// staticSales is a SaleSource returning a fixed slice.
type staticSales struct {
	sales []model.Sale
	err   error
}

func (s staticSales) Extract(context.Context, time.Time, time.Time) ([]model.Sale, error) {
	return s.sales, s.err
}

// staticDeals is a DealSource returning a fixed directory.
type staticDeals struct {
	deals map[string]model.Deal
	err   error
}

func (s staticDeals) Build(context.Context) (map[string]model.Deal, error) {
	return s.deals, s.err
}
