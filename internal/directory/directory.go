// Package directory builds the phone-key to deal mapping from the CRM's
// deal listing. The mapping is built once per run and read-only afterward.
package directory

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/model"
	"github.com/cabure-tech/dealsync/internal/phone"
	"github.com/cabure-tech/dealsync/pkg/pipedrive"
)

// CollisionPolicy decides which deal wins when two deals share a phone key.
type CollisionPolicy string

const (
	// LastWins keeps the deal seen later in pagination order. The CRM
	// gives no principled tie-break, so this mirrors what a plain map
	// insert does.
	LastWins CollisionPolicy = "last-wins"
	// FirstWins keeps the deal seen first.
	FirstWins CollisionPolicy = "first-wins"
)

// DefaultMaxPages bounds the pagination loop so a misbehaving endpoint
// that always reports more items cannot spin forever.
const DefaultMaxPages = 1000

// Lister is the single CRM operation the directory needs.
type Lister interface {
	ListDeals(ctx context.Context, start int) (*pipedrive.DealsPage, error)
}

// Builder pages through the CRM deal listing and assembles the directory.
type Builder struct {
	lister   Lister
	policy   CollisionPolicy
	maxPages int
}

// NewBuilder creates a Builder with the given collision policy. A zero
// maxPages falls back to DefaultMaxPages.
func NewBuilder(lister Lister, policy CollisionPolicy, maxPages int) *Builder {
	if policy == "" {
		policy = LastWins
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Builder{lister: lister, policy: policy, maxPages: maxPages}
}

// Build fetches every page of the deal listing and returns the mapping
// from phone key to deal. Deals whose contact carries no phone value are skipped;
// they can never match a sale. Only the contact's first phone entry is
// considered. Any page failure is fatal: a partial directory would
// misclassify sales as unmatched.
func (b *Builder) Build(ctx context.Context) (map[string]model.Deal, error) {
	deals := make(map[string]model.Deal)

	start := 0
	for page := 0; ; page++ {
		if page >= b.maxPages {
			return nil, eris.Errorf("directory: pagination exceeded %d pages", b.maxPages)
		}

		p, err := b.lister.ListDeals(ctx, start)
		if err != nil {
			return nil, eris.Wrapf(err, "directory: list deals at offset %d", start)
		}

		for _, item := range p.Deals {
			if len(item.Person.Phone) == 0 || item.Person.Phone[0].Value == "" {
				continue
			}
			deal := model.Deal{
				ID:        item.ID,
				Name:      item.Person.Name,
				Phone:     item.Person.Phone[0].Value,
				OwnerName: item.OwnerName,
			}
			if len(item.Person.Email) > 0 {
				deal.Email = item.Person.Email[0].Value
			}

			key := phone.Normalize(deal.Phone)
			if _, seen := deals[key]; seen && b.policy == FirstWins {
				continue
			}
			deals[key] = deal
		}

		if !p.MoreItems {
			break
		}
		start = p.NextStart
	}

	zap.L().Debug("built deal directory", zap.Int("deals", len(deals)))
	return deals, nil
}
