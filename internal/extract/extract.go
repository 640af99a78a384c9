// Package extract pulls sale records out of the policy database and
// normalizes them into model.Sale values.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cabure-tech/dealsync/internal/db"
	"github.com/cabure-tech/dealsync/internal/model"
	"github.com/cabure-tech/dealsync/internal/phone"
)

// crmProducts maps source product codes to their CRM product ids. Codes
// outside this table map to model.UnknownProductID.
var crmProducts = map[int]int{
	100001: 2,
	100002: 3,
	100003: 4,
}

// MapProduct returns the CRM product id for a source product code.
func MapProduct(code int) int {
	if id, ok := crmProducts[code]; ok {
		return id
	}
	return model.UnknownProductID
}

// Only these product lines are synced to the CRM. Statuses 3 and 13 are
// cancelled/declined proposals; referrers 2, 4 and 5 are internal test
// accounts whose sales must never reach the sales pipeline.
const salesQuery = `
SELECT
	ssp.id_proposta,
	ssp.id_tabela,
	ssp.total_premio_final,
	ssp.data_cadastro,
	COALESCE(sa.celular, ''),
	ssp.id_segurado
FROM seg_seguro_proposta ssp
JOIN seg_agenciador sa ON sa.id_agenciador = ssp.id_agenciador
WHERE ssp.data_cadastro >= $1
	AND ssp.data_cadastro < $2
	AND ssp.id_tabela IN (100001, 100002, 100003)
	AND ssp.id_situacao NOT IN (3, 13)
	AND (sa.id_mentor IS NULL OR sa.id_mentor NOT IN (2, 4, 5))
ORDER BY ssp.data_cadastro`

// Extractor reads sales for a date window from the policy database.
type Extractor struct {
	pool db.Pool
}

// New creates an Extractor on the given pool.
func New(pool db.Pool) *Extractor {
	return &Extractor{pool: pool}
}

// Extract returns the sales registered in [from, to). A query failure is
// fatal to the caller's run; a partial window is worse than no window.
func (e *Extractor) Extract(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	rows, err := e.pool.Query(ctx, salesQuery, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "extract: query sales")
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var (
			proposalID  string
			productID   int
			premium     float64
			saleDate    time.Time
			sellerPhone string
			insuredID   int
		)
		if err := rows.Scan(&proposalID, &productID, &premium, &saleDate, &sellerPhone, &insuredID); err != nil {
			return nil, eris.Wrap(err, "extract: scan sale")
		}
		if proposalID == "" {
			// Malformed row, drop it rather than sync garbage.
			continue
		}
		sales = append(sales, model.Sale{
			ProposalID:   proposalID,
			ProductID:    productID,
			Premium:      premium,
			SaleDate:     saleDate,
			SellerPhone:  sellerPhone,
			PhoneKey:     phone.Normalize(sellerPhone),
			CRMProductID: MapProduct(productID),
			InsuredID:    insuredID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "extract: iterate sales")
	}

	zap.L().Debug("extracted sales",
		zap.Int("count", len(sales)),
		zap.Time("from", from),
		zap.Time("to", to),
	)
	return sales, nil
}
