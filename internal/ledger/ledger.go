// Package ledger tracks which proposal ids have already been delivered to
// the CRM. An id recorded here is never delivered again by any future run.
package ledger

import "context"

// Ledger is the persisted set of delivered proposal ids. Implementations
// load the full set at open; Contains is a pure in-memory test. AppendAll
// must be durable before it returns and atomic for the batch it is given:
// either every id of a delivered group is recorded or none is.
//
// A single run owns the backing store; concurrent runs against the same
// store are not supported.
type Ledger interface {
	Contains(id string) bool
	AppendAll(ctx context.Context, ids []string) error
	Len() int
	Close() error
}
