package ledger

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS synced_proposals (
	proposal_id TEXT PRIMARY KEY,
	synced_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteLedger stores delivered proposal ids in a SQLite table. Batch
// appends run in a transaction, so group atomicity comes from the engine
// rather than write ordering.
type SQLiteLedger struct {
	db  *sql.DB
	ids map[string]struct{}
}

// OpenSQLite opens (and if needed creates) the ledger database at path and
// loads the full id set into memory.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open sqlite %s", path)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ledger: migrate")
	}

	rows, err := db.Query(`SELECT proposal_id FROM synced_proposals`)
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ledger: load")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			db.Close()
			return nil, eris.Wrap(err, "ledger: scan")
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ledger: iterate")
	}

	return &SQLiteLedger{db: db, ids: ids}, nil
}

func (l *SQLiteLedger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l *SQLiteLedger) Len() int {
	return len(l.ids)
}

// AppendAll records the batch in one transaction.
func (l *SQLiteLedger) AppendAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "ledger: begin tx")
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO synced_proposals (proposal_id) VALUES (?)`, id,
		); err != nil {
			return eris.Wrapf(err, "ledger: insert %s", id)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "ledger: commit")
	}

	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
