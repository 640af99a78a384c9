package ledger

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileLedger stores delivered proposal ids in a newline-delimited
// append-only text file, one id per line.
type FileLedger struct {
	file *os.File
	ids  map[string]struct{}
}

// OpenFile loads the ledger at path, creating an empty one if it does not
// exist yet.
func OpenFile(path string) (*FileLedger, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, eris.Wrapf(err, "ledger: read %s", path)
	}

	return &FileLedger{file: f, ids: ids}, nil
}

func (l *FileLedger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l *FileLedger) Len() int {
	return len(l.ids)
}

// AppendAll writes the batch as a single buffered write followed by fsync,
// so a crash cannot leave part of a group on disk without the rest.
func (l *FileLedger) AppendAll(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	if _, err := l.file.WriteString(sb.String()); err != nil {
		return eris.Wrap(err, "ledger: append")
	}
	if err := l.file.Sync(); err != nil {
		return eris.Wrap(err, "ledger: sync")
	}

	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return nil
}

func (l *FileLedger) Close() error {
	return l.file.Close()
}
