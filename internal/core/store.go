package core

import (
	"context"
	"errors"
	"sort"
)

// ErrRowConflict is returned by EntityStore.Insert when the row violates a
// table constraint. The write is undone and the transaction stays usable.
var ErrRowConflict = errors.New("row conflicts with existing data")

// EntityStore is the view of the store inside an import transaction.
type EntityStore interface {
	// FindID returns the id of a row of def whose columns equal match. A nil
	// value matches NULL; time values compare at second precision.
	FindID(ctx context.Context, def *EntityDefinition, match Record) (int64, bool, error)
	// Insert writes rec and returns its id. Any error other than
	// ErrRowConflict is fatal to the transaction.
	Insert(ctx context.Context, def *EntityDefinition, rec Record) (int64, error)
}

// Store owns entity persistence.
type Store interface {
	// InTx runs fn in one transaction, committed only if fn returns nil.
	InTx(ctx context.Context, fn func(tx EntityStore) error) error
	// List returns every row of def ordered by id, each with an "id" entry.
	List(ctx context.Context, def *EntityDefinition) ([]Record, error)
}

// sortedColumns returns the keys of rec in a stable order.
func sortedColumns(rec Record) []string {
	cols := make([]string, 0, len(rec))
	for c := range rec {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
