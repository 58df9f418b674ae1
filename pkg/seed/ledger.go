package seed

import (
	"context"
	"time"
)

// LedgerTable is the relation that records applied seeders.
const LedgerTable = "after_seeders"

// LedgerEntry records one applied seeder.
type LedgerEntry struct {
	Seeder    string
	Batch     int
	Tag       *string
	AppliedAt time.Time
}

// Ledger is the append-only record of applied seeders.
//
// NextBatchNumber is max(batch)+1 with no locking; two concurrent runs
// against the same ledger may share or skip a batch number.
type Ledger interface {
	// AppliedNames returns every seeder ever logged, under any tag.
	AppliedNames(ctx context.Context) (map[string]struct{}, error)
	// NextBatchNumber returns max(batch)+1, or 1 for an empty ledger.
	NextBatchNumber(ctx context.Context) (int, error)
	Record(ctx context.Context, entry LedgerEntry) error
}

// LedgerReader lists ledger entries in application order.
type LedgerReader interface {
	Entries(ctx context.Context) ([]LedgerEntry, error)
}
