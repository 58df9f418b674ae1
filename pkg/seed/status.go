package seed

import (
	"context"
	"fmt"
	"time"
)

// StatusRow is one line of a status listing.
type StatusRow struct {
	Seeder    string
	Applied   bool
	Batch     int
	Tag       *string
	AppliedAt time.Time
}

// Status lists every seeder in the repository, plus ledger entries whose
// files are gone, in name order.
func Status(ctx context.Context, repo Repository, ledger LedgerReader) ([]StatusRow, error) {
	names, err := NewDiscovery(repo).List(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	byName := make(map[string]LedgerEntry, len(entries))
	for _, entry := range entries {
		byName[entry.Seeder] = entry
	}

	rows := make([]StatusRow, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[name] = struct{}{}
		row := StatusRow{Seeder: name}
		if entry, ok := byName[name]; ok {
			row.Applied = true
			row.Batch = entry.Batch
			row.Tag = entry.Tag
			row.AppliedAt = entry.AppliedAt
		}
		rows = append(rows, row)
	}
	for _, entry := range entries {
		if _, ok := seen[entry.Seeder]; ok {
			continue
		}
		rows = append(rows, StatusRow{
			Seeder:    entry.Seeder,
			Applied:   true,
			Batch:     entry.Batch,
			Tag:       entry.Tag,
			AppliedAt: entry.AppliedAt,
		})
	}
	return rows, nil
}
