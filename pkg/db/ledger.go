package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"afterseed/pkg/seed"
)

type ledgerModel struct {
	ID        uint64 `gorm:"primaryKey"`
	Seeder    string
	Batch     int
	Tag       *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ledgerModel) TableName() string { return seed.LedgerTable }

// Ledger persists applied seeders in the after_seeders table.
type Ledger struct {
	orm     *gorm.DB
	timeout time.Duration
}

var (
	_ seed.Ledger       = (*Ledger)(nil)
	_ seed.LedgerReader = (*Ledger)(nil)
)

// NewLedger wraps an open handle. Migrate must have run first.
func NewLedger(orm *gorm.DB, timeout time.Duration) (*Ledger, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ledger{orm: orm, timeout: timeout}, nil
}

func (l *Ledger) AppliedNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	err := WithTimeout(ctx, l.timeout, func(ctx context.Context) error {
		return l.orm.WithContext(ctx).Model(&ledgerModel{}).Pluck("seeder", &names).Error
	})
	if err != nil {
		return nil, err
	}
	applied := make(map[string]struct{}, len(names))
	for _, n := range names {
		applied[n] = struct{}{}
	}
	return applied, nil
}

func (l *Ledger) NextBatchNumber(ctx context.Context) (int, error) {
	var maxBatch sql.NullInt64
	err := WithTimeout(ctx, l.timeout, func(ctx context.Context) error {
		return l.orm.WithContext(ctx).Model(&ledgerModel{}).Select("MAX(batch)").Row().Scan(&maxBatch)
	})
	if err != nil {
		return 0, err
	}
	return int(maxBatch.Int64) + 1, nil
}

func (l *Ledger) Record(ctx context.Context, entry seed.LedgerEntry) error {
	row := ledgerModel{
		Seeder:    entry.Seeder,
		Batch:     entry.Batch,
		Tag:       entry.Tag,
		CreatedAt: entry.AppliedAt,
		UpdatedAt: entry.AppliedAt,
	}
	return WithTimeout(ctx, l.timeout, func(ctx context.Context) error {
		return l.orm.WithContext(ctx).Create(&row).Error
	})
}

// Entries returns every ledger row in insertion order.
func (l *Ledger) Entries(ctx context.Context) ([]seed.LedgerEntry, error) {
	var rows []ledgerModel
	err := WithTimeout(ctx, l.timeout, func(ctx context.Context) error {
		return l.orm.WithContext(ctx).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	entries := make([]seed.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, seed.LedgerEntry{
			Seeder:    r.Seeder,
			Batch:     r.Batch,
			Tag:       r.Tag,
			AppliedAt: r.CreatedAt,
		})
	}
	return entries, nil
}
