package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afterseed/pkg/seed"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	ledger, err := NewLedger(openTestDB(t), 0)
	require.NoError(t, err)

	next, err := ledger.NextBatchNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	applied, err := ledger.AppliedNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	tag := "staging"
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Record(ctx, seed.LedgerEntry{Seeder: "2024_01_01_000000_users", Batch: 1, AppliedAt: at}))
	require.NoError(t, ledger.Record(ctx, seed.LedgerEntry{Seeder: "2024_01_02_000000_roles", Batch: 3, Tag: &tag, AppliedAt: at}))

	next, err = ledger.NextBatchNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	applied, err = ledger.AppliedNames(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.Contains(t, applied, "2024_01_02_000000_roles")

	entries, err := ledger.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024_01_01_000000_users", entries[0].Seeder)
	assert.Nil(t, entries[0].Tag)
	require.NotNil(t, entries[1].Tag)
	assert.Equal(t, "staging", *entries[1].Tag)
	assert.True(t, at.Equal(entries[1].AppliedAt))
}

func TestLedgerRejectsDuplicateSeeder(t *testing.T) {
	ctx := context.Background()
	ledger, err := NewLedger(openTestDB(t), 0)
	require.NoError(t, err)

	entry := seed.LedgerEntry{Seeder: "2024_01_01_000000_users", Batch: 1, AppliedAt: time.Now()}
	require.NoError(t, ledger.Record(ctx, entry))
	require.Error(t, ledger.Record(ctx, entry))
}

func TestNewLedgerRequiresORM(t *testing.T) {
	_, err := NewLedger(nil, 0)
	require.Error(t, err)
}
