package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	repo := newMemRepo()
	repo.put("2024_06_02_000000_roles", `{"RECORDS":[]}`)
	repo.put("2024_06_01_000000_users", `{"RECORDS":[]}`)
	ledger := &memLedger{entries: []LedgerEntry{
		{Seeder: "2024_06_01_000000_users", Batch: 1, AppliedAt: fixedNow},
		{Seeder: "2023_01_01_000000_removed", Batch: 1, Tag: strPtr("v1"), AppliedAt: fixedNow},
	}}

	rows, err := Status(context.Background(), repo, ledger)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, StatusRow{Seeder: "2024_06_01_000000_users", Applied: true, Batch: 1, AppliedAt: fixedNow}, rows[0])
	assert.Equal(t, StatusRow{Seeder: "2024_06_02_000000_roles"}, rows[1])
	assert.Equal(t, "2023_01_01_000000_removed", rows[2].Seeder)
	assert.True(t, rows[2].Applied)
}
