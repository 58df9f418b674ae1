package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afterseed/pkg/seed"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.Observe(&seed.Report{Status: seed.StatusNothingToDo})
	m.Observe(&seed.Report{Status: seed.StatusAborted})
	m.Observe(&seed.Report{
		Status: seed.StatusCompleted,
		Batch:  4,
		Results: []seed.Result{
			{Outcome: seed.OutcomeApplied, Records: 3, Duration: 20 * time.Millisecond},
			{Outcome: seed.OutcomeApplied, Records: 2, Duration: 10 * time.Millisecond},
			{Outcome: seed.OutcomeSkipped, Records: 9},
			{Outcome: seed.OutcomeFailed, Records: 1},
		},
	})
	m.Observe(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("nothing_to_do")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.seeders.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seeders.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seeders.WithLabelValues("failed")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.batch))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Observe(&seed.Report{Status: seed.StatusCompleted, Batch: 2})

	path := filepath.Join(t.TempDir(), "afterseed.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `afterseed_runs_total{status="completed"} 1`)
	assert.Contains(t, string(data), "afterseed_last_batch 2")

	require.Error(t, m.WriteTextfile(""))
}
