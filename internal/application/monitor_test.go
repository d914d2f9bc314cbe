package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse-platform/production-service/pkg/logging"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

func newMonitorFixture(t *testing.T) (*MonitoringService, *memBatchRepo, *sinkRecorder) {
	t.Helper()
	logger := logging.New(logging.DefaultConfig("monitor-test"))
	batchRepo := newMemBatchRepo()
	sink := &sinkRecorder{}
	monitor := NewMonitoringService(batchRepo, sink, MonitoringConfig{Cadence: 10 * time.Millisecond, Topic: "test.monitoring"}, logger)
	t.Cleanup(monitor.Stop)
	return monitor, batchRepo, sink
}

func runningBatch(t *testing.T, repo *memBatchRepo, batchID string) *domain.ProductionBatch {
	t.Helper()
	workflow, err := testWorkflows().GetWorkflowByID(context.Background(), "wf-sourdough")
	require.NoError(t, err)

	start := time.Now().Add(-time.Hour)
	batch, err := domain.NewProductionBatch(batchID, "Country Sourdough", workflow, 40, "loaves", domain.PriorityHigh, start, start.Add(3*time.Hour))
	require.NoError(t, err)
	require.NoError(t, batch.Start())
	require.NoError(t, repo.Save(context.Background(), batch))
	return batch
}

func TestMonitoringService_StartMonitoring(t *testing.T) {
	monitor, repo, sink := newMonitorFixture(t)
	runningBatch(t, repo, "PB-1")

	monitor.StartMonitoring("PB-1")
	assert.True(t, monitor.IsMonitoring("PB-1"))

	t.Run("Starting twice is a no-op", func(t *testing.T) {
		monitor.StartMonitoring("PB-1")
		assert.Equal(t, 1, monitor.ActiveCount())
	})

	t.Run("Watcher publishes snapshots on cadence", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return sink.snapshotCount() >= 2
		}, time.Second, 5*time.Millisecond)

		sink.mu.Lock()
		snapshot := sink.snapshots[0]
		sink.mu.Unlock()
		assert.Equal(t, "PB-1", snapshot.BatchID)
		assert.Equal(t, domain.BatchStatusInProgress, snapshot.Status)
	})
}

func TestMonitoringService_StopMonitoring(t *testing.T) {
	monitor, repo, _ := newMonitorFixture(t)
	runningBatch(t, repo, "PB-1")

	monitor.StartMonitoring("PB-1")
	monitor.StopMonitoring("PB-1")
	assert.False(t, monitor.IsMonitoring("PB-1"))

	// Stopping an unwatched batch is a no-op
	monitor.StopMonitoring("PB-ghost")
	assert.Equal(t, 0, monitor.ActiveCount())
}

func TestMonitoringService_TerminalBatchStopsWatcher(t *testing.T) {
	monitor, repo, _ := newMonitorFixture(t)
	batch := runningBatch(t, repo, "PB-1")
	require.NoError(t, batch.Cancel("test over"))

	monitor.StartMonitoring("PB-1")

	require.Eventually(t, func() bool {
		return !monitor.IsMonitoring("PB-1")
	}, time.Second, 5*time.Millisecond)
}

func TestMonitoringService_DeletedBatchStopsWatcher(t *testing.T) {
	monitor, repo, _ := newMonitorFixture(t)
	runningBatch(t, repo, "PB-1")
	require.NoError(t, repo.Delete(context.Background(), "PB-1"))

	monitor.StartMonitoring("PB-1")

	require.Eventually(t, func() bool {
		return !monitor.IsMonitoring("PB-1")
	}, time.Second, 5*time.Millisecond)
}

func TestMonitoringService_StartResumesActiveBatches(t *testing.T) {
	monitor, repo, _ := newMonitorFixture(t)
	runningBatch(t, repo, "PB-1")
	runningBatch(t, repo, "PB-2")

	require.NoError(t, monitor.Start(context.Background()))
	assert.Equal(t, 2, monitor.ActiveCount())
	assert.True(t, monitor.IsMonitoring("PB-1"))
	assert.True(t, monitor.IsMonitoring("PB-2"))
}

func TestMonitoringService_Stop(t *testing.T) {
	monitor, repo, _ := newMonitorFixture(t)
	runningBatch(t, repo, "PB-1")
	runningBatch(t, repo, "PB-2")

	monitor.StartMonitoring("PB-1")
	monitor.StartMonitoring("PB-2")
	monitor.Stop()

	assert.Equal(t, 0, monitor.ActiveCount())
}
