package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakehouse-platform/production-service/internal/domain"
	"github.com/bakehouse-platform/production-service/internal/infrastructure/mongodb"
)

func testWorkflow() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		WorkflowID: "wf-sourdough",
		Name:       "Country Sourdough",
		Steps: []domain.StepTemplate{
			{Name: "Mix dough", Kind: domain.StepKindActive, DurationEstimate: 30 * time.Minute, RequiredEquipment: []string{"mixer-1"}},
			{Name: "Bulk ferment", Kind: domain.StepKindSleep, DurationEstimate: 2 * time.Hour},
			{Name: "Bake", Kind: domain.StepKindActive, DurationEstimate: 30 * time.Minute, RequiredEquipment: []string{"deck-oven-1"}},
		},
	}
}

func createTestBatch(t *testing.T, batchID, scheduleID string, status domain.BatchStatus) *domain.ProductionBatch {
	t.Helper()
	start := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	batch, err := domain.NewProductionBatch(batchID, "Country Sourdough", testWorkflow(), 40, "loaves", domain.PriorityHigh, start, start.Add(3*time.Hour))
	require.NoError(t, err)
	batch.ScheduleID = scheduleID
	if status != domain.BatchStatusPlanned {
		batch.Status = status
	}
	return batch
}

func setupDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcmongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(ctx) })

	return client.Database("bakery_production_test")
}

func TestBatchRepository_SaveAndFind(t *testing.T) {
	db := setupDatabase(t)
	repo := mongodb.NewBatchRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Save new batch", func(t *testing.T) {
		batch := createTestBatch(t, "PB-001", "PS-001", domain.BatchStatusPlanned)

		require.NoError(t, repo.Save(ctx, batch))

		found, err := repo.FindByID(ctx, "PB-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PB-001", found.BatchID)
		assert.Equal(t, "wf-sourdough", found.WorkflowID)
		assert.Len(t, found.Steps, 3)
	})

	t.Run("Save is an upsert by batch id", func(t *testing.T) {
		batch := createTestBatch(t, "PB-002", "PS-001", domain.BatchStatusPlanned)
		require.NoError(t, repo.Save(ctx, batch))

		batch.Status = domain.BatchStatusReady
		require.NoError(t, repo.Save(ctx, batch))

		found, err := repo.FindByID(ctx, "PB-002")
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusReady, found.Status)
	})

	t.Run("Missing batch returns nil without error", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "PB-999")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestBatchRepository_Queries(t *testing.T) {
	db := setupDatabase(t)
	repo := mongodb.NewBatchRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, repo.Save(ctx, createTestBatch(t, "PB-001", "PS-001", domain.BatchStatusPlanned)))
	require.NoError(t, repo.Save(ctx, createTestBatch(t, "PB-002", "PS-001", domain.BatchStatusInProgress)))
	require.NoError(t, repo.Save(ctx, createTestBatch(t, "PB-003", "PS-002", domain.BatchStatusWaiting)))
	require.NoError(t, repo.Save(ctx, createTestBatch(t, "PB-004", "PS-002", domain.BatchStatusCompleted)))

	t.Run("Find by schedule", func(t *testing.T) {
		batches, err := repo.FindByScheduleID(ctx, "PS-001")
		require.NoError(t, err)
		assert.Len(t, batches, 2)
		for _, b := range batches {
			assert.Equal(t, "PS-001", b.ScheduleID)
		}
	})

	t.Run("Find by status", func(t *testing.T) {
		batches, err := repo.FindByStatus(ctx, domain.BatchStatusInProgress)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "PB-002", batches[0].BatchID)
	})

	t.Run("Find active returns only executing and waiting batches", func(t *testing.T) {
		batches, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Len(t, batches, 2)
		for _, b := range batches {
			assert.False(t, b.Status.IsTerminal())
			assert.NotEqual(t, domain.BatchStatusPlanned, b.Status)
		}
	})
}

func TestBatchRepository_Delete(t *testing.T) {
	db := setupDatabase(t)
	repo := mongodb.NewBatchRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, repo.Save(ctx, createTestBatch(t, "PB-001", "PS-001", domain.BatchStatusPlanned)))
	require.NoError(t, repo.Delete(ctx, "PB-001"))

	found, err := repo.FindByID(ctx, "PB-001")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestScheduleRepository(t *testing.T) {
	db := setupDatabase(t)
	repo := mongodb.NewScheduleRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	schedule, err := domain.NewProductionSchedule("PS-001", date, date.Add(6*time.Hour), date.Add(16*time.Hour),
		[]domain.StaffMember{{StaffID: "baker-1", Name: "Baker One", StartTime: date.Add(6 * time.Hour), EndTime: date.Add(14 * time.Hour)}},
		[]domain.Station{{StationID: "mixer-1", Name: "Spiral Mixer", Type: "mixer", Capacity: 1}},
	)
	require.NoError(t, err)

	t.Run("Save and find by id", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, schedule))

		found, err := repo.FindByID(ctx, "PS-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.ScheduleStatusDraft, found.Status)
		assert.Len(t, found.Staff, 1)
		assert.Len(t, found.Stations, 1)
	})

	t.Run("Find by date", func(t *testing.T) {
		found, err := repo.FindByDate(ctx, date)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PS-001", found.ScheduleID)

		missing, err := repo.FindByDate(ctx, date.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Upsert preserves batch rollup", func(t *testing.T) {
		require.NoError(t, schedule.AttachBatch("PB-001"))
		require.NoError(t, schedule.MarkPlanned())
		require.NoError(t, repo.Save(ctx, schedule))

		found, err := repo.FindByID(ctx, "PS-001")
		require.NoError(t, err)
		assert.Equal(t, domain.ScheduleStatusPlanned, found.Status)
		assert.Equal(t, []string{"PB-001"}, found.PlannedBatchIDs)
	})

	t.Run("Find by status", func(t *testing.T) {
		schedules, err := repo.FindByStatus(ctx, domain.ScheduleStatusPlanned)
		require.NoError(t, err)
		require.Len(t, schedules, 1)
		assert.Equal(t, "PS-001", schedules[0].ScheduleID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "PS-001"))
		found, err := repo.FindByID(ctx, "PS-001")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
