package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchedule(t *testing.T) *ProductionSchedule {
	t.Helper()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	start := date.Add(6 * time.Hour)
	end := date.Add(16 * time.Hour)

	schedule, err := NewProductionSchedule("PS-20250602-1", date, start, end,
		[]StaffMember{
			{StaffID: "baker-1", Name: "Baker One", StartTime: start, EndTime: end},
		},
		[]Station{
			{StationID: "mixer-1", Name: "Spiral Mixer", Type: "mixer", Capacity: 1},
			{StationID: "deck-oven-1", Name: "Deck Oven", Type: "oven", Capacity: 4},
		},
	)
	require.NoError(t, err)
	return schedule
}

func TestNewProductionSchedule(t *testing.T) {
	t.Run("Creates draft schedule with creation event", func(t *testing.T) {
		schedule := newTestSchedule(t)

		assert.Equal(t, ScheduleStatusDraft, schedule.Status)
		assert.Equal(t, 10*time.Hour, schedule.WorkdayDuration())
		assert.Empty(t, schedule.PlannedBatchIDs)

		events := schedule.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*ScheduleCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, "PS-20250602-1", created.ScheduleID)
	})

	t.Run("Rejects inverted workday", func(t *testing.T) {
		date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		_, err := NewProductionSchedule("PS-1", date, date.Add(16*time.Hour), date.Add(6*time.Hour), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidWorkday)
	})
}

func TestProductionSchedule_AttachBatch(t *testing.T) {
	t.Run("Attaches batches while draft or planned", func(t *testing.T) {
		schedule := newTestSchedule(t)

		require.NoError(t, schedule.AttachBatch("PB-1"))
		require.NoError(t, schedule.MarkPlanned())
		require.NoError(t, schedule.AttachBatch("PB-2"))
		assert.Equal(t, []string{"PB-1", "PB-2"}, schedule.PlannedBatchIDs)
	})

	t.Run("Rejects duplicate batch", func(t *testing.T) {
		schedule := newTestSchedule(t)

		require.NoError(t, schedule.AttachBatch("PB-1"))
		assert.ErrorIs(t, schedule.AttachBatch("PB-1"), ErrBatchAlreadyPlanned)
	})

	t.Run("Rejects attach on closed schedule", func(t *testing.T) {
		schedule := newTestSchedule(t)
		require.NoError(t, schedule.Cancel("oven maintenance"))

		assert.ErrorIs(t, schedule.AttachBatch("PB-1"), ErrScheduleClosed)
	})
}

func TestProductionSchedule_Lifecycle(t *testing.T) {
	t.Run("Draft to planned to active", func(t *testing.T) {
		schedule := newTestSchedule(t)
		schedule.ClearDomainEvents()

		require.NoError(t, schedule.MarkPlanned())
		require.NoError(t, schedule.Activate())
		assert.Equal(t, ScheduleStatusActive, schedule.Status)

		events := schedule.GetDomainEvents()
		require.Len(t, events, 2)
		change, ok := events[1].(*ScheduleStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "planned", change.OldStatus)
		assert.Equal(t, "active", change.NewStatus)
	})

	t.Run("Cannot plan twice", func(t *testing.T) {
		schedule := newTestSchedule(t)
		require.NoError(t, schedule.MarkPlanned())
		assert.ErrorIs(t, schedule.MarkPlanned(), ErrScheduleNotDraft)
	})

	t.Run("Cannot activate a draft", func(t *testing.T) {
		schedule := newTestSchedule(t)
		assert.ErrorIs(t, schedule.Activate(), ErrScheduleNotPlanned)
	})

	t.Run("Cancel records reason and is final", func(t *testing.T) {
		schedule := newTestSchedule(t)

		require.NoError(t, schedule.Cancel("no flour delivery"))
		assert.Equal(t, ScheduleStatusCancelled, schedule.Status)
		assert.Contains(t, schedule.Notes, "no flour delivery")
		assert.ErrorIs(t, schedule.Cancel("again"), ErrScheduleClosed)
	})
}

func TestProductionSchedule_MarkBatchCompleted(t *testing.T) {
	setup := func(t *testing.T) *ProductionSchedule {
		schedule := newTestSchedule(t)
		require.NoError(t, schedule.AttachBatch("PB-1"))
		require.NoError(t, schedule.AttachBatch("PB-2"))
		require.NoError(t, schedule.MarkPlanned())
		require.NoError(t, schedule.Activate())
		return schedule
	}

	t.Run("Completion is idempotent", func(t *testing.T) {
		schedule := setup(t)

		require.NoError(t, schedule.MarkBatchCompleted("PB-1"))
		require.NoError(t, schedule.MarkBatchCompleted("PB-1"))
		assert.Equal(t, []string{"PB-1"}, schedule.CompletedBatchIDs)
		assert.InDelta(t, 50.0, schedule.Progress(), 0.001)
	})

	t.Run("Unknown batch rejected", func(t *testing.T) {
		schedule := setup(t)
		assert.ErrorIs(t, schedule.MarkBatchCompleted("PB-999"), ErrBatchNotInSchedule)
	})

	t.Run("Schedule completes when the last batch finishes", func(t *testing.T) {
		schedule := setup(t)
		schedule.ClearDomainEvents()

		require.NoError(t, schedule.MarkBatchCompleted("PB-1"))
		assert.Equal(t, ScheduleStatusActive, schedule.Status)

		require.NoError(t, schedule.MarkBatchCompleted("PB-2"))
		assert.Equal(t, ScheduleStatusCompleted, schedule.Status)
		assert.InDelta(t, 100.0, schedule.Progress(), 0.001)

		events := schedule.GetDomainEvents()
		require.Len(t, events, 1)
		change, ok := events[0].(*ScheduleStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "completed", change.NewStatus)
	})
}

func TestProductionSchedule_BuildLedger(t *testing.T) {
	schedule := newTestSchedule(t)
	ledger := schedule.BuildLedger()

	start := schedule.WorkdayStart
	assigned, err := ledger.Allocate([]string{"baker-1", "mixer-1"}, start, start.Add(time.Hour), "PB-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"baker-1", "mixer-1"}, assigned)

	_, err = ledger.Allocate([]string{"proofer-9"}, start, start.Add(time.Hour), "PB-1", 1)
	assert.ErrorIs(t, err, ErrResourceUnknown)
}

func TestProductionSchedule_Validate(t *testing.T) {
	schedule := newTestSchedule(t)
	require.NoError(t, schedule.Validate())

	schedule.CompletedBatchIDs = []string{"PB-1"}
	assert.Error(t, schedule.Validate())
}
