package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourdoughWorkflow() *WorkflowDefinition {
	return &WorkflowDefinition{
		WorkflowID: "WF-SOURDOUGH",
		Name:       "Sourdough Loaf",
		Steps: []StepTemplate{
			{
				Name:              "Mix dough",
				Kind:              StepKindActive,
				DurationEstimate:  30 * time.Minute,
				RequiredEquipment: []string{"mixer-1"},
				Activities:        []string{"combine", "knead"},
			},
			{
				Name:             "Bulk ferment",
				Kind:             StepKindSleep,
				DurationEstimate: 2 * time.Hour,
			},
			{
				Name:              "Bake",
				Kind:              StepKindActive,
				DurationEstimate:  30 * time.Minute,
				RequiredEquipment: []string{"deck-oven-1"},
			},
		},
	}
}

func newTestBatch(t *testing.T) *ProductionBatch {
	t.Helper()
	start := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	batch, err := NewProductionBatch("PB-20250602-001", "Sourdough Loaf #1", sourdoughWorkflow(), 40, "loaves", PriorityHigh, start, start.Add(3*time.Hour))
	require.NoError(t, err)
	batch.ScheduleID = "PS-20250602-1"
	return batch
}

func TestNewProductionBatch(t *testing.T) {
	start := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	t.Run("Successfully create batch from workflow", func(t *testing.T) {
		batch, err := NewProductionBatch("PB-20250602-001", "Sourdough", sourdoughWorkflow(), 40, "loaves", PriorityHigh, start, end)
		require.NoError(t, err)

		assert.Equal(t, BatchStatusPlanned, batch.Status)
		assert.Equal(t, 0, batch.CurrentStepIndex)
		assert.Equal(t, []string{"mixer-1", "deck-oven-1"}, batch.RequiredEquipment)
		require.Len(t, batch.Steps, 3)

		for i, step := range batch.Steps {
			assert.Equal(t, i, step.StepIndex)
			assert.Equal(t, StepStatusPending, step.Status)
			assert.Equal(t, "PB-20250602-001", step.BatchID)
		}

		// Step windows tile the batch window proportionally to the estimates
		assert.Equal(t, start, *batch.Steps[0].PlannedStart)
		assert.Equal(t, end, *batch.Steps[2].PlannedEnd)
		assert.Equal(t, *batch.Steps[0].PlannedEnd, *batch.Steps[1].PlannedStart)
		assert.Equal(t, 2*time.Hour, batch.Steps[1].PlannedEnd.Sub(*batch.Steps[1].PlannedStart))

		require.Len(t, batch.GetDomainEvents(), 1)
		planned, ok := batch.GetDomainEvents()[0].(*BatchPlannedEvent)
		require.True(t, ok)
		assert.Equal(t, "PB-20250602-001", planned.BatchID)
	})

	t.Run("Reject workflow without steps", func(t *testing.T) {
		_, err := NewProductionBatch("PB-1", "Empty", &WorkflowDefinition{WorkflowID: "WF-EMPTY"}, 10, "loaves", PriorityMedium, start, end)
		assert.ErrorIs(t, err, ErrNoSteps)
	})

	t.Run("Reject non-positive quantity", func(t *testing.T) {
		_, err := NewProductionBatch("PB-1", "Zero", sourdoughWorkflow(), 0, "loaves", PriorityMedium, start, end)
		assert.Error(t, err)
	})

	t.Run("Unknown priority defaults to medium", func(t *testing.T) {
		batch, err := NewProductionBatch("PB-1", "Odd", sourdoughWorkflow(), 10, "loaves", Priority("rush"), start, end)
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, batch.Priority)
	})
}

func TestProductionBatch_Start(t *testing.T) {
	t.Run("Start from planned", func(t *testing.T) {
		batch := newTestBatch(t)

		require.NoError(t, batch.Start())

		assert.Equal(t, BatchStatusInProgress, batch.Status)
		assert.NotNil(t, batch.ActualStart)
		assert.Equal(t, StepStatusReady, batch.Steps[0].Status)
	})

	t.Run("Start from ready", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.MarkReady())

		assert.NoError(t, batch.Start())
	})

	t.Run("Cannot start twice", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		assert.ErrorIs(t, batch.Start(), ErrBatchNotStartable)
	})

	t.Run("Cannot start cancelled batch", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Cancel("demand dropped"))

		assert.ErrorIs(t, batch.Start(), ErrBatchNotStartable)
	})
}

func TestProductionBatch_StepLifecycle(t *testing.T) {
	t.Run("Complete step advances to next", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())
		require.NoError(t, batch.StartStep(0))
		batch.ClearDomainEvents()

		waitReason, err := batch.CompleteStep(0, StepCompletion{CompletedActivities: []string{"combine", "knead"}})
		require.NoError(t, err)
		assert.Empty(t, waitReason)

		assert.Equal(t, StepStatusCompleted, batch.Steps[0].Status)
		assert.Equal(t, float64(100), batch.Steps[0].Progress)
		assert.Equal(t, StepStatusReady, batch.Steps[1].Status)
		assert.Equal(t, 1, batch.CurrentStepIndex)

		require.Len(t, batch.GetDomainEvents(), 1)
		advanced, ok := batch.GetDomainEvents()[0].(*WorkflowAdvancedEvent)
		require.True(t, ok)
		assert.Equal(t, 0, advanced.FromStepIndex)
		assert.Equal(t, 1, advanced.ToStepIndex)
		assert.Equal(t, "Bulk ferment", advanced.StepName)
	})

	t.Run("Cannot start step out of order", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		err := batch.StartStep(1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot start step")
	})

	t.Run("Cannot complete step that is not in progress", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		_, err := batch.CompleteStep(0, StepCompletion{})
		assert.ErrorIs(t, err, ErrStepNotInProgress)
	})

	t.Run("Completing final step completes the batch", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		for i := 0; i < 3; i++ {
			require.NoError(t, batch.StartStep(i))
			_, err := batch.CompleteStep(i, StepCompletion{})
			require.NoError(t, err)
		}

		assert.Equal(t, BatchStatusCompleted, batch.Status)
		assert.NotNil(t, batch.ActualEnd)
		require.NotNil(t, batch.ActualQuantity)
		assert.Equal(t, batch.PlannedQuantity, *batch.ActualQuantity)

		var completed *WorkflowCompletedEvent
		for _, e := range batch.GetDomainEvents() {
			if wc, ok := e.(*WorkflowCompletedEvent); ok {
				completed = wc
			}
		}
		require.NotNil(t, completed)
		assert.Equal(t, 40, completed.ActualQuantity)
	})

	t.Run("Recorded actual quantity wins over planned", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		actual := 37
		for i := 0; i < 3; i++ {
			require.NoError(t, batch.StartStep(i))
			completion := StepCompletion{}
			if i == 2 {
				completion.ActualQuantity = &actual
			}
			_, err := batch.CompleteStep(i, completion)
			require.NoError(t, err)
		}

		require.NotNil(t, batch.ActualQuantity)
		assert.Equal(t, 37, *batch.ActualQuantity)
	})

	t.Run("Step index out of range", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())

		assert.ErrorIs(t, batch.StartStep(7), ErrStepIndexOutOfRange)
		_, err := batch.CompleteStep(-1, StepCompletion{})
		assert.ErrorIs(t, err, ErrStepIndexOutOfRange)
	})
}

func TestProductionBatch_PauseResume(t *testing.T) {
	t.Run("Pause parks batch and running step in waiting", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())
		require.NoError(t, batch.StartStep(0))

		require.NoError(t, batch.Pause("oven failure"))

		assert.Equal(t, BatchStatusWaiting, batch.Status)
		assert.Equal(t, "oven failure", batch.PauseReason)
		assert.Equal(t, StepStatusWaiting, batch.Steps[0].Status)
	})

	t.Run("Resume restores prior statuses", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())
		require.NoError(t, batch.StartStep(0))
		require.NoError(t, batch.Pause("oven failure"))

		require.NoError(t, batch.Resume())

		assert.Equal(t, BatchStatusInProgress, batch.Status)
		assert.Empty(t, batch.PauseReason)
		assert.Equal(t, StepStatusInProgress, batch.Steps[0].Status)
	})

	t.Run("Cannot pause batch that is not running", func(t *testing.T) {
		batch := newTestBatch(t)
		assert.ErrorIs(t, batch.Pause("too early"), ErrBatchNotRunning)
	})

	t.Run("Cannot resume batch that is not waiting", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Start())
		assert.ErrorIs(t, batch.Resume(), ErrBatchNotPaused)
	})
}

func TestProductionBatch_BlockedAdvance(t *testing.T) {
	batch := newTestBatch(t)
	require.NoError(t, batch.Start())

	// Step 0 stalls while step 1 runs ahead of it.
	batch.Steps[0].Status = StepStatusWaiting
	batch.Steps[1].Status = StepStatusInProgress

	waitReason, err := batch.CompleteStep(1, StepCompletion{})
	require.NoError(t, err)
	assert.NotEmpty(t, waitReason)
	assert.Equal(t, BatchStatusWaiting, batch.Status)
	assert.Equal(t, waitReason, batch.PauseReason)
	assert.Equal(t, StepStatusWaiting, batch.Steps[2].Status)
	assert.Equal(t, 2, batch.CurrentStepIndex)

	t.Run("Resume releases the blocked step once the gap is closed", func(t *testing.T) {
		batch.Steps[0].Status = StepStatusCompleted

		require.NoError(t, batch.Resume())

		assert.Equal(t, BatchStatusInProgress, batch.Status)
		assert.Equal(t, StepStatusReady, batch.Steps[2].Status)
		require.NoError(t, batch.StartStep(2))
		assert.Equal(t, StepStatusInProgress, batch.Steps[2].Status)
	})
}

func TestProductionBatch_CancelAndFail(t *testing.T) {
	t.Run("Cancel from any non-terminal status", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Cancel("demand dropped"))

		assert.Equal(t, BatchStatusCancelled, batch.Status)
		assert.NotNil(t, batch.ActualEnd)
		assert.Contains(t, batch.Notes, "demand dropped")
	})

	t.Run("Cancel is not idempotent on terminal batch", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Cancel("first"))
		assert.ErrorIs(t, batch.Cancel("second"), ErrBatchTerminal)
	})

	t.Run("Fail only from running or waiting", func(t *testing.T) {
		batch := newTestBatch(t)
		assert.Error(t, batch.Fail("not started"))

		require.NoError(t, batch.Start())
		require.NoError(t, batch.Fail("burnt"))
		assert.Equal(t, BatchStatusFailed, batch.Status)
	})
}

func TestProductionBatch_UpdateStepProgress(t *testing.T) {
	batch := newTestBatch(t)
	require.NoError(t, batch.Start())
	require.NoError(t, batch.StartStep(0))

	t.Run("Reject progress below zero", func(t *testing.T) {
		progress := -1.0
		assert.ErrorIs(t, batch.UpdateStepProgress(0, &progress, nil), ErrInvalidProgress)
		assert.Equal(t, float64(0), batch.Steps[0].Progress)
	})

	t.Run("Reject progress above hundred", func(t *testing.T) {
		progress := 101.0
		assert.ErrorIs(t, batch.UpdateStepProgress(0, &progress, nil), ErrInvalidProgress)
	})

	t.Run("Reject unknown status", func(t *testing.T) {
		status := StepStatus("melted")
		assert.ErrorIs(t, batch.UpdateStepProgress(0, nil, &status), ErrInvalidStatus)
	})

	t.Run("Apply valid progress", func(t *testing.T) {
		progress := 55.0
		require.NoError(t, batch.UpdateStepProgress(0, &progress, nil))
		assert.Equal(t, 55.0, batch.Steps[0].Progress)
	})
}

func TestProductionBatch_Issues(t *testing.T) {
	batch := newTestBatch(t)

	issue := Issue{
		IssueID:     "issue-1",
		StepID:      batch.Steps[0].StepID,
		Type:        "equipment",
		Severity:    SeverityHigh,
		Description: "mixer belt slipping",
		ReportedBy:  "worker-1",
		ReportedAt:  time.Now(),
	}
	batch.ReportIssue(issue)

	assert.Equal(t, 1, batch.OpenIssueCount())
	assert.True(t, batch.Steps[0].HasIssues)

	t.Run("Resolve closes the issue", func(t *testing.T) {
		require.NoError(t, batch.ResolveIssue("issue-1", "belt replaced"))
		assert.Equal(t, 0, batch.OpenIssueCount())
		assert.Equal(t, IssueStatusResolved, batch.Issues[0].Status)
		assert.NotNil(t, batch.Issues[0].ResolvedAt)
	})

	t.Run("Resolving unknown issue fails", func(t *testing.T) {
		assert.ErrorIs(t, batch.ResolveIssue("missing", "n/a"), ErrIssueNotFound)
	})
}

func TestProductionBatch_ApplyQualityCheck(t *testing.T) {
	batch := newTestBatch(t)

	t.Run("Failed check flags the step", func(t *testing.T) {
		err := batch.ApplyQualityCheck(batch.Steps[2].StepID, QualityCheck{
			CheckID:      "qc-1",
			OverallScore: 55,
			Passed:       false,
			PerformedBy:  "qa-1",
			PerformedAt:  time.Now(),
		})
		require.NoError(t, err)

		assert.True(t, batch.Steps[2].HasIssues)
		require.Len(t, batch.Steps[2].QualityResults, 1)
		// A failed gate flags the step but never fails the batch on its own
		assert.NotEqual(t, BatchStatusFailed, batch.Status)
	})

	t.Run("Unknown step rejected", func(t *testing.T) {
		err := batch.ApplyQualityCheck("missing-step", QualityCheck{CheckID: "qc-2"})
		assert.ErrorIs(t, err, ErrStepIndexOutOfRange)
	})
}

func TestProductionBatch_Progress(t *testing.T) {
	batch := newTestBatch(t)
	assert.Equal(t, float64(0), batch.Progress())

	require.NoError(t, batch.Start())
	require.NoError(t, batch.StartStep(0))
	_, err := batch.CompleteStep(0, StepCompletion{})
	require.NoError(t, err)

	progress := 50.0
	require.NoError(t, batch.UpdateStepProgress(1, &progress, nil))

	// (100 + 50 + 0) / 3
	assert.InDelta(t, 50.0, batch.Progress(), 0.001)
}

func TestProductionBatch_Overdue(t *testing.T) {
	batch := newTestBatch(t)
	after := batch.PlannedEnd.Add(45 * time.Minute)

	assert.True(t, batch.IsOverdue(after))
	assert.Equal(t, 45, batch.DelayMinutes(after))
	assert.False(t, batch.IsOverdue(batch.PlannedEnd.Add(-time.Minute)))
	assert.Equal(t, 0, batch.DelayMinutes(batch.PlannedEnd.Add(-time.Minute)))

	require.NoError(t, batch.Cancel("stop"))
	assert.False(t, batch.IsOverdue(after))
}
