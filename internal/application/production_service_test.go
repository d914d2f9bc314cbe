package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse-platform/production-service/pkg/logging"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// In-memory fakes for the persistence and messaging ports.

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[string]*domain.ProductionBatch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[string]*domain.ProductionBatch)}
}

func (r *memBatchRepo) Save(_ context.Context, batch *domain.ProductionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.BatchID] = batch
	return nil
}

func (r *memBatchRepo) FindByID(_ context.Context, batchID string) (*domain.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[batchID], nil
}

func (r *memBatchRepo) FindByScheduleID(_ context.Context, scheduleID string) ([]*domain.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := make([]*domain.ProductionBatch, 0)
	for _, b := range r.batches {
		if b.ScheduleID == scheduleID {
			found = append(found, b)
		}
	}
	return found, nil
}

func (r *memBatchRepo) FindByStatus(_ context.Context, status domain.BatchStatus) ([]*domain.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := make([]*domain.ProductionBatch, 0)
	for _, b := range r.batches {
		if b.Status == status {
			found = append(found, b)
		}
	}
	return found, nil
}

func (r *memBatchRepo) FindActive(_ context.Context) ([]*domain.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := make([]*domain.ProductionBatch, 0)
	for _, b := range r.batches {
		if b.Status == domain.BatchStatusInProgress || b.Status == domain.BatchStatusWaiting {
			found = append(found, b)
		}
	}
	return found, nil
}

func (r *memBatchRepo) Delete(_ context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, batchID)
	return nil
}

type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*domain.ProductionSchedule
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: make(map[string]*domain.ProductionSchedule)}
}

func (r *memScheduleRepo) Save(_ context.Context, schedule *domain.ProductionSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ScheduleID] = schedule
	return nil
}

func (r *memScheduleRepo) FindByID(_ context.Context, scheduleID string) (*domain.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schedules[scheduleID], nil
}

func (r *memScheduleRepo) FindByDate(_ context.Context, date time.Time) (*domain.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schedules {
		if s.ScheduleDate.Year() == date.Year() && s.ScheduleDate.YearDay() == date.YearDay() {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memScheduleRepo) FindByStatus(_ context.Context, status domain.ScheduleStatus) ([]*domain.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := make([]*domain.ProductionSchedule, 0)
	for _, s := range r.schedules {
		if s.Status == status {
			found = append(found, s)
		}
	}
	return found, nil
}

func (r *memScheduleRepo) Delete(_ context.Context, scheduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schedules, scheduleID)
	return nil
}

// sinkRecorder captures everything pushed through the messaging ports
type sinkRecorder struct {
	mu            sync.Mutex
	events        []domain.DomainEvent
	notifications []domain.NotificationEvent
	snapshots     []domain.BatchSnapshot
}

func (s *sinkRecorder) Publish(_ context.Context, event domain.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *sinkRecorder) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		if err := s.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *sinkRecorder) Notify(_ context.Context, event domain.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, event)
	return nil
}

func (s *sinkRecorder) PublishSnapshot(_ context.Context, _ string, snapshot domain.BatchSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func (s *sinkRecorder) notificationKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.notifications))
	for _, n := range s.notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (s *sinkRecorder) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

type serviceFixture struct {
	service   *ProductionApplicationService
	batchRepo *memBatchRepo
	schedRepo *memScheduleRepo
	sink      *sinkRecorder
	monitor   *MonitoringService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := logging.New(logging.DefaultConfig("production-service-test"))
	batchRepo := newMemBatchRepo()
	schedRepo := newMemScheduleRepo()
	sink := &sinkRecorder{}
	monitor := NewMonitoringService(batchRepo, sink, MonitoringConfig{Cadence: 10 * time.Millisecond, Topic: "test.monitoring"}, logger)
	t.Cleanup(monitor.Stop)

	planner := NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints())
	service := NewProductionApplicationService(batchRepo, schedRepo, planner, sink, sink, monitor, logger)
	return &serviceFixture{
		service:   service,
		batchRepo: batchRepo,
		schedRepo: schedRepo,
		sink:      sink,
		monitor:   monitor,
	}
}

func (f *serviceFixture) createSchedule(t *testing.T) *ScheduleDTO {
	t.Helper()
	dayStart, dayEnd := workday()
	dto, err := f.service.CreateSchedule(context.Background(), CreateScheduleCommand{
		ScheduleDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		WorkdayStart: dayStart,
		WorkdayEnd:   dayEnd,
		Staff: []domain.StaffMember{
			{StaffID: "baker-1", Name: "Baker One", StartTime: dayStart, EndTime: dayEnd},
			{StaffID: "baker-2", Name: "Baker Two", StartTime: dayStart, EndTime: dayEnd},
			{StaffID: "baker-3", Name: "Baker Three", StartTime: dayStart, EndTime: dayEnd},
		},
		Stations: []domain.Station{
			{StationID: "mixer-1"},
			{StationID: "deck-oven-1"},
		},
	})
	require.NoError(t, err)
	return dto
}

// activeBatch plans and activates a one-batch schedule and returns the batch id
func (f *serviceFixture) activeBatch(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	schedule := f.createSchedule(t)

	plan, err := f.service.PlanSchedule(ctx, PlanScheduleCommand{
		ScheduleID: schedule.ScheduleID,
		Demand: []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 40, Unit: "loaves", Priority: domain.PriorityHigh},
		},
	})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 1)

	_, err = f.service.ActivateSchedule(ctx, ActivateScheduleCommand{ScheduleID: schedule.ScheduleID})
	require.NoError(t, err)

	batchID := plan.Batches[0].BatchID
	_, err = f.service.StartBatch(ctx, StartBatchCommand{BatchID: batchID})
	require.NoError(t, err)
	return batchID
}

func TestProductionService_ScheduleLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	schedule := f.createSchedule(t)
	assert.Equal(t, "draft", schedule.Status)

	plan, err := f.service.PlanSchedule(ctx, PlanScheduleCommand{
		ScheduleID: schedule.ScheduleID,
		Demand: []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 50, Unit: "loaves", Priority: domain.PriorityHigh},
			{WorkflowID: "wf-baguette", Name: "Baguette", Quantity: 30, Unit: "pieces", Priority: domain.PriorityUrgent},
		},
	})
	require.NoError(t, err)
	assert.Len(t, plan.Batches, 2)
	assert.Empty(t, plan.Conflicts)

	t.Run("Planning a non-draft schedule fails", func(t *testing.T) {
		_, err := f.service.PlanSchedule(ctx, PlanScheduleCommand{ScheduleID: schedule.ScheduleID})
		assert.Error(t, err)
	})

	activated, err := f.service.ActivateSchedule(ctx, ActivateScheduleCommand{ScheduleID: schedule.ScheduleID})
	require.NoError(t, err)
	assert.Equal(t, "active", activated.Status)

	t.Run("Activation releases planned batches to ready", func(t *testing.T) {
		batches, err := f.service.GetBatchesBySchedule(ctx, GetBatchesByScheduleQuery{ScheduleID: schedule.ScheduleID})
		require.NoError(t, err)
		require.Len(t, batches, 2)
		for _, b := range batches {
			assert.Equal(t, "ready", b.Status)
		}
	})

	t.Run("Unknown schedule is not found", func(t *testing.T) {
		_, err := f.service.GetSchedule(ctx, GetScheduleQuery{ScheduleID: "PS-missing"})
		assert.Error(t, err)
	})
}

func TestProductionService_CancelSchedule(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	batch, err := f.batchRepo.FindByID(ctx, batchID)
	require.NoError(t, err)

	cancelled, err := f.service.CancelSchedule(ctx, CancelScheduleCommand{ScheduleID: batch.ScheduleID, Reason: "power outage"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	batch, err = f.batchRepo.FindByID(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCancelled, batch.Status)
	assert.False(t, f.monitor.IsMonitoring(batchID))
}

func TestProductionService_StartBatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	batchID := f.activeBatch(t)

	batch, err := f.service.GetBatch(ctx, GetBatchQuery{BatchID: batchID})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", batch.Status)
	assert.NotEmpty(t, batch.AssignedStaffIDs)
	assert.True(t, f.monitor.IsMonitoring(batchID))
	assert.Contains(t, f.sink.notificationKinds(), "batch_started")

	t.Run("Starting twice fails", func(t *testing.T) {
		_, err := f.service.StartBatch(ctx, StartBatchCommand{BatchID: batchID})
		assert.Error(t, err)
	})
}

func TestProductionService_StartBatch_EquipmentUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	running, err := f.batchRepo.FindByID(ctx, batchID)
	require.NoError(t, err)

	// A rival batch over the same window needs the same two stations, which
	// the running batch already holds
	workflow, err := testWorkflows().GetWorkflowByID(ctx, "wf-sourdough")
	require.NoError(t, err)
	rival, err := domain.NewProductionBatch("PB-rival", "Country Sourdough", workflow, 10, "loaves", domain.PriorityMedium, running.PlannedStart, running.PlannedEnd)
	require.NoError(t, err)
	rival.ScheduleID = running.ScheduleID
	require.NoError(t, f.batchRepo.Save(ctx, rival))

	_, err = f.service.StartBatch(ctx, StartBatchCommand{BatchID: "PB-rival"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equipment unavailable")

	t.Run("Staff acquired by the failed start is released", func(t *testing.T) {
		benchWorkflow := &domain.WorkflowDefinition{
			WorkflowID: "wf-focaccia",
			Name:       "Focaccia",
			Steps: []domain.StepTemplate{
				{Name: "Mix and bake", Kind: domain.StepKindActive, DurationEstimate: time.Hour},
			},
		}
		bench, err := domain.NewProductionBatch("PB-bench", "Focaccia", benchWorkflow, 10, "trays", domain.PriorityMedium, running.PlannedStart, running.PlannedEnd)
		require.NoError(t, err)
		bench.ScheduleID = running.ScheduleID
		require.NoError(t, f.batchRepo.Save(ctx, bench))

		// Needs no stations; succeeds only if the rival's staff reservation
		// was rolled back
		_, err = f.service.StartBatch(ctx, StartBatchCommand{BatchID: "PB-bench"})
		require.NoError(t, err)
	})
}

func TestProductionService_LedgerRebuiltAfterRestart(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	running, err := f.batchRepo.FindByID(ctx, batchID)
	require.NoError(t, err)

	// A second service over the same stores stands in for a restarted
	// process: its ledgers start empty and must be rebuilt from the
	// persisted batches
	logger := logging.New(logging.DefaultConfig("production-service-test"))
	monitor := NewMonitoringService(f.batchRepo, f.sink, MonitoringConfig{Cadence: 10 * time.Millisecond, Topic: "test.monitoring"}, logger)
	t.Cleanup(monitor.Stop)
	restarted := NewProductionApplicationService(f.batchRepo, f.schedRepo, NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints()), f.sink, f.sink, monitor, logger)

	workflow, err := testWorkflows().GetWorkflowByID(ctx, "wf-sourdough")
	require.NoError(t, err)
	rival, err := domain.NewProductionBatch("PB-rival", "Country Sourdough", workflow, 10, "loaves", domain.PriorityMedium, running.PlannedStart, running.PlannedEnd)
	require.NoError(t, err)
	rival.ScheduleID = running.ScheduleID
	require.NoError(t, f.batchRepo.Save(ctx, rival))

	_, err = restarted.StartBatch(ctx, StartBatchCommand{BatchID: "PB-rival"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equipment unavailable")
}

func TestProductionService_StartBatch_NoStaffAvailable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	dayStart, dayEnd := workday()

	schedule, err := domain.NewProductionSchedule("PS-empty",
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), dayStart, dayEnd, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.schedRepo.Save(ctx, schedule))

	workflow, err := testWorkflows().GetWorkflowByID(ctx, "wf-sourdough")
	require.NoError(t, err)
	batch, err := domain.NewProductionBatch("PB-lonely", "Country Sourdough", workflow, 10, "loaves", domain.PriorityMedium, dayStart, dayStart.Add(3*time.Hour))
	require.NoError(t, err)
	batch.ScheduleID = "PS-empty"
	require.NoError(t, f.batchRepo.Save(ctx, batch))

	_, err = f.service.StartBatch(ctx, StartBatchCommand{BatchID: "PB-lonely"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no staff available")
}

func TestProductionService_StepExecution(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	_, err := f.service.StartStep(ctx, StartStepCommand{BatchID: batchID, StepIndex: 0})
	require.NoError(t, err)

	result, err := f.service.CompleteStep(ctx, CompleteStepCommand{BatchID: batchID, StepIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Batch.CurrentStepIndex)
	assert.Empty(t, result.WaitReason)

	t.Run("Completing a step that is not running fails", func(t *testing.T) {
		_, err := f.service.CompleteStep(ctx, CompleteStepCommand{BatchID: batchID, StepIndex: 2})
		assert.Error(t, err)
	})
}

func TestProductionService_UpdateStepProgress(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	_, err := f.service.StartStep(ctx, StartStepCommand{BatchID: batchID, StepIndex: 0})
	require.NoError(t, err)

	t.Run("Applies progress", func(t *testing.T) {
		progress := 40.0
		result, err := f.service.UpdateStepProgress(ctx, UpdateStepProgressCommand{BatchID: batchID, StepIndex: 0, Progress: &progress})
		require.NoError(t, err)
		assert.InDelta(t, 40.0, result.Batch.Steps[0].Progress, 0.001)
	})

	t.Run("Rejects progress out of range", func(t *testing.T) {
		progress := 101.0
		_, err := f.service.UpdateStepProgress(ctx, UpdateStepProgressCommand{BatchID: batchID, StepIndex: 0, Progress: &progress})
		assert.Error(t, err)
	})

	t.Run("Completed status goes through the completion path", func(t *testing.T) {
		status := "completed"
		result, err := f.service.UpdateStepProgress(ctx, UpdateStepProgressCommand{BatchID: batchID, StepIndex: 0, Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "completed", result.Batch.Steps[0].Status)
		assert.Equal(t, 1, result.Batch.CurrentStepIndex)
	})
}

func TestProductionService_CompletionRollsUpSchedule(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	batch, err := f.batchRepo.FindByID(ctx, batchID)
	require.NoError(t, err)
	scheduleID := batch.ScheduleID

	for i := 0; i < 3; i++ {
		_, err := f.service.StartStep(ctx, StartStepCommand{BatchID: batchID, StepIndex: i})
		require.NoError(t, err)
		_, err = f.service.CompleteStep(ctx, CompleteStepCommand{BatchID: batchID, StepIndex: i})
		require.NoError(t, err)
	}

	done, err := f.service.GetBatch(ctx, GetBatchQuery{BatchID: batchID})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.False(t, f.monitor.IsMonitoring(batchID))
	assert.Contains(t, f.sink.notificationKinds(), "batch_completed")

	schedule, err := f.service.GetSchedule(ctx, GetScheduleQuery{ScheduleID: scheduleID})
	require.NoError(t, err)
	assert.Equal(t, "completed", schedule.Status)
	assert.InDelta(t, 100.0, schedule.Progress, 0.001)
}

func TestProductionService_PauseResume(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	paused, err := f.service.PauseBatch(ctx, PauseBatchCommand{BatchID: batchID, Reason: "mixer jammed"})
	require.NoError(t, err)
	assert.Equal(t, "waiting", paused.Status)
	assert.Equal(t, "mixer jammed", paused.PauseReason)

	resumed, err := f.service.ResumeBatch(ctx, ResumeBatchCommand{BatchID: batchID})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", resumed.Status)
}

func TestProductionService_ReportIssue(t *testing.T) {
	t.Run("Critical issue pauses the batch and escalates", func(t *testing.T) {
		f := newServiceFixture(t)
		ctx := context.Background()
		batchID := f.activeBatch(t)

		dto, err := f.service.ReportIssue(ctx, ReportIssueCommand{
			BatchID:     batchID,
			Type:        "equipment_failure",
			Severity:    "critical",
			Description: "oven door will not close",
			ReportedBy:  "baker-1",
		})
		require.NoError(t, err)

		assert.Equal(t, "waiting", dto.Status)
		kinds := f.sink.notificationKinds()
		assert.Contains(t, kinds, "issue_reported")
		assert.Contains(t, kinds, "issue_escalated")
	})

	t.Run("High severity escalates without pausing", func(t *testing.T) {
		f := newServiceFixture(t)
		ctx := context.Background()
		batchID := f.activeBatch(t)

		dto, err := f.service.ReportIssue(ctx, ReportIssueCommand{
			BatchID:     batchID,
			Type:        "ingredient_shortage",
			Severity:    "high",
			Description: "low on rye flour",
			ReportedBy:  "baker-2",
		})
		require.NoError(t, err)

		assert.Equal(t, "in_progress", dto.Status)
		assert.Contains(t, f.sink.notificationKinds(), "issue_escalated")
	})

	t.Run("Low severity only notifies", func(t *testing.T) {
		f := newServiceFixture(t)
		ctx := context.Background()
		batchID := f.activeBatch(t)

		dto, err := f.service.ReportIssue(ctx, ReportIssueCommand{
			BatchID:     batchID,
			Type:        "cosmetic",
			Severity:    "low",
			Description: "uneven scoring",
			ReportedBy:  "baker-1",
		})
		require.NoError(t, err)

		assert.Equal(t, "in_progress", dto.Status)
		kinds := f.sink.notificationKinds()
		assert.Contains(t, kinds, "issue_reported")
		assert.NotContains(t, kinds, "issue_escalated")
	})

	t.Run("Unknown severity rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		batchID := f.activeBatch(t)

		_, err := f.service.ReportIssue(context.Background(), ReportIssueCommand{
			BatchID:  batchID,
			Severity: "catastrophic",
		})
		assert.Error(t, err)
	})
}

func TestProductionService_ResolveIssue(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	dto, err := f.service.ReportIssue(ctx, ReportIssueCommand{
		BatchID:     batchID,
		Type:        "cosmetic",
		Severity:    "low",
		Description: "uneven scoring",
		ReportedBy:  "baker-1",
	})
	require.NoError(t, err)
	require.Len(t, dto.Issues, 1)

	resolved, err := f.service.ResolveIssue(ctx, ResolveIssueCommand{
		BatchID:    batchID,
		IssueID:    dto.Issues[0].IssueID,
		Resolution: "re-scored next tray",
	})
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved.Issues[0].Status)

	t.Run("Unknown issue rejected", func(t *testing.T) {
		_, err := f.service.ResolveIssue(ctx, ResolveIssueCommand{BatchID: batchID, IssueID: "nope"})
		assert.Error(t, err)
	})
}

func TestProductionService_QualityCheck(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)
	stepID := batchID + "-step-0"

	t.Run("Failing score flags the step but not the batch", func(t *testing.T) {
		dto, err := f.service.PerformQualityCheck(ctx, QualityCheckCommand{
			BatchID:     batchID,
			StepID:      stepID,
			PerformedBy: "baker-1",
			Checks: []CheckResultDTO{
				{Name: "crumb structure", Score: 60},
				{Name: "crust color", Score: 50},
			},
		})
		require.NoError(t, err)

		require.Len(t, dto.Steps[0].QualityResults, 1)
		check := dto.Steps[0].QualityResults[0]
		assert.InDelta(t, 55.0, check.OverallScore, 0.001)
		assert.False(t, check.Passed)
		assert.True(t, dto.Steps[0].HasIssues)
		assert.Equal(t, "in_progress", dto.Status)
		assert.Contains(t, f.sink.notificationKinds(), "quality_check_failed")
	})

	t.Run("Failing score opens a quality issue", func(t *testing.T) {
		dto, err := f.service.GetBatch(ctx, GetBatchQuery{BatchID: batchID})
		require.NoError(t, err)

		require.Len(t, dto.Issues, 1)
		issue := dto.Issues[0]
		assert.Equal(t, "quality_failure", issue.Type)
		assert.Equal(t, "high", issue.Severity)
		assert.Equal(t, stepID, issue.StepID)
		assert.Equal(t, "open", issue.Status)

		t.Run("And it resolves like any other issue", func(t *testing.T) {
			resolved, err := f.service.ResolveIssue(ctx, ResolveIssueCommand{
				BatchID:    batchID,
				IssueID:    issue.IssueID,
				Resolution: "batch re-proofed and re-checked",
			})
			require.NoError(t, err)
			assert.Equal(t, "resolved", resolved.Issues[0].Status)
		})
	})

	t.Run("No individual checks defaults to a pass", func(t *testing.T) {
		dto, err := f.service.PerformQualityCheck(ctx, QualityCheckCommand{
			BatchID:     batchID,
			StepID:      stepID,
			PerformedBy: "baker-2",
		})
		require.NoError(t, err)

		require.Len(t, dto.Steps[0].QualityResults, 2)
		check := dto.Steps[0].QualityResults[1]
		assert.InDelta(t, 100.0, check.OverallScore, 0.001)
		assert.True(t, check.Passed)

		// A passing check opens nothing
		assert.Len(t, dto.Issues, 1)
	})

	t.Run("Unknown step rejected", func(t *testing.T) {
		_, err := f.service.PerformQualityCheck(ctx, QualityCheckCommand{BatchID: batchID, StepID: "ghost-step"})
		assert.Error(t, err)
	})
}

func TestProductionService_FailBatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	dto, err := f.service.FailBatch(ctx, FailBatchCommand{BatchID: batchID, Reason: "dough over-proofed"})
	require.NoError(t, err)
	assert.Equal(t, "failed", dto.Status)
	assert.False(t, f.monitor.IsMonitoring(batchID))
	assert.Contains(t, f.sink.notificationKinds(), "batch_failed")

	t.Run("Lock entry is dropped once the batch is terminal", func(t *testing.T) {
		f.service.lockMu.Lock()
		_, held := f.service.batchLocks[batchID]
		f.service.lockMu.Unlock()
		assert.False(t, held)
	})

	t.Run("Terminal batch cannot be failed again", func(t *testing.T) {
		_, err := f.service.FailBatch(ctx, FailBatchCommand{BatchID: batchID, Reason: "again"})
		assert.Error(t, err)
	})
}

func TestProductionService_GetBatchStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	batchID := f.activeBatch(t)

	status, err := f.service.GetBatchStatus(ctx, GetBatchQuery{BatchID: batchID})
	require.NoError(t, err)
	assert.Equal(t, batchID, status.BatchID)
	assert.Equal(t, "in_progress", status.Status)
	assert.True(t, status.Monitored)
}

func TestProductionService_GetBatchesByStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.activeBatch(t)

	listed, err := f.service.GetBatchesByStatus(ctx, GetBatchesByStatusQuery{Status: "in_progress"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.service.GetBatchesByStatus(ctx, GetBatchesByStatusQuery{Status: "doughy"})
	assert.Error(t, err)
}
