package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bakehouse-platform/production-service/pkg/errors"
	"github.com/bakehouse-platform/production-service/pkg/logging"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// Quality checks below this score fail the gate
const qualityPassThreshold = 70.0

// ProductionApplicationService handles schedule and batch use cases
type ProductionApplicationService struct {
	batchRepo    domain.BatchRepository
	scheduleRepo domain.ScheduleRepository
	planner      *CapacityPlanner
	publisher    domain.EventPublisher
	notifier     domain.NotifySink
	monitor      *MonitoringService
	logger       *logging.Logger

	// One ledger per schedule day, rebuilt lazily from persisted state
	ledgerMu sync.Mutex
	ledgers  map[string]*domain.ResourceLedger

	// Per-batch locks serialize concurrent mutations of the same aggregate
	lockMu     sync.Mutex
	batchLocks map[string]*sync.Mutex
}

// NewProductionApplicationService creates a new ProductionApplicationService
func NewProductionApplicationService(
	batchRepo domain.BatchRepository,
	scheduleRepo domain.ScheduleRepository,
	planner *CapacityPlanner,
	publisher domain.EventPublisher,
	notifier domain.NotifySink,
	monitor *MonitoringService,
	logger *logging.Logger,
) *ProductionApplicationService {
	return &ProductionApplicationService{
		batchRepo:    batchRepo,
		scheduleRepo: scheduleRepo,
		planner:      planner,
		publisher:    publisher,
		notifier:     notifier,
		monitor:      monitor,
		logger:       logger,
		ledgers:      make(map[string]*domain.ResourceLedger),
		batchLocks:   make(map[string]*sync.Mutex),
	}
}

// CreateSchedule creates a draft schedule for a day
func (s *ProductionApplicationService) CreateSchedule(ctx context.Context, cmd CreateScheduleCommand) (*ScheduleDTO, error) {
	scheduleID := generateScheduleID(cmd.ScheduleDate)
	schedule, err := domain.NewProductionSchedule(scheduleID, cmd.ScheduleDate, cmd.WorkdayStart, cmd.WorkdayEnd, cmd.Staff, cmd.Stations)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	if cmd.Notes != "" {
		schedule.Notes = cmd.Notes
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		s.logger.WithError(err).Error("Failed to create schedule", "scheduleId", scheduleID)
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("Created schedule", "scheduleId", scheduleID, "date", cmd.ScheduleDate.Format("2006-01-02"))
	return ToScheduleDTO(schedule), nil
}

// GetSchedule retrieves a schedule by ID
func (s *ProductionApplicationService) GetSchedule(ctx context.Context, query GetScheduleQuery) (*ScheduleDTO, error) {
	schedule, err := s.loadSchedule(ctx, query.ScheduleID)
	if err != nil {
		return nil, err
	}
	return ToScheduleDTO(schedule), nil
}

// GetScheduleByDate retrieves the schedule for a calendar date
func (s *ProductionApplicationService) GetScheduleByDate(ctx context.Context, query GetScheduleByDateQuery) (*ScheduleDTO, error) {
	schedule, err := s.scheduleRepo.FindByDate(ctx, query.Date)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get schedule by date", "date", query.Date.Format("2006-01-02"))
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return nil, errors.ErrNotFound("schedule")
	}
	return ToScheduleDTO(schedule), nil
}

// PlanSchedule runs capacity planning against a draft schedule. The plan
// never fails on partial infeasibility; unmet demand and resources surface
// as conflicts in the result.
func (s *ProductionApplicationService) PlanSchedule(ctx context.Context, cmd PlanScheduleCommand) (*PlanResultDTO, error) {
	schedule, err := s.loadSchedule(ctx, cmd.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusDraft {
		return nil, errors.ErrInvalidTransition(fmt.Sprintf("schedule %s is %s, planning requires draft", schedule.ScheduleID, schedule.Status))
	}

	ledger := s.ledgerFor(ctx, schedule)

	result, err := s.planner.Plan(ctx, schedule, ledger, cmd.Demand)
	if err != nil {
		s.logger.WithError(err).Error("Failed to plan schedule", "scheduleId", cmd.ScheduleID)
		return nil, errors.ErrValidation(err.Error())
	}

	for _, batch := range result.Batches {
		if err := schedule.AttachBatch(batch.BatchID); err != nil {
			return nil, fmt.Errorf("failed to attach batch %s: %w", batch.BatchID, err)
		}
		if err := s.batchRepo.Save(ctx, batch); err != nil {
			s.logger.WithError(err).Error("Failed to save planned batch", "batchId", batch.BatchID)
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
		s.publishEvents(ctx, batch.GetDomainEvents())
		batch.ClearDomainEvents()
	}

	if err := schedule.MarkPlanned(); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}
	schedule.AddDomainEvent(&domain.SchedulePlannedEvent{
		ScheduleID:    schedule.ScheduleID,
		BatchCount:    len(result.Batches),
		ConflictCount: len(result.Allocation.Conflicts),
		PlannedAt:     time.Now(),
	})

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		s.logger.WithError(err).Error("Failed to save planned schedule", "scheduleId", cmd.ScheduleID)
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("Planned schedule",
		"scheduleId", cmd.ScheduleID,
		"batches", len(result.Batches),
		"conflicts", len(result.Allocation.Conflicts),
		"efficiencyScore", result.EfficiencyScore,
	)
	return ToPlanResultDTO(schedule.ScheduleID, result), nil
}

// ActivateSchedule opens a planned schedule for execution and releases its
// planned batches to ready
func (s *ProductionApplicationService) ActivateSchedule(ctx context.Context, cmd ActivateScheduleCommand) (*ScheduleDTO, error) {
	schedule, err := s.loadSchedule(ctx, cmd.ScheduleID)
	if err != nil {
		return nil, err
	}

	if err := schedule.Activate(); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	batches, err := s.batchRepo.FindByScheduleID(ctx, cmd.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule batches: %w", err)
	}
	for _, batch := range batches {
		if batch.Status != domain.BatchStatusPlanned {
			continue
		}
		if err := batch.MarkReady(); err != nil {
			return nil, errors.ErrInvalidTransition(err.Error())
		}
		if err := s.batchRepo.Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to release batch %s: %w", batch.BatchID, err)
		}
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		s.logger.WithError(err).Error("Failed to activate schedule", "scheduleId", cmd.ScheduleID)
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("Activated schedule", "scheduleId", cmd.ScheduleID, "batches", len(batches))
	return ToScheduleDTO(schedule), nil
}

// CancelSchedule cancels a schedule and every non-terminal batch in it
func (s *ProductionApplicationService) CancelSchedule(ctx context.Context, cmd CancelScheduleCommand) (*ScheduleDTO, error) {
	schedule, err := s.loadSchedule(ctx, cmd.ScheduleID)
	if err != nil {
		return nil, err
	}

	if err := schedule.Cancel(cmd.Reason); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	batches, err := s.batchRepo.FindByScheduleID(ctx, cmd.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule batches: %w", err)
	}

	ledger := s.ledgerFor(ctx, schedule)
	for _, batch := range batches {
		if batch.Status.IsTerminal() {
			continue
		}
		if err := batch.Cancel(cmd.Reason); err != nil {
			s.logger.WithError(err).Warn("Failed to cancel batch with schedule", "batchId", batch.BatchID)
			continue
		}
		ledger.ReleaseBatch(batch.BatchID)
		s.monitor.StopMonitoring(batch.BatchID)
		s.releaseLock(batch.BatchID)
		if err := s.batchRepo.Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save cancelled batch %s: %w", batch.BatchID, err)
		}
		s.publishEvents(ctx, batch.GetDomainEvents())
		batch.ClearDomainEvents()
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("Cancelled schedule", "scheduleId", cmd.ScheduleID, "reason", cmd.Reason)
	return ToScheduleDTO(schedule), nil
}

// GetBatch retrieves a batch by ID
func (s *ProductionApplicationService) GetBatch(ctx context.Context, query GetBatchQuery) (*BatchDTO, error) {
	batch, err := s.loadBatch(ctx, query.BatchID)
	if err != nil {
		return nil, err
	}
	return ToBatchDTO(batch), nil
}

// GetBatchesBySchedule lists a schedule's batches
func (s *ProductionApplicationService) GetBatchesBySchedule(ctx context.Context, query GetBatchesByScheduleQuery) ([]BatchListDTO, error) {
	batches, err := s.batchRepo.FindByScheduleID(ctx, query.ScheduleID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list batches", "scheduleId", query.ScheduleID)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return ToBatchListDTOs(batches), nil
}

// GetBatchesByStatus lists batches in a given status
func (s *ProductionApplicationService) GetBatchesByStatus(ctx context.Context, query GetBatchesByStatusQuery) ([]BatchListDTO, error) {
	status := domain.BatchStatus(query.Status)
	if !status.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown batch status %q", query.Status))
	}
	batches, err := s.batchRepo.FindByStatus(ctx, status)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list batches by status", "status", status)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return ToBatchListDTOs(batches), nil
}

// GetActiveBatches lists batches currently executing or waiting
func (s *ProductionApplicationService) GetActiveBatches(ctx context.Context) ([]BatchListDTO, error) {
	batches, err := s.batchRepo.FindActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list active batches")
		return nil, fmt.Errorf("failed to list active batches: %w", err)
	}
	return ToBatchListDTOs(batches), nil
}

// GetBatchStatus returns the live monitoring view of a batch
func (s *ProductionApplicationService) GetBatchStatus(ctx context.Context, query GetBatchQuery) (*BatchStatusDTO, error) {
	batch, err := s.loadBatch(ctx, query.BatchID)
	if err != nil {
		return nil, err
	}
	snapshot := domain.SnapshotOf(batch, time.Now())
	return ToBatchStatusDTO(snapshot, s.monitor.IsMonitoring(query.BatchID)), nil
}

// StartBatch starts a batch. Resources must be held before execution begins:
// a batch that lost its planned allocation re-allocates here, and a batch
// that cannot get its staff or required stations does not start.
func (s *ProductionApplicationService) StartBatch(ctx context.Context, cmd StartBatchCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.loadSchedule(ctx, batch.ScheduleID)
	if err != nil {
		return nil, err
	}
	ledger := s.ledgerFor(ctx, schedule)

	// Only resources acquired by this call are rolled back on failure;
	// allocations made at planning time stay untouched.
	var acquired []string

	if len(batch.AssignedStaffIDs) == 0 {
		candidates := make([]string, 0, len(schedule.Staff))
		for _, w := range schedule.Staff {
			candidates = append(candidates, w.StaffID)
		}
		assigned, allocErr := ledger.Allocate(candidates, batch.PlannedStart, batch.PlannedEnd, batch.BatchID, 1)
		if allocErr != nil || len(assigned) == 0 {
			return nil, errors.ErrResourceUnavailable(fmt.Sprintf("no staff available for batch %s", batch.BatchID))
		}
		acquired = append(acquired, assigned...)
		batch.AssignResources(assigned, batch.AllocatedEquipment)
	}

	if missing := batch.MissingEquipment(); len(missing) > 0 {
		stations, allocErr := ledger.Allocate(missing, batch.PlannedStart, batch.PlannedEnd, batch.BatchID, len(missing))
		acquired = append(acquired, stations...)
		if allocErr != nil || len(stations) < len(missing) {
			s.rollbackAllocations(ledger, batch.BatchID, acquired)
			return nil, errors.ErrResourceUnavailable(fmt.Sprintf("equipment unavailable for batch %s", batch.BatchID))
		}
		batch.AssignResources(batch.AssignedStaffIDs, append(batch.AllocatedEquipment, stations...))
	}

	if err := batch.Start(); err != nil {
		s.rollbackAllocations(ledger, batch.BatchID, acquired)
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to start batch", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to start batch: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.monitor.StartMonitoring(cmd.BatchID)
	s.notify(ctx, domain.NotificationEvent{
		Kind:     "batch_started",
		BatchID:  batch.BatchID,
		Priority: string(batch.Priority),
	})

	s.logger.Info("Started batch", "batchId", cmd.BatchID, "workflowId", batch.WorkflowID)
	return ToBatchDTO(batch), nil
}

// StartStep moves a ready step into execution
func (s *ProductionApplicationService) StartStep(ctx context.Context, cmd StartStepCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.StartStep(cmd.StepIndex); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to start step", "batchId", cmd.BatchID, "stepIndex", cmd.StepIndex)
		return nil, fmt.Errorf("failed to start step: %w", err)
	}

	s.logger.Info("Started step", "batchId", cmd.BatchID, "stepIndex", cmd.StepIndex)
	return ToBatchDTO(batch), nil
}

// CompleteStep completes a step and advances the batch. A returned wait
// reason means the batch is blocked on the next step's preconditions.
func (s *ProductionApplicationService) CompleteStep(ctx context.Context, cmd CompleteStepCommand) (*StepUpdateResultDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	waitReason, err := batch.CompleteStep(cmd.StepIndex, domain.StepCompletion{
		CompletedActivities: cmd.CompletedActivities,
		ActualQuantity:      cmd.ActualQuantity,
		Notes:               cmd.Notes,
	})
	if err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to complete step", "batchId", cmd.BatchID, "stepIndex", cmd.StepIndex)
		return nil, fmt.Errorf("failed to complete step: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	if batch.Status == domain.BatchStatusCompleted {
		s.finishBatch(ctx, batch, "batch_completed")
	} else if waitReason != "" {
		s.notify(ctx, domain.NotificationEvent{
			Kind:     "batch_waiting",
			BatchID:  batch.BatchID,
			Priority: string(batch.Priority),
			Payload:  map[string]any{"reason": waitReason},
		})
	}

	s.logger.Info("Completed step", "batchId", cmd.BatchID, "stepIndex", cmd.StepIndex, "batchStatus", batch.Status)
	return &StepUpdateResultDTO{Batch: ToBatchDTO(batch), WaitReason: waitReason}, nil
}

// UpdateStepProgress applies a progress or status update to a step. A status
// of completed is delegated to the full completion path so advancement and
// completion side effects are never skipped.
func (s *ProductionApplicationService) UpdateStepProgress(ctx context.Context, cmd UpdateStepProgressCommand) (*StepUpdateResultDTO, error) {
	if cmd.Status != nil && domain.StepStatus(*cmd.Status) == domain.StepStatusCompleted {
		return s.CompleteStep(ctx, CompleteStepCommand{
			BatchID:   cmd.BatchID,
			StepIndex: cmd.StepIndex,
		})
	}

	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	var status *domain.StepStatus
	if cmd.Status != nil {
		converted := domain.StepStatus(*cmd.Status)
		status = &converted
	}

	if err := batch.UpdateStepProgress(cmd.StepIndex, cmd.Progress, status); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to update step progress", "batchId", cmd.BatchID, "stepIndex", cmd.StepIndex)
		return nil, fmt.Errorf("failed to update step progress: %w", err)
	}

	return &StepUpdateResultDTO{Batch: ToBatchDTO(batch)}, nil
}

// PauseBatch pauses an in-progress batch
func (s *ProductionApplicationService) PauseBatch(ctx context.Context, cmd PauseBatchCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.Pause(cmd.Reason); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to pause batch", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to pause batch: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.logger.Info("Paused batch", "batchId", cmd.BatchID, "reason", cmd.Reason)
	return ToBatchDTO(batch), nil
}

// ResumeBatch resumes a paused batch
func (s *ProductionApplicationService) ResumeBatch(ctx context.Context, cmd ResumeBatchCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.Resume(); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to resume batch", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to resume batch: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.logger.Info("Resumed batch", "batchId", cmd.BatchID)
	return ToBatchDTO(batch), nil
}

// CancelBatch cancels a batch and releases its resources
func (s *ProductionApplicationService) CancelBatch(ctx context.Context, cmd CancelBatchCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.Cancel(cmd.Reason); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to cancel batch", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to cancel batch: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.releaseBatchResources(ctx, batch)
	s.finishBatch(ctx, batch, "batch_cancelled")

	s.logger.Info("Cancelled batch", "batchId", cmd.BatchID, "reason", cmd.Reason)
	return ToBatchDTO(batch), nil
}

// FailBatch marks a batch as failed and releases its resources
func (s *ProductionApplicationService) FailBatch(ctx context.Context, cmd FailBatchCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.Fail(cmd.Reason); err != nil {
		return nil, errors.ErrInvalidTransition(err.Error())
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to fail batch", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to fail batch: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.releaseBatchResources(ctx, batch)
	s.finishBatch(ctx, batch, "batch_failed")

	s.logger.Warn("Failed batch", "batchId", cmd.BatchID, "reason", cmd.Reason)
	return ToBatchDTO(batch), nil
}

// ReportIssue records an issue against a batch and routes it by severity:
// critical issues pause the batch and escalate, high issues escalate, the
// rest are logged. Every issue produces a notification.
func (s *ProductionApplicationService) ReportIssue(ctx context.Context, cmd ReportIssueCommand) (*BatchDTO, error) {
	severity := domain.IssueSeverity(cmd.Severity)
	if !severity.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown issue severity %q", cmd.Severity))
	}

	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	issue := domain.Issue{
		IssueID:     uuid.New().String(),
		StepID:      cmd.StepID,
		Type:        cmd.Type,
		Severity:    severity,
		Description: cmd.Description,
		ReportedBy:  cmd.ReportedBy,
		ReportedAt:  time.Now(),
		Status:      domain.IssueStatusOpen,
	}
	batch.ReportIssue(issue)

	escalate := false
	switch severity {
	case domain.SeverityCritical:
		escalate = true
		if pauseErr := batch.Pause("critical issue: " + cmd.Description); pauseErr != nil {
			s.logger.WithError(pauseErr).Warn("Critical issue on non-running batch", "batchId", cmd.BatchID)
		}
	case domain.SeverityHigh:
		escalate = true
	default:
		s.logger.Info("Issue reported", "batchId", cmd.BatchID, "severity", severity, "type", cmd.Type)
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to report issue", "batchId", cmd.BatchID)
		return nil, fmt.Errorf("failed to report issue: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	s.notify(ctx, domain.NotificationEvent{
		Kind:     "issue_reported",
		BatchID:  batch.BatchID,
		StepID:   cmd.StepID,
		Priority: string(severity),
		Payload: map[string]any{
			"issueId":   issue.IssueID,
			"issueType": cmd.Type,
			"escalated": escalate,
		},
	})
	if escalate {
		s.notify(ctx, domain.NotificationEvent{
			Kind:     "issue_escalated",
			BatchID:  batch.BatchID,
			StepID:   cmd.StepID,
			Priority: string(severity),
			Payload:  map[string]any{"issueId": issue.IssueID},
		})
	}

	return ToBatchDTO(batch), nil
}

// ResolveIssue closes an open issue
func (s *ProductionApplicationService) ResolveIssue(ctx context.Context, cmd ResolveIssueCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	if err := batch.ResolveIssue(cmd.IssueID, cmd.Resolution); err != nil {
		return nil, errors.ErrNotFoundWithID("issue", cmd.IssueID)
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to resolve issue", "batchId", cmd.BatchID, "issueId", cmd.IssueID)
		return nil, fmt.Errorf("failed to resolve issue: %w", err)
	}

	s.logger.Info("Resolved issue", "batchId", cmd.BatchID, "issueId", cmd.IssueID)
	return ToBatchDTO(batch), nil
}

// PerformQualityCheck records a quality check on a step. The overall score
// is the mean of the individual checks, defaulting to 100 with no checks; a
// score below the threshold fails the gate, flags the step and opens a
// quality_failure issue, but the decision to fail the batch stays with an
// operator.
func (s *ProductionApplicationService) PerformQualityCheck(ctx context.Context, cmd QualityCheckCommand) (*BatchDTO, error) {
	unlock := s.lockBatch(cmd.BatchID)
	defer unlock()

	batch, err := s.loadBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}

	score := 100.0
	checks := make([]domain.CheckResult, 0, len(cmd.Checks))
	if len(cmd.Checks) > 0 {
		var sum float64
		for _, c := range cmd.Checks {
			sum += c.Score
			checks = append(checks, domain.CheckResult{Name: c.Name, Score: c.Score})
		}
		score = sum / float64(len(cmd.Checks))
	}

	check := domain.QualityCheck{
		CheckID:      uuid.New().String(),
		PerformedBy:  cmd.PerformedBy,
		PerformedAt:  time.Now(),
		Checks:       checks,
		OverallScore: score,
		Passed:       score >= qualityPassThreshold,
		Notes:        cmd.Notes,
	}

	if err := batch.ApplyQualityCheck(cmd.StepID, check); err != nil {
		return nil, errors.ErrNotFoundWithID("step", cmd.StepID)
	}

	issueID := ""
	if !check.Passed {
		issueID = uuid.New().String()
		batch.ReportIssue(domain.Issue{
			IssueID:     issueID,
			StepID:      cmd.StepID,
			Type:        "quality_failure",
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("quality check scored %.1f, below the pass threshold of %.0f", check.OverallScore, qualityPassThreshold),
			ReportedBy:  cmd.PerformedBy,
			ReportedAt:  check.PerformedAt,
			Status:      domain.IssueStatusOpen,
		})
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		s.logger.WithError(err).Error("Failed to record quality check", "batchId", cmd.BatchID, "stepId", cmd.StepID)
		return nil, fmt.Errorf("failed to record quality check: %w", err)
	}
	s.publishEvents(ctx, batch.GetDomainEvents())
	batch.ClearDomainEvents()

	if !check.Passed {
		s.notify(ctx, domain.NotificationEvent{
			Kind:     "quality_check_failed",
			BatchID:  batch.BatchID,
			StepID:   cmd.StepID,
			Priority: string(domain.SeverityHigh),
			Payload: map[string]any{
				"checkId": check.CheckID,
				"issueId": issueID,
				"score":   check.OverallScore,
			},
		})
	}

	s.logger.Info("Recorded quality check",
		"batchId", cmd.BatchID,
		"stepId", cmd.StepID,
		"score", check.OverallScore,
		"passed", check.Passed,
	)
	return ToBatchDTO(batch), nil
}

// loadBatch fetches a batch or returns a not-found application error
func (s *ProductionApplicationService) loadBatch(ctx context.Context, batchID string) (*domain.ProductionBatch, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load batch", "batchId", batchID)
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if batch == nil {
		return nil, errors.ErrNotFoundWithID("batch", batchID)
	}
	return batch, nil
}

// loadSchedule fetches a schedule or returns a not-found application error
func (s *ProductionApplicationService) loadSchedule(ctx context.Context, scheduleID string) (*domain.ProductionSchedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load schedule", "scheduleId", scheduleID)
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	if schedule == nil {
		return nil, errors.ErrNotFoundWithID("schedule", scheduleID)
	}
	return schedule, nil
}

// ledgerFor returns the in-memory ledger for a schedule day. On first use it
// is built from the schedule's rosters and rehydrated with the allocations
// still held by the day's persisted batches, so reservations survive a
// restart.
func (s *ProductionApplicationService) ledgerFor(ctx context.Context, schedule *domain.ProductionSchedule) *domain.ResourceLedger {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	if ledger, ok := s.ledgers[schedule.ScheduleID]; ok {
		return ledger
	}
	ledger := schedule.BuildLedger()
	s.restoreAllocations(ctx, schedule.ScheduleID, ledger)
	s.ledgers[schedule.ScheduleID] = ledger
	return ledger
}

// restoreAllocations re-reserves the resources recorded on every non-terminal
// batch of the schedule over its planned window
func (s *ProductionApplicationService) restoreAllocations(ctx context.Context, scheduleID string, ledger *domain.ResourceLedger) {
	batches, err := s.batchRepo.FindByScheduleID(ctx, scheduleID)
	if err != nil {
		s.logger.WithError(err).Warn("Could not restore ledger allocations", "scheduleId", scheduleID)
		return
	}
	for _, batch := range batches {
		if batch.Status.IsTerminal() {
			continue
		}
		held := append(append([]string(nil), batch.AssignedStaffIDs...), batch.AllocatedEquipment...)
		for _, id := range held {
			got, allocErr := ledger.Allocate([]string{id}, batch.PlannedStart, batch.PlannedEnd, batch.BatchID, 1)
			if allocErr != nil || len(got) == 0 {
				s.logger.Warn("Could not restore allocation",
					"scheduleId", scheduleID, "batchId", batch.BatchID, "resourceId", id)
			}
		}
	}
}

// rollbackAllocations releases only the resources a failed call acquired
func (s *ProductionApplicationService) rollbackAllocations(ledger *domain.ResourceLedger, batchID string, resourceIDs []string) {
	for _, id := range resourceIDs {
		if err := ledger.Release(id, batchID); err != nil {
			s.logger.WithError(err).Warn("Failed to roll back allocation", "batchId", batchID, "resourceId", id)
		}
	}
}

// lockBatch serializes mutations per batch id
func (s *ProductionApplicationService) lockBatch(batchID string) func() {
	s.lockMu.Lock()
	lock, ok := s.batchLocks[batchID]
	if !ok {
		lock = &sync.Mutex{}
		s.batchLocks[batchID] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// releaseLock drops the lock entry for a batch that reached a terminal
// status; every further mutation is rejected by the state machine, so a
// late caller on the stale mutex can only observe the terminal state
func (s *ProductionApplicationService) releaseLock(batchID string) {
	s.lockMu.Lock()
	delete(s.batchLocks, batchID)
	s.lockMu.Unlock()
}

// releaseBatchResources frees the ledger allocations held by a batch
func (s *ProductionApplicationService) releaseBatchResources(ctx context.Context, batch *domain.ProductionBatch) {
	schedule, err := s.scheduleRepo.FindByID(ctx, batch.ScheduleID)
	if err != nil || schedule == nil {
		s.logger.Warn("Could not release batch resources, schedule unavailable", "batchId", batch.BatchID, "scheduleId", batch.ScheduleID)
		return
	}
	s.ledgerFor(ctx, schedule).ReleaseBatch(batch.BatchID)
}

// finishBatch handles the shared tail of every terminal transition: stop
// monitoring, drop the serialization lock, notify, and roll the completion
// up into the schedule
func (s *ProductionApplicationService) finishBatch(ctx context.Context, batch *domain.ProductionBatch, kind string) {
	s.monitor.StopMonitoring(batch.BatchID)
	s.releaseLock(batch.BatchID)
	s.notify(ctx, domain.NotificationEvent{
		Kind:     kind,
		BatchID:  batch.BatchID,
		Priority: string(batch.Priority),
	})

	if batch.Status != domain.BatchStatusCompleted {
		return
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, batch.ScheduleID)
	if err != nil || schedule == nil {
		s.logger.Warn("Could not roll up batch completion, schedule unavailable", "batchId", batch.BatchID)
		return
	}
	s.ledgerFor(ctx, schedule).ReleaseBatch(batch.BatchID)
	if err := schedule.MarkBatchCompleted(batch.BatchID); err != nil {
		s.logger.WithError(err).Warn("Failed to roll up batch completion", "batchId", batch.BatchID)
		return
	}
	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		s.logger.WithError(err).Error("Failed to save schedule rollup", "scheduleId", schedule.ScheduleID)
		return
	}
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()
}

// publishEvents pushes domain events to the backbone. Publish failures are
// logged, never propagated; the state change has already been persisted.
func (s *ProductionApplicationService) publishEvents(ctx context.Context, events []domain.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithError(err).Error("Failed to publish domain events", "count", len(events))
	}
}

// notify pushes a notification to the sink. Failures are logged, never
// propagated.
func (s *ProductionApplicationService) notify(ctx context.Context, event domain.NotificationEvent) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WithError(err).Error("Failed to send notification", "kind", event.Kind, "batchId", event.BatchID)
	}
}

// generateScheduleID generates a schedule ID from the schedule date
func generateScheduleID(date time.Time) string {
	return fmt.Sprintf("PS-%s-%d", date.Format("20060102"), time.Now().UnixNano()%100000)
}
