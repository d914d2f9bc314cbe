package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrBatchNotStartable   = errors.New("batch can only be started from planned or ready status")
	ErrBatchNotRunning     = errors.New("batch is not in progress")
	ErrBatchNotPaused      = errors.New("batch is not paused")
	ErrBatchTerminal       = errors.New("batch has reached a terminal status")
	ErrStepNotInProgress   = errors.New("step is not in progress")
	ErrStepNotCompleted    = errors.New("step has not been completed")
	ErrStepIndexOutOfRange = errors.New("step index out of range")
	ErrInvalidProgress     = errors.New("progress must be between 0 and 100")
	ErrInvalidStatus       = errors.New("unknown step status")
	ErrIssueNotFound       = errors.New("issue not found on batch")
	ErrNoSteps             = errors.New("batch must have at least one step")
)

// ProductionBatch is the aggregate root for one scheduled execution of a
// workflow. Steps are owned by the batch and destroyed with it.
type ProductionBatch struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BatchID            string             `bson:"batchId" json:"batchId"`
	ScheduleID         string             `bson:"scheduleId" json:"scheduleId"`
	Name               string             `bson:"name" json:"name"`
	WorkflowID         string             `bson:"workflowId" json:"workflowId"`
	ProductID          string             `bson:"productId,omitempty" json:"productId,omitempty"`
	PlannedQuantity    int                `bson:"plannedQuantity" json:"plannedQuantity"`
	ActualQuantity     *int               `bson:"actualQuantity,omitempty" json:"actualQuantity,omitempty"`
	Unit               string             `bson:"unit" json:"unit"`
	PlannedStart       time.Time          `bson:"plannedStart" json:"plannedStart"`
	PlannedEnd         time.Time          `bson:"plannedEnd" json:"plannedEnd"`
	ActualStart        *time.Time         `bson:"actualStart,omitempty" json:"actualStart,omitempty"`
	ActualEnd          *time.Time         `bson:"actualEnd,omitempty" json:"actualEnd,omitempty"`
	Status             BatchStatus        `bson:"status" json:"status"`
	StatusBeforePause  BatchStatus        `bson:"statusBeforePause,omitempty" json:"-"`
	PauseReason        string             `bson:"pauseReason,omitempty" json:"pauseReason,omitempty"`
	CurrentStepIndex   int                `bson:"currentStepIndex" json:"currentStepIndex"`
	Priority           Priority           `bson:"priority" json:"priority"`
	AssignedStaffIDs   []string           `bson:"assignedStaffIds" json:"assignedStaffIds"`
	RequiredEquipment  []string           `bson:"requiredEquipment" json:"requiredEquipment"`
	AllocatedEquipment []string           `bson:"allocatedEquipment" json:"allocatedEquipment"`
	Steps              []ProductionStep   `bson:"steps" json:"steps"`
	Issues             []Issue            `bson:"issues" json:"issues"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents       []DomainEvent      `bson:"-" json:"-"`
}

// ProductionStep is one ordered stage within a batch, derived from the
// workflow's step templates
type ProductionStep struct {
	StepID              string         `bson:"stepId" json:"stepId"`
	BatchID             string         `bson:"batchId" json:"batchId"`
	StepIndex           int            `bson:"stepIndex" json:"stepIndex"`
	Name                string         `bson:"name" json:"name"`
	Kind                StepKind       `bson:"kind" json:"kind"`
	Status              StepStatus     `bson:"status" json:"status"`
	StatusBeforePause   StepStatus     `bson:"statusBeforePause,omitempty" json:"-"`
	PlannedStart        *time.Time     `bson:"plannedStart,omitempty" json:"plannedStart,omitempty"`
	PlannedEnd          *time.Time     `bson:"plannedEnd,omitempty" json:"plannedEnd,omitempty"`
	ActualStart         *time.Time     `bson:"actualStart,omitempty" json:"actualStart,omitempty"`
	ActualEnd           *time.Time     `bson:"actualEnd,omitempty" json:"actualEnd,omitempty"`
	Progress            float64        `bson:"progress" json:"progress"`
	QualityResults      []QualityCheck `bson:"qualityResults" json:"qualityResults"`
	HasIssues           bool           `bson:"hasIssues" json:"hasIssues"`
	Activities          []string       `bson:"activities" json:"activities"`
	CompletedActivities []string       `bson:"completedActivities" json:"completedActivities"`
	Notes               string         `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Issue is a reported production problem tied to a batch or step
type Issue struct {
	IssueID     string        `bson:"issueId" json:"issueId"`
	BatchID     string        `bson:"batchId" json:"batchId"`
	StepID      string        `bson:"stepId,omitempty" json:"stepId,omitempty"`
	Type        string        `bson:"type" json:"type"`
	Severity    IssueSeverity `bson:"severity" json:"severity"`
	Description string        `bson:"description" json:"description"`
	ReportedBy  string        `bson:"reportedBy" json:"reportedBy"`
	ReportedAt  time.Time     `bson:"reportedAt" json:"reportedAt"`
	Status      IssueStatus   `bson:"status" json:"status"`
	Resolution  string        `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedAt  *time.Time    `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// QualityCheck records the outcome of a quality gate on a step
type QualityCheck struct {
	CheckID      string        `bson:"checkId" json:"checkId"`
	StepID       string        `bson:"stepId" json:"stepId"`
	PerformedBy  string        `bson:"performedBy" json:"performedBy"`
	PerformedAt  time.Time     `bson:"performedAt" json:"performedAt"`
	Checks       []CheckResult `bson:"checks" json:"checks"`
	OverallScore float64       `bson:"overallScore" json:"overallScore"`
	Passed       bool          `bson:"passed" json:"passed"`
	Notes        string        `bson:"notes,omitempty" json:"notes,omitempty"`
}

// CheckResult is a single named measurement within a quality check
type CheckResult struct {
	Name  string  `bson:"name" json:"name"`
	Score float64 `bson:"score" json:"score"`
}

// StepCompletion carries optional data recorded when a step completes
type StepCompletion struct {
	CompletedActivities []string
	QualityResults      []QualityCheck
	ActualQuantity      *int
	Notes               string
}

// NewProductionBatch creates a batch from a workflow definition. Steps are
// instantiated from the workflow's templates with contiguous indexes from 0.
func NewProductionBatch(batchID, name string, workflow *WorkflowDefinition, quantity int, unit string, priority Priority, plannedStart, plannedEnd time.Time) (*ProductionBatch, error) {
	if len(workflow.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("planned quantity must be positive, got %d", quantity)
	}
	if !priority.IsValid() {
		priority = PriorityMedium
	}

	now := time.Now()
	batch := &ProductionBatch{
		BatchID:            batchID,
		Name:               name,
		WorkflowID:         workflow.WorkflowID,
		PlannedQuantity:    quantity,
		Unit:               unit,
		PlannedStart:       plannedStart,
		PlannedEnd:         plannedEnd,
		Status:             BatchStatusPlanned,
		CurrentStepIndex:   0,
		Priority:           priority,
		AssignedStaffIDs:   make([]string, 0),
		RequiredEquipment:  workflow.RequiredEquipment(),
		AllocatedEquipment: make([]string, 0),
		Steps:              make([]ProductionStep, 0, len(workflow.Steps)),
		Issues:             make([]Issue, 0),
		CreatedAt:          now,
		UpdatedAt:          now,
		DomainEvents:       make([]DomainEvent, 0),
	}

	cursor := plannedStart
	total := workflow.TotalDuration()
	for i, tmpl := range workflow.Steps {
		// Step windows stretch proportionally when the batch window differs
		// from the workflow's nominal duration.
		stepDur := tmpl.DurationEstimate
		if total > 0 {
			stepDur = time.Duration(float64(plannedEnd.Sub(plannedStart)) * float64(tmpl.DurationEstimate) / float64(total))
		}
		stepStart := cursor
		stepEnd := cursor.Add(stepDur)
		cursor = stepEnd

		batch.Steps = append(batch.Steps, ProductionStep{
			StepID:              fmt.Sprintf("%s-step-%d", batchID, i),
			BatchID:             batchID,
			StepIndex:           i,
			Name:                tmpl.Name,
			Kind:                tmpl.Kind,
			Status:              StepStatusPending,
			PlannedStart:        &stepStart,
			PlannedEnd:          &stepEnd,
			Progress:            0,
			QualityResults:      make([]QualityCheck, 0),
			Activities:          append([]string(nil), tmpl.Activities...),
			CompletedActivities: make([]string, 0),
		})
	}

	batch.AddDomainEvent(&BatchPlannedEvent{
		BatchID:      batchID,
		WorkflowID:   workflow.WorkflowID,
		Quantity:     quantity,
		Priority:     string(priority),
		PlannedStart: plannedStart,
		PlannedEnd:   plannedEnd,
		PlannedAt:    now,
	})

	return batch, nil
}

// MarkReady releases a planned batch for execution
func (b *ProductionBatch) MarkReady() error {
	if !b.Status.CanTransitionTo(BatchStatusReady) {
		return fmt.Errorf("cannot release batch from status %s", b.Status)
	}
	b.Status = BatchStatusReady
	b.UpdatedAt = time.Now()
	return nil
}

// Start moves the batch to in_progress and readies step 0. Resource
// allocation must have succeeded before this is called; the aggregate only
// enforces the state machine.
func (b *ProductionBatch) Start() error {
	if b.Status != BatchStatusPlanned && b.Status != BatchStatusReady {
		return ErrBatchNotStartable
	}

	now := time.Now()
	b.Status = BatchStatusInProgress
	b.ActualStart = &now
	b.CurrentStepIndex = 0
	b.Steps[0].Status = StepStatusReady
	b.UpdatedAt = now

	b.AddDomainEvent(&BatchStartedEvent{
		BatchID:    b.BatchID,
		WorkflowID: b.WorkflowID,
		StaffIDs:   append([]string(nil), b.AssignedStaffIDs...),
		Equipment:  append([]string(nil), b.AllocatedEquipment...),
		StartedAt:  now,
	})

	return nil
}

// StartStep moves a ready step into in_progress
func (b *ProductionBatch) StartStep(stepIndex int) error {
	if stepIndex < 0 || stepIndex >= len(b.Steps) {
		return ErrStepIndexOutOfRange
	}
	if b.Status != BatchStatusInProgress {
		return ErrBatchNotRunning
	}

	step := &b.Steps[stepIndex]
	if !step.Status.CanTransitionTo(StepStatusInProgress) {
		return fmt.Errorf("cannot start step %d from status %s", stepIndex, step.Status)
	}
	if ok, reason := b.ValidateStepPreconditions(stepIndex); !ok {
		return fmt.Errorf("step preconditions not met: %s", reason)
	}

	now := time.Now()
	step.Status = StepStatusInProgress
	if step.ActualStart == nil {
		step.ActualStart = &now
	}
	b.UpdatedAt = now
	return nil
}

// ValidateStepPreconditions checks that every lower-indexed step is done.
// Returns false with a reason naming the first blocking step.
func (b *ProductionBatch) ValidateStepPreconditions(stepIndex int) (bool, string) {
	for i := 0; i < stepIndex; i++ {
		if !b.Steps[i].Status.IsDone() {
			return false, fmt.Sprintf("step %d (%s) is %s, must be completed or skipped", i, b.Steps[i].Name, b.Steps[i].Status)
		}
	}
	return true, ""
}

// Advance moves execution past the step at fromStepIndex. The step must be
// completed. When no further step exists the batch completes. When the next
// step's preconditions are unmet, the step and batch enter waiting and the
// reason is returned to the caller instead of being dropped.
func (b *ProductionBatch) Advance(fromStepIndex int) (string, error) {
	if fromStepIndex < 0 || fromStepIndex >= len(b.Steps) {
		return "", ErrStepIndexOutOfRange
	}
	if b.Status.IsTerminal() {
		return "", ErrBatchTerminal
	}
	if b.Steps[fromStepIndex].Status != StepStatusCompleted {
		return "", ErrStepNotCompleted
	}

	next := fromStepIndex + 1
	if next >= len(b.Steps) {
		return "", b.complete()
	}

	now := time.Now()
	if ok, reason := b.ValidateStepPreconditions(next); !ok {
		// The blocked step is still where execution stands; Resume restores
		// it to ready and StartStep re-validates the preconditions.
		b.Steps[next].Status = StepStatusWaiting
		b.Steps[next].StatusBeforePause = StepStatusReady
		b.CurrentStepIndex = next
		if b.Status == BatchStatusInProgress {
			b.StatusBeforePause = b.Status
			b.Status = BatchStatusWaiting
			b.PauseReason = reason
		}
		b.UpdatedAt = now
		return reason, nil
	}

	b.Steps[next].Status = StepStatusReady
	b.CurrentStepIndex = next
	b.UpdatedAt = now

	b.AddDomainEvent(&WorkflowAdvancedEvent{
		BatchID:       b.BatchID,
		FromStepIndex: fromStepIndex,
		ToStepIndex:   next,
		StepName:      b.Steps[next].Name,
		AdvancedAt:    now,
	})

	return "", nil
}

// CompleteStep completes the step at stepIndex and advances the batch
func (b *ProductionBatch) CompleteStep(stepIndex int, completion StepCompletion) (string, error) {
	if stepIndex < 0 || stepIndex >= len(b.Steps) {
		return "", ErrStepIndexOutOfRange
	}

	step := &b.Steps[stepIndex]
	if step.Status != StepStatusInProgress {
		return "", ErrStepNotInProgress
	}

	now := time.Now()
	step.Status = StepStatusCompleted
	step.Progress = 100
	step.ActualEnd = &now
	if len(completion.CompletedActivities) > 0 {
		step.CompletedActivities = append(step.CompletedActivities, completion.CompletedActivities...)
	}
	if len(completion.QualityResults) > 0 {
		step.QualityResults = append(step.QualityResults, completion.QualityResults...)
	}
	if completion.Notes != "" {
		step.Notes = completion.Notes
	}
	if completion.ActualQuantity != nil {
		b.ActualQuantity = completion.ActualQuantity
	}
	b.UpdatedAt = now

	return b.Advance(stepIndex)
}

// complete finishes the batch once the last step is done
func (b *ProductionBatch) complete() error {
	for _, s := range b.Steps {
		if !s.Status.IsDone() {
			return fmt.Errorf("cannot complete batch: step %d is %s", s.StepIndex, s.Status)
		}
	}

	now := time.Now()
	b.Status = BatchStatusCompleted
	b.ActualEnd = &now
	if b.ActualQuantity == nil {
		qty := b.PlannedQuantity
		b.ActualQuantity = &qty
	}
	b.UpdatedAt = now

	b.AddDomainEvent(&WorkflowCompletedEvent{
		BatchID:        b.BatchID,
		WorkflowID:     b.WorkflowID,
		ActualQuantity: *b.ActualQuantity,
		Unit:           b.Unit,
		ActualStart:    b.ActualStart,
		CompletedAt:    now,
	})

	return nil
}

// Pause moves an in-progress batch (and its in-progress step) to waiting,
// recording the prior status so Resume can restore it exactly
func (b *ProductionBatch) Pause(reason string) error {
	if b.Status != BatchStatusInProgress {
		return ErrBatchNotRunning
	}

	now := time.Now()
	b.StatusBeforePause = b.Status
	b.Status = BatchStatusWaiting
	b.PauseReason = reason

	for i := range b.Steps {
		if b.Steps[i].Status == StepStatusInProgress {
			b.Steps[i].StatusBeforePause = b.Steps[i].Status
			b.Steps[i].Status = StepStatusWaiting
		}
	}
	b.UpdatedAt = now

	b.AddDomainEvent(&BatchPausedEvent{
		BatchID:  b.BatchID,
		Reason:   reason,
		PausedAt: now,
	})

	return nil
}

// Resume restores the batch and any paused step to their prior status
func (b *ProductionBatch) Resume() error {
	if b.Status != BatchStatusWaiting {
		return ErrBatchNotPaused
	}

	now := time.Now()
	restored := b.StatusBeforePause
	if restored == "" {
		restored = BatchStatusInProgress
	}
	b.Status = restored
	b.StatusBeforePause = ""
	b.PauseReason = ""

	for i := range b.Steps {
		if b.Steps[i].Status == StepStatusWaiting && b.Steps[i].StatusBeforePause != "" {
			b.Steps[i].Status = b.Steps[i].StatusBeforePause
			b.Steps[i].StatusBeforePause = ""
		}
	}
	b.UpdatedAt = now

	b.AddDomainEvent(&BatchResumedEvent{
		BatchID:   b.BatchID,
		ResumedAt: now,
	})

	return nil
}

// Cancel aborts the batch before completion
func (b *ProductionBatch) Cancel(reason string) error {
	if b.Status.IsTerminal() {
		return ErrBatchTerminal
	}

	now := time.Now()
	b.Status = BatchStatusCancelled
	b.ActualEnd = &now
	b.Notes = appendNote(b.Notes, "cancelled: "+reason)
	b.UpdatedAt = now

	b.AddDomainEvent(&BatchCancelledEvent{
		BatchID:     b.BatchID,
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

// Fail marks the batch as failed
func (b *ProductionBatch) Fail(reason string) error {
	if b.Status != BatchStatusInProgress && b.Status != BatchStatusWaiting {
		return fmt.Errorf("cannot fail batch from status %s", b.Status)
	}

	now := time.Now()
	b.Status = BatchStatusFailed
	b.ActualEnd = &now
	b.Notes = appendNote(b.Notes, "failed: "+reason)
	b.UpdatedAt = now

	b.AddDomainEvent(&BatchFailedEvent{
		BatchID:  b.BatchID,
		Reason:   reason,
		FailedAt: now,
	})

	return nil
}

// UpdateStepProgress applies a progress/status update to a step. Input is
// validated fully before any mutation: out-of-range progress and unknown
// statuses are rejected with the step unchanged.
func (b *ProductionBatch) UpdateStepProgress(stepIndex int, progress *float64, status *StepStatus) error {
	if stepIndex < 0 || stepIndex >= len(b.Steps) {
		return ErrStepIndexOutOfRange
	}
	if progress != nil && (*progress < 0 || *progress > 100) {
		return ErrInvalidProgress
	}
	if status != nil {
		if !status.IsValid() {
			return ErrInvalidStatus
		}
		if !b.Steps[stepIndex].Status.CanTransitionTo(*status) && b.Steps[stepIndex].Status != *status {
			return fmt.Errorf("invalid step transition %s -> %s", b.Steps[stepIndex].Status, *status)
		}
	}

	step := &b.Steps[stepIndex]
	now := time.Now()
	if progress != nil {
		step.Progress = *progress
	}
	if status != nil && *status != step.Status {
		step.Status = *status
		if *status == StepStatusInProgress && step.ActualStart == nil {
			step.ActualStart = &now
		}
	}
	b.UpdatedAt = now
	return nil
}

// ReportIssue appends an issue to the batch and flags the step if given
func (b *ProductionBatch) ReportIssue(issue Issue) {
	issue.BatchID = b.BatchID
	if issue.Status == "" {
		issue.Status = IssueStatusOpen
	}
	b.Issues = append(b.Issues, issue)

	if issue.StepID != "" {
		for i := range b.Steps {
			if b.Steps[i].StepID == issue.StepID {
				b.Steps[i].HasIssues = true
				break
			}
		}
	}
	b.UpdatedAt = time.Now()

	b.AddDomainEvent(&ProductionIssueReportedEvent{
		BatchID:    b.BatchID,
		IssueID:    issue.IssueID,
		StepID:     issue.StepID,
		IssueType:  issue.Type,
		Severity:   string(issue.Severity),
		ReportedBy: issue.ReportedBy,
		ReportedAt: issue.ReportedAt,
	})
}

// ResolveIssue closes an open issue
func (b *ProductionBatch) ResolveIssue(issueID, resolution string) error {
	for i := range b.Issues {
		if b.Issues[i].IssueID == issueID {
			now := time.Now()
			b.Issues[i].Status = IssueStatusResolved
			b.Issues[i].Resolution = resolution
			b.Issues[i].ResolvedAt = &now
			b.UpdatedAt = now
			return nil
		}
	}
	return ErrIssueNotFound
}

// ApplyQualityCheck records a quality check against a step. A failed check
// flags the step but never fails the batch by itself.
func (b *ProductionBatch) ApplyQualityCheck(stepID string, check QualityCheck) error {
	step := b.StepByID(stepID)
	if step == nil {
		return ErrStepIndexOutOfRange
	}

	check.StepID = stepID
	step.QualityResults = append(step.QualityResults, check)
	if !check.Passed {
		step.HasIssues = true
	}
	b.UpdatedAt = time.Now()

	b.AddDomainEvent(&QualityCheckCompletedEvent{
		BatchID:      b.BatchID,
		StepID:       stepID,
		CheckID:      check.CheckID,
		OverallScore: check.OverallScore,
		Passed:       check.Passed,
		PerformedBy:  check.PerformedBy,
		PerformedAt:  check.PerformedAt,
	})

	return nil
}

// MissingEquipment returns the required stations not yet allocated to the
// batch
func (b *ProductionBatch) MissingEquipment() []string {
	missing := make([]string, 0)
	for _, id := range b.RequiredEquipment {
		held := false
		for _, a := range b.AllocatedEquipment {
			if a == id {
				held = true
				break
			}
		}
		if !held {
			missing = append(missing, id)
		}
	}
	return missing
}

// AssignResources records the allocation produced by the resource ledger
func (b *ProductionBatch) AssignResources(staffIDs, equipment []string) {
	b.AssignedStaffIDs = append([]string(nil), staffIDs...)
	b.AllocatedEquipment = append([]string(nil), equipment...)
	b.UpdatedAt = time.Now()
}

// CurrentStep returns the step at the current index
func (b *ProductionBatch) CurrentStep() *ProductionStep {
	if b.CurrentStepIndex < 0 || b.CurrentStepIndex >= len(b.Steps) {
		return nil
	}
	return &b.Steps[b.CurrentStepIndex]
}

// StepByID finds a step by its id
func (b *ProductionBatch) StepByID(stepID string) *ProductionStep {
	for i := range b.Steps {
		if b.Steps[i].StepID == stepID {
			return &b.Steps[i]
		}
	}
	return nil
}

// Progress returns the mean step progress in percent, computed on read
func (b *ProductionBatch) Progress() float64 {
	if len(b.Steps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Steps {
		switch {
		case s.Status.IsDone():
			sum += 100
		default:
			sum += s.Progress
		}
	}
	return sum / float64(len(b.Steps))
}

// IsOverdue reports whether the batch has passed its planned end without
// reaching a terminal status
func (b *ProductionBatch) IsOverdue(now time.Time) bool {
	return now.After(b.PlannedEnd) && !b.Status.IsTerminal()
}

// DelayMinutes returns how many minutes the batch is past its planned end,
// clamped to zero
func (b *ProductionBatch) DelayMinutes(now time.Time) int {
	if !b.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(b.PlannedEnd).Minutes())
}

// OpenIssueCount returns the number of unresolved issues
func (b *ProductionBatch) OpenIssueCount() int {
	count := 0
	for _, i := range b.Issues {
		if i.Status == IssueStatusOpen {
			count++
		}
	}
	return count
}

// AddDomainEvent adds a domain event to the batch
func (b *ProductionBatch) AddDomainEvent(event DomainEvent) {
	b.DomainEvents = append(b.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (b *ProductionBatch) ClearDomainEvents() {
	b.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (b *ProductionBatch) GetDomainEvents() []DomainEvent {
	return b.DomainEvents
}

func appendNote(notes, entry string) string {
	if notes == "" {
		return entry
	}
	return notes + "; " + entry
}

// IsOverdue reports whether the step has passed its planned end without
// reaching a terminal status
func (s *ProductionStep) IsOverdue(now time.Time) bool {
	return s.PlannedEnd != nil && now.After(*s.PlannedEnd) && !s.Status.IsTerminal()
}

// DelayMinutes returns how many minutes the step is past its planned end,
// clamped to zero
func (s *ProductionStep) DelayMinutes(now time.Time) int {
	if !s.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(*s.PlannedEnd).Minutes())
}
