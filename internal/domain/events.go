package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// BatchPlannedEvent is published when the capacity planner creates a batch
type BatchPlannedEvent struct {
	BatchID      string    `json:"batchId"`
	WorkflowID   string    `json:"workflowId"`
	Quantity     int       `json:"quantity"`
	Priority     string    `json:"priority"`
	PlannedStart time.Time `json:"plannedStart"`
	PlannedEnd   time.Time `json:"plannedEnd"`
	PlannedAt    time.Time `json:"plannedAt"`
}

func (e *BatchPlannedEvent) EventType() string     { return "bakery.production.batch-planned" }
func (e *BatchPlannedEvent) OccurredAt() time.Time { return e.PlannedAt }

// BatchStartedEvent is published when a batch begins execution
type BatchStartedEvent struct {
	BatchID    string    `json:"batchId"`
	WorkflowID string    `json:"workflowId"`
	StaffIDs   []string  `json:"staffIds"`
	Equipment  []string  `json:"equipment"`
	StartedAt  time.Time `json:"startedAt"`
}

func (e *BatchStartedEvent) EventType() string     { return "bakery.production.batch-started" }
func (e *BatchStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// WorkflowAdvancedEvent is published when execution moves to the next step
type WorkflowAdvancedEvent struct {
	BatchID       string    `json:"batchId"`
	FromStepIndex int       `json:"fromStepIndex"`
	ToStepIndex   int       `json:"toStepIndex"`
	StepName      string    `json:"stepName"`
	AdvancedAt    time.Time `json:"advancedAt"`
}

func (e *WorkflowAdvancedEvent) EventType() string     { return "bakery.production.workflow-advanced" }
func (e *WorkflowAdvancedEvent) OccurredAt() time.Time { return e.AdvancedAt }

// WorkflowCompletedEvent is published when the final step of a batch completes
type WorkflowCompletedEvent struct {
	BatchID        string     `json:"batchId"`
	WorkflowID     string     `json:"workflowId"`
	ActualQuantity int        `json:"actualQuantity"`
	Unit           string     `json:"unit"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	CompletedAt    time.Time  `json:"completedAt"`
}

func (e *WorkflowCompletedEvent) EventType() string     { return "bakery.production.workflow-completed" }
func (e *WorkflowCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// BatchPausedEvent is published when a batch is paused
type BatchPausedEvent struct {
	BatchID  string    `json:"batchId"`
	Reason   string    `json:"reason"`
	PausedAt time.Time `json:"pausedAt"`
}

func (e *BatchPausedEvent) EventType() string     { return "bakery.production.batch-paused" }
func (e *BatchPausedEvent) OccurredAt() time.Time { return e.PausedAt }

// BatchResumedEvent is published when a paused batch resumes
type BatchResumedEvent struct {
	BatchID   string    `json:"batchId"`
	ResumedAt time.Time `json:"resumedAt"`
}

func (e *BatchResumedEvent) EventType() string     { return "bakery.production.batch-resumed" }
func (e *BatchResumedEvent) OccurredAt() time.Time { return e.ResumedAt }

// BatchCancelledEvent is published when a batch is cancelled
type BatchCancelledEvent struct {
	BatchID     string    `json:"batchId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *BatchCancelledEvent) EventType() string     { return "bakery.production.batch-cancelled" }
func (e *BatchCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// BatchFailedEvent is published when a batch fails
type BatchFailedEvent struct {
	BatchID  string    `json:"batchId"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

func (e *BatchFailedEvent) EventType() string     { return "bakery.production.batch-failed" }
func (e *BatchFailedEvent) OccurredAt() time.Time { return e.FailedAt }

// ProductionIssueReportedEvent is published when an issue is reported
type ProductionIssueReportedEvent struct {
	BatchID    string    `json:"batchId"`
	IssueID    string    `json:"issueId"`
	StepID     string    `json:"stepId,omitempty"`
	IssueType  string    `json:"issueType"`
	Severity   string    `json:"severity"`
	ReportedBy string    `json:"reportedBy"`
	ReportedAt time.Time `json:"reportedAt"`
}

func (e *ProductionIssueReportedEvent) EventType() string {
	return "bakery.production.issue-reported"
}
func (e *ProductionIssueReportedEvent) OccurredAt() time.Time { return e.ReportedAt }

// QualityCheckCompletedEvent is published when a quality check is recorded
type QualityCheckCompletedEvent struct {
	BatchID      string    `json:"batchId"`
	StepID       string    `json:"stepId"`
	CheckID      string    `json:"checkId"`
	OverallScore float64   `json:"overallScore"`
	Passed       bool      `json:"passed"`
	PerformedBy  string    `json:"performedBy"`
	PerformedAt  time.Time `json:"performedAt"`
}

func (e *QualityCheckCompletedEvent) EventType() string {
	return "bakery.production.quality-check-completed"
}
func (e *QualityCheckCompletedEvent) OccurredAt() time.Time { return e.PerformedAt }

// ScheduleCreatedEvent is published when a production schedule is created
type ScheduleCreatedEvent struct {
	ScheduleID   string    `json:"scheduleId"`
	ScheduleDate time.Time `json:"scheduleDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *ScheduleCreatedEvent) EventType() string     { return "bakery.production.schedule-created" }
func (e *ScheduleCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// SchedulePlannedEvent is published when the capacity planner fills a schedule
type SchedulePlannedEvent struct {
	ScheduleID    string    `json:"scheduleId"`
	BatchCount    int       `json:"batchCount"`
	ConflictCount int       `json:"conflictCount"`
	PlannedAt     time.Time `json:"plannedAt"`
}

func (e *SchedulePlannedEvent) EventType() string     { return "bakery.production.schedule-planned" }
func (e *SchedulePlannedEvent) OccurredAt() time.Time { return e.PlannedAt }

// ScheduleStatusChangedEvent is published on schedule lifecycle transitions
type ScheduleStatusChangedEvent struct {
	ScheduleID string    `json:"scheduleId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	ChangedAt  time.Time `json:"changedAt"`
}

func (e *ScheduleStatusChangedEvent) EventType() string {
	return "bakery.production.schedule-status-changed"
}
func (e *ScheduleStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
