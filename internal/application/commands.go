package application

import (
	"time"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// CreateScheduleCommand represents the command to create a production schedule
type CreateScheduleCommand struct {
	ScheduleDate time.Time
	WorkdayStart time.Time
	WorkdayEnd   time.Time
	Staff        []domain.StaffMember
	Stations     []domain.Station
	Notes        string
}

// PlanScheduleCommand represents the command to run capacity planning on a schedule
type PlanScheduleCommand struct {
	ScheduleID string
	Demand     []DemandItem
}

// ActivateScheduleCommand represents the command to open a schedule for execution
type ActivateScheduleCommand struct {
	ScheduleID string
}

// CancelScheduleCommand represents the command to cancel a schedule
type CancelScheduleCommand struct {
	ScheduleID string
	Reason     string
}

// StartBatchCommand represents the command to start a batch
type StartBatchCommand struct {
	BatchID string
}

// StartStepCommand represents the command to start a step within a batch
type StartStepCommand struct {
	BatchID   string
	StepIndex int
}

// CompleteStepCommand represents the command to complete a step
type CompleteStepCommand struct {
	BatchID             string
	StepIndex           int
	CompletedActivities []string
	ActualQuantity      *int
	Notes               string
}

// UpdateStepProgressCommand represents a progress/status update for a step
type UpdateStepProgressCommand struct {
	BatchID   string
	StepIndex int
	Progress  *float64
	Status    *string
}

// PauseBatchCommand represents the command to pause a batch
type PauseBatchCommand struct {
	BatchID string
	Reason  string
}

// ResumeBatchCommand represents the command to resume a paused batch
type ResumeBatchCommand struct {
	BatchID string
}

// CancelBatchCommand represents the command to cancel a batch
type CancelBatchCommand struct {
	BatchID string
	Reason  string
}

// FailBatchCommand represents the command to fail a batch
type FailBatchCommand struct {
	BatchID string
	Reason  string
}

// ReportIssueCommand represents the command to report a production issue
type ReportIssueCommand struct {
	BatchID     string
	StepID      string
	Type        string
	Severity    string
	Description string
	ReportedBy  string
}

// ResolveIssueCommand represents the command to resolve an issue
type ResolveIssueCommand struct {
	BatchID    string
	IssueID    string
	Resolution string
}

// QualityCheckCommand represents the command to record a quality check on a step
type QualityCheckCommand struct {
	BatchID     string
	StepID      string
	PerformedBy string
	Checks      []CheckResultDTO
	Notes       string
}

// GetScheduleQuery represents the query to get a schedule by ID
type GetScheduleQuery struct {
	ScheduleID string
}

// GetScheduleByDateQuery represents the query to get a schedule by date
type GetScheduleByDateQuery struct {
	Date time.Time
}

// GetBatchQuery represents the query to get a batch by ID
type GetBatchQuery struct {
	BatchID string
}

// GetBatchesByScheduleQuery represents the query to list a schedule's batches
type GetBatchesByScheduleQuery struct {
	ScheduleID string
}

// GetBatchesByStatusQuery represents the query to list batches by status
type GetBatchesByStatusQuery struct {
	Status string
}
