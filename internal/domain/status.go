package domain

// BatchStatus represents the lifecycle state of a production batch
type BatchStatus string

const (
	BatchStatusPlanned    BatchStatus = "planned"     // Created by the capacity planner, not yet released
	BatchStatusReady      BatchStatus = "ready"       // Released for execution, waiting for start
	BatchStatusInProgress BatchStatus = "in_progress" // Steps are being executed
	BatchStatusWaiting    BatchStatus = "waiting"     // Paused or blocked on a precondition
	BatchStatusCompleted  BatchStatus = "completed"   // All steps completed or skipped
	BatchStatusFailed     BatchStatus = "failed"      // Aborted due to an unrecoverable problem
	BatchStatusCancelled  BatchStatus = "cancelled"   // Cancelled before completion
)

// StepStatus represents the lifecycle state of a production step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"     // Not yet reachable
	StepStatusReady      StepStatus = "ready"       // Preconditions met, can be started
	StepStatusInProgress StepStatus = "in_progress" // Being worked on
	StepStatusWaiting    StepStatus = "waiting"     // Paused or blocked
	StepStatusCompleted  StepStatus = "completed"
	StepStatusSkipped    StepStatus = "skipped"
	StepStatusFailed     StepStatus = "failed"
)

// batchTransitions is the closed transition table for batch statuses.
// A transition not listed here is invalid.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusPlanned:    {BatchStatusReady, BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusReady:      {BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusInProgress: {BatchStatusWaiting, BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled},
	BatchStatusWaiting:    {BatchStatusInProgress, BatchStatusFailed, BatchStatusCancelled},
	BatchStatusCompleted:  {},
	BatchStatusFailed:     {},
	BatchStatusCancelled:  {},
}

// stepTransitions is the closed transition table for step statuses.
var stepTransitions = map[StepStatus][]StepStatus{
	StepStatusPending:    {StepStatusReady, StepStatusSkipped},
	StepStatusReady:      {StepStatusInProgress, StepStatusSkipped, StepStatusWaiting},
	StepStatusInProgress: {StepStatusWaiting, StepStatusCompleted, StepStatusFailed},
	StepStatusWaiting:    {StepStatusReady, StepStatusInProgress, StepStatusFailed, StepStatusSkipped},
	StepStatusCompleted:  {},
	StepStatusSkipped:    {},
	StepStatusFailed:     {},
}

// IsValid reports whether the status is a known batch status
func (s BatchStatus) IsValid() bool {
	_, ok := batchTransitions[s]
	return ok
}

// IsTerminal reports whether the batch status is terminal
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusCancelled
}

// CanTransitionTo reports whether the batch transition s -> target is allowed
func (s BatchStatus) CanTransitionTo(target BatchStatus) bool {
	for _, t := range batchTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsValid reports whether the status is a known step status
func (s StepStatus) IsValid() bool {
	_, ok := stepTransitions[s]
	return ok
}

// IsTerminal reports whether the step status is terminal
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped || s == StepStatusFailed
}

// IsDone reports whether the step no longer blocks later steps
func (s StepStatus) IsDone() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped
}

// CanTransitionTo reports whether the step transition s -> target is allowed
func (s StepStatus) CanTransitionTo(target StepStatus) bool {
	for _, t := range stepTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Priority represents the scheduling priority of a demand item or batch
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether the priority is a known value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank returns the numeric rank of the priority (higher is more urgent)
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IssueSeverity represents how serious a reported production issue is
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// IsValid reports whether the severity is a known value
func (s IssueSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IssueStatus represents the resolution state of an issue
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "open"
	IssueStatusResolved IssueStatus = "resolved"
)
