package domain

import (
	"context"
	"time"
)

// BatchRepository is the persistence interface for ProductionBatch aggregates
type BatchRepository interface {
	Save(ctx context.Context, batch *ProductionBatch) error
	FindByID(ctx context.Context, batchID string) (*ProductionBatch, error)
	FindByScheduleID(ctx context.Context, scheduleID string) ([]*ProductionBatch, error)
	FindByStatus(ctx context.Context, status BatchStatus) ([]*ProductionBatch, error)
	FindActive(ctx context.Context) ([]*ProductionBatch, error)
	Delete(ctx context.Context, batchID string) error
}

// ScheduleRepository is the persistence interface for ProductionSchedule aggregates
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *ProductionSchedule) error
	FindByID(ctx context.Context, scheduleID string) (*ProductionSchedule, error)
	FindByDate(ctx context.Context, date time.Time) (*ProductionSchedule, error)
	FindByStatus(ctx context.Context, status ScheduleStatus) ([]*ProductionSchedule, error)
	Delete(ctx context.Context, scheduleID string) error
}

// EventPublisher publishes domain events to the event backbone
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}

// NotifySink receives production notifications. Delivery is fire-and-forget;
// retry and backoff are the sink's responsibility, and a sink failure never
// rolls back the state change that produced the notification.
type NotifySink interface {
	Notify(ctx context.Context, event NotificationEvent) error
}

// NotificationEvent is a notification routed through the NotifySink
type NotificationEvent struct {
	Kind     string         `json:"kind"`
	BatchID  string         `json:"batchId"`
	StepID   string         `json:"stepId,omitempty"`
	Priority string         `json:"priority"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// MonitorSink receives periodic batch snapshots and transition events for
// live monitoring
type MonitorSink interface {
	PublishSnapshot(ctx context.Context, topic string, snapshot BatchSnapshot) error
}

// BatchSnapshot is the enriched live view of a batch pushed to monitors
type BatchSnapshot struct {
	BatchID          string      `json:"batchId"`
	Status           BatchStatus `json:"status"`
	Progress         float64     `json:"progress"`
	CurrentStepIndex int         `json:"currentStepIndex"`
	CurrentStepName  string      `json:"currentStepName,omitempty"`
	CurrentStepState StepStatus  `json:"currentStepState,omitempty"`
	IsOverdue        bool        `json:"isOverdue"`
	DelayMinutes     int         `json:"delayMinutes"`
	OpenIssues       int         `json:"openIssues"`
	CapturedAt       time.Time   `json:"capturedAt"`
}

// SnapshotOf builds the live monitoring view of a batch at a point in time
func SnapshotOf(batch *ProductionBatch, now time.Time) BatchSnapshot {
	snapshot := BatchSnapshot{
		BatchID:          batch.BatchID,
		Status:           batch.Status,
		Progress:         batch.Progress(),
		CurrentStepIndex: batch.CurrentStepIndex,
		IsOverdue:        batch.IsOverdue(now),
		DelayMinutes:     batch.DelayMinutes(now),
		OpenIssues:       batch.OpenIssueCount(),
		CapturedAt:       now,
	}
	if step := batch.CurrentStep(); step != nil {
		snapshot.CurrentStepName = step.Name
		snapshot.CurrentStepState = step.Status
	}
	return snapshot
}
