package cloudevents

import (
	"time"
)

// EventType constants for bakery production domain events
const (
	// Schedule events
	ScheduleCreated       = "bakery.production.schedule-created"
	SchedulePlanned       = "bakery.production.schedule-planned"
	ScheduleStatusChanged = "bakery.production.schedule-status-changed"

	// Batch lifecycle events
	BatchPlanned      = "bakery.production.batch-planned"
	BatchStarted      = "bakery.production.batch-started"
	WorkflowAdvanced  = "bakery.production.workflow-advanced"
	WorkflowCompleted = "bakery.production.workflow-completed"
	BatchPaused       = "bakery.production.batch-paused"
	BatchResumed      = "bakery.production.batch-resumed"
	BatchCancelled    = "bakery.production.batch-cancelled"
	BatchFailed       = "bakery.production.batch-failed"

	// Issue and quality events
	IssueReported         = "bakery.production.issue-reported"
	QualityCheckCompleted = "bakery.production.quality-check-completed"

	// Monitoring events
	BatchSnapshot = "bakery.production.batch-snapshot"

	// Notification events
	NotificationRaised = "bakery.production.notification"
)

// Source constants for event sources
const (
	SourceProduction = "/bakery/production-service"
	SourceRecipes    = "/bakery/recipe-service"
	SourceInventory  = "/bakery/inventory-service"
)

// BakeryCloudEvent represents a CloudEvents v1.0 compliant event for the
// bakery platform
type BakeryCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Bakery-specific extensions
	CorrelationID string `json:"bakerycorrelationid,omitempty"`
	BatchID       string `json:"bakerybatchid,omitempty"`
	ScheduleID    string `json:"bakeryscheduleid,omitempty"`
	WorkflowID    string `json:"bakeryworkflowid,omitempty"`
}

// NotificationData represents the data payload for a notification event
type NotificationData struct {
	Kind     string         `json:"kind"`
	BatchID  string         `json:"batchId"`
	StepID   string         `json:"stepId,omitempty"`
	Priority string         `json:"priority"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// BatchSnapshotData represents the data payload for a monitoring snapshot
type BatchSnapshotData struct {
	BatchID          string    `json:"batchId"`
	Status           string    `json:"status"`
	Progress         float64   `json:"progress"`
	CurrentStepIndex int       `json:"currentStepIndex"`
	CurrentStepName  string    `json:"currentStepName,omitempty"`
	CurrentStepState string    `json:"currentStepState,omitempty"`
	IsOverdue        bool      `json:"isOverdue"`
	DelayMinutes     int       `json:"delayMinutes"`
	OpenIssues       int       `json:"openIssues"`
	CapturedAt       time.Time `json:"capturedAt"`
}
