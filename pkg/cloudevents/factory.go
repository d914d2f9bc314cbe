package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for bakery domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new BakeryCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *BakeryCloudEvent {
	event := &BakeryCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
	workflowID string,
) *BakeryCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	event.WorkflowID = workflowID
	return event
}

// CreateBatchEvent creates an event scoped to a batch
func (f *EventFactory) CreateBatchEvent(
	ctx context.Context,
	eventType string,
	batchID string,
	data interface{},
) *BakeryCloudEvent {
	event := f.CreateEvent(ctx, eventType, "batch/"+batchID, data)
	event.BatchID = batchID
	return event
}

// CreateScheduleEvent creates an event scoped to a schedule
func (f *EventFactory) CreateScheduleEvent(
	ctx context.Context,
	eventType string,
	scheduleID string,
	data interface{},
) *BakeryCloudEvent {
	event := f.CreateEvent(ctx, eventType, "schedule/"+scheduleID, data)
	event.ScheduleID = scheduleID
	return event
}

// CreateNotificationEvent creates a notification event
func (f *EventFactory) CreateNotificationEvent(
	ctx context.Context,
	data NotificationData,
) *BakeryCloudEvent {
	event := f.CreateEvent(ctx, NotificationRaised, "batch/"+data.BatchID, data)
	event.BatchID = data.BatchID
	return event
}

// CreateBatchSnapshotEvent creates a monitoring snapshot event
func (f *EventFactory) CreateBatchSnapshotEvent(
	ctx context.Context,
	data BatchSnapshotData,
) *BakeryCloudEvent {
	event := f.CreateEvent(ctx, BatchSnapshot, "batch/"+data.BatchID, data)
	event.BatchID = data.BatchID
	return event
}
