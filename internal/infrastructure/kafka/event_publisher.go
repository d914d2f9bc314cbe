package kafka

import (
	"context"
	"fmt"

	"github.com/bakehouse-platform/production-service/internal/domain"
	"github.com/bakehouse-platform/production-service/pkg/cloudevents"
	"github.com/bakehouse-platform/production-service/pkg/kafka"
)

// Producer is the subset of the Kafka producer stack the publisher needs.
// Both InstrumentedProducer and CircuitBreakerProducer satisfy it.
type Producer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error
}

// EventPublisher publishes domain events as CloudEvents on the bakery
// event backbone. It routes each event to the topic owned by its concern:
// schedule lifecycle, quality results, and batch production events each
// have their own topic, as do notifications and monitoring snapshots.
type EventPublisher struct {
	producer     Producer
	eventFactory *cloudevents.EventFactory
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(producer Producer, eventFactory *cloudevents.EventFactory) *EventPublisher {
	return &EventPublisher{
		producer:     producer,
		eventFactory: eventFactory,
	}
}

// Publish converts a domain event to a CloudEvent and publishes it to the
// topic matching its concern
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	cloudEvent, topic := p.toCloudEvent(ctx, event)

	if err := p.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}

	return nil
}

// PublishAll publishes multiple domain events, stopping at the first failure
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Notify publishes a production notification. Implements domain.NotifySink.
func (p *EventPublisher) Notify(ctx context.Context, event domain.NotificationEvent) error {
	cloudEvent := p.eventFactory.CreateNotificationEvent(ctx, cloudevents.NotificationData{
		Kind:     event.Kind,
		BatchID:  event.BatchID,
		StepID:   event.StepID,
		Priority: event.Priority,
		Payload:  event.Payload,
	})

	if err := p.producer.PublishEvent(ctx, kafka.Topics.Notifications, cloudEvent); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", event.Kind, err)
	}

	return nil
}

// PublishSnapshot publishes a monitoring snapshot to the given topic.
// Implements domain.MonitorSink.
func (p *EventPublisher) PublishSnapshot(ctx context.Context, topic string, snapshot domain.BatchSnapshot) error {
	cloudEvent := p.eventFactory.CreateBatchSnapshotEvent(ctx, cloudevents.BatchSnapshotData{
		BatchID:          snapshot.BatchID,
		Status:           string(snapshot.Status),
		Progress:         snapshot.Progress,
		CurrentStepIndex: snapshot.CurrentStepIndex,
		CurrentStepName:  snapshot.CurrentStepName,
		CurrentStepState: string(snapshot.CurrentStepState),
		IsOverdue:        snapshot.IsOverdue,
		DelayMinutes:     snapshot.DelayMinutes,
		OpenIssues:       snapshot.OpenIssues,
		CapturedAt:       snapshot.CapturedAt,
	})

	if err := p.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		return fmt.Errorf("failed to publish snapshot for batch %s: %w", snapshot.BatchID, err)
	}

	return nil
}

// toCloudEvent builds the CloudEvent for a domain event and decides its topic.
// Batch events carry the batch extension, schedule events the schedule
// extension, so consumers can filter without decoding the payload.
func (p *EventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) (*cloudevents.BakeryCloudEvent, string) {
	switch e := event.(type) {
	case *domain.ScheduleCreatedEvent:
		return p.eventFactory.CreateScheduleEvent(ctx, e.EventType(), e.ScheduleID, e), kafka.Topics.ScheduleEvents
	case *domain.SchedulePlannedEvent:
		return p.eventFactory.CreateScheduleEvent(ctx, e.EventType(), e.ScheduleID, e), kafka.Topics.ScheduleEvents
	case *domain.ScheduleStatusChangedEvent:
		return p.eventFactory.CreateScheduleEvent(ctx, e.EventType(), e.ScheduleID, e), kafka.Topics.ScheduleEvents
	case *domain.QualityCheckCompletedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.QualityEvents
	case *domain.BatchPlannedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.BatchStartedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.WorkflowAdvancedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.WorkflowCompletedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.BatchPausedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.BatchResumedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.BatchCancelledEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.BatchFailedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	case *domain.ProductionIssueReportedEvent:
		return p.eventFactory.CreateBatchEvent(ctx, e.EventType(), e.BatchID, e), kafka.Topics.ProductionEvents
	default:
		return p.eventFactory.CreateEvent(ctx, event.EventType(), "", event), kafka.Topics.ProductionEvents
	}
}
