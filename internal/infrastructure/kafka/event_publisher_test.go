package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse-platform/production-service/internal/domain"
	"github.com/bakehouse-platform/production-service/pkg/cloudevents"
	"github.com/bakehouse-platform/production-service/pkg/kafka"
)

type fakeProducer struct {
	published []publishedEvent
	err       error
}

type publishedEvent struct {
	topic string
	event *cloudevents.BakeryCloudEvent
}

func (f *fakeProducer) PublishEvent(_ context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedEvent{topic: topic, event: event})
	return nil
}

func newTestPublisher() (*EventPublisher, *fakeProducer) {
	producer := &fakeProducer{}
	factory := cloudevents.NewEventFactory(cloudevents.SourceProduction)
	return NewEventPublisher(producer, factory), producer
}

func TestEventPublisher_TopicRouting(t *testing.T) {
	tests := []struct {
		name      string
		event     domain.DomainEvent
		wantTopic string
	}{
		{
			name:      "Schedule events go to the schedule topic",
			event:     &domain.ScheduleCreatedEvent{ScheduleID: "PS-1", CreatedAt: time.Now()},
			wantTopic: kafka.Topics.ScheduleEvents,
		},
		{
			name:      "Status changes go to the schedule topic",
			event:     &domain.ScheduleStatusChangedEvent{ScheduleID: "PS-1", OldStatus: "draft", NewStatus: "planned"},
			wantTopic: kafka.Topics.ScheduleEvents,
		},
		{
			name:      "Quality results go to the quality topic",
			event:     &domain.QualityCheckCompletedEvent{BatchID: "PB-1", CheckID: "qc-1", OverallScore: 88, Passed: true},
			wantTopic: kafka.Topics.QualityEvents,
		},
		{
			name:      "Batch lifecycle goes to the production topic",
			event:     &domain.BatchStartedEvent{BatchID: "PB-1"},
			wantTopic: kafka.Topics.ProductionEvents,
		},
		{
			name:      "Workflow advancement goes to the production topic",
			event:     &domain.WorkflowAdvancedEvent{BatchID: "PB-1", FromStepIndex: 0, ToStepIndex: 1},
			wantTopic: kafka.Topics.ProductionEvents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher, producer := newTestPublisher()

			err := publisher.Publish(context.Background(), tt.event)
			require.NoError(t, err)

			require.Len(t, producer.published, 1)
			assert.Equal(t, tt.wantTopic, producer.published[0].topic)
			assert.Equal(t, tt.event.EventType(), producer.published[0].event.Type)
		})
	}
}

func TestEventPublisher_PublishAll(t *testing.T) {
	t.Run("Publishes every event", func(t *testing.T) {
		publisher, producer := newTestPublisher()

		err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
			&domain.BatchStartedEvent{BatchID: "PB-1"},
			&domain.WorkflowAdvancedEvent{BatchID: "PB-1", ToStepIndex: 1},
		})
		require.NoError(t, err)
		assert.Len(t, producer.published, 2)
	})

	t.Run("Stops at the first failure", func(t *testing.T) {
		publisher, producer := newTestPublisher()
		producer.err = errors.New("broker unreachable")

		err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
			&domain.BatchStartedEvent{BatchID: "PB-1"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker unreachable")
	})
}

func TestEventPublisher_Notify(t *testing.T) {
	publisher, producer := newTestPublisher()

	err := publisher.Notify(context.Background(), domain.NotificationEvent{
		Kind:     "batch_started",
		BatchID:  "PB-1",
		Priority: "high",
	})
	require.NoError(t, err)

	require.Len(t, producer.published, 1)
	assert.Equal(t, kafka.Topics.Notifications, producer.published[0].topic)
}

func TestEventPublisher_PublishSnapshot(t *testing.T) {
	publisher, producer := newTestPublisher()

	err := publisher.PublishSnapshot(context.Background(), kafka.Topics.Monitoring, domain.BatchSnapshot{
		BatchID:    "PB-1",
		Status:     domain.BatchStatusInProgress,
		Progress:   42.5,
		CapturedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, producer.published, 1)
	assert.Equal(t, kafka.Topics.Monitoring, producer.published[0].topic)
}
