package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing dataset events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishDatasetLoaded publishes DatasetLoaded event
func (ep *EventPublisher) PublishDatasetLoaded(ctx context.Context, event *models.DatasetLoadedEvent) error {
	key := fmt.Sprintf("dataset-%d", event.Version)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRFMSnapshotCreated publishes RFMSnapshotCreated event
func (ep *EventPublisher) PublishRFMSnapshotCreated(ctx context.Context, event *models.RFMSnapshotCreatedEvent) error {
	key := fmt.Sprintf("snapshot-%s", event.SnapshotID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onDatasetUpdated func(context.Context, *models.DatasetUpdatedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDatasetUpdated registers a handler for DatasetUpdated events
func (eh *EventHandler) OnDatasetUpdated(handler func(context.Context, *models.DatasetUpdatedEvent) error) {
	eh.onDatasetUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeDatasetUpdated:
		if eh.onDatasetUpdated != nil {
			var event models.DatasetUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DatasetUpdated event: %w", err)
			}
			return eh.onDatasetUpdated(ctx, &event)
		}

	case models.EventTypeDatasetLoaded, models.EventTypeRFMSnapshotCreated:
		// our own announcements share the topic

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
