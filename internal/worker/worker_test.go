package worker

import (
	"context"
	"encoding/json"
	"testing"

	"order-analytics/internal/broker"
	"order-analytics/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	paths []string
}

func (h *recordingHandler) HandleDatasetUpdated(_ context.Context, event *models.DatasetUpdatedEvent) error {
	h.paths = append(h.paths, event.Path)
	return nil
}

func TestReloadWorkerRoutesDatasetUpdates(t *testing.T) {
	handler := &recordingHandler{}
	consumer := broker.NewConsumer([]string{"localhost:9092"}, "dataset-events", "test-group")
	w := NewReloadWorker(consumer, handler)
	defer w.Stop()

	value, err := json.Marshal(&models.DatasetUpdatedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeDatasetUpdated},
		Path:      "data/next.csv",
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.Equal(t, []string{"data/next.csv"}, handler.paths)
}
