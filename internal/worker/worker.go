package worker

import (
	"context"

	"order-analytics/internal/broker"
	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"go.uber.org/zap"
)

// DatasetUpdateHandler reacts to DATASET_UPDATED events
type DatasetUpdateHandler interface {
	HandleDatasetUpdated(ctx context.Context, event *models.DatasetUpdatedEvent) error
}

// ReloadWorker reloads the dataset when an update is announced
type ReloadWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewReloadWorker creates a new reload worker
func NewReloadWorker(consumer *broker.Consumer, handler DatasetUpdateHandler) *ReloadWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnDatasetUpdated(handler.HandleDatasetUpdated)

	return &ReloadWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *ReloadWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reload worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReloadWorker) Stop() error {
	w.logger.Info("Stopping reload worker")
	return w.consumer.Close()
}
