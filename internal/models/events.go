package models

import "time"

// Event types
const (
	EventTypeDatasetLoaded      = "DATASET_LOADED"
	EventTypeDatasetUpdated     = "DATASET_UPDATED"
	EventTypeRFMSnapshotCreated = "RFM_SNAPSHOT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DatasetLoadedEvent published after the dataset is (re)loaded
type DatasetLoadedEvent struct {
	BaseEvent
	Version  int64  `json:"version"`
	Path     string `json:"path"`
	RowsKept int    `json:"rows_kept"`
	Skipped  int    `json:"skipped_rows"`
}

// DatasetUpdatedEvent is consumed to trigger a reload of the dataset file
type DatasetUpdatedEvent struct {
	BaseEvent
	Path string `json:"path,omitempty"`
}

// RFMSnapshotCreatedEvent published when an RFM snapshot is persisted
type RFMSnapshotCreatedEvent struct {
	BaseEvent
	SnapshotID     string `json:"snapshot_id"`
	DatasetVersion int64  `json:"dataset_version"`
	CustomerCount  int    `json:"customer_count"`
}
