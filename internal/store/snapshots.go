package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"order-analytics/internal/models"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested id
var ErrSnapshotNotFound = errors.New("snapshot not found")

// insertBatchSize bounds the number of records per multi-row insert
const insertBatchSize = 500

// CreateSnapshot stores a snapshot header and its records in one transaction
func (s *Store) CreateSnapshot(ctx context.Context, snap *models.RFMSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &snap.CreatedAt, `
		INSERT INTO rfm_snapshots (id, dataset_version, filter, customer_count)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		snap.ID, snap.DatasetVersion, snap.FilterJSON, snap.CustomerCount)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for start := 0; start < len(snap.Records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(snap.Records) {
			end = len(snap.Records)
		}

		rows := make([]map[string]interface{}, 0, end-start)
		for _, r := range snap.Records[start:end] {
			rows = append(rows, map[string]interface{}{
				"snapshot_id":        snap.ID,
				"customer_unique_id": r.CustomerUniqueID,
				"recency":            r.Recency,
				"frequency":          r.Frequency,
				"monetary":           r.Monetary,
			})
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO rfm_snapshot_records (snapshot_id, customer_unique_id, recency, frequency, monetary)
			VALUES (:snapshot_id, :customer_unique_id, :recency, :frequency, :monetary)`, rows)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot records: %w", err)
		}
	}

	return tx.Commit()
}

// GetSnapshot retrieves a snapshot with its records ordered by customer id
func (s *Store) GetSnapshot(ctx context.Context, id string) (*models.RFMSnapshot, error) {
	var snap models.RFMSnapshot
	err := s.db.GetContext(ctx, &snap,
		"SELECT id, dataset_version, filter, customer_count, created_at FROM rfm_snapshots WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &snap.Records, `
		SELECT customer_unique_id, recency, frequency, monetary
		FROM rfm_snapshot_records
		WHERE snapshot_id = $1
		ORDER BY customer_unique_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot records: %w", err)
	}

	return &snap, nil
}

// ListSnapshots returns the most recent snapshot headers
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]models.RFMSnapshot, error) {
	var snaps []models.RFMSnapshot
	err := s.db.SelectContext(ctx, &snaps, `
		SELECT id, dataset_version, filter, customer_count, created_at
		FROM rfm_snapshots
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	return snaps, err
}
