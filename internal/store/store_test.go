package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"order-analytics/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL or skips
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database (set TEST_DATABASE_URL)")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestCreateAndGetSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	recency := 4
	snap := &models.RFMSnapshot{
		ID:             uuid.New().String(),
		DatasetVersion: 1,
		FilterJSON:     `{"category":"toys"}`,
		CustomerCount:  2,
		Records: []models.RFMRecord{
			{CustomerUniqueID: "alice", Recency: &recency, Frequency: 2, Monetary: 30},
			{CustomerUniqueID: "bob", Frequency: 1, Monetary: 5},
		},
	}

	require.NoError(t, store.CreateSnapshot(ctx, snap))
	assert.False(t, snap.CreatedAt.IsZero())

	got, err := store.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.FilterJSON, got.FilterJSON)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "alice", got.Records[0].CustomerUniqueID)
	require.NotNil(t, got.Records[0].Recency)
	assert.Equal(t, 4, *got.Records[0].Recency)
	assert.Nil(t, got.Records[1].Recency)
}

func TestGetSnapshotNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSnapshot(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestEventIdempotency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	eventID := uuid.New().String()

	processed, err := store.IsEventProcessed(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.MarkEventProcessed(ctx, eventID, models.EventTypeDatasetUpdated))
	// second mark is a no-op
	require.NoError(t, store.MarkEventProcessed(ctx, eventID, models.EventTypeDatasetUpdated))

	processed, err = store.IsEventProcessed(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, processed)
}
