package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"order-analytics/internal/analytics"
	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoDataset is returned until a dataset has been loaded
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrSnapshotsDisabled is returned when no snapshot store is configured
	ErrSnapshotsDisabled = errors.New("snapshots disabled")
)

// DatasetLoader reads a dataset file
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*models.Dataset, error)
}

// Cache stores serialized dashboards per dataset version and filter
type Cache interface {
	GetDashboard(ctx context.Context, version int64, filterKey string) ([]byte, bool, error)
	SetDashboard(ctx context.Context, version int64, filterKey string, payload []byte, ttl time.Duration) error
	InvalidateDashboards(ctx context.Context, version int64) error
}

// EventPublisher announces dataset and snapshot events
type EventPublisher interface {
	PublishDatasetLoaded(ctx context.Context, event *models.DatasetLoadedEvent) error
	PublishRFMSnapshotCreated(ctx context.Context, event *models.RFMSnapshotCreatedEvent) error
}

// SnapshotStore persists RFM snapshots and processed event ids
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snap *models.RFMSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.RFMSnapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]models.RFMSnapshot, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Config holds the tunables of the dashboard service
type Config struct {
	DataFile string
	CacheTTL time.Duration
	Build    analytics.BuildOptions
}

// DashboardService owns the loaded dataset and serves filtered views of it
type DashboardService struct {
	cfg       Config
	loader    DatasetLoader
	cache     Cache
	publisher EventPublisher
	snapshots SnapshotStore
	logger    *zap.Logger

	reloadMu sync.Mutex

	mu      sync.RWMutex
	dataset *models.Dataset
	options analytics.FilterOptions
	version int64
}

// NewDashboardService creates a new dashboard service. cache, publisher and
// snapshots may be nil.
func NewDashboardService(
	cfg Config,
	loader DatasetLoader,
	cache Cache,
	publisher EventPublisher,
	snapshots SnapshotStore,
) *DashboardService {
	return &DashboardService{
		cfg:       cfg,
		loader:    loader,
		cache:     cache,
		publisher: publisher,
		snapshots: snapshots,
		logger:    util.GetLogger(),
	}
}

type view struct {
	dataset *models.Dataset
	options analytics.FilterOptions
	version int64
}

func (s *DashboardService) current() (view, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dataset == nil {
		return view{}, ErrNoDataset
	}
	return view{dataset: s.dataset, options: s.options, version: s.version}, nil
}

// Ready reports whether a dataset is loaded
func (s *DashboardService) Ready() bool {
	_, err := s.current()
	return err == nil
}

// Version returns the version of the loaded dataset, 0 before the first load
func (s *DashboardService) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Load reads the configured data file
func (s *DashboardService) Load(ctx context.Context) error {
	_, err := s.Reload(ctx, "")
	return err
}

// Reload reads path, or the configured data file when path is empty, and
// swaps it in. A failed reload keeps the current dataset.
func (s *DashboardService) Reload(ctx context.Context, path string) (*models.LoadStats, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.Reload")
	defer span.End()

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if path == "" {
		path = s.cfg.DataFile
	}

	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		s.logger.Error("Dataset load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	options := analytics.Options(ds.Rows)

	s.mu.Lock()
	previous := s.version
	s.version++
	version := s.version
	s.dataset = ds
	s.options = options
	s.mu.Unlock()

	util.DatasetVersion.Set(float64(version))
	s.logger.Info("Dataset swapped in",
		zap.Int64("version", version),
		zap.String("path", path),
		zap.Int("rows", ds.Stats.RowsKept))

	if s.cache != nil && previous > 0 {
		if err := s.cache.InvalidateDashboards(ctx, previous); err != nil {
			s.logger.Warn("Failed to invalidate cached dashboards",
				zap.Int64("version", previous),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &models.DatasetLoadedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeDatasetLoaded,
				Timestamp: time.Now(),
			},
			Version:  version,
			Path:     path,
			RowsKept: ds.Stats.RowsKept,
			Skipped:  ds.Stats.SkippedRows,
		}
		if err := s.publisher.PublishDatasetLoaded(ctx, event); err != nil {
			s.logger.Error("Failed to publish DatasetLoaded event", zap.Error(err))
		}
	}

	stats := ds.Stats
	return &stats, nil
}

// Stats describes the loaded dataset
func (s *DashboardService) Stats(ctx context.Context) (models.LoadStats, int64, error) {
	v, err := s.current()
	if err != nil {
		return models.LoadStats{}, 0, err
	}
	return v.dataset.Stats, v.version, nil
}

// Options returns the sidebar choices of the loaded dataset
func (s *DashboardService) Options(ctx context.Context) (analytics.FilterOptions, error) {
	v, err := s.current()
	if err != nil {
		return analytics.FilterOptions{}, err
	}
	return v.options, nil
}

// Rows returns the loaded rows matching f
func (s *DashboardService) Rows(ctx context.Context, f analytics.Filter) ([]models.OrderRow, error) {
	v, err := s.current()
	if err != nil {
		return nil, err
	}
	return analytics.Apply(v.dataset.Rows, f), nil
}

// Dashboard computes every view for f, reading through the cache when one
// is configured
func (s *DashboardService) Dashboard(ctx context.Context, f analytics.Filter) (*analytics.Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.Dashboard")
	defer span.End()

	v, err := s.current()
	if err != nil {
		return nil, err
	}

	key := f.Key()
	if s.cache != nil {
		if d, ok := s.cachedDashboard(ctx, v.version, key); ok {
			return d, nil
		}
	}

	start := time.Now()
	d := analytics.Build(analytics.Apply(v.dataset.Rows, f), f, s.cfg.Build)
	util.DashboardComputeLatency.Observe(time.Since(start).Seconds())
	util.DashboardComputations.WithLabelValues("dashboard").Inc()

	if s.cache != nil {
		payload, err := json.Marshal(d)
		if err != nil {
			s.logger.Warn("Failed to encode dashboard for cache", zap.Error(err))
		} else if err := s.cache.SetDashboard(ctx, v.version, key, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache dashboard", zap.String("filter", key), zap.Error(err))
		}
	}

	return &d, nil
}

func (s *DashboardService) cachedDashboard(ctx context.Context, version int64, key string) (*analytics.Dashboard, bool) {
	payload, ok, err := s.cache.GetDashboard(ctx, version, key)
	if err != nil {
		util.CacheRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Dashboard cache lookup failed", zap.String("filter", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		util.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var d analytics.Dashboard
	if err := json.Unmarshal(payload, &d); err != nil {
		util.CacheRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Discarding undecodable cached dashboard", zap.Error(err))
		return nil, false
	}
	util.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return &d, true
}

// RFM computes the RFM table of the rows matching f
func (s *DashboardService) RFM(ctx context.Context, f analytics.Filter) ([]models.RFMRecord, error) {
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return nil, err
	}
	util.DashboardComputations.WithLabelValues("rfm").Inc()
	return analytics.RFM(rows), nil
}

// TopRFM returns the n leading customers of each RFM ranking for f
func (s *DashboardService) TopRFM(ctx context.Context, f analytics.Filter, n int) (analytics.RFMLeaders, error) {
	records, err := s.RFM(ctx, f)
	if err != nil {
		return analytics.RFMLeaders{}, err
	}
	return analytics.TopRFM(records, n), nil
}

// CreateSnapshot computes RFM for f and persists it
func (s *DashboardService) CreateSnapshot(ctx context.Context, f analytics.Filter) (*models.RFMSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.CreateSnapshot")
	defer span.End()

	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}

	v, err := s.current()
	if err != nil {
		return nil, err
	}

	filterJSON, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	records := analytics.RFM(analytics.Apply(v.dataset.Rows, f))
	snap := &models.RFMSnapshot{
		ID:             uuid.New().String(),
		DatasetVersion: v.version,
		FilterJSON:     string(filterJSON),
		CustomerCount:  len(records),
		Records:        records,
	}

	if err := s.snapshots.CreateSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	util.SnapshotsCreatedTotal.Inc()
	s.logger.Info("RFM snapshot created",
		zap.String("snapshot_id", snap.ID),
		zap.Int("customers", snap.CustomerCount))

	if s.publisher != nil {
		event := &models.RFMSnapshotCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeRFMSnapshotCreated,
				Timestamp: time.Now(),
			},
			SnapshotID:     snap.ID,
			DatasetVersion: snap.DatasetVersion,
			CustomerCount:  snap.CustomerCount,
		}
		if err := s.publisher.PublishRFMSnapshotCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish RFMSnapshotCreated event", zap.Error(err))
		}
	}

	return snap, nil
}

// Snapshot reads a persisted snapshot
func (s *DashboardService) Snapshot(ctx context.Context, id string) (*models.RFMSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.GetSnapshot(ctx, id)
}

// ListSnapshots returns the most recent snapshot headers
func (s *DashboardService) ListSnapshots(ctx context.Context, limit int) ([]models.RFMSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.ListSnapshots(ctx, limit)
}

// HandleDatasetUpdated reloads the dataset once per event
func (s *DashboardService) HandleDatasetUpdated(ctx context.Context, event *models.DatasetUpdatedEvent) error {
	ctx, span := util.StartSpan(ctx, "DashboardService.HandleDatasetUpdated")
	defer span.End()

	if s.snapshots != nil {
		processed, err := s.snapshots.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return fmt.Errorf("failed to check event processed: %w", err)
		}
		if processed {
			s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
			return nil
		}
	}

	s.logger.Info("Handling dataset update",
		zap.String("event_id", event.EventID),
		zap.String("path", event.Path))

	if _, err := s.Reload(ctx, event.Path); err != nil {
		return fmt.Errorf("failed to reload dataset: %w", err)
	}

	if s.snapshots != nil {
		if err := s.snapshots.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
			s.logger.Error("Failed to mark event processed", zap.Error(err))
		}
	}
	return nil
}
