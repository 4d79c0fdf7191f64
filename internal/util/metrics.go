package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetRowsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_rows_loaded",
		Help: "Number of order rows in the currently loaded dataset",
	})

	DatasetVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_version",
		Help: "Version counter of the currently loaded dataset",
	})

	DatasetLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataset_load_duration_seconds",
		Help:    "Time spent reading and typing the dataset file",
		Buckets: prometheus.DefBuckets,
	})

	DatasetLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_load_failures_total",
		Help: "Total number of failed dataset loads",
	}, []string{"reason"})

	DashboardComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_computations_total",
		Help: "Total number of aggregation passes by view",
	}, []string{"view"})

	DashboardComputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_compute_latency_seconds",
		Help:    "Latency of filter plus aggregation passes",
		Buckets: prometheus.DefBuckets,
	})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_requests_total",
		Help: "Dashboard cache lookups by result",
	}, []string{"result"})

	SnapshotsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfm_snapshots_created_total",
		Help: "Total number of persisted RFM snapshots",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
