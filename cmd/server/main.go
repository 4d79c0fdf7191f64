package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-analytics/config"
	"order-analytics/internal/analytics"
	"order-analytics/internal/api"
	"order-analytics/internal/broker"
	"order-analytics/internal/loader"
	"order-analytics/internal/redisclient"
	"order-analytics/internal/service"
	"order-analytics/internal/store"
	"order-analytics/internal/util"
	"order-analytics/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting order analytics", zap.String("data_file", cfg.Data.File))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	var snapshots service.SnapshotStore
	if cfg.Database.URL != "" {
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		snapshots = db
		logger.Info("Database connected, RFM snapshots enabled")
	}

	var cache service.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = redisClient
		logger.Info("Redis connected, dashboard cache enabled")
	}

	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDataset)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	buildOpts := analytics.DefaultBuildOptions()
	buildOpts.HistogramBins = cfg.Dashboard.HistogramBins
	buildOpts.TopN = cfg.Dashboard.TopN
	buildOpts.RecentMonths = cfg.Dashboard.RecentWindowMonths

	dashboards := service.NewDashboardService(service.Config{
		DataFile: cfg.Data.File,
		CacheTTL: cfg.Redis.CacheTTL,
		Build:    buildOpts,
	}, loader.NewLoader(), cache, publisher, snapshots)

	if err := dashboards.Load(context.Background()); err != nil {
		logger.Fatal("Failed to load dataset", zap.String("path", cfg.Data.File), zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var reloadWorker *worker.ReloadWorker
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicDataset, cfg.Kafka.ConsumerGroup)
		reloadWorker = worker.NewReloadWorker(consumer, dashboards)
		go func() {
			if err := reloadWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("Reload worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(dashboards, cfg.Dashboard.TopN)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if reloadWorker != nil {
		if err := reloadWorker.Stop(); err != nil {
			logger.Error("Error stopping reload worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
