package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/cache"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/config"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/handler"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/jobs"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/logger"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/pipeline"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/queue"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/queue/sqs"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository/clickhouse"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository/postgres"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/service"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting analytics API",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx := context.Background()

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	repo := clickhouse.NewRepository(chClient, log)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Marketplace database
	pool, err := postgres.NewPool(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	marketplace := postgres.NewMarketplaceReader(pool, log)

	// Result cache; disabled when Redis is not configured
	resultCache := cache.New(cache.NewClient(cfg.Redis), cfg.Redis.CacheTTL, log)
	defer func() {
		if err := resultCache.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}()
	if !resultCache.Enabled() {
		log.Warn("Redis not configured, analytics results are not cached")
	}

	// Dead-letter queue
	var deadLetter queue.DeadLetterPublisher
	if cfg.SQS.DeadLetterQueueURL != "" {
		sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			log.Fatal("Failed to create SQS client", zap.Error(err))
		}
		deadLetter = sqsClient
	} else {
		log.Warn("Dead-letter queue not configured, failed batches will be dropped")
	}

	// Ingestion pipeline
	buffer := pipeline.NewBuffer(cfg.Pipeline.MaxBufferSize)
	breaker := pipeline.NewBreakerWriter(repo, cfg.Pipeline.BreakerFailures, cfg.Pipeline.BreakerTimeout, log)
	worker := pipeline.NewFlushWorker(buffer, breaker, deadLetter, pipeline.FlushConfig{
		BatchSize:     cfg.Pipeline.BatchSize,
		FlushInterval: cfg.Pipeline.FlushInterval,
		Timeout:       cfg.Pipeline.FlushTimeout,
		MaxRetries:    cfg.Pipeline.FlushMaxRetries,
		RetryInitial:  cfg.Pipeline.FlushRetryInitial,
		RetryMax:      cfg.Pipeline.FlushRetryMax,
	}, log)
	tracker := pipeline.NewTracker(buffer, worker, cfg.Pipeline.BatchSize, log)

	// Analytics engines
	funnels := analytics.NewFunnelEngine(repo, log)
	behavior := analytics.NewBehaviorEngine(repo, marketplace, analytics.BehaviorConfig{
		SinglePurchaseFrequency: cfg.Analytics.SinglePurchaseFrequency,
		ProjectionMonths:        cfg.Analytics.ProjectionMonths,
		PowerUsers: analytics.PowerUserCriteria{
			MinEvents:    cfg.Analytics.PowerUserMinEvents,
			MinPurchases: cfg.Analytics.PowerUserMinPurchases,
			Window:       time.Duration(cfg.Analytics.PowerUserWindowDays) * 24 * time.Hour,
		},
	}, log)
	insights := analytics.NewInsightsEngine(repo, log)
	reports := analytics.NewReportBuilder(repo, marketplace, log)

	// Services
	eventService := service.NewEventService(tracker, worker, breaker, log)
	reportService := service.NewReportService(funnels, behavior, insights, reports, resultCache, service.ReportConfig{
		DailyReportTTL: cfg.Jobs.DailyReportTTL,
	}, log)

	checks := map[string]handler.HealthChecker{
		"clickhouse": repo,
		"postgres":   pool,
	}
	if resultCache.Enabled() {
		checks["redis"] = resultCache
	}

	h := handler.NewHandler(eventService, reportService, tracker, checks, log)

	// Background services
	tree := supervisor.NewTree("analytics-api", supervisor.DefaultTreeConfig(), log)
	tree.AddPipelineService(worker)
	tree.AddJobService(jobs.NewScheduler(jobs.NewDailyReportJob(reportService, log), cfg.Jobs.DailyReportInterval, true, log))
	tree.AddJobService(jobs.NewScheduler(jobs.NewRetentionJob(repo, cfg.Jobs.RetentionDays, log), cfg.Jobs.RetentionInterval, false, log))

	treeCtx, cancelTree := context.WithCancel(ctx)
	defer cancelTree()
	treeDone := tree.ServeBackground(treeCtx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("API server error", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancelShutdown()

	// Stop accepting requests before the pipeline stops
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}

	cancelTree()
	if err := <-treeDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Supervisor tree exited with error", zap.Error(err))
	}
	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		log.Warn("Services did not stop in time", zap.Int("count", len(unstopped)))
	}

	tracker.Close()
	if err := worker.Drain(shutdownCtx); err != nil {
		log.Error("Failed to drain ingestion buffer", zap.Error(err),
			zap.Int("remaining_events", buffer.Size()))
	}

	log.Info("Analytics API stopped")
}
