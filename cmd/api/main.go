package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bakehouse-platform/production-service/pkg/cloudevents"
	"github.com/bakehouse-platform/production-service/pkg/kafka"
	"github.com/bakehouse-platform/production-service/pkg/logging"
	"github.com/bakehouse-platform/production-service/pkg/metrics"
	"github.com/bakehouse-platform/production-service/pkg/middleware"
	"github.com/bakehouse-platform/production-service/pkg/mongodb"
	"github.com/bakehouse-platform/production-service/pkg/tracing"

	"github.com/bakehouse-platform/production-service/internal/application"
	"github.com/bakehouse-platform/production-service/internal/domain"
	"github.com/bakehouse-platform/production-service/internal/infrastructure/clients"
	kafkaAdapter "github.com/bakehouse-platform/production-service/internal/infrastructure/kafka"
	mongoRepo "github.com/bakehouse-platform/production-service/internal/infrastructure/mongodb"
)

const serviceName = "production-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting production-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Register custom request validators (batch_id, schedule_id, priority, severity)
	middleware.InitValidator()

	// Initialize MongoDB with instrumentation and circuit breaker
	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation and circuit breaker
	producer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceProduction)

	// Initialize repositories
	batchRepo := mongoRepo.NewBatchRepository(mongoClient.Database())
	scheduleRepo := mongoRepo.NewScheduleRepository(mongoClient.Database())

	// Event publisher doubles as the notification and monitoring sink
	eventPublisher := kafkaAdapter.NewEventPublisher(producer, eventFactory)
	logger.Info("Event publisher initialized")

	// Initialize workflow catalog client (implements domain.WorkflowSource)
	workflowClient := clients.NewWorkflowServiceClient(config.RecipeServiceURL, logger)
	logger.Info("Workflow catalog client initialized", "url", config.RecipeServiceURL)

	// Initialize capacity planner
	planner := application.NewCapacityPlanner(workflowClient, config.Planner)

	// Initialize monitoring service; snapshots are counted on the way out
	monitorSink := &monitorSinkWithMetrics{MonitorSink: eventPublisher, metrics: m}
	monitorService := application.NewMonitoringService(batchRepo, monitorSink, config.Monitoring, logger)
	if err := monitorService.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start monitoring service")
	}
	defer monitorService.Stop()

	// Sample the active monitor count for the gauge
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			m.SetActiveMonitors(monitorService.ActiveCount())
		}
	}()

	// Initialize application service
	productionService := application.NewProductionApplicationService(
		batchRepo,
		scheduleRepo,
		planner,
		eventPublisher,
		eventPublisher,
		monitorService,
		logger,
	)

	// Setup Gin router with middleware
	router := gin.New()

	// Add CORS middleware for frontend access
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID", cloudevents.HeaderCorrelationID, cloudevents.HeaderBatchID, cloudevents.HeaderScheduleID},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID", cloudevents.HeaderCorrelationID},
		AllowCredentials: true,
	}))

	// Apply standard middleware (recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Propagate bakery CloudEvents extensions from inbound headers
	router.Use(middleware.CloudEvents())

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// Production-domain metric recorders for the mutating handlers
	pm := middleware.NewProductionMetrics(m)

	// Production API routes
	api := router.Group("/api/v1")
	{
		schedules := api.Group("/schedules")
		{
			schedules.POST("", createScheduleHandler(productionService, logger))
			schedules.GET("/:scheduleId", getScheduleHandler(productionService, logger))
			schedules.GET("/date/:date", getScheduleByDateHandler(productionService, logger))
			schedules.GET("/:scheduleId/batches", listScheduleBatchesHandler(productionService, logger))

			// Schedule operations
			schedules.POST("/:scheduleId/plan", planScheduleHandler(productionService, logger, pm))
			schedules.POST("/:scheduleId/activate", activateScheduleHandler(productionService, logger))
			schedules.POST("/:scheduleId/cancel", cancelScheduleHandler(productionService, logger))
		}

		batches := api.Group("/batches")
		{
			batches.GET("/active", getActiveBatchesHandler(productionService, logger))
			batches.GET("/status/:status", getBatchesByStatusHandler(productionService, logger))
			batches.GET("/:batchId", getBatchHandler(productionService, logger))
			batches.GET("/:batchId/status", getBatchStatusHandler(productionService, logger))

			// Batch lifecycle operations
			batches.POST("/:batchId/start", startBatchHandler(productionService, logger, pm))
			batches.POST("/:batchId/pause", pauseBatchHandler(productionService, logger))
			batches.POST("/:batchId/resume", resumeBatchHandler(productionService, logger))
			batches.POST("/:batchId/cancel", cancelBatchHandler(productionService, logger, pm))
			batches.POST("/:batchId/fail", failBatchHandler(productionService, logger, pm))

			// Step operations
			batches.POST("/:batchId/steps/:stepIndex/start", startStepHandler(productionService, logger))
			batches.POST("/:batchId/steps/:stepIndex/complete", completeStepHandler(productionService, logger, pm))
			batches.PATCH("/:batchId/steps/:stepIndex/progress", updateStepProgressHandler(productionService, logger))

			// Issues and quality
			batches.POST("/:batchId/issues", reportIssueHandler(productionService, logger, pm))
			batches.POST("/:batchId/issues/:issueId/resolve", resolveIssueHandler(productionService, logger))
			batches.POST("/:batchId/quality-checks", qualityCheckHandler(productionService, logger, pm))
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	monitorService.Stop()
	logger.Info("Monitoring service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr       string
	MongoDB          *mongodb.Config
	Kafka            *kafka.Config
	RecipeServiceURL string
	CORSOrigins      []string
	Planner          application.PlannerConstraints
	Monitoring       application.MonitoringConfig
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8003"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "bakery_production"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		RecipeServiceURL: getEnv("RECIPE_SERVICE_URL", "http://localhost:8001"),
		CORSOrigins:      strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		Planner: application.PlannerConstraints{
			MaxBatchSize:       parseInt(getEnv("PLANNER_MAX_BATCH_SIZE", "50")),
			BatchGap:           parseDuration(getEnv("PLANNER_BATCH_GAP", "15m")),
			MaxWorkersPerBatch: parseInt(getEnv("PLANNER_MAX_WORKERS_PER_BATCH", "2")),
		},
		Monitoring: application.MonitoringConfig{
			Cadence: parseDuration(getEnv("MONITORING_CADENCE", "30s")),
			Topic:   getEnv("MONITORING_TOPIC", kafka.Topics.Monitoring),
		},
	}
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}

func parseInt(s string) int {
	var i int
	fmt.Sscanf(s, "%d", &i)
	return i
}

// monitorSinkWithMetrics counts published snapshots on top of the kafka sink
type monitorSinkWithMetrics struct {
	domain.MonitorSink
	metrics *metrics.Metrics
}

func (s *monitorSinkWithMetrics) PublishSnapshot(ctx context.Context, topic string, snapshot domain.BatchSnapshot) error {
	if err := s.MonitorSink.PublishSnapshot(ctx, topic, snapshot); err != nil {
		return err
	}
	s.metrics.RecordSnapshotPublished(string(snapshot.Status))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
