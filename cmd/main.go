package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rag-chatbot-backend/internal/ai"
	"rag-chatbot-backend/internal/config"
	"rag-chatbot-backend/internal/engine"
	"rag-chatbot-backend/internal/logger"
	"rag-chatbot-backend/internal/queue"
	"rag-chatbot-backend/internal/telemetry"
	"rag-chatbot-backend/middleware"
	"rag-chatbot-backend/routes"
	"rag-chatbot-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Connect to Redis (embedding cache, rate limiting, task queue broker)
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	shutdownTracer, err := telemetry.InitTracer("rag-chatbot-backend")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Retrieval engine
	chunker, err := engine.NewChunker(cfg.ChunkSizeWords, cfg.ChunkOverlapWords)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}

	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	index := engine.NewVectorIndex(cfg.VectorDimensions)
	if _, err := os.Stat(cfg.SnapshotPath); err == nil {
		if err := index.LoadSnapshot(cfg.SnapshotPath); err != nil {
			log.Fatal("Failed to restore index snapshot:", err)
		}
		logger.Info("Index restored from snapshot", "path", cfg.SnapshotPath, "vectors", index.Size())
	}

	chunkStore := engine.NewChunkStore(db.Collection(config.ChunksCollection))
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := chunkStore.Rehydrate(ctx); err != nil {
			cancel()
			log.Fatal("Failed to rehydrate chunk store:", err)
		}
		cancel()
		logger.Info("Chunk store rehydrated", "chunks", chunkStore.Size())
	}

	drift := engine.NewDriftAggregator()
	pipeline := engine.NewIngestionPipeline(chunker, embedder, index, chunkStore)
	retriever := engine.NewRetriever(embedder, index, chunkStore, drift, cfg.RetrievalTopK, cfg.ConfidenceFloor)

	// Services
	logService := services.NewQueryLogService(
		db.Collection(config.QueryLogsCollection),
		db.Collection(config.DocumentLogsCollection),
	)
	exporter := services.NewExportService()
	extractor := services.NewPDFExtractor(cfg.MaxFileSize)

	// Task queue. The worker runs in-process because the vector index lives
	// in process memory.
	redisOpt := asynqRedisOpt(cfg)
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	queueServer := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})
	processor := queue.NewTaskProcessor(pipeline, extractor, logService, metrics)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngestDocument)
	if err := queueServer.Start(mux); err != nil {
		log.Fatal("Failed to start task queue:", err)
	}

	// Maintenance jobs
	scheduler := services.NewScheduler()
	if err := scheduler.ScheduleSnapshots(index, cfg.SnapshotPath, time.Duration(cfg.SnapshotIntervalMinutes)*time.Minute); err != nil {
		log.Fatal("Failed to schedule snapshots:", err)
	}
	if err := scheduler.ScheduleLogRetention(logService, cfg.LogRetentionDays); err != nil {
		log.Fatal("Failed to schedule log retention:", err)
	}
	scheduler.Start()

	// HTTP server
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"indexed_chunks": index.Size(),
			"timestamp":      time.Now(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/query", routes.HandleQuery(retriever, geminiClient, logService, metrics))
		v1.GET("/history", routes.HandleHistory(logService))
		v1.GET("/history/export", routes.HandleHistoryExport(logService, exporter))
		v1.GET("/metrics", routes.HandleMetrics(drift, retriever))
		v1.POST("/ingest", routes.HandleIngest(cfg, pipeline, extractor, logService, metrics))
		v1.POST("/ingest/async", routes.HandleAsyncIngest(cfg, logService, queueClient))
		v1.GET("/ingest/:documentID/status", routes.HandleIngestStatus(logService))
		v1.GET("/documents", routes.HandleListDocuments(logService))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	scheduler.Stop()
	queueServer.Shutdown()

	// Final snapshot so a restart does not lose the index
	if err := index.SaveSnapshot(cfg.SnapshotPath); err != nil {
		logger.Error("Final snapshot failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func asynqRedisOpt(cfg *config.Config) asynq.RedisConnOpt {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		if opt, err := asynq.ParseRedisURI(cfg.RedisURL); err == nil {
			return opt
		}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
