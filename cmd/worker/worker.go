package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"news-archive-rag/internal/ai"
	"news-archive-rag/internal/config"
	"news-archive-rag/internal/crawler"
	"news-archive-rag/internal/lock"
	"news-archive-rag/internal/logger"
	"news-archive-rag/internal/queue"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/telemetry"
	"news-archive-rag/internal/vectorstore"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("Metrics disabled: %v", err)
	}

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
	st := store.NewMongoStore(mongoClient.Database(cfg.DBName))

	// Vector index
	index, err := vectorstore.NewQdrant(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatal("Failed to connect to Qdrant:", err)
	}
	defer index.Close()

	// Embedder
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDimensions, cfg.EmbeddingsRPM)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	// Run lock shares the Redis instance asynq uses
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()
	runLock := lock.NewRunLock(rdb, time.Duration(cfg.RunLockTTL)*time.Second)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6, // crawl runs
				"default":  3, // single documents
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor; it builds a pipeline per task so
	// concurrent handlers never share batch state
	processor := queue.NewTaskProcessor(cfg, st, index, embedder, runLock, metrics)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.IngestDocument)
	mux.HandleFunc(queue.TaskCrawlDataset, processor.CrawlDataset)

	// Schedule the recurring re-crawl so removed articles get swept
	scheduler := crawler.NewScheduler()
	if cfg.CrawlURL != "" {
		client := asynq.NewClient(redisOpt)
		defer client.Close()

		err := scheduler.ScheduleJob("recrawl-"+cfg.DatasetName, cfg.CrawlSchedule, func() error {
			task, err := queue.NewCrawlDatasetTask(cfg.DatasetName, cfg.CrawlURL, cfg.CrawlMaxPages)
			if err != nil {
				return err
			}
			_, err = client.Enqueue(task)
			return err
		})
		if err != nil {
			log.Fatal("Failed to schedule re-crawl:", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("🚀 Starting Asynq worker...")
	log.Printf("   Queues: critical(6), default(3), low(1)")
	log.Printf("   Redis: %s", redisOpt.Addr)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
