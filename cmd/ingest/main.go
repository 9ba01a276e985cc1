package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-archive-rag/internal/ai"
	"news-archive-rag/internal/config"
	"news-archive-rag/internal/crawler"
	"news-archive-rag/internal/lock"
	"news-archive-rag/internal/logger"
	"news-archive-rag/internal/sources"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/services"
)

// One-shot ingestion run: read documents from a content directory or a
// crawled site, push them through the pipeline, sweep what was not
// re-submitted. Interrupting the run leaves the batch open so the next
// invocation resumes it instead of sweeping unvisited content.
func main() {
	var (
		dataset = flag.String("dataset", "", "dataset to ingest into (default from config)")
		dir     = flag.String("dir", "", "content directory to ingest (default from config)")
		url     = flag.String("url", "", "crawl this URL instead of reading files")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	if *dataset == "" {
		*dataset = cfg.DatasetName
	}
	if *dir == "" {
		*dir = cfg.ContentDir
	}
	if *url == "" {
		*url = cfg.CrawlURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	st := store.NewMongoStore(mongoClient.Database(cfg.DBName))

	index, err := vectorstore.NewQdrant(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatalf("Failed to connect to Qdrant: %v", err)
	}
	defer index.Close()

	embedder, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDimensions, cfg.EmbeddingsRPM)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	defer embedder.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	runLock := lock.NewRunLock(rdb, time.Duration(cfg.RunLockTTL)*time.Second)
	release, err := runLock.Acquire(ctx, *dataset)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			log.Fatalf("Another ingestion run for %q is already in progress", *dataset)
		}
		log.Fatalf("Failed to acquire run lock: %v", err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.Error("failed to release run lock", "dataset", *dataset, "error", err)
		}
	}()

	pipeline := services.NewIngestionPipeline(st, index, embedder, cfg.IndexName, cfg.MaxChunkSize)
	reconciler := services.NewReconciler(st, index, cfg.IndexName)
	runner := services.NewIngestRunner(pipeline, reconciler, cfg.WorkerConcurrency, cfg.IngestBatchSize)

	docs := make(chan services.Document)
	if *url != "" {
		go func() {
			defer close(docs)
			result, err := crawler.Crawl(crawler.Config{
				URL:         *url,
				MaxPages:    cfg.CrawlMaxPages,
				FollowLinks: true,
			})
			if err != nil {
				logger.Error("crawl failed", "url", *url, "error", err)
				return
			}
			for _, page := range result.Pages {
				select {
				case docs <- services.Document{Content: page.Content, Tags: []string{page.Title}}:
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		src := sources.NewFileSource(*dir)
		go func() {
			if err := src.Stream(ctx, docs); err != nil {
				logger.Error("file source failed", "dir", *dir, "error", err)
			}
		}()
	}

	if err := runner.Run(ctx, *dataset, docs); err != nil {
		logger.Error("ingestion run failed", "dataset", *dataset, "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion run succeeded", "dataset", *dataset)
}
