package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"news-archive-rag/internal/ai"
	"news-archive-rag/internal/config"
	"news-archive-rag/internal/crawler"
	"news-archive-rag/internal/lock"
	"news-archive-rag/internal/logger"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/telemetry"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/services"
)

const (
	TaskIngestDocument = "ingest:document"
	TaskCrawlDataset   = "ingest:crawl"
)

type IngestDocumentPayload struct {
	DatasetName string   `json:"dataset_name"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
}

type CrawlDatasetPayload struct {
	DatasetName string `json:"dataset_name"`
	URL         string `json:"url"`
	MaxPages    int    `json:"max_pages"`
}

// Task creators
func NewIngestDocumentTask(datasetName, content string, tags []string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestDocumentPayload{
		DatasetName: datasetName,
		Content:     content,
		Tags:        tags,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewCrawlDatasetTask(datasetName, url string, maxPages int) (*asynq.Task, error) {
	payload, err := json.Marshal(CrawlDatasetPayload{
		DatasetName: datasetName,
		URL:         url,
		MaxPages:    maxPages,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskCrawlDataset,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(60*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor wires queued jobs to the ingestion services. It holds
// only the shared collaborators; a pipeline carries per-run batch state
// and handlers execute concurrently, so each task builds its own.
type TaskProcessor struct {
	cfg      *config.Config
	store    store.Store
	index    vectorstore.Index
	embedder ai.Embedder
	runLock  *lock.RunLock
	metrics  *telemetry.Metrics
}

func NewTaskProcessor(cfg *config.Config, st store.Store, index vectorstore.Index, embedder ai.Embedder, runLock *lock.RunLock, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{
		cfg:      cfg,
		store:    st,
		index:    index,
		embedder: embedder,
		runLock:  runLock,
		metrics:  metrics,
	}
}

func (p *TaskProcessor) newPipeline() *services.IngestionPipeline {
	return services.NewIngestionPipeline(p.store, p.index, p.embedder, p.cfg.IndexName, p.cfg.MaxChunkSize)
}

// IngestDocument pushes a single document through the pipeline. It
// joins the open processing batch for the dataset, or opens a fresh
// one; the next full run will reuse and complete it.
func (p *TaskProcessor) IngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	pipeline := p.newPipeline()
	if err := pipeline.Initialize(ctx, payload.DatasetName); err != nil {
		return err
	}
	err := pipeline.AddSegment(ctx, payload.Content, payload.DatasetName, payload.Tags)
	if p.metrics != nil {
		p.metrics.RecordIngestion(payload.DatasetName, err == nil)
	}
	if err != nil {
		return err
	}

	logger.Info("queued document ingested", "dataset", payload.DatasetName)
	return nil
}

// CrawlDataset runs a full crawl-and-reconcile cycle for a dataset.
// The run lock keeps a second crawl from sweeping this one's batch.
func (p *TaskProcessor) CrawlDataset(ctx context.Context, t *asynq.Task) error {
	var payload CrawlDatasetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	release, err := p.runLock.Acquire(ctx, payload.DatasetName)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			logger.Warn("crawl skipped, run already in progress", "dataset", payload.DatasetName)
			return asynq.SkipRetry
		}
		return err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.Error("failed to release run lock", "dataset", payload.DatasetName, "error", err)
		}
	}()

	result, err := crawler.Crawl(crawler.Config{
		URL:         payload.URL,
		MaxPages:    payload.MaxPages,
		FollowLinks: true,
	})
	if err != nil {
		return fmt.Errorf("crawl %s: %w", payload.URL, err)
	}

	docs := make(chan services.Document)
	go func() {
		defer close(docs)
		for _, page := range result.Pages {
			select {
			case docs <- services.Document{Content: page.Content, Tags: []string{page.Title}}:
			case <-ctx.Done():
				return
			}
		}
	}()

	reconciler := services.NewReconciler(p.store, p.index, p.cfg.IndexName)
	runner := services.NewIngestRunner(p.newPipeline(), reconciler, p.cfg.WorkerConcurrency, p.cfg.IngestBatchSize)
	if err := runner.Run(ctx, payload.DatasetName, docs); err != nil {
		return err
	}

	logger.Info("crawl run completed", "dataset", payload.DatasetName, "pages", result.PagesCrawled)
	return nil
}
