package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"news-archive-rag/internal/logger"
	"news-archive-rag/utils"
)

// Document is one unit of raw content handed to an ingestion run.
type Document struct {
	Content string
	Tags    []string
}

// IngestRunner drives a full run: initialize the batch, push documents
// through the pipeline on a bounded worker pool, then reconcile.
// Documents are consumed in fixed-size batches to bound memory while a
// source streams them in.
type IngestRunner struct {
	pipeline    *IngestionPipeline
	reconciler  *Reconciler
	concurrency int
	batchSize   int
}

func NewIngestRunner(pipeline *IngestionPipeline, reconciler *Reconciler, concurrency, batchSize int) *IngestRunner {
	if concurrency <= 0 {
		concurrency = 8
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IngestRunner{
		pipeline:    pipeline,
		reconciler:  reconciler,
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

// Run ingests every document from docs into datasetName and sweeps
// stale segments afterwards. A failing document is logged and skipped;
// the run continues so one bad page cannot sink a crawl. If the context
// is cancelled the batch is left in processing state and reconciliation
// is skipped, so the next run resumes it instead of sweeping content
// that was never re-submitted.
func (r *IngestRunner) Run(ctx context.Context, datasetName string, docs <-chan Document) error {
	if err := r.pipeline.Initialize(ctx, datasetName); err != nil {
		return err
	}

	var failed atomic.Int64
	processed := 0
	skipped := 0
	batch := make([]Document, 0, r.batchSize)
	seen := make(map[string]bool)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, doc := range batch {
			doc := doc
			g.Go(func() error {
				if err := r.pipeline.AddSegment(gctx, doc.Content, datasetName, doc.Tags); err != nil {
					failed.Add(1)
					logger.Error("document ingestion failed", "dataset", datasetName, "error", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		processed += len(batch)
		batch = batch[:0]
		return ctx.Err()
	}

	for doc := range docs {
		// Crawls repeat content under different URLs (mirrors, shared
		// boilerplate pages). The first occurrence stamps the current
		// batch, so the rest add nothing and are not dispatched.
		hash := utils.ContentHash(doc.Content)
		if seen[hash] {
			skipped++
			continue
		}
		seen[hash] = true

		batch = append(batch, doc)
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("ingestion run finished", "dataset", datasetName, "processed", processed, "duplicates_skipped", skipped, "failed", failed.Load())

	if err := r.reconciler.Reconcile(ctx, datasetName, r.pipeline.Batch().ID); err != nil {
		return fmt.Errorf("reconcile %s: %w", datasetName, err)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", n, processed)
	}
	return nil
}
