package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-archive-rag/internal/ai"
	"news-archive-rag/internal/chunker"
	"news-archive-rag/internal/logger"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/models"
	"news-archive-rag/utils"
)

// IngestionPipeline turns raw documents into deduplicated segments with
// embedded chunks. It owns all Segment/Chunk/VectorRecord writes; the
// Reconciler owns their deletion.
type IngestionPipeline struct {
	store        store.Store
	index        vectorstore.Index
	embedder     ai.Embedder
	indexName    string
	maxChunkSize int

	datasetName string
	batch       *models.Batch

	// segLocks serializes AddSegment per segment id. The runner feeds
	// documents in concurrently, and a crawl routinely yields identical
	// content under different URLs; without the lock two such documents
	// both pass the dedup check and the loser's chunk rows and vectors
	// are orphaned.
	segLocks sync.Map
}

// NewIngestionPipeline wires the pipeline from its collaborators.
// maxChunkSize bounds chunk length in bytes; content above it is split
// at natural boundaries.
func NewIngestionPipeline(st store.Store, index vectorstore.Index, embedder ai.Embedder, indexName string, maxChunkSize int) *IngestionPipeline {
	return &IngestionPipeline{
		store:        st,
		index:        index,
		embedder:     embedder,
		indexName:    indexName,
		maxChunkSize: maxChunkSize,
	}
}

// Initialize resolves the current batch for the dataset and makes sure
// the vector index exists. The dataset's most recent batch is reused
// when it is still processing (a prior run was interrupted or this run
// extends it); otherwise a fresh processing batch is created. Must be
// called once before AddSegment.
func (p *IngestionPipeline) Initialize(ctx context.Context, datasetName string) error {
	batch, err := p.store.LatestBatch(ctx, datasetName)
	if err != nil {
		return fmt.Errorf("resolve batch: %w", err)
	}
	if batch == nil || batch.Status != models.BatchStatusProcessing {
		batch = &models.Batch{
			ID:          uuid.NewString(),
			DatasetName: datasetName,
			Status:      models.BatchStatusProcessing,
			CreatedAt:   time.Now().UTC(),
		}
		if err := p.store.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		logger.Info("started new ingestion batch", "dataset", datasetName, "batch_id", batch.ID)
	} else {
		logger.Info("resuming processing batch", "dataset", datasetName, "batch_id", batch.ID)
	}

	p.datasetName = datasetName
	p.batch = batch

	if err := p.index.EnsureIndex(ctx, p.indexName, p.embedder.Dimension()); err != nil {
		return fmt.Errorf("ensure vector index: %w", err)
	}
	return nil
}

// Batch returns the run marker resolved by Initialize.
func (p *IngestionPipeline) Batch() *models.Batch { return p.batch }

// AddSegment ingests one document. The segment id is the content hash,
// so re-submitting identical content only refreshes the batch stamp:
// no re-chunking, no re-embedding, no duplicate rows.
//
// For novel content all chunk embeddings are computed first; metadata
// rows are written only after every embedding succeeded, and the vector
// upsert follows. A failure between those two writes leaves metadata
// without vectors; the write is keyed by deterministic ids, so retrying
// the same document closes the gap.
func (p *IngestionPipeline) AddSegment(ctx context.Context, content, datasetName string, tags []string) error {
	if p.batch == nil {
		return fmt.Errorf("pipeline not initialized")
	}
	if datasetName != p.datasetName {
		return fmt.Errorf("pipeline initialized for dataset %q, got %q", p.datasetName, datasetName)
	}

	id := utils.ContentHash(content)

	lk, _ := p.segLocks.LoadOrStore(id, &sync.Mutex{})
	mu := lk.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()

	existing, err := p.store.FindSegment(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup segment: %w", err)
	}
	if existing != nil {
		if err := p.store.TouchSegment(ctx, id, p.batch.ID, now); err != nil {
			return fmt.Errorf("touch segment: %w", err)
		}
		logger.Debug("segment unchanged, batch stamp refreshed", "segment_id", id)
		return nil
	}

	pieces := chunker.SplitText(content, p.maxChunkSize)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]models.Chunk, len(pieces))
	chunkIDs := make([]string, len(pieces))
	for i, piece := range pieces {
		chunkIDs[i] = uuid.NewString()
		chunks[i] = models.Chunk{
			ID:         chunkIDs[i],
			Content:    piece,
			SegmentID:  id,
			ChainOrder: i,
		}
	}

	// Embedding calls are sequential within a document: the provider
	// rate limit makes finer-grained concurrency pointless.
	vectors := make([][]float32, len(pieces))
	for i, piece := range pieces {
		vec, err := p.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("embed chunk %d of segment %s: %w", i, id, err)
		}
		vectors[i] = vec
	}

	segment := &models.Segment{
		ID:          id,
		Content:     content,
		DatasetName: datasetName,
		NodeSet:     tags,
		ChunkIDs:    chunkIDs,
		BatchID:     p.batch.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.UpsertSegment(ctx, segment); err != nil {
		return fmt.Errorf("persist segment: %w", err)
	}
	if err := p.store.CreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	metadata := make([]vectorstore.Metadata, len(chunks))
	for i, c := range chunks {
		metadata[i] = vectorstore.Metadata{
			ID:          c.ID,
			DatasetName: datasetName,
			NodeSet:     tags,
			Categories:  []string{},
			Text:        c.Content,
		}
	}
	if err := p.index.Upsert(ctx, p.indexName, chunkIDs, vectors, metadata); err != nil {
		return fmt.Errorf("upsert vectors for segment %s: %w", id, err)
	}

	logger.Debug("segment ingested", "segment_id", id, "chunks", len(chunks))
	return nil
}
