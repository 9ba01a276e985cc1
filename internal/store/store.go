// Package store defines the metadata persistence contract for segments,
// chunks, batches and categories, with MongoDB and in-memory backends.
package store

import (
	"context"
	"time"

	"news-archive-rag/models"
)

// Store is the metadata collaborator. Lookup methods return (nil, nil)
// when the entity does not exist; errors are reserved for backend
// failures.
//
// Segment and Chunk writes are keyed by deterministic or unique ids,
// so every mutation here is safe to retry.
type Store interface {
	FindSegment(ctx context.Context, id string) (*models.Segment, error)
	UpsertSegment(ctx context.Context, seg *models.Segment) error
	// TouchSegment refreshes the batch stamp and updated_at of an
	// existing segment without rewriting its content or chunks.
	TouchSegment(ctx context.Context, id, batchID string, at time.Time) error
	ListSegments(ctx context.Context, datasetName string) ([]models.Segment, error)
	// ListStaleSegments returns segments of the dataset whose batch id
	// differs from currentBatchID.
	ListStaleSegments(ctx context.Context, datasetName, currentBatchID string) ([]models.Segment, error)
	SegmentsByChunkIDs(ctx context.Context, chunkIDs []string) ([]models.Segment, error)
	SegmentsByCategories(ctx context.Context, datasetName string, names []string) ([]models.Segment, error)
	// DeleteSegment removes the segment and cascades to its chunks and
	// category associations.
	DeleteSegment(ctx context.Context, id string) error

	CreateChunks(ctx context.Context, chunks []models.Chunk) error
	ChunksBySegment(ctx context.Context, segmentID string) ([]models.Chunk, error)

	LatestBatch(ctx context.Context, datasetName string) (*models.Batch, error)
	CreateBatch(ctx context.Context, batch *models.Batch) error
	UpdateBatchStatus(ctx context.Context, id, status string) error

	CategoryNames(ctx context.Context) ([]string, error)
	CategoriesBySegment(ctx context.Context, segmentID string) ([]models.Category, error)
	CreateCategories(ctx context.Context, segmentID string, names []string) error
	DeleteCategoriesBySegment(ctx context.Context, segmentID string) error
}
