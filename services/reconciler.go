package services

import (
	"context"
	"fmt"

	"news-archive-rag/internal/logger"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/models"
)

// Reconciler sweeps segments that the current run did not touch. A
// document that was not re-submitted this run is treated as deleted at
// the source, so its vectors and metadata rows are removed.
type Reconciler struct {
	store     store.Store
	index     vectorstore.Index
	indexName string
}

func NewReconciler(st store.Store, index vectorstore.Index, indexName string) *Reconciler {
	return &Reconciler{store: st, index: index, indexName: indexName}
}

// Reconcile deletes every segment of the dataset whose batch stamp
// differs from currentBatchID, then marks the batch completed. The
// sweep is not atomic across the two stores, but every deletion is
// idempotent, so a reconcile interrupted partway can simply be re-run
// to finish the job.
func (r *Reconciler) Reconcile(ctx context.Context, datasetName, currentBatchID string) error {
	stale, err := r.store.ListStaleSegments(ctx, datasetName, currentBatchID)
	if err != nil {
		return fmt.Errorf("list stale segments: %w", err)
	}

	for _, seg := range stale {
		// Vectors go first: if the sweep dies here, the segment is
		// still listed as stale on the next run and the remaining
		// vector deletes are no-ops.
		for _, chunkID := range seg.ChunkIDs {
			if err := r.index.DeleteWhere(ctx, r.indexName, "id", chunkID); err != nil {
				return fmt.Errorf("delete vector for chunk %s: %w", chunkID, err)
			}
		}
		if err := r.store.DeleteSegment(ctx, seg.ID); err != nil {
			return fmt.Errorf("delete segment %s: %w", seg.ID, err)
		}
		logger.Info("swept stale segment", "segment_id", seg.ID, "dataset", datasetName)
	}

	if err := r.store.UpdateBatchStatus(ctx, currentBatchID, models.BatchStatusCompleted); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	logger.Info("reconciliation finished", "dataset", datasetName, "swept", len(stale), "batch_id", currentBatchID)
	return nil
}
