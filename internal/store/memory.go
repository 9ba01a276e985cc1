package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-archive-rag/models"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	segments   map[string]models.Segment
	chunks     map[string]models.Chunk
	batches    map[string]models.Batch
	categories map[string]models.Category
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		segments:   make(map[string]models.Segment),
		chunks:     make(map[string]models.Chunk),
		batches:    make(map[string]models.Batch),
		categories: make(map[string]models.Category),
	}
}

func (s *MemoryStore) FindSegment(_ context.Context, id string) (*models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seg, ok := s.segments[id]; ok {
		cp := seg
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpsertSegment(_ context.Context, seg *models.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[seg.ID] = *seg
	return nil
}

func (s *MemoryStore) TouchSegment(_ context.Context, id, batchID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, ok := s.segments[id]; ok {
		seg.BatchID = batchID
		seg.UpdatedAt = at
		s.segments[id] = seg
	}
	return nil
}

func (s *MemoryStore) ListSegments(_ context.Context, datasetName string) ([]models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Segment
	for _, seg := range s.segments {
		if seg.DatasetName == datasetName {
			out = append(out, seg)
		}
	}
	sortSegments(out)
	return out, nil
}

func (s *MemoryStore) ListStaleSegments(_ context.Context, datasetName, currentBatchID string) ([]models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Segment
	for _, seg := range s.segments {
		if seg.DatasetName == datasetName && seg.BatchID != currentBatchID {
			out = append(out, seg)
		}
	}
	sortSegments(out)
	return out, nil
}

func (s *MemoryStore) SegmentsByChunkIDs(_ context.Context, chunkIDs []string) ([]models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		wanted[id] = true
	}
	var out []models.Segment
	for _, seg := range s.segments {
		for _, cid := range seg.ChunkIDs {
			if wanted[cid] {
				out = append(out, seg)
				break
			}
		}
	}
	sortSegments(out)
	return out, nil
}

func (s *MemoryStore) SegmentsByCategories(_ context.Context, datasetName string, names []string) ([]models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	segmentIDs := make(map[string]bool)
	for _, cat := range s.categories {
		if wanted[cat.Name] {
			segmentIDs[cat.SegmentID] = true
		}
	}
	var out []models.Segment
	for id, seg := range s.segments {
		if segmentIDs[id] && seg.DatasetName == datasetName {
			out = append(out, seg)
		}
	}
	sortSegments(out)
	return out, nil
}

func (s *MemoryStore) DeleteSegment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, c := range s.chunks {
		if c.SegmentID == id {
			delete(s.chunks, cid)
		}
	}
	for catID, cat := range s.categories {
		if cat.SegmentID == id {
			delete(s.categories, catID)
		}
	}
	delete(s.segments, id)
	return nil
}

func (s *MemoryStore) CreateChunks(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) ChunksBySegment(_ context.Context, segmentID string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Chunk
	for _, c := range s.chunks {
		if c.SegmentID == segmentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainOrder < out[j].ChainOrder })
	return out, nil
}

func (s *MemoryStore) LatestBatch(_ context.Context, datasetName string) (*models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Batch
	for _, b := range s.batches {
		if b.DatasetName != datasetName {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			cp := b
			latest = &cp
		}
	}
	return latest, nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, batch *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	return nil
}

func (s *MemoryStore) UpdateBatchStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.batches[id]; ok {
		b.Status = status
		s.batches[id] = b
	}
	return nil
}

func (s *MemoryStore) CategoryNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, cat := range s.categories {
		if !seen[cat.Name] {
			seen[cat.Name] = true
			names = append(names, cat.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CategoriesBySegment(_ context.Context, segmentID string) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Category
	for _, cat := range s.categories {
		if cat.SegmentID == segmentID {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateCategories(_ context.Context, segmentID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		id := uuid.NewString()
		s.categories[id] = models.Category{ID: id, Name: name, SegmentID: segmentID}
	}
	return nil
}

func (s *MemoryStore) DeleteCategoriesBySegment(_ context.Context, segmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cat := range s.categories {
		if cat.SegmentID == segmentID {
			delete(s.categories, id)
		}
	}
	return nil
}

// ChunkCount reports the number of stored chunks; test helper.
func (s *MemoryStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func sortSegments(segs []models.Segment) {
	sort.Slice(segs, func(i, j int) bool { return segs[i].ID < segs[j].ID })
}

var _ Store = (*MemoryStore)(nil)
