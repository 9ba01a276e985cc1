package services

import (
	"context"
	"math"
	"testing"

	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/models"
)

// fixedEmbedder returns a canned vector for any input.
type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) Dimension() int { return len(f.vec) }

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

func seedSegment(t *testing.T, st *store.MemoryStore, idx *vectorstore.MemoryIndex, id, content string, chunkID string, vec []float32, categories []string) {
	t.Helper()
	ctx := context.Background()
	seg := &models.Segment{
		ID:          id,
		Content:     content,
		DatasetName: "news",
		ChunkIDs:    []string{chunkID},
		BatchID:     "batch-1",
	}
	if err := st.UpsertSegment(ctx, seg); err != nil {
		t.Fatalf("seed segment: %v", err)
	}
	if err := st.CreateChunks(ctx, []models.Chunk{{ID: chunkID, Content: content, SegmentID: id}}); err != nil {
		t.Fatalf("seed chunk: %v", err)
	}
	meta := vectorstore.Metadata{ID: chunkID, DatasetName: "news", Categories: categories, Text: content}
	if err := idx.Upsert(ctx, testIndex, []string{chunkID}, [][]float32{vec}, []vectorstore.Metadata{meta}); err != nil {
		t.Fatalf("seed vector: %v", err)
	}
	if len(categories) > 0 {
		if err := st.CreateCategories(ctx, id, categories); err != nil {
			t.Fatalf("seed categories: %v", err)
		}
	}
}

func newRetrievalFixture(t *testing.T) (*store.MemoryStore, *vectorstore.MemoryIndex) {
	t.Helper()
	st := store.NewMemoryStore()
	idx := vectorstore.NewMemory()
	if err := idx.EnsureIndex(context.Background(), testIndex, 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	return st, idx
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-4
}

func TestSearchRanksSegmentsByBestChunkScore(t *testing.T) {
	st, idx := newRetrievalFixture(t)

	// Cosine against the (1,0) query: chunk X scores 0.9, chunk Y 0.6.
	seedSegment(t, st, idx, "s1", "segment one text", "chunk-x", []float32{0.9, float32(math.Sqrt(1 - 0.81))}, nil)
	seedSegment(t, st, idx, "s2", "segment two text", "chunk-y", []float32{0.6, 0.8}, nil)

	r := NewRetriever(st, idx, &fixedEmbedder{vec: []float32{1, 0}}, testIndex, "news")
	results, err := r.Search(context.Background(), "anything", 0.5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "segment one text" || !almostEqual(results[0].Score, 0.9) {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Text != "segment two text" || !almostEqual(results[1].Score, 0.6) {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestSearchDropsMatchesBelowMinScore(t *testing.T) {
	st, idx := newRetrievalFixture(t)

	seedSegment(t, st, idx, "s1", "barely related", "chunk-low", []float32{0.3, float32(math.Sqrt(1 - 0.09))}, nil)

	r := NewRetriever(st, idx, &fixedEmbedder{vec: []float32{1, 0}}, testIndex, "news")
	results, err := r.Search(context.Background(), "anything", 0.5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results below the score cut, got %d", len(results))
	}
}

func TestSearchIncludesCategoryOnlyMatches(t *testing.T) {
	st, idx := newRetrievalFixture(t)

	// Orthogonal to the query vector: no similarity hit, but the
	// segment carries the requested category and must still surface.
	seedSegment(t, st, idx, "s-astro", "galaxy catalog notes", "chunk-astro", []float32{0, 1}, []string{"astronomy"})

	r := NewRetriever(st, idx, &fixedEmbedder{vec: []float32{1, 0}}, testIndex, "news")
	results, err := r.Search(context.Background(), "anything", 0.5, []string{"astronomy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the labeled segment, got %d results", len(results))
	}
	if results[0].Text != "galaxy catalog notes" || results[0].Score != 0 {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestSearchRestrictsToOwnDataset(t *testing.T) {
	st, idx := newRetrievalFixture(t)
	ctx := context.Background()

	seedSegment(t, st, idx, "s-news", "news article", "chunk-n", []float32{1, 0}, nil)

	// A second dataset sharing the same index must stay invisible.
	foreign := &models.Segment{
		ID:          "s-archive",
		Content:     "archive article",
		DatasetName: "archive",
		ChunkIDs:    []string{"chunk-f"},
		BatchID:     "batch-1",
	}
	if err := st.UpsertSegment(ctx, foreign); err != nil {
		t.Fatalf("seed foreign segment: %v", err)
	}
	meta := vectorstore.Metadata{ID: "chunk-f", DatasetName: "archive", Text: "archive article"}
	if err := idx.Upsert(ctx, testIndex, []string{"chunk-f"}, [][]float32{{1, 0}}, []vectorstore.Metadata{meta}); err != nil {
		t.Fatalf("seed foreign vector: %v", err)
	}

	r := NewRetriever(st, idx, &fixedEmbedder{vec: []float32{1, 0}}, testIndex, "news")
	results, err := r.Search(ctx, "anything", 0.5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the news segment, got %d results", len(results))
	}
	if results[0].Text != "news article" {
		t.Fatalf("foreign dataset leaked into results: %+v", results[0])
	}
}

func TestSearchCategoryFilterRestrictsVectorMatches(t *testing.T) {
	st, idx := newRetrievalFixture(t)

	seedSegment(t, st, idx, "s1", "astronomy article", "chunk-a", []float32{1, 0}, []string{"astronomy"})
	seedSegment(t, st, idx, "s2", "politics article", "chunk-p", []float32{1, 0}, []string{"politics"})

	r := NewRetriever(st, idx, &fixedEmbedder{vec: []float32{1, 0}}, testIndex, "news")
	results, err := r.Search(context.Background(), "anything", 0.5, []string{"astronomy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the astronomy segment, got %d", len(results))
	}
	if results[0].Text != "astronomy article" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}
