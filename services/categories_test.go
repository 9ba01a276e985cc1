package services

import (
	"context"
	"testing"

	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/utils"
)

func TestCategoryApplyAndClear(t *testing.T) {
	ctx := context.Background()
	p, st, idx := newTestPipeline(t, 1000)
	if err := p.Initialize(ctx, "news"); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	content := "An article about the transit of Venus."
	if err := p.AddSegment(ctx, content, "news", nil); err != nil {
		t.Fatalf("add segment: %v", err)
	}
	segID := utils.ContentHash(content)

	cats := NewCategoryService(st, idx, testIndex)
	if err := cats.Apply(ctx, segID, []string{"astronomy"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Applying an overlapping set must merge, not duplicate.
	if err := cats.Apply(ctx, segID, []string{"astronomy", "history"}); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	names, err := st.CategoryNames(ctx)
	if err != nil {
		t.Fatalf("category names: %v", err)
	}
	if len(names) != 2 || names[0] != "astronomy" || names[1] != "history" {
		t.Fatalf("unexpected category names: %v", names)
	}

	// The labels must now act as a query filter on the vector side.
	r := NewRetriever(st, idx, &hashEmbedder{dim: 4}, testIndex, "news")
	results, err := r.Search(ctx, content, 0, []string{"astronomy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the categorized segment, got %d results", len(results))
	}

	if err := cats.Clear(ctx, segID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	names, err = st.CategoryNames(ctx)
	if err != nil {
		t.Fatalf("category names after clear: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no categories after clear, got %v", names)
	}
}

func TestCategoryApplyUnknownSegment(t *testing.T) {
	st := store.NewMemoryStore()
	idx := vectorstore.NewMemory()
	cats := NewCategoryService(st, idx, testIndex)
	if err := cats.Apply(context.Background(), "missing", []string{"astronomy"}); err == nil {
		t.Fatalf("expected error for unknown segment")
	}
}
