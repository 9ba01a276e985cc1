package vectorstore

import (
	"context"
	"testing"
)

func TestMemoryIndexQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	if err := idx.EnsureIndex(ctx, "test", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	err := idx.Upsert(ctx, "test",
		[]string{"a", "b", "c"},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		[]Metadata{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := idx.Query(ctx, "test", []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" || matches[1].ID != "c" {
		t.Fatalf("unexpected ordering: %s, %s", matches[0].ID, matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatalf("scores not descending")
	}
}

func TestMemoryIndexCategoryFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	if err := idx.EnsureIndex(ctx, "test", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	err := idx.Upsert(ctx, "test",
		[]string{"a", "b"},
		[][]float32{{1, 0}, {1, 0}},
		[]Metadata{
			{ID: "a", Categories: []string{"astronomy"}},
			{ID: "b", Categories: []string{"politics"}},
		},
	)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := idx.Query(ctx, "test", []float32{1, 0}, 10, &Filter{Categories: []string{"astronomy"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Fatalf("category filter failed: %v", matches)
	}
}

func TestMemoryIndexDatasetFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	if err := idx.EnsureIndex(ctx, "test", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	err := idx.Upsert(ctx, "test",
		[]string{"a", "b"},
		[][]float32{{1, 0}, {1, 0}},
		[]Metadata{
			{ID: "a", DatasetName: "news"},
			{ID: "b", DatasetName: "archive"},
		},
	)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := idx.Query(ctx, "test", []float32{1, 0}, 10, &Filter{DatasetName: "news"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Fatalf("dataset filter failed: %v", matches)
	}
}

func TestMemoryIndexDeleteWhereIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	if err := idx.EnsureIndex(ctx, "test", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	if err := idx.Upsert(ctx, "test", []string{"a"}, [][]float32{{1, 0}}, []Metadata{{ID: "a"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := idx.DeleteWhere(ctx, "test", "id", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if idx.Count("test") != 0 {
		t.Fatalf("expected empty index after delete")
	}
	// Deleting an absent point must be a no-op.
	if err := idx.DeleteWhere(ctx, "test", "id", "a"); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
}

func TestMemoryIndexUpsertIsIdempotentPerID(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	if err := idx.EnsureIndex(ctx, "test", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := idx.Upsert(ctx, "test", []string{"a"}, [][]float32{{1, 0}}, []Metadata{{ID: "a"}}); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if idx.Count("test") != 1 {
		t.Fatalf("upsert duplicated a point: count=%d", idx.Count("test"))
	}
}
