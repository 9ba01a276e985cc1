package services

import (
	"context"
	"fmt"
	"testing"

	"news-archive-rag/models"
)

func TestRunnerIngestsAndReconciles(t *testing.T) {
	ctx := context.Background()
	p, st, idx := newTestPipeline(t, 1000)
	rec := NewReconciler(st, idx, testIndex)
	runner := NewIngestRunner(p, rec, 4, 3)

	docs := make(chan Document)
	go func() {
		defer close(docs)
		for i := 0; i < 10; i++ {
			docs <- Document{Content: fmt.Sprintf("Article number %d.", i)}
		}
	}()

	if err := runner.Run(ctx, "news", docs); err != nil {
		t.Fatalf("run: %v", err)
	}

	segs, err := st.ListSegments(ctx, "news")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 10 {
		t.Fatalf("expected 10 segments, got %d", len(segs))
	}

	batch, err := st.LatestBatch(ctx, "news")
	if err != nil || batch == nil {
		t.Fatalf("latest batch: %v", err)
	}
	if batch.Status != models.BatchStatusCompleted {
		t.Fatalf("batch must be completed after the run, got %s", batch.Status)
	}
}

func TestRunnerSkipsDuplicateDocumentsWithinRun(t *testing.T) {
	ctx := context.Background()
	p, st, idx := newTestPipeline(t, 1000)
	rec := NewReconciler(st, idx, testIndex)
	runner := NewIngestRunner(p, rec, 4, 4)

	docs := make(chan Document)
	go func() {
		defer close(docs)
		for i := 0; i < 3; i++ {
			docs <- Document{Content: "Mirrored article."}
		}
		docs <- Document{Content: "Distinct article."}
	}()

	if err := runner.Run(ctx, "news", docs); err != nil {
		t.Fatalf("run: %v", err)
	}

	segs, err := st.ListSegments(ctx, "news")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if st.ChunkCount() != 2 {
		t.Fatalf("duplicate documents left extra chunk rows: %d", st.ChunkCount())
	}
	if idx.Count(testIndex) != 2 {
		t.Fatalf("duplicate documents left extra vector records: %d", idx.Count(testIndex))
	}
}

func TestRunnerSecondRunSweepsMissingDocuments(t *testing.T) {
	ctx := context.Background()
	p, st, idx := newTestPipeline(t, 1000)
	rec := NewReconciler(st, idx, testIndex)
	runner := NewIngestRunner(p, rec, 2, 2)

	feed := func(contents ...string) <-chan Document {
		docs := make(chan Document)
		go func() {
			defer close(docs)
			for _, c := range contents {
				docs <- Document{Content: c}
			}
		}()
		return docs
	}

	if err := runner.Run(ctx, "news", feed("Article one.", "Article two.")); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if err := runner.Run(ctx, "news", feed("Article one.")); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	segs, err := st.ListSegments(ctx, "news")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected one surviving segment, got %d", len(segs))
	}
	if segs[0].Content != "Article one." {
		t.Fatalf("wrong segment survived: %q", segs[0].Content)
	}
	if idx.Count(testIndex) != 1 {
		t.Fatalf("expected one vector record, got %d", idx.Count(testIndex))
	}
}
