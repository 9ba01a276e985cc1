package queue

import (
	"context"
	"sync"
	"testing"

	"news-archive-rag/internal/config"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
)

type fixedEmbedder struct{ vec []float32 }

func (f *fixedEmbedder) Dimension() int { return len(f.vec) }

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

// Handlers run concurrently under asynq; tasks for different datasets
// must not flip each other's batch state.
func TestIngestDocumentTasksIsolateDatasets(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{IndexName: "web_index", MaxChunkSize: 1000}
	st := store.NewMemoryStore()
	idx := vectorstore.NewMemory()
	processor := NewTaskProcessor(cfg, st, idx, &fixedEmbedder{vec: []float32{1, 0}}, nil, nil)

	datasets := []string{"news", "archive"}
	errs := make(chan error, len(datasets))
	var wg sync.WaitGroup
	for _, dataset := range datasets {
		dataset := dataset
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := NewIngestDocumentTask(dataset, "An article for "+dataset+".", nil)
			if err != nil {
				errs <- err
				return
			}
			errs <- processor.IngestDocument(ctx, task)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ingest document: %v", err)
		}
	}

	for _, dataset := range datasets {
		segs, err := st.ListSegments(ctx, dataset)
		if err != nil {
			t.Fatalf("list segments %s: %v", dataset, err)
		}
		if len(segs) != 1 {
			t.Fatalf("expected one segment in %s, got %d", dataset, len(segs))
		}
		batch, err := st.LatestBatch(ctx, dataset)
		if err != nil || batch == nil {
			t.Fatalf("latest batch %s: %v", dataset, err)
		}
		if segs[0].BatchID != batch.ID {
			t.Fatalf("segment in %s stamped with foreign batch %s", dataset, segs[0].BatchID)
		}
		if segs[0].DatasetName != dataset {
			t.Fatalf("segment landed in the wrong dataset: %q", segs[0].DatasetName)
		}
	}
}
