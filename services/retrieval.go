package services

import (
	"context"
	"fmt"
	"sort"

	"news-archive-rag/internal/ai"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/models"
)

// topKChunks is how many chunk-level matches the vector index is asked
// for before aggregation into whole segments.
const topKChunks = 20

// SearchResult is one ranked retrieval hit. Text is the full segment
// content; chunk boundaries are invisible to the caller.
type SearchResult struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// Retriever answers similarity queries by aggregating chunk-level
// vector matches into whole-segment results.
type Retriever struct {
	store       store.Store
	index       vectorstore.Index
	embedder    ai.Embedder
	indexName   string
	datasetName string
}

func NewRetriever(st store.Store, index vectorstore.Index, embedder ai.Embedder, indexName, datasetName string) *Retriever {
	return &Retriever{
		store:       st,
		index:       index,
		embedder:    embedder,
		indexName:   indexName,
		datasetName: datasetName,
	}
}

// Search embeds the query, collects the nearest chunks, and ranks the
// owning segments by their best chunk score. Matches below minScore are
// discarded. When categories are given the index query is restricted to
// chunks carrying one of them, and segments associated with a requested
// category are included even without a vector hit (scored by whatever
// their own chunks contributed, possibly 0) so labeled content always
// surfaces.
func (r *Retriever) Search(ctx context.Context, query string, minScore float32, categories []string) ([]SearchResult, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Always scope to the retriever's dataset: multiple datasets may
	// share one index.
	filter := &vectorstore.Filter{DatasetName: r.datasetName}
	if len(categories) > 0 {
		filter.Categories = categories
	}
	matches, err := r.index.Query(ctx, r.indexName, queryVec, topKChunks, filter)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	// Best score per chunk id, above the cut.
	chunkScores := make(map[string]float32)
	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		if best, ok := chunkScores[m.ID]; !ok || m.Score > best {
			chunkScores[m.ID] = m.Score
		}
	}

	matchedChunkIDs := make([]string, 0, len(chunkScores))
	for id := range chunkScores {
		matchedChunkIDs = append(matchedChunkIDs, id)
	}

	segments, err := r.store.SegmentsByChunkIDs(ctx, matchedChunkIDs)
	if err != nil {
		return nil, fmt.Errorf("segments by chunk ids: %w", err)
	}

	seen := make(map[string]bool, len(segments))
	for _, seg := range segments {
		seen[seg.ID] = true
	}
	if len(categories) > 0 {
		labeled, err := r.store.SegmentsByCategories(ctx, r.datasetName, categories)
		if err != nil {
			return nil, fmt.Errorf("segments by categories: %w", err)
		}
		for _, seg := range labeled {
			if !seen[seg.ID] {
				seen[seg.ID] = true
				segments = append(segments, seg)
			}
		}
	}

	results := make([]SearchResult, 0, len(segments))
	for _, seg := range segments {
		results = append(results, SearchResult{
			Text:  seg.Content,
			Score: segmentScore(seg, chunkScores),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// segmentScore is the maximum score among the segment's own chunks;
// chunks without a vector match contribute 0.
func segmentScore(seg models.Segment, chunkScores map[string]float32) float32 {
	var best float32
	for _, chunkID := range seg.ChunkIDs {
		if score, ok := chunkScores[chunkID]; ok && score > best {
			best = score
		}
	}
	return best
}
