package services

import (
	"context"
	"fmt"

	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
)

// CategoryService persists labels produced by an external classifier
// and mirrors them into chunk vector metadata so they can act as query
// filters. The classifier itself lives outside this module; only the
// label names arrive here.
type CategoryService struct {
	store     store.Store
	index     vectorstore.Index
	indexName string
}

func NewCategoryService(st store.Store, index vectorstore.Index, indexName string) *CategoryService {
	return &CategoryService{store: st, index: index, indexName: indexName}
}

// Apply merges names into the segment's categories and stamps the
// merged set onto every chunk's vector metadata. Already-known names
// are not duplicated.
func (c *CategoryService) Apply(ctx context.Context, segmentID string, names []string) error {
	seg, err := c.store.FindSegment(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("find segment: %w", err)
	}
	if seg == nil {
		return fmt.Errorf("segment %s not found", segmentID)
	}

	existing, err := c.store.CategoriesBySegment(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	known := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(names))
	for _, cat := range existing {
		if !known[cat.Name] {
			known[cat.Name] = true
			merged = append(merged, cat.Name)
		}
	}
	var fresh []string
	for _, name := range names {
		if !known[name] {
			known[name] = true
			merged = append(merged, name)
			fresh = append(fresh, name)
		}
	}

	if err := c.store.CreateCategories(ctx, segmentID, fresh); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}
	for _, chunkID := range seg.ChunkIDs {
		if err := c.index.SetCategories(ctx, c.indexName, chunkID, merged); err != nil {
			return fmt.Errorf("stamp categories on chunk %s: %w", chunkID, err)
		}
	}
	return nil
}

// Clear removes every category association of the segment and empties
// the categories list in its chunks' vector metadata.
func (c *CategoryService) Clear(ctx context.Context, segmentID string) error {
	seg, err := c.store.FindSegment(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("find segment: %w", err)
	}
	if seg == nil {
		return nil
	}
	if err := c.store.DeleteCategoriesBySegment(ctx, segmentID); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	for _, chunkID := range seg.ChunkIDs {
		if err := c.index.SetCategories(ctx, c.indexName, chunkID, []string{}); err != nil {
			return fmt.Errorf("clear categories on chunk %s: %w", chunkID, err)
		}
	}
	return nil
}
