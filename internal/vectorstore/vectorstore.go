// Package vectorstore defines the narrow contract the engine needs from
// a vector index and provides Qdrant and in-memory implementations.
package vectorstore

import "context"

// Metadata is the payload stored next to each chunk vector. ID repeats
// the point id so metadata-path deletes and lookups work uniformly
// across backends.
type Metadata struct {
	ID          string   `json:"id"`
	DatasetName string   `json:"dataset_name"`
	NodeSet     []string `json:"node_set"`
	Categories  []string `json:"categories"`
	Text        string   `json:"text"`
}

// Match is one scored result from a similarity query.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Filter restricts a query server-side. DatasetName, when set, limits
// matches to points of that dataset; Categories matches any point whose
// stored categories intersect the given set. Both apply conjunctively.
type Filter struct {
	DatasetName string
	Categories  []string
}

// Index is the vector index collaborator. Upsert arguments are
// positionally aligned: vectors[i] and metadata[i] belong to ids[i].
type Index interface {
	// EnsureIndex creates the named index with the given dimension if
	// it does not exist yet. Calling it for an existing index is a
	// no-op.
	EnsureIndex(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, name string, ids []string, vectors [][]float32, metadata []Metadata) error
	// Query returns up to topK matches ordered by descending score.
	Query(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]Match, error)
	// DeleteWhere removes every point whose metadata field equals
	// value. Deleting an absent point is a no-op.
	DeleteWhere(ctx context.Context, name, field, value string) error
	// SetCategories replaces the categories list in one point's
	// metadata without touching its vector.
	SetCategories(ctx context.Context, name, id string, categories []string) error
}
