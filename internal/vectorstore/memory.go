package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force cosine similarity index kept in process
// memory. It backs tests and small local setups.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	points    map[string]memoryPoint
}

type memoryPoint struct {
	vector   []float32
	metadata Metadata
}

func NewMemory() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryIndex) EnsureIndex(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memoryCollection{
			dimension: dimension,
			points:    make(map[string]memoryPoint),
		}
	}
	return nil
}

func (m *MemoryIndex) Upsert(_ context.Context, name string, ids []string, vectors [][]float32, metadata []Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("ids, vectors and metadata must be positionally aligned")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("unknown index %s", name)
	}
	for i, id := range ids {
		if len(vectors[i]) != col.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, index expects %d", len(vectors[i]), col.dimension)
		}
		col.points[id] = memoryPoint{vector: vectors[i], metadata: metadata[i]}
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, name string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown index %s", name)
	}

	matches := make([]Match, 0, len(col.points))
	for id, pt := range col.points {
		if filter != nil {
			if filter.DatasetName != "" && pt.metadata.DatasetName != filter.DatasetName {
				continue
			}
			if len(filter.Categories) > 0 && !intersects(pt.metadata.Categories, filter.Categories) {
				continue
			}
		}
		matches = append(matches, Match{ID: id, Score: cosine(vector, pt.vector), Metadata: pt.metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DeleteWhere(_ context.Context, name, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return nil
	}
	for id, pt := range col.points {
		if fieldEquals(pt.metadata, field, value) {
			delete(col.points, id)
		}
	}
	return nil
}

func (m *MemoryIndex) SetCategories(_ context.Context, name, id string, categories []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("unknown index %s", name)
	}
	pt, ok := col.points[id]
	if !ok {
		return nil
	}
	pt.metadata.Categories = categories
	col.points[id] = pt
	return nil
}

// Count reports the number of stored points; test helper.
func (m *MemoryIndex) Count(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if col, ok := m.collections[name]; ok {
		return len(col.points)
	}
	return 0
}

func fieldEquals(m Metadata, field, value string) bool {
	switch field {
	case "id":
		return m.ID == value
	case "dataset_name":
		return m.DatasetName == value
	default:
		return false
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Index = (*MemoryIndex)(nil)
