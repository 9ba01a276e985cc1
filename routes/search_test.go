package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"news-archive-rag/internal/config"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/vectorstore"
	"news-archive-rag/models"
	"news-archive-rag/services"
)

type stubEmbedder struct{ vec []float32 }

func (s *stubEmbedder) Dimension() int { return len(s.vec) }

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vec, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore, *vectorstore.MemoryIndex) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	idx := vectorstore.NewMemory()
	if err := idx.EnsureIndex(context.Background(), "web_index", 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	cfg := &config.Config{
		DatasetName: "news",
		IndexName:   "web_index",
		MinScore:    0.5,
	}
	retriever := services.NewRetriever(st, idx, &stubEmbedder{vec: []float32{1, 0}}, cfg.IndexName, cfg.DatasetName)
	cats := services.NewCategoryService(st, idx, cfg.IndexName)

	router := gin.New()
	SetupSearchRoutes(router, cfg, retriever, cats, st, nil)
	return router, st, idx
}

func seed(t *testing.T, st *store.MemoryStore, idx *vectorstore.MemoryIndex, id, content, chunkID string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	seg := &models.Segment{ID: id, Content: content, DatasetName: "news", ChunkIDs: []string{chunkID}, BatchID: "b1"}
	if err := st.UpsertSegment(ctx, seg); err != nil {
		t.Fatalf("seed segment: %v", err)
	}
	meta := vectorstore.Metadata{ID: chunkID, DatasetName: "news", Text: content}
	if err := idx.Upsert(ctx, "web_index", []string{chunkID}, [][]float32{vec}, []vectorstore.Metadata{meta}); err != nil {
		t.Fatalf("seed vector: %v", err)
	}
}

func TestSearchEndpointReturnsRankedResults(t *testing.T) {
	router, st, idx := newTestRouter(t)
	seed(t, st, idx, "s1", "a matching article", "c1", []float32{1, 0})

	body := strings.NewReader(`{"query": "anything"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected one result, got %+v", resp)
	}
	if resp.Results[0].Text != "a matching article" {
		t.Fatalf("unexpected result text: %q", resp.Results[0].Text)
	}
}

func TestSearchEndpointRejectsMissingQuery(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSearchEndpointRejectsOutOfRangeMinScore(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"x","min_score":1.5}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCategoriesEndpointListsNames(t *testing.T) {
	router, st, _ := newTestRouter(t)
	ctx := context.Background()
	if err := st.UpsertSegment(ctx, &models.Segment{ID: "s1", DatasetName: "news", BatchID: "b1"}); err != nil {
		t.Fatalf("seed segment: %v", err)
	}
	if err := st.CreateCategories(ctx, "s1", []string{"politics", "astronomy"}); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", resp.Categories)
	}
}

func TestApplyCategoriesEndpoint(t *testing.T) {
	router, st, idx := newTestRouter(t)
	seed(t, st, idx, "s1", "labeled article", "c1", []float32{1, 0})

	req := httptest.NewRequest(http.MethodPut, "/api/segments/s1/categories", strings.NewReader(`{"names":["politics"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	names, err := st.CategoryNames(context.Background())
	if err != nil || len(names) != 1 || names[0] != "politics" {
		t.Fatalf("category not applied: %v %v", names, err)
	}
}

func TestApplyCategoriesUnknownSegment(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/segments/missing/categories", strings.NewReader(`{"names":["politics"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
