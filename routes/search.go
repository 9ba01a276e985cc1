package routes

import (
	"net/http"
	"time"

	"news-archive-rag/internal/config"
	"news-archive-rag/internal/store"
	"news-archive-rag/internal/telemetry"
	"news-archive-rag/services"
	"news-archive-rag/utils"

	"github.com/gin-gonic/gin"
)

// SearchRequest is the body of POST /api/search. MinScore overrides the
// configured default when set; Categories restricts and augments the
// result set with labeled segments.
type SearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	MinScore   *float32 `json:"min_score"`
	Categories []string `json:"categories"`
}

type SearchResponse struct {
	Results []services.SearchResult `json:"results"`
	Count   int                     `json:"count"`
}

func SetupSearchRoutes(router *gin.Engine, cfg *config.Config, retriever *services.Retriever, cats *services.CategoryService, st store.Store, metrics *telemetry.Metrics) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/search", handleSearch(cfg, retriever, metrics))
	api.GET("/categories", handleListCategories(st))
	api.PUT("/segments/:id/categories", handleApplyCategories(cats))
	api.DELETE("/segments/:id/categories", handleClearCategories(cats))
}

func handleSearch(cfg *config.Config, retriever *services.Retriever, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		minScore := float32(cfg.MinScore)
		if req.MinScore != nil {
			if *req.MinScore < 0 || *req.MinScore > 1 {
				utils.RespondWithBadRequest(c, "min_score must be between 0 and 1", nil)
				return
			}
			minScore = *req.MinScore
		}

		start := time.Now()
		results, err := retriever.Search(c.Request.Context(), req.Query, minScore, req.Categories)
		if err != nil {
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}
		if metrics != nil {
			metrics.RecordSearch(cfg.DatasetName, len(results), time.Since(start).Seconds())
		}

		c.JSON(http.StatusOK, SearchResponse{Results: results, Count: len(results)})
	}
}

// handleApplyCategories merges classifier labels onto a segment. The
// classifier runs out of process; this is its write path.
func handleApplyCategories(cats *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Names []string `json:"names" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if err := cats.Apply(c.Request.Context(), c.Param("id"), req.Names); err != nil {
			utils.RespondWithError(c, http.StatusNotFound, "segment_not_found", err.Error(), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "categories applied"})
	}
}

func handleClearCategories(cats *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cats.Clear(c.Request.Context(), c.Param("id")); err != nil {
			utils.RespondWithInternalError(c, "Failed to clear categories", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "categories cleared"})
	}
}

func handleListCategories(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := st.CategoryNames(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list categories", nil)
			return
		}
		if names == nil {
			names = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"categories": names})
	}
}
