package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// GeminiEmbedder produces embeddings through Google Generative AI.
// Calls go through a circuit breaker so a degraded provider fails fast,
// and a rate limiter keeps ingestion under the API's RPM quota.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	dimension   int
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// NewGeminiEmbedder creates an embedder for the given model name and
// expected vector dimension. rpm bounds requests per minute.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension, rpm int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	if rpm <= 0 {
		rpm = 60
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), rpm/10+1)

	return &GeminiEmbedder{
		client:      client,
		model:       model,
		dimension:   dimension,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func (g *GeminiEmbedder) Dimension() int { return g.dimension }

// Embed returns the embedding vector for text. Failures are wrapped in
// EmbeddingError; the dimension of the response is validated against
// the configured index dimension.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", g.model),
		attribute.Int("gemini.text_length", len(text)),
	)

	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, &EmbeddingError{Model: g.model, Err: err}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		em := g.client.EmbeddingModel(g.model)
		resp, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, &EmbeddingError{Model: g.model, Err: err}
	}

	vec := result.([]float32)
	if len(vec) != g.dimension {
		return nil, &EmbeddingError{
			Model: g.model,
			Err:   fmt.Errorf("dimension mismatch: got %d, index expects %d", len(vec), g.dimension),
		}
	}
	return vec, nil
}

// Close releases the underlying API client.
func (g *GeminiEmbedder) Close() error { return g.client.Close() }

var _ Embedder = (*GeminiEmbedder)(nil)
