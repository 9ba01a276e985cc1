package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	SegmentsIngested metric.Int64Counter
	SearchRequests   metric.Int64Counter
	SearchDuration   metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("news-archive-rag")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	segmentsIngested, err := meter.Int64Counter(
		"ingest.segments.total",
		metric.WithDescription("Documents pushed through the ingestion pipeline"),
	)
	if err != nil {
		return nil, err
	}

	searchRequests, err := meter.Int64Counter(
		"search.requests.total",
		metric.WithDescription("Semantic search requests served"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"search.duration",
		metric.WithDescription("Semantic search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:   requestCounter,
		RequestDuration:  requestDuration,
		SegmentsIngested: segmentsIngested,
		SearchRequests:   searchRequests,
		SearchDuration:   searchDuration,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestion records documents handled for a dataset
func (m *Metrics) RecordIngestion(dataset string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("dataset.name", dataset),
		attribute.Bool("ingest.success", success),
	}

	m.SegmentsIngested.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSearch records a search request and its latency
func (m *Metrics) RecordSearch(dataset string, results int, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("dataset.name", dataset),
		attribute.Int("search.results", results),
	}

	m.SearchRequests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.SearchDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
