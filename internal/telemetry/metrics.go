package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter       metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	QueriesServed        metric.Int64Counter
	RetrievalScore       metric.Float64Histogram
	LowConfidenceQueries metric.Int64Counter
	IngestionDuration    metric.Float64Histogram
	ChunksIndexed        metric.Int64Counter
	CircuitBreakerState  metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("rag-chatbot-backend")

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

	queriesServed, err := meter.Int64Counter(
		"retrieval.queries.total",
		metric.WithDescription("Total retrieval queries served"),
	)
	if err != nil {
		return nil, err
	}

	retrievalScore, err := meter.Float64Histogram(
		"retrieval.top_score",
		metric.WithDescription("Top similarity score per retrieval"),
	)
	if err != nil {
		return nil, err
	}

	lowConfidenceQueries, err := meter.Int64Counter(
		"retrieval.low_confidence.total",
		metric.WithDescription("Queries answered below the confidence floor"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"ingestion.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"ingestion.chunks.indexed",
		metric.WithDescription("Total chunks added to the vector index"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:       requestCounter,
		RequestDuration:      requestDuration,
		QueriesServed:        queriesServed,
		RetrievalScore:       retrievalScore,
		LowConfidenceQueries: lowConfidenceQueries,
		IngestionDuration:    ingestionDuration,
		ChunksIndexed:        chunksIndexed,
		CircuitBreakerState:  circuitBreakerState,
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

// RecordQuery records a served retrieval query and its top score
func (m *Metrics) RecordQuery(topScore float64, lowConfidence bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("retrieval.low_confidence", lowConfidence),
	}

	m.QueriesServed.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RetrievalScore.Record(context.Background(), topScore, metric.WithAttributes(attrs...))
	if lowConfidence {
		m.LowConfidenceQueries.Add(context.Background(), 1)
	}
}

// RecordIngestion records document ingestion metrics
func (m *Metrics) RecordIngestion(duration float64, chunkCount int64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingestion.status", status),
	}

	m.IngestionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	if chunkCount > 0 {
		m.ChunksIndexed.Add(context.Background(), chunkCount, metric.WithAttributes(attrs...))
	}
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
