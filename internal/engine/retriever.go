package engine

import (
	"context"
	"fmt"

	"rag-chatbot-backend/models"
)

// EmbeddingProvider maps text to a fixed-dimensional vector. Implementations
// must be deterministic for identical input; the engine treats a failure as
// final and never retries.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// DefaultTopK is how many chunks a retrieval returns when the caller does
// not override k. Three keeps the generation prompt manageable.
const DefaultTopK = 3

// DefaultConfidenceFloor is the top-score threshold below which a retrieval
// is flagged low-confidence.
const DefaultConfidenceFloor = 0.3

// Retriever orchestrates query embedding, index search, and chunk
// resolution. Search order from the index is the final order; there is no
// re-ranking stage.
type Retriever struct {
	embedder EmbeddingProvider
	index    *VectorIndex
	chunks   *ChunkStore
	drift    *DriftAggregator
	topK     int
	floor    float64
}

// NewRetriever wires the retrieval path. topK <= 0 and floor <= 0 fall back
// to the defaults; the floor is process-wide configuration, not a query
// parameter.
func NewRetriever(embedder EmbeddingProvider, index *VectorIndex, chunks *ChunkStore, drift *DriftAggregator, topK int, floor float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		drift:    drift,
		topK:     topK,
		floor:    floor,
	}
}

// Retrieve embeds the query, searches the index, and resolves the hits into
// ranked results. k <= 0 uses the configured default; k larger than the
// index yields however many results exist. The top score of every served
// query is observed by the drift aggregator.
//
// A top score below the confidence floor does not withhold results; it sets
// LowConfidence so downstream generation can hedge its framing. An empty
// result set is flagged the same way.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*models.RetrievalSet, error) {
	if k <= 0 {
		k = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	hits, err := r.index.Search(vec, k)
	if err != nil {
		return nil, err
	}

	set := &models.RetrievalSet{Results: make([]models.RetrievalResult, 0, len(hits))}
	for _, hit := range hits {
		ch, ok := r.chunks.Lookup(hit.ChunkID)
		if !ok {
			// The index and chunk store commit together per document, so a
			// missing chunk means an inconsistent restore. Surface it.
			return nil, fmt.Errorf("chunk %s present in index but missing from chunk store", hit.ChunkID)
		}
		set.Results = append(set.Results, models.RetrievalResult{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			Text:       ch.Text,
			Score:      hit.Score,
		})
	}

	// A zero-hit query counts as a served query with similarity 0.0, so it
	// drags the aggregate statistics down instead of disappearing.
	if len(set.Results) > 0 {
		set.TopScore = set.Results[0].Score
	}
	set.LowConfidence = set.TopScore < r.floor
	if r.drift != nil {
		r.drift.Observe(set.TopScore)
	}
	return set, nil
}

// ConfidenceFloor returns the configured threshold.
func (r *Retriever) ConfidenceFloor() float64 { return r.floor }
