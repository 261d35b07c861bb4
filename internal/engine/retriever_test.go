package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rag-chatbot-backend/models"
)

// stubEmbedder returns canned vectors keyed by input text.
type stubEmbedder struct {
	dim  int
	vecs map[string][]float32
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func seedIndex(t *testing.T, idx *VectorIndex, store *ChunkStore, chunks []models.Chunk, vectors [][]float32) {
	t.Helper()
	entries := make([]IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = IndexEntry{ChunkID: chunks[i].ID, Vector: vectors[i]}
	}
	if err := store.CommitDocument(context.Background(), chunks); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := idx.AddBatch(entries); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func TestRetrieveRankedResults(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)
	drift := NewDriftAggregator()

	chunks := []models.Chunk{
		{ID: "doc_0", DocumentID: "doc", Order: 0, Text: "about cats"},
		{ID: "doc_1", DocumentID: "doc", Order: 1, Text: "about dogs"},
		{ID: "doc_2", DocumentID: "doc", Order: 2, Text: "about fish"},
	}
	vectors := [][]float32{{1, 0}, {1, 1}, {0, 1}}
	seedIndex(t, idx, store, chunks, vectors)

	emb := &stubEmbedder{dim: 2, vecs: map[string][]float32{"cats?": {1, 0}}}
	r := NewRetriever(emb, idx, store, drift, 0, 0)

	set, err := r.Retrieve(context.Background(), "cats?", 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	if len(set.Results) != 3 {
		t.Fatalf("got %d results, want default k of 3", len(set.Results))
	}
	if set.Results[0].ChunkID != "doc_0" || set.Results[0].Text != "about cats" {
		t.Errorf("top result %+v, want doc_0", set.Results[0])
	}
	if set.TopScore != set.Results[0].Score {
		t.Errorf("top score %v does not match first result %v", set.TopScore, set.Results[0].Score)
	}
	if set.LowConfidence {
		t.Error("exact match flagged low confidence")
	}

	summary, ok := drift.Summary()
	if !ok || summary.Count != 1 {
		t.Fatalf("drift aggregator did not observe the query: %+v ok=%v", summary, ok)
	}
}

func TestRetrieveLowConfidence(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)

	chunks := []models.Chunk{{ID: "doc_0", DocumentID: "doc", Text: "unrelated"}}
	// cos(angle) ~ 0.196, below the 0.3 floor
	seedIndex(t, idx, store, chunks, [][]float32{{0.2, 1}})

	emb := &stubEmbedder{dim: 2, vecs: map[string][]float32{"q": {1, 0}}}
	r := NewRetriever(emb, idx, store, nil, 3, 0.3)

	set, err := r.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(set.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(set.Results))
	}
	if !set.LowConfidence {
		t.Errorf("top score %v below floor must set LowConfidence", set.TopScore)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)
	emb := &stubEmbedder{dim: 2}
	r := NewRetriever(emb, idx, store, nil, 3, 0.3)

	set, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("empty index retrieval must not error, got %v", err)
	}
	if len(set.Results) != 0 {
		t.Fatalf("got %d results from empty index", len(set.Results))
	}
	if !set.LowConfidence {
		t.Error("empty result set must be flagged low confidence")
	}
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)
	emb := &stubEmbedder{dim: 2, err: fmt.Errorf("quota exhausted")}
	r := NewRetriever(emb, idx, store, nil, 3, 0.3)

	_, err := r.Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("got %v, want ErrEmbedding", err)
	}
}

func TestRetrieveCustomK(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)

	var chunks []models.Chunk
	var vectors [][]float32
	for i := 0; i < 5; i++ {
		chunks = append(chunks, models.Chunk{ID: fmt.Sprintf("doc_%d", i), DocumentID: "doc", Order: i, Text: "t"})
		vectors = append(vectors, []float32{1, float32(i)})
	}
	seedIndex(t, idx, store, chunks, vectors)

	emb := &stubEmbedder{dim: 2, vecs: map[string][]float32{"q": {1, 0}}}
	r := NewRetriever(emb, idx, store, nil, 3, 0.3)

	set, err := r.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(set.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(set.Results))
	}
}

func TestRetrieveMissingChunkIsError(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)

	// Index knows the chunk, store does not: inconsistent restore.
	if err := idx.Add("ghost_0", []float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}

	emb := &stubEmbedder{dim: 2, vecs: map[string][]float32{"q": {1, 0}}}
	r := NewRetriever(emb, idx, store, nil, 3, 0.3)

	if _, err := r.Retrieve(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error for chunk missing from store")
	}
}

func TestRetrieveZeroHitsObservedAsZero(t *testing.T) {
	idx := NewVectorIndex(2)
	store := NewChunkStore(nil)
	drift := NewDriftAggregator()
	emb := &stubEmbedder{dim: 2}
	r := NewRetriever(emb, idx, store, drift, 3, 0.3)

	set, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !set.LowConfidence {
		t.Error("zero-hit query must be flagged low confidence")
	}

	summary, ok := drift.Summary()
	if !ok || summary.Count != 1 {
		t.Fatalf("zero-hit query was not observed: %+v ok=%v", summary, ok)
	}
	if summary.Mean != 0 || summary.Max != 0 {
		t.Fatalf("zero-hit query must be observed as 0.0, got %+v", summary)
	}
}
