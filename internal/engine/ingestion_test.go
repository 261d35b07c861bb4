package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// countingEmbedder produces fixed-dimension vectors and can be told to fail
// after a number of calls.
type countingEmbedder struct {
	dim       int
	calls     int
	failAfter int // fail when calls exceeds this, 0 means never
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.failAfter > 0 && c.calls > c.failAfter {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	v := make([]float32, c.dim)
	v[0] = float32(len(text)%7 + 1)
	v[c.dim-1] = 1
	return v, nil
}

func (c *countingEmbedder) Dimension() int { return c.dim }

func newTestPipeline(t *testing.T, emb EmbeddingProvider) (*IngestionPipeline, *VectorIndex, *ChunkStore) {
	t.Helper()
	chunker, err := NewChunker(10, 2)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}
	idx := NewVectorIndex(0)
	store := NewChunkStore(nil)
	return NewIngestionPipeline(chunker, emb, idx, store), idx, store
}

func TestIngestHappyPath(t *testing.T) {
	emb := &countingEmbedder{dim: 4}
	p, idx, store := newTestPipeline(t, emb)

	res, err := p.Ingest(context.Background(), makeWords(25), "notes.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if res.WordCount != 25 {
		t.Errorf("word count %d, want 25", res.WordCount)
	}
	// 25 words, window 10, overlap 2: ceil(23/8) = 3 chunks
	if res.ChunkCount != 3 {
		t.Errorf("chunk count %d, want 3", res.ChunkCount)
	}
	if idx.Size() != res.ChunkCount {
		t.Errorf("index holds %d vectors, want %d", idx.Size(), res.ChunkCount)
	}
	if store.Size() != res.ChunkCount {
		t.Errorf("store holds %d chunks, want %d", store.Size(), res.ChunkCount)
	}

	// Every indexed chunk must resolve.
	for i := 0; i < res.ChunkCount; i++ {
		id := fmt.Sprintf("%s_%d", res.DocumentID, i)
		if _, ok := store.Lookup(id); !ok {
			t.Errorf("chunk %s not in store", id)
		}
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	emb := &countingEmbedder{dim: 4}
	p, idx, store := newTestPipeline(t, emb)

	_, err := p.Ingest(context.Background(), "  \n ", "empty.txt")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
	if idx.Size() != 0 || store.Size() != 0 {
		t.Fatal("empty document mutated state")
	}
}

func TestIngestEmbeddingFailureLeavesStateUntouched(t *testing.T) {
	emb := &countingEmbedder{dim: 4, failAfter: 1}
	p, idx, store := newTestPipeline(t, emb)

	_, err := p.Ingest(context.Background(), makeWords(25), "notes.txt")

	var partial *PartialIngestionError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialIngestionError", err)
	}
	if partial.Processed != 0 {
		t.Errorf("processed %d, want 0: embedding happens before any commit", partial.Processed)
	}
	if partial.RolledBack {
		t.Error("nothing was committed, RolledBack must be false")
	}
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("cause %v must wrap ErrEmbedding", err)
	}

	if idx.Size() != 0 || store.Size() != 0 {
		t.Fatalf("failed ingestion left state: index=%d store=%d", idx.Size(), store.Size())
	}
}

func TestIngestIndexFailureRollsBackStore(t *testing.T) {
	chunker, err := NewChunker(10, 2)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}
	idx := NewVectorIndex(0)
	store := NewChunkStore(nil)

	// First document fixes the index dimension at 4.
	first := NewIngestionPipeline(chunker, &countingEmbedder{dim: 4}, idx, store)
	res, err := first.Ingest(context.Background(), makeWords(12), "first.txt")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	baseIndex, baseStore := idx.Size(), store.Size()

	// Second pipeline embeds at a different width; the batch insert must
	// fail and the store write must be undone.
	second := NewIngestionPipeline(chunker, &countingEmbedder{dim: 6}, idx, store)
	_, err = second.Ingest(context.Background(), makeWords(12), "second.txt")

	var partial *PartialIngestionError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialIngestionError", err)
	}
	if !partial.RolledBack {
		t.Error("store rollback succeeded, RolledBack must be true")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("cause %v must wrap ErrDimensionMismatch", err)
	}

	if idx.Size() != baseIndex {
		t.Errorf("index size %d, want %d", idx.Size(), baseIndex)
	}
	if store.Size() != baseStore {
		t.Errorf("store size %d, want %d after rollback", store.Size(), baseStore)
	}

	// The first document must remain searchable.
	for i := 0; i < res.ChunkCount; i++ {
		id := fmt.Sprintf("%s_%d", res.DocumentID, i)
		if _, ok := store.Lookup(id); !ok {
			t.Errorf("chunk %s of earlier document lost", id)
		}
	}
}

func TestIngestWithIDUsesCallerID(t *testing.T) {
	emb := &countingEmbedder{dim: 4}
	p, _, store := newTestPipeline(t, emb)

	res, err := p.IngestWithID(context.Background(), "fixed-id", makeWords(5), "notes.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.DocumentID != "fixed-id" {
		t.Fatalf("document ID %q, want fixed-id", res.DocumentID)
	}
	if _, ok := store.Lookup("fixed-id_0"); !ok {
		t.Fatal("chunk fixed-id_0 not in store")
	}
}

func TestIngestedDocumentIsSearchable(t *testing.T) {
	emb := &countingEmbedder{dim: 4}
	p, idx, _ := newTestPipeline(t, emb)

	res, err := p.Ingest(context.Background(), makeWords(8), "one.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != res.DocumentID+"_0" {
		t.Fatalf("unexpected hits %+v", hits)
	}
}
