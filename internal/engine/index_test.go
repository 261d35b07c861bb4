package engine

import (
	"errors"
	"math"
	"testing"
)

func TestSearchOrdering(t *testing.T) {
	idx := NewVectorIndex(2)
	entries := []IndexEntry{
		{ChunkID: "orthogonal", Vector: []float32{0, 1}},
		{ChunkID: "exact", Vector: []float32{1, 0}},
		{ChunkID: "diagonal", Vector: []float32{1, 1}},
	}
	if err := idx.AddBatch(entries); err != nil {
		t.Fatalf("add: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}

	wantOrder := []string{"exact", "diagonal", "orthogonal"}
	for i, want := range wantOrder {
		if hits[i].ChunkID != want {
			t.Errorf("hit %d is %q, want %q", i, hits[i].ChunkID, want)
		}
	}

	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Errorf("exact match scores %f, want 1.0", hits[0].Score)
	}
	if math.Abs(hits[1].Score-math.Sqrt2/2) > 1e-6 {
		t.Errorf("diagonal scores %f, want %f", hits[1].Score, math.Sqrt2/2)
	}
	if math.Abs(hits[2].Score) > 1e-6 {
		t.Errorf("orthogonal scores %f, want 0", hits[2].Score)
	}
}

func TestSearchNormalizesMagnitude(t *testing.T) {
	idx := NewVectorIndex(2)
	if err := idx.Add("long", []float32{100, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Add("short", []float32{0.001, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}

	hits, err := idx.Search([]float32{42, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if math.Abs(h.Score-1.0) > 1e-6 {
			t.Errorf("%s scores %f, want 1.0 regardless of magnitude", h.ChunkID, h.Score)
		}
	}
}

func TestSearchStableTies(t *testing.T) {
	idx := NewVectorIndex(2)
	// Identical vectors, identical scores: insertion order must hold.
	for _, id := range []string{"first", "second", "third"} {
		if err := idx.Add(id, []float32{1, 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	hits, err := idx.Search([]float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if hits[i].ChunkID != want {
			t.Errorf("hit %d is %q, want %q", i, hits[i].ChunkID, want)
		}
	}
}

func TestSearchKLargerThanIndex(t *testing.T) {
	idx := NewVectorIndex(2)
	if err := idx.Add("only", []float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := NewVectorIndex(2)

	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("empty index search must not error, got %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Fatalf("got %v, want empty slice", hits)
	}
}

func TestDimensionMismatch(t *testing.T) {
	idx := NewVectorIndex(3)

	if err := idx.Add("bad", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("insert of wrong dimension: got %v, want ErrDimensionMismatch", err)
	}
	if idx.Size() != 0 {
		t.Fatalf("failed insert changed index size to %d", idx.Size())
	}

	if err := idx.Add("ok", []float32{1, 0, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("search with wrong dimension: got %v, want ErrDimensionMismatch", err)
	}
}

func TestAddBatchAllOrNothing(t *testing.T) {
	idx := NewVectorIndex(2)
	entries := []IndexEntry{
		{ChunkID: "good", Vector: []float32{1, 0}},
		{ChunkID: "bad", Vector: []float32{1, 0, 0}},
	}

	if err := idx.AddBatch(entries); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
	if idx.Size() != 0 {
		t.Fatalf("failed batch left %d vectors in index", idx.Size())
	}
}

func TestDimensionFixedByFirstInsert(t *testing.T) {
	idx := NewVectorIndex(0)
	if err := idx.Add("first", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if idx.Dimension() != 4 {
		t.Fatalf("dimension is %d, want 4", idx.Dimension())
	}
	if err := idx.Add("second", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch once dimension is fixed", err)
	}
}

func TestSearchEmptyIndexWrongDimension(t *testing.T) {
	idx := NewVectorIndex(3)
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch for wrong-length query on empty index", err)
	}

	// An unfixed dimension cannot reject anything yet.
	unfixed := NewVectorIndex(0)
	hits, err := unfixed.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("search on unfixed empty index: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits from empty index", len(hits))
	}
}
