package engine

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// VectorIndex is an append-only, exact nearest-neighbor index. Every stored
// vector is unit-normalized on insert and compared by inner product, so
// scores are cosine similarities regardless of what the embedding provider
// returns.
//
// Search is a linear scan over every stored vector. That is a deliberate
// trade: O(n) per query buys zero approximation error, and at the target
// scale (up to low tens of thousands of vectors) the scan is cheap. Treat it
// as a scalability ceiling, not a bug.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int // 0 until fixed by construction or first insert
	chunkIDs  []string
	vectors   [][]float32
}

// IndexEntry pairs a chunk identifier with its vector for batch insertion.
type IndexEntry struct {
	ChunkID string
	Vector  []float32
}

// SearchHit is one scored index entry.
type SearchHit struct {
	ChunkID string
	Score   float64
}

// NewVectorIndex creates an index. A dimension of 0 defers fixing the
// dimension to the first insertion; once set it is immutable.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Dimension returns the index dimension, or 0 if not yet fixed.
func (idx *VectorIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Size returns the current count of stored vectors.
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkIDs)
}

// Add appends a single chunk vector.
func (idx *VectorIndex) Add(chunkID string, vector []float32) error {
	return idx.AddBatch([]IndexEntry{{ChunkID: chunkID, Vector: vector}})
}

// AddBatch appends all entries under one lock acquisition. Every vector is
// validated before anything is mutated, so a dimension mismatch leaves the
// index untouched and concurrent searches observe either none or all of the
// batch. This is the reader-visible commit point for a document.
func (idx *VectorIndex) AddBatch(entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dimension
	if dim == 0 {
		dim = len(entries[0].Vector)
		if dim == 0 {
			return fmt.Errorf("%w: empty vector for chunk %s", ErrDimensionMismatch, entries[0].ChunkID)
		}
	}
	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: chunk %s has dimension %d, index expects %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Vector), dim)
		}
	}

	idx.dimension = dim
	for _, e := range entries {
		idx.chunkIDs = append(idx.chunkIDs, e.ChunkID)
		idx.vectors = append(idx.vectors, normalize(e.Vector))
	}
	return nil
}

// Search returns the k highest-scoring entries for the query vector,
// descending by score with ties broken by insertion order. An empty index
// returns an empty slice; a query of the wrong length is an error.
func (idx *VectorIndex) Search(query []float32, k int) ([]SearchHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// The dimension is checked even when the index is empty, as long as it
	// has been fixed by construction or a first insert.
	if idx.dimension != 0 && len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(query), idx.dimension)
	}
	if len(idx.chunkIDs) == 0 {
		return []SearchHit{}, nil
	}
	if k <= 0 {
		return []SearchHit{}, nil
	}

	q := normalize(query)
	order := make([]int, len(idx.vectors))
	scores := make([]float64, len(idx.vectors))
	for i, v := range idx.vectors {
		order[i] = i
		scores[i] = dotProduct(q, v)
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]SearchHit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = SearchHit{ChunkID: idx.chunkIDs[j], Score: scores[j]}
	}
	return hits, nil
}

// normalize returns a unit-length copy of v. A zero vector is returned as a
// zero copy; it scores 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
