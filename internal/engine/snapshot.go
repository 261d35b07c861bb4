package engine

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// MetricInnerProduct identifies the index's similarity convention. It is
// written into every snapshot so a restore can refuse a file produced under
// a different convention.
const MetricInnerProduct = "inner_product_normalized"

// indexSnapshot is the durable representation of a VectorIndex. Chunk text
// is not duplicated here; it lives in the chunk store.
type indexSnapshot struct {
	Dimension int
	Metric    string
	ChunkIDs  []string
	Vectors   [][]float32
}

// SaveSnapshot writes the index to path. State is copied under a read lock
// and the file is written outside it, so concurrent searches and inserts are
// not blocked by disk I/O; the copy is a consistent point in time. The file
// is written to a temp name and renamed into place.
func (idx *VectorIndex) SaveSnapshot(path string) error {
	idx.mu.RLock()
	snap := indexSnapshot{
		Dimension: idx.dimension,
		Metric:    MetricInnerProduct,
		ChunkIDs:  append([]string(nil), idx.chunkIDs...),
		Vectors:   make([][]float32, len(idx.vectors)),
	}
	for i, v := range idx.vectors {
		snap.Vectors[i] = append([]float32(nil), v...)
	}
	idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot replaces the index contents with the snapshot at path.
// Restored vectors were normalized before the save, so a restored index
// returns identical search results for the same queries.
func (idx *VectorIndex) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Metric != MetricInnerProduct {
		return fmt.Errorf("snapshot uses similarity metric %q, expected %q", snap.Metric, MetricInnerProduct)
	}
	if len(snap.ChunkIDs) != len(snap.Vectors) {
		return fmt.Errorf("corrupt snapshot: %d ids but %d vectors", len(snap.ChunkIDs), len(snap.Vectors))
	}
	for i, v := range snap.Vectors {
		if len(v) != snap.Dimension {
			return fmt.Errorf("corrupt snapshot: vector %d has dimension %d, header says %d",
				i, len(v), snap.Dimension)
		}
	}

	idx.mu.Lock()
	idx.dimension = snap.Dimension
	idx.chunkIDs = snap.ChunkIDs
	idx.vectors = snap.Vectors
	idx.mu.Unlock()
	return nil
}
