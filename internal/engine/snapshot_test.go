package engine

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	idx := NewVectorIndex(3)
	entries := []IndexEntry{
		{ChunkID: "a_0", Vector: []float32{1, 2, 3}},
		{ChunkID: "a_1", Vector: []float32{0, 1, 0}},
		{ChunkID: "b_0", Vector: []float32{-1, 0.5, 2}},
	}
	if err := idx.AddBatch(entries); err != nil {
		t.Fatalf("add: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.snapshot")
	if err := idx.SaveSnapshot(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewVectorIndex(0)
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if restored.Size() != idx.Size() {
		t.Fatalf("restored size %d, want %d", restored.Size(), idx.Size())
	}
	if restored.Dimension() != idx.Dimension() {
		t.Fatalf("restored dimension %d, want %d", restored.Dimension(), idx.Dimension())
	}

	queries := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 0.2},
		{5, 5, 5},
	}
	for _, q := range queries {
		orig, err := idx.Search(q, 3)
		if err != nil {
			t.Fatalf("search original: %v", err)
		}
		after, err := restored.Search(q, 3)
		if err != nil {
			t.Fatalf("search restored: %v", err)
		}
		if len(orig) != len(after) {
			t.Fatalf("result count differs: %d vs %d", len(orig), len(after))
		}
		for i := range orig {
			if orig[i].ChunkID != after[i].ChunkID {
				t.Errorf("hit %d: %q vs %q", i, orig[i].ChunkID, after[i].ChunkID)
			}
			if math.Abs(orig[i].Score-after[i].Score) > 1e-9 {
				t.Errorf("hit %d score: %v vs %v", i, orig[i].Score, after[i].Score)
			}
		}
	}
}

func TestSnapshotOverwritesExistingState(t *testing.T) {
	first := NewVectorIndex(2)
	if err := first.Add("old", []float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.snapshot")
	if err := first.SaveSnapshot(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	target := NewVectorIndex(2)
	for _, id := range []string{"x", "y", "z"} {
		if err := target.Add(id, []float32{0, 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := target.LoadSnapshot(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if target.Size() != 1 {
		t.Fatalf("load did not replace contents, size %d", target.Size())
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	idx := NewVectorIndex(2)
	if err := idx.LoadSnapshot(filepath.Join(t.TempDir(), "nope.snapshot")); err == nil {
		t.Fatal("expected error for missing snapshot file")
	}
}

func TestLoadSnapshotRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snapshot")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx := NewVectorIndex(2)
	if err := idx.LoadSnapshot(path); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}
