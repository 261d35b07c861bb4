package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-chatbot-backend/models"
	"rag-chatbot-backend/utils"
)

// ChunkStore is the chunk-lookup capability consumed by the retriever. The
// vector index stores only identifiers and vectors; chunk text and document
// association live here, keyed by chunk ID, so there is a single source of
// truth for each.
//
// Lookups are served from memory. When a Mongo collection is attached,
// commits are written through (text gzip-compressed) and Rehydrate restores
// the map at startup, pairing with an index snapshot restore so a process
// restart needs no re-embedding. A nil collection gives a memory-only store,
// which is what tests use.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
	col    *mongo.Collection
}

type storedChunk struct {
	ChunkID     string    `bson:"chunk_id"`
	DocumentID  string    `bson:"document_id"`
	Order       int       `bson:"order"`
	WordStart   int       `bson:"word_start"`
	WordEnd     int       `bson:"word_end"`
	Text        []byte    `bson:"text"`
	Compression string    `bson:"compression"`
	CreatedAt   time.Time `bson:"created_at"`
}

// NewChunkStore creates a chunk store. col may be nil for a memory-only
// store.
func NewChunkStore(col *mongo.Collection) *ChunkStore {
	return &ChunkStore{chunks: make(map[string]models.Chunk), col: col}
}

// CommitDocument registers all of a document's chunks in one call. The
// durable write happens first; the in-memory map is updated afterwards under
// one lock, so the retriever sees either none or all of the document's
// chunks.
func (s *ChunkStore) CommitDocument(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if s.col != nil {
		docs := make([]interface{}, len(chunks))
		for i, ch := range chunks {
			compressed, algo, err := utils.CompressText(ch.Text)
			if err != nil {
				return fmt.Errorf("failed to compress chunk %s: %w", ch.ID, err)
			}
			docs[i] = storedChunk{
				ChunkID:     ch.ID,
				DocumentID:  ch.DocumentID,
				Order:       ch.Order,
				WordStart:   ch.WordStart,
				WordEnd:     ch.WordEnd,
				Text:        compressed,
				Compression: string(algo),
				CreatedAt:   time.Now(),
			}
		}
		if _, err := s.col.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to persist chunks: %w", err)
		}
	}

	s.mu.Lock()
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
	}
	s.mu.Unlock()
	return nil
}

// RemoveDocument deletes a document's chunks from memory and, when attached,
// from Mongo. Used only to roll back a failed ingestion; the base design is
// otherwise append-only.
func (s *ChunkStore) RemoveDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	for id, ch := range s.chunks {
		if ch.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	s.mu.Unlock()

	if s.col != nil {
		if _, err := s.col.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
			return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
		}
	}
	return nil
}

// Lookup resolves a chunk by its identifier.
func (s *ChunkStore) Lookup(chunkID string) (models.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[chunkID]
	return ch, ok
}

// Size returns the number of registered chunks.
func (s *ChunkStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Rehydrate loads every persisted chunk into memory. Called once at startup
// before the HTTP server accepts traffic.
func (s *ChunkStore) Rehydrate(ctx context.Context) error {
	if s.col == nil {
		return nil
	}
	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	defer cursor.Close(ctx)

	loaded := make(map[string]models.Chunk)
	for cursor.Next(ctx) {
		var sc storedChunk
		if err := cursor.Decode(&sc); err != nil {
			return fmt.Errorf("failed to decode stored chunk: %w", err)
		}
		text, err := utils.DecompressText(sc.Text, utils.CompressionAlgorithm(sc.Compression))
		if err != nil {
			return fmt.Errorf("failed to decompress chunk %s: %w", sc.ChunkID, err)
		}
		loaded[sc.ChunkID] = models.Chunk{
			ID:         sc.ChunkID,
			DocumentID: sc.DocumentID,
			Order:      sc.Order,
			WordStart:  sc.WordStart,
			WordEnd:    sc.WordEnd,
			Text:       text,
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("chunk cursor failed: %w", err)
	}

	s.mu.Lock()
	s.chunks = loaded
	s.mu.Unlock()
	return nil
}
