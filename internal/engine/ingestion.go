package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-chatbot-backend/models"
)

// IngestionPipeline composes the chunker, the embedding provider, the chunk
// store, and the vector index to add a document. Ingestion is atomic per
// document: either every chunk becomes searchable or none does.
type IngestionPipeline struct {
	chunker  *Chunker
	embedder EmbeddingProvider
	index    *VectorIndex
	chunks   *ChunkStore
}

func NewIngestionPipeline(chunker *Chunker, embedder EmbeddingProvider, index *VectorIndex, chunks *ChunkStore) *IngestionPipeline {
	return &IngestionPipeline{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		chunks:   chunks,
	}
}

// Ingest chunks the text, embeds every chunk, registers the chunks in the
// lookup store, and commits all vectors to the index in one batch.
//
// All embedding happens before anything is committed, so an embedding
// failure leaves both index and store untouched (zero chunks processed).
// The chunk store is committed before the index: the index batch commit is
// the reader-visible point at which the document becomes searchable, and by
// then every chunk ID already resolves. If the index commit fails, the store
// write is rolled back and the caller gets a *PartialIngestionError saying
// so.
func (p *IngestionPipeline) Ingest(ctx context.Context, text, sourceName string) (*models.IngestResult, error) {
	return p.IngestWithID(ctx, uuid.NewString(), text, sourceName)
}

// IngestWithID ingests under a caller-assigned document ID. Asynchronous
// ingestion assigns the ID at enqueue time so status records can be written
// before the work runs.
func (p *IngestionPipeline) IngestWithID(ctx context.Context, docID, text, sourceName string) (*models.IngestResult, error) {
	wordCount := len(strings.Fields(text))
	if wordCount == 0 {
		return nil, fmt.Errorf("%w: source %q", ErrEmptyDocument, sourceName)
	}

	chunks := p.chunker.Chunk(docID, text)

	entries := make([]IndexEntry, len(chunks))
	for i, ch := range chunks {
		vec, err := p.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return nil, &PartialIngestionError{
				DocumentID: docID,
				Processed:  0,
				Total:      len(chunks),
				RolledBack: false,
				Err:        fmt.Errorf("%w: chunk %d: %v", ErrEmbedding, i, err),
			}
		}
		entries[i] = IndexEntry{ChunkID: ch.ID, Vector: vec}
	}

	if err := p.chunks.CommitDocument(ctx, chunks); err != nil {
		return nil, &PartialIngestionError{
			DocumentID: docID,
			Processed:  0,
			Total:      len(chunks),
			RolledBack: false,
			Err:        err,
		}
	}

	if err := p.index.AddBatch(entries); err != nil {
		// AddBatch is all-or-nothing, so only the store write needs undoing.
		rollbackErr := p.chunks.RemoveDocument(ctx, docID)
		ingErr := &PartialIngestionError{
			DocumentID: docID,
			Processed:  len(chunks),
			Total:      len(chunks),
			RolledBack: rollbackErr == nil,
			Err:        err,
		}
		if rollbackErr != nil {
			ingErr.Err = fmt.Errorf("%v (rollback also failed: %v)", err, rollbackErr)
		}
		return nil, ingErr
	}

	return &models.IngestResult{
		DocumentID: docID,
		ChunkCount: len(chunks),
		WordCount:  wordCount,
	}, nil
}

// NewDocument builds the immutable document record for an ingest result.
func NewDocument(res *models.IngestResult, sourceName string) models.Document {
	return models.Document{
		ID:         res.DocumentID,
		SourceName: sourceName,
		WordCount:  res.WordCount,
		ChunkCount: res.ChunkCount,
		CreatedAt:  time.Now(),
	}
}
