package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration signals bad chunk size or overlap parameters.
	ErrInvalidConfiguration = errors.New("invalid chunking configuration")

	// ErrDimensionMismatch signals a vector whose length disagrees with the
	// index dimension. Vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbedding wraps a failed embedding provider call. The engine never
	// retries; the caller owns retry policy.
	ErrEmbedding = errors.New("embedding provider failure")

	// ErrEmptyDocument signals that an ingested document contained no words.
	ErrEmptyDocument = errors.New("document contains no text")
)

// PartialIngestionError reports an ingestion that failed partway through a
// document's chunks. The pipeline rolls the document back, so the index never
// holds a partially searchable document; RolledBack tells the caller whether
// anything had been committed before the rollback.
type PartialIngestionError struct {
	DocumentID string
	Processed  int
	Total      int
	RolledBack bool
	Err        error
}

func (e *PartialIngestionError) Error() string {
	switch {
	case e.RolledBack:
		return fmt.Sprintf("ingestion of document %s failed after %d/%d chunks, rolled back: %v",
			e.DocumentID, e.Processed, e.Total, e.Err)
	case e.Processed > 0:
		return fmt.Sprintf("ingestion of document %s failed after %d/%d chunks, rollback failed: %v",
			e.DocumentID, e.Processed, e.Total, e.Err)
	default:
		return fmt.Sprintf("ingestion of document %s failed, zero chunks processed: %v",
			e.DocumentID, e.Err)
	}
}

func (e *PartialIngestionError) Unwrap() error { return e.Err }
