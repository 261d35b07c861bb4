package engine

import (
	"fmt"
	"strings"

	"rag-chatbot-backend/models"
)

// Chunker splits document text into overlapping fixed-size word windows.
// Splitting operates on whitespace-delimited words, not bytes or sentences;
// that trades linguistic correctness for determinism.
type Chunker struct {
	chunkSize int // words per chunk
	overlap   int // words shared with the next chunk
}

// NewChunker validates the window parameters. Overlap may be zero but must
// stay strictly below the chunk size, otherwise the stride collapses.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", ErrInvalidConfiguration, chunkSize, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into windows of chunkSize words, each starting
// chunkSize-overlap words after the previous one. The final chunk may be
// shorter and is still emitted as long as it extends past the previous
// chunk's overlap region, so a document of W words yields
// ceil((W-overlap)/(chunkSize-overlap)) chunks, or one chunk when W fits a
// single window. Empty text yields no chunks and no error.
//
// Chunk IDs are "<documentID>_<ordinal>".
func (c *Chunker) Chunk(documentID, text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	var chunks []models.Chunk
	for start := 0; start == 0 || start+c.overlap < len(words); start += stride {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		order := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_%d", documentID, order),
			DocumentID: documentID,
			Order:      order,
			WordStart:  start,
			WordEnd:    end,
			Text:       strings.Join(words[start:end], " "),
		})
	}
	return chunks
}

// ChunkSize returns the configured window size in words.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in words.
func (c *Chunker) Overlap() int { return c.overlap }
