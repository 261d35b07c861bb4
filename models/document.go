package models

import "time"

// Document is a unit of ingested text. Once chunked it is immutable;
// re-ingesting the same source produces a new document with a new ID.
type Document struct {
	ID         string    `bson:"_id" json:"id"`
	SourceName string    `bson:"source_name" json:"source_name"`
	WordCount  int       `bson:"word_count" json:"word_count"`
	ChunkCount int       `bson:"chunk_count" json:"chunk_count"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Chunk is an overlapping window over a document's word sequence.
// WordStart/WordEnd form the half-open span [start, end) in words.
type Chunk struct {
	ID         string `bson:"chunk_id" json:"chunk_id"`
	DocumentID string `bson:"document_id" json:"document_id"`
	Order      int    `bson:"order" json:"order"`
	WordStart  int    `bson:"word_start" json:"word_start"`
	WordEnd    int    `bson:"word_end" json:"word_end"`
	Text       string `bson:"text" json:"text"`
}

// IngestResult summarizes a completed document ingestion.
type IngestResult struct {
	DocumentID string `json:"doc_id"`
	ChunkCount int    `json:"chunk_count"`
	WordCount  int    `json:"word_count"`
}

// Ingestion status constants used by the async pipeline.
const (
	IngestStatusPending    = "pending"
	IngestStatusProcessing = "processing"
	IngestStatusCompleted  = "completed"
	IngestStatusFailed     = "failed"
)
