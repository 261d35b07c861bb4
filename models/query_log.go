package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueryLog records one served query for analytics and drift debugging.
type QueryLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Question      string             `bson:"question" json:"question"`
	Answer        string             `bson:"answer" json:"answer"`
	TopScore      float64            `bson:"top_score" json:"top_score"`
	AvgScore      float64            `bson:"avg_score" json:"avg_score"`
	LowConfidence bool               `bson:"low_confidence" json:"low_confidence"`
	ChunksUsed    int                `bson:"chunks_used" json:"chunks_used"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}

// DocumentLog records one ingested document and its pipeline status.
type DocumentLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID   string             `bson:"document_id" json:"document_id"`
	SourceName   string             `bson:"source_name" json:"source_name"`
	ChunkCount   int                `bson:"chunk_count" json:"chunk_count"`
	WordCount    int                `bson:"word_count" json:"word_count"`
	Status       string             `bson:"status" json:"status"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}
