package services

import (
	"context"
	"fmt"
	"time"

	"rag-chatbot-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueryLogService persists the query and document audit trail in MongoDB.
type QueryLogService struct {
	queryLogs    *mongo.Collection
	documentLogs *mongo.Collection
}

func NewQueryLogService(queryLogs, documentLogs *mongo.Collection) *QueryLogService {
	return &QueryLogService{
		queryLogs:    queryLogs,
		documentLogs: documentLogs,
	}
}

// LogQuery records one answered query.
func (s *QueryLogService) LogQuery(ctx context.Context, entry models.QueryLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.queryLogs.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}

// ListQueries returns the most recent query logs, newest first.
func (s *QueryLogService) ListQueries(ctx context.Context, limit int64) ([]models.QueryLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.queryLogs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch query logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.QueryLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode query logs: %w", err)
	}
	if logs == nil {
		logs = []models.QueryLog{}
	}
	return logs, nil
}

// RecordDocument upserts the ingestion record for a document.
func (s *QueryLogService) RecordDocument(ctx context.Context, entry models.DocumentLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.documentLogs.UpdateOne(
		ctx,
		bson.M{"document_id": entry.DocumentID},
		bson.M{"$set": bson.M{
			"source_name":   entry.SourceName,
			"chunk_count":   entry.ChunkCount,
			"word_count":    entry.WordCount,
			"status":        entry.Status,
			"error_message": entry.ErrorMessage,
			"timestamp":     entry.Timestamp,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document log: %w", err)
	}
	return nil
}

// UpdateDocumentStatus moves a document record to a new ingestion status.
func (s *QueryLogService) UpdateDocumentStatus(ctx context.Context, documentID, status, errorMessage string) error {
	_, err := s.documentLogs.UpdateOne(
		ctx,
		bson.M{"document_id": documentID},
		bson.M{"$set": bson.M{
			"status":        status,
			"error_message": errorMessage,
			"timestamp":     time.Now().UTC(),
		}},
	)
	return err
}

// GetDocument returns the ingestion record for one document.
func (s *QueryLogService) GetDocument(ctx context.Context, documentID string) (*models.DocumentLog, error) {
	var entry models.DocumentLog
	err := s.documentLogs.FindOne(ctx, bson.M{"document_id": documentID}).Decode(&entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListDocuments returns all ingested document records, newest first.
func (s *QueryLogService) ListDocuments(ctx context.Context) ([]models.DocumentLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.documentLogs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.DocumentLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode document logs: %w", err)
	}
	if logs == nil {
		logs = []models.DocumentLog{}
	}
	return logs, nil
}

// PurgeQueriesBefore deletes query logs older than the cutoff. Returns the
// number of removed records.
func (s *QueryLogService) PurgeQueriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.queryLogs.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge query logs: %w", err)
	}
	return res.DeletedCount, nil
}
