package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"rag-chatbot-backend/internal/engine"
	"rag-chatbot-backend/internal/logger"
	"rag-chatbot-backend/internal/telemetry"
	"rag-chatbot-backend/models"
	"rag-chatbot-backend/services"
)

const TaskIngestDocument = "document:ingest"

type IngestDocumentPayload struct {
	DocumentID string `json:"document_id"`
	SourceName string `json:"source_name"`
	FilePath   string `json:"file_path"`
}

// NewIngestDocumentTask builds the asynq task for background ingestion of an
// uploaded PDF. The document ID is assigned by the caller so the status
// record exists before the worker picks the task up.
func NewIngestDocumentTask(documentID, sourceName, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestDocumentPayload{
		DocumentID: documentID,
		SourceName: sourceName,
		FilePath:   filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles queued ingestion jobs. It runs inside the API
// process because the vector index lives in process memory.
type TaskProcessor struct {
	pipeline  *engine.IngestionPipeline
	extractor *services.PDFExtractor
	logs      *services.QueryLogService
	metrics   *telemetry.Metrics
}

func NewTaskProcessor(pipeline *engine.IngestionPipeline, extractor *services.PDFExtractor, logs *services.QueryLogService, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{
		pipeline:  pipeline,
		extractor: extractor,
		logs:      logs,
		metrics:   metrics,
	}
}

func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing queued ingestion", "document_id", payload.DocumentID, "source", payload.SourceName)
	start := time.Now()

	if err := p.logs.UpdateDocumentStatus(ctx, payload.DocumentID, models.IngestStatusProcessing, ""); err != nil {
		logger.Warn("Failed to mark document processing", "document_id", payload.DocumentID, "error", err)
	}

	extraction, err := p.extractor.ExtractText(ctx, payload.FilePath)
	if err != nil {
		p.fail(ctx, payload.DocumentID, err)
		// Unreadable files will not get better on retry.
		return fmt.Errorf("pdf extraction failed: %v: %w", err, asynq.SkipRetry)
	}

	res, err := p.pipeline.IngestWithID(ctx, payload.DocumentID, extraction.Text, payload.SourceName)
	if err != nil {
		p.fail(ctx, payload.DocumentID, err)
		p.metrics.RecordIngestion(time.Since(start).Seconds(), 0, "failed")

		if dirtyFailure(err) {
			return fmt.Errorf("ingestion failed without clean rollback: %v: %w", err, asynq.SkipRetry)
		}
		// Clean zero-commit failures (embedding outage, store down) are
		// worth retrying.
		return err
	}

	if err := p.logs.RecordDocument(ctx, models.DocumentLog{
		DocumentID: res.DocumentID,
		SourceName: payload.SourceName,
		ChunkCount: res.ChunkCount,
		WordCount:  res.WordCount,
		Status:     models.IngestStatusCompleted,
	}); err != nil {
		logger.Warn("Failed to record completed document", "document_id", res.DocumentID, "error", err)
	}

	p.metrics.RecordIngestion(time.Since(start).Seconds(), int64(res.ChunkCount), "completed")

	if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove processed upload", "path", payload.FilePath, "error", err)
	}

	logger.Info("Document ingested", "document_id", res.DocumentID, "chunks", res.ChunkCount, "words", res.WordCount)
	return nil
}

// dirtyFailure reports whether err left committed chunks behind that the
// rollback could not remove. Retrying such a task would duplicate chunks.
func dirtyFailure(err error) bool {
	var partial *engine.PartialIngestionError
	return errors.As(err, &partial) && partial.Processed > 0 && !partial.RolledBack
}

func (p *TaskProcessor) fail(ctx context.Context, documentID string, cause error) {
	if err := p.logs.UpdateDocumentStatus(ctx, documentID, models.IngestStatusFailed, cause.Error()); err != nil {
		logger.Warn("Failed to mark document failed", "document_id", documentID, "error", err)
	}
}
