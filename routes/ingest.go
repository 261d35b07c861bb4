package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rag-chatbot-backend/internal/config"
	"rag-chatbot-backend/internal/engine"
	"rag-chatbot-backend/internal/logger"
	"rag-chatbot-backend/internal/queue"
	"rag-chatbot-backend/internal/telemetry"
	"rag-chatbot-backend/models"
	"rag-chatbot-backend/services"
	"rag-chatbot-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
)

// IngestTextRequest is the JSON body for ingesting raw text directly.
type IngestTextRequest struct {
	Text       string `json:"text" binding:"required"`
	SourceName string `json:"source_name"`
}

// HandleIngest ingests a document synchronously. It accepts either a
// multipart PDF upload (form field "pdf") or a JSON body with raw text. The
// response is returned only after every chunk is searchable.
func HandleIngest(cfg *config.Config, pipeline *engine.IngestionPipeline, extractor *services.PDFExtractor, logs *services.QueryLogService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var text, sourceName string

		if strings.Contains(c.ContentType(), "application/json") {
			var req IngestTextRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				utils.RespondWithBadRequest(c, "Request must include text to ingest", err.Error())
				return
			}
			text = req.Text
			sourceName = req.SourceName
			if sourceName == "" {
				sourceName = "inline-text"
			}
		} else {
			filePath, filename, ok := savePDFUpload(c, cfg)
			if !ok {
				return
			}
			defer os.Remove(filePath)

			extraction, err := extractor.ExtractText(c.Request.Context(), filePath)
			if err != nil {
				utils.RespondWithUnprocessable(c, "No text could be extracted from the PDF. This might be a scanned PDF that requires OCR.", err.Error())
				return
			}
			text = extraction.Text
			sourceName = filename
		}

		res, err := pipeline.Ingest(c.Request.Context(), text, sourceName)
		if err != nil {
			respondIngestError(c, err)
			metrics.RecordIngestion(time.Since(start).Seconds(), 0, "failed")
			return
		}

		if err := logs.RecordDocument(c.Request.Context(), models.DocumentLog{
			DocumentID: res.DocumentID,
			SourceName: sourceName,
			ChunkCount: res.ChunkCount,
			WordCount:  res.WordCount,
			Status:     models.IngestStatusCompleted,
		}); err != nil {
			logger.Warn("Failed to record ingested document", "document_id", res.DocumentID, "error", err)
		}

		metrics.RecordIngestion(time.Since(start).Seconds(), int64(res.ChunkCount), "completed")

		c.JSON(http.StatusOK, gin.H{
			"message":     "Document processed and added to knowledge base successfully",
			"document_id": res.DocumentID,
			"source_name": sourceName,
			"num_chunks":  res.ChunkCount,
			"word_count":  res.WordCount,
		})
	}
}

// HandleAsyncIngest accepts a PDF upload, records a pending document, and
// queues the ingestion work. Clients poll the status endpoint.
func HandleAsyncIngest(cfg *config.Config, logs *services.QueryLogService, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filePath, filename, ok := savePDFUpload(c, cfg)
		if !ok {
			return
		}

		documentID := uuid.NewString()

		if err := logs.RecordDocument(c.Request.Context(), models.DocumentLog{
			DocumentID: documentID,
			SourceName: filename,
			Status:     models.IngestStatusPending,
		}); err != nil {
			os.Remove(filePath)
			utils.RespondWithInternalError(c, "Failed to create document record", err.Error())
			return
		}

		task, err := queue.NewIngestDocumentTask(documentID, filename, filePath)
		if err != nil {
			os.Remove(filePath)
			utils.RespondWithInternalError(c, "Failed to create ingestion task", err.Error())
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			os.Remove(filePath)
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", err.Error())
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message":     "PDF accepted for processing",
			"document_id": documentID,
			"task_id":     info.ID,
			"status":      models.IngestStatusPending,
			"source_name": filename,
		})
	}
}

// HandleIngestStatus reports the pipeline status of one document.
func HandleIngestStatus(logs *services.QueryLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID := c.Param("documentID")

		entry, err := logs.GetDocument(c.Request.Context(), documentID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document status", err.Error())
			return
		}

		c.JSON(http.StatusOK, entry)
	}
}

// HandleListDocuments lists every ingested document with chunk statistics.
func HandleListDocuments(logs *services.QueryLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := logs.ListDocuments(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve documents", err.Error())
			return
		}

		out := make([]gin.H, len(docs))
		for i, doc := range docs {
			avgChunkWords := 0
			if doc.ChunkCount > 0 {
				avgChunkWords = doc.WordCount / doc.ChunkCount
			}
			out[i] = gin.H{
				"document_id":     doc.DocumentID,
				"source_name":     doc.SourceName,
				"num_chunks":      doc.ChunkCount,
				"word_count":      doc.WordCount,
				"avg_chunk_words": avgChunkWords,
				"status":          doc.Status,
				"timestamp":       doc.Timestamp,
			}
		}

		c.JSON(http.StatusOK, gin.H{"documents": out, "count": len(out)})
	}
}

// savePDFUpload validates the multipart upload and writes it to the storage
// dir. It responds on failure and returns ok=false.
func savePDFUpload(c *gin.Context, cfg *config.Config) (filePath, filename string, ok bool) {
	if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
		return "", "", false
	}

	file, header, err := c.Request.FormFile("pdf")
	if err != nil {
		utils.RespondWithBadRequest(c, "No PDF file provided", nil)
		return "", "", false
	}
	defer file.Close()

	ct := header.Header.Get("Content-Type")
	if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		utils.RespondWithBadRequest(c, "Only PDF files are supported. Please upload a .pdf file.", nil)
		return "", "", false
	}

	if header.Size > cfg.MaxFileSize {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
		return "", "", false
	}

	headerBuf := make([]byte, 5)
	if _, err := io.ReadFull(file, headerBuf); err != nil || string(headerBuf[:4]) != "%PDF" {
		utils.RespondWithBadRequest(c, "File does not appear to be a valid PDF", nil)
		return "", "", false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		utils.RespondWithInternalError(c, "Failed to reset file for saving", nil)
		return "", "", false
	}

	uploadDir := filepath.Join(cfg.FileStorageDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		utils.RespondWithInternalError(c, "Failed to create upload directory", nil)
		return "", "", false
	}

	filePath = filepath.Join(uploadDir, fmt.Sprintf("%s.pdf", uuid.NewString()))
	dst, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to open destination", nil)
		return "", "", false
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, cfg.MaxFileSize)); err != nil {
		os.Remove(filePath)
		utils.RespondWithInternalError(c, "Failed to save file", nil)
		return "", "", false
	}

	return filePath, header.Filename, true
}

func respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyDocument):
		utils.RespondWithUnprocessable(c, "Document contains no text", err.Error())
	case errors.Is(err, engine.ErrEmbedding):
		utils.RespondWithUpstreamError(c, "Embedding provider unavailable", err.Error())
	default:
		utils.RespondWithInternalError(c, "Document processing failed", err.Error())
	}
}
