package routes

import (
	"errors"
	"net/http"
	"strconv"

	"rag-chatbot-backend/internal/ai"
	"rag-chatbot-backend/internal/engine"
	"rag-chatbot-backend/internal/logger"
	"rag-chatbot-backend/internal/telemetry"
	"rag-chatbot-backend/models"
	"rag-chatbot-backend/services"
	"rag-chatbot-backend/utils"

	"github.com/gin-gonic/gin"
)

// HandleQuery answers a question over the ingested documents: retrieve the
// most relevant chunks, generate a grounded answer, log the interaction.
func HandleQuery(retriever *engine.Retriever, gemini *ai.GeminiClient, logs *services.QueryLogService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Request must include a question", err.Error())
			return
		}

		set, err := retriever.Retrieve(c.Request.Context(), req.Question, req.TopK)
		if err != nil {
			if errors.Is(err, engine.ErrEmbedding) {
				utils.RespondWithUpstreamError(c, "Embedding provider unavailable", err.Error())
				return
			}
			utils.RespondWithInternalError(c, "Retrieval failed", err.Error())
			return
		}

		contextChunks := make([]string, len(set.Results))
		var scoreSum float64
		for i, res := range set.Results {
			contextChunks[i] = res.Text
			scoreSum += res.Score
		}

		answer, err := gemini.GenerateAnswer(c.Request.Context(), req.Question, contextChunks)
		if err != nil {
			utils.RespondWithUpstreamError(c, "Answer generation failed", err.Error())
			return
		}

		avgScore := 0.0
		if len(set.Results) > 0 {
			avgScore = scoreSum / float64(len(set.Results))
		}

		entry := models.QueryLog{
			Question:      req.Question,
			Answer:        answer,
			TopScore:      set.TopScore,
			AvgScore:      avgScore,
			LowConfidence: set.LowConfidence,
			ChunksUsed:    len(set.Results),
		}
		if err := logs.LogQuery(c.Request.Context(), entry); err != nil {
			// Logging failure should not fail the answer.
			logger.Warn("Failed to log query", "error", err)
		}

		metrics.RecordQuery(set.TopScore, set.LowConfidence)

		c.JSON(http.StatusOK, models.QueryResponse{
			Answer:          answer,
			SimilarityScore: set.TopScore,
			LowConfidence:   set.LowConfidence,
			Sources:         set.Results,
		})
	}
}

// HandleHistory returns the most recent logged queries.
func HandleHistory(logs *services.QueryLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(10)
		if l, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64); err == nil && l > 0 && l <= 500 {
			limit = l
		}

		history, err := logs.ListQueries(c.Request.Context(), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve query history", err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"queries": history, "count": len(history)})
	}
}

// HandleHistoryExport streams the full query history as an xlsx workbook.
func HandleHistoryExport(logs *services.QueryLogService, exporter *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := logs.ListQueries(c.Request.Context(), 0)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve query history", err.Error())
			return
		}

		if err := exporter.StreamQueryHistory(c, history); err != nil {
			utils.RespondWithInternalError(c, "Failed to generate export", err.Error())
		}
	}
}

// HandleMetrics reports the similarity drift summary over all served
// queries. High averages mean questions match the corpus; low averages mean
// the corpus needs more documents.
func HandleMetrics(drift *engine.DriftAggregator, retriever *engine.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, ok := drift.Summary()
		if !ok {
			c.JSON(http.StatusOK, gin.H{
				"message": "No queries logged yet - upload some documents and ask questions!",
			})
			return
		}

		hint := "Consider adding more relevant documents"
		if summary.Mean > 0.5 {
			hint = "Good performance"
		}

		c.JSON(http.StatusOK, gin.H{
			"total_queries":    summary.Count,
			"avg_similarity":   summary.Mean,
			"min_similarity":   summary.Min,
			"max_similarity":   summary.Max,
			"similarity_std":   summary.StdDev,
			"confidence_floor": retriever.ConfidenceFloor(),
			"performance_hint": hint,
		})
	}
}
