package models

// RetrievalResult is one ranked chunk returned by the retriever.
type RetrievalResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// RetrievalSet is the ordered result of a retrieval, highest score first.
// LowConfidence is set when no chunk cleared the configured confidence
// floor; the results are still returned so the caller can decide how to
// frame the answer.
type RetrievalSet struct {
	Results       []RetrievalResult `json:"results"`
	TopScore      float64           `json:"top_score"`
	LowConfidence bool              `json:"low_confidence"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Answer          string            `json:"answer"`
	SimilarityScore float64           `json:"similarity_score"`
	LowConfidence   bool              `json:"low_confidence"`
	Sources         []RetrievalResult `json:"sources"`
}
