package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"rag-chatbot-backend/internal/config"
	"rag-chatbot-backend/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

// GeminiEmbedder produces embedding vectors via Google Generative AI
// (text-embedding-004 by default). Vectors are cached in Redis keyed by
// a hash of the model name and the input text, so re-ingesting the same
// chunk or repeating a query does not burn API quota.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	cache     *redis.Client
	cacheTTL  time.Duration
}

// NewGeminiEmbedder creates an embedder. The Redis client is optional;
// pass nil to disable caching.
func NewGeminiEmbedder(ctx context.Context, cfg *config.Config, cache *redis.Client) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiEmbedder{
		client:    client,
		model:     cfg.GoogleEmbeddingsModel,
		dimension: cfg.VectorDimensions,
		cache:     cache,
		cacheTTL:  time.Duration(cfg.EmbeddingCacheTTLMin) * time.Minute,
	}, nil
}

// Dimension returns the width of the vectors this embedder produces.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the embedding vector for text, consulting the cache first.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)

	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, key).Bytes(); err == nil {
			var vector []float32
			if err := json.Unmarshal(cached, &vector); err == nil && len(vector) == e.dimension {
				return vector, nil
			}
			// Corrupt or stale entry, fall through to the API
			e.cache.Del(ctx, key)
		}
	}

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vector := resp.Embedding.Values
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("embedding model returned %d dimensions, expected %d", len(vector), e.dimension)
	}

	if e.cache != nil {
		if data, err := json.Marshal(vector); err == nil {
			if err := e.cache.Set(ctx, key, data, e.cacheTTL).Err(); err != nil {
				logger.Warn("Failed to cache embedding", "error", err)
			}
		}
	}

	return vector, nil
}

func (e *GeminiEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(e.model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(h[:])
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
