package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins    []string
	MaxFileSize    int64
	FileStorageDir string

	// Redis (embedding cache + task queue broker)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Embeddings / generation
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	GenerationModel       string
	VectorDimensions      int
	EmbeddingCacheTTLMin  int

	// Retrieval engine
	ChunkSizeWords    int
	ChunkOverlapWords int
	RetrievalTopK     int
	ConfidenceFloor   float64

	// Index persistence + maintenance
	SnapshotPath            string
	SnapshotIntervalMinutes int
	LogRetentionDays        int

	// Async ingestion
	WorkerConcurrency int

	// Per-IP rate limiting
	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/rag_chatbot"),
		DBName:   getEnv("DB_NAME", "rag_chatbot"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins:    strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GenerationModel:       getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbeddingCacheTTLMin:  getEnvInt("EMBEDDING_CACHE_TTL_MINUTES", 1440),

		ChunkSizeWords:    getEnvInt("CHUNK_SIZE_WORDS", 500),
		ChunkOverlapWords: getEnvInt("CHUNK_OVERLAP_WORDS", 50),
		RetrievalTopK:     getEnvInt("RETRIEVAL_TOP_K", 3),
		ConfidenceFloor:   getEnvFloat64("CONFIDENCE_FLOOR", 0.3),

		SnapshotPath:            getEnv("SNAPSHOT_PATH", "./storage/index.snapshot"),
		SnapshotIntervalMinutes: getEnvInt("SNAPSHOT_INTERVAL_MINUTES", 15),
		LogRetentionDays:        getEnvInt("LOG_RETENTION_DAYS", 90),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 5),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	if cfg.ChunkOverlapWords >= cfg.ChunkSizeWords {
		return nil, fmt.Errorf("CHUNK_OVERLAP_WORDS (%d) must be smaller than CHUNK_SIZE_WORDS (%d)",
			cfg.ChunkOverlapWords, cfg.ChunkSizeWords)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
