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

	// Redis Configuration (run locks and the task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Qdrant vector index
	QdrantHost string
	QdrantPort int
	IndexName  string

	// Embeddings configuration
	GeminiAPIKey          string
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	VectorDimensions      int
	EmbeddingsRPM         int

	// Ingestion
	DatasetName       string
	MaxChunkSize      int
	WorkerConcurrency int
	IngestBatchSize   int
	ContentDir        string
	CrawlURL          string
	CrawlMaxPages     int
	CrawlSchedule     string
	RunLockTTL        int // seconds

	// Retrieval
	MinScore float64

	// HTTP surface
	Port        string
	GinMode     string
	CORSOrigins []string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/news_archive"),
		DBName:   getEnv("DB_NAME", "news_archive"),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Qdrant
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),
		IndexName:  getEnv("VECTOR_INDEX_NAME", "web_index"),

		// Embeddings
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbeddingsRPM:         getEnvInt("EMBEDDINGS_RPM", 100),

		// Ingestion
		DatasetName:       getEnv("DATASET_NAME", "news"),
		MaxChunkSize:      getEnvInt("MAX_CHUNK_SIZE", 250),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 8),
		IngestBatchSize:   getEnvInt("INGEST_BATCH_SIZE", 10),
		ContentDir:        getEnv("CONTENT_DIR", "./files"),
		CrawlURL:          getEnv("CRAWL_URL", ""),
		CrawlMaxPages:     getEnvInt("CRAWL_MAX_PAGES", 500),
		CrawlSchedule:     getEnv("CRAWL_SCHEDULE", "0 3 * * *"),
		RunLockTTL:        getEnvInt("RUN_LOCK_TTL", 3600),

		// Retrieval
		MinScore: getEnvFloat64("MIN_SCORE", 0.5),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
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

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
