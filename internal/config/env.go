package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	OllamaBaseURL     string
	OllamaTextModel   string
	OllamaVisionModel string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	MailUsername string
	MailPassword string
	MailFrom     string
	MailServer   string
	MailPort     int

	JWTSecret      string
	JWTExpiryHours int

	ChunkSize    int
	ChunkOverlap int
	EmbedBatch   int

	EnableVision   bool
	EnableGraphRAG bool

	IngestWorkers int
	Port          string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "studybuddy-docs"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 384),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),

		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaTextModel:   getEnv("OLLAMA_TEXT_MODEL", "llama3.2:1b"),
		OllamaVisionModel: getEnv("OLLAMA_VISION_MODEL", "moondream"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),

		MailUsername: getEnv("MAIL_USERNAME", ""),
		MailPassword: getEnv("MAIL_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@studybuddy.com"),
		MailServer:   getEnv("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:     getEnvInt("MAIL_PORT", 587),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 24),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),
		EmbedBatch:   getEnvInt("EMBED_BATCH", 16),

		EnableVision:   getEnvBool("ENABLE_VISION_ANALYSIS", true),
		EnableGraphRAG: getEnvBool("ENABLE_GRAPH_RAG", true),

		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),
		Port:          getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
