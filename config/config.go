package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Mongo     MongoConfig     `json:"mongo"`
	Redis     RedisConfig     `json:"redis"`
	Qdrant    QdrantConfig    `json:"qdrant"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Anthropic AnthropicConfig `json:"anthropic"`
	Groq      GroqConfig      `json:"groq"`
	AWS       AWSConfig       `json:"aws"`
	Auth      AuthConfig      `json:"auth"`
	Fetcher   FetcherConfig   `json:"fetcher"`
	Chunker   ChunkerConfig   `json:"chunker"`
	Chat      ChatConfig      `json:"chat"`
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
}

type MongoConfig struct {
	URI           string `json:"uri"`
	DBName        string `json:"db_name"`
	CreateIndexes bool   `json:"create_indexes"`
}

// RedisConfig holds configuration for the owner cache and visitor registry.
type RedisConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	OwnerCacheTTL int    `json:"owner_cache_ttl"` // seconds
}

type QdrantConfig struct {
	Host              string `json:"host"`
	Port              int    `json:"port"`
	APIKey            string `json:"api_key"`
	UseTLS            bool   `json:"use_tls"`
	CreateCollections bool   `json:"create_collections"`
}

type OpenAIConfig struct {
	APIKey              string `json:"api_key"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	MetadataModel       string `json:"metadata_model"`
	EnhancerModel       string `json:"enhancer_model"`
}

type AnthropicConfig struct {
	APIKey string `json:"api_key"`
}

// GroqConfig points the OpenAI-compatible client at Groq's endpoint for the
// open-weight models.
type GroqConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type AWSConfig struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	S3Bucket        string `json:"s3_bucket"`
	CDNBaseURL      string `json:"cdn_base_url"`
}

type AuthConfig struct {
	JWTSecret          string   `json:"jwt_secret"`
	ApplicationPasskey string   `json:"application_passkey"`
	AllowedOrigins     []string `json:"allowed_origins"`
}

type FetcherConfig struct {
	Concurrency    int      `json:"concurrency"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	BlockedDomains []string `json:"blocked_domains"`
}

type ChunkerConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type ChatConfig struct {
	HistoryLimit    int    `json:"history_limit"`
	MaxHistoryLimit int    `json:"max_history_limit"`
	DefaultModel    string `json:"default_model"`
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments inject the environment directly.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:        getEnv("HOST", "0.0.0.0"),
			Port:        getEnvAsInt("PORT", 8000),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Mongo: MongoConfig{
			URI:           getEnv("MONGO_URI", ""),
			DBName:        getEnv("MONGO_DB_NAME", "elysium"),
			CreateIndexes: getEnvAsBool("CREATE_INDEXES", false),
		},
		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnvAsInt("REDIS_PORT", 6379),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			OwnerCacheTTL: getEnvAsInt("REDIS_OWNER_CACHE_TTL", 259200), // 72 hours
		},
		Qdrant: QdrantConfig{
			Host:              getEnv("QDRANT_CLUSTER_ENDPOINT", "localhost"),
			Port:              getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:            getEnv("QDRANT_API_KEY", ""),
			UseTLS:            getEnvAsBool("QDRANT_USE_TLS", true),
			CreateCollections: getEnvAsBool("CREATE_COLLECTIONS", false),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			MetadataModel:       getEnv("OPENAI_METADATA_MODEL", "gpt-4.1-nano"),
			EnhancerModel:       getEnv("OPENAI_ENHANCER_MODEL", "gpt-4.1-nano"),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
		},
		Groq: GroqConfig{
			APIKey:  getEnv("GROQ_API_KEY", ""),
			BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		},
		AWS: AWSConfig{
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
			CDNBaseURL:      getEnv("AWS_CDN_BASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			ApplicationPasskey: getEnv("APPLICATION_PASSKEY", ""),
			AllowedOrigins:     getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		Fetcher: FetcherConfig{
			Concurrency:    getEnvAsInt("FETCHER_CONCURRENCY", 5),
			TimeoutSeconds: getEnvAsInt("FETCHER_TIMEOUT_SECONDS", 60),
			BlockedDomains: getEnvAsSlice("FETCHER_BLOCKED_DOMAINS", nil),
		},
		Chunker: ChunkerConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Chat: ChatConfig{
			HistoryLimit:    getEnvAsInt("CHAT_HISTORY_LIMIT", 10),
			MaxHistoryLimit: getEnvAsInt("CHAT_MAX_HISTORY_LIMIT", 50),
			DefaultModel:    getEnv("CHAT_DEFAULT_MODEL", "gpt-4o-mini"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func validateConfig(config *Config) error {
	if config.Mongo.URI == "" {
		return fmt.Errorf("mongo URI is required (MONGO_URI)")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (JWT_SECRET)")
	}

	if config.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (OPENAI_API_KEY)")
	}

	if config.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive (CHUNK_SIZE)")
	}

	if config.Fetcher.Concurrency <= 0 {
		return fmt.Errorf("fetcher concurrency must be positive (FETCHER_CONCURRENCY)")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
