package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store driver names accepted by STORE_DRIVER.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Queue  QueueConfig
	Auth   AuthConfig
	LLM    LLMConfig
	Search SearchConfig
	Chunk  ChunkConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// StoreConfig selects and configures the key-value substrate that
// document, chunk, and stats records live in.
type StoreConfig struct {
	Driver string

	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// QueueConfig points at the Redis instance backing the background task
// queue. It is separate from StoreConfig so the queue can live on a
// different Redis than a redis-driver record store.
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type AuthConfig struct {
	JWTSecret string
	// DevUserID, when set with no JWT secret, attributes every request
	// to a fixed user. Local development only.
	DevUserID string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
}

// SearchConfig holds the defaults applied when a search request omits
// its options.
type SearchConfig struct {
	DefaultLimit     int
	DefaultThreshold float64
}

// ChunkConfig holds the defaults for server-side chunking of uploaded
// files.
type ChunkConfig struct {
	Size     int
	Overlap  int
	Strategy string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	storeRedisDB, err := getEnvInt("STORE_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_REDIS_DB: %w", err)
	}

	queueRedisDB, err := getEnvInt("QUEUE_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	searchLimit, err := getEnvInt("SEARCH_DEFAULT_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_DEFAULT_LIMIT: %w", err)
	}

	searchThreshold, err := getEnvFloat("SEARCH_DEFAULT_THRESHOLD", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_DEFAULT_THRESHOLD: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Store: StoreConfig{
			Driver:           getEnv("STORE_DRIVER", StoreDriverMemory),
			PostgresURL:      getEnv("DATABASE_URL", ""),
			PostgresMaxConns: maxConns,
			PostgresMinConns: minConns,
			RedisAddr:        getEnv("STORE_REDIS_ADDR", "localhost:6379"),
			RedisPassword:    getEnv("STORE_REDIS_PASSWORD", ""),
			RedisDB:          storeRedisDB,
			RedisKeyPrefix:   getEnv("STORE_REDIS_KEY_PREFIX", "rag:"),
			MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:    getEnv("MONGO_DATABASE", "ragengine"),
			MongoCollection:  getEnv("MONGO_COLLECTION", "records"),
		},
		Queue: QueueConfig{
			RedisAddr:     getEnv("QUEUE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("QUEUE_REDIS_PASSWORD", ""),
			RedisDB:       queueRedisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			DevUserID: getEnv("DEV_USER_ID", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
		},
		Search: SearchConfig{
			DefaultLimit:     searchLimit,
			DefaultThreshold: searchThreshold,
		},
		Chunk: ChunkConfig{
			Size:     chunkSize,
			Overlap:  chunkOverlap,
			Strategy: getEnv("CHUNK_STRATEGY", "recursive"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverRedis, StoreDriverMongo:
	case StoreDriverPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" && c.Auth.DevUserID == "" {
		return fmt.Errorf("either JWT_SECRET or DEV_USER_ID must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
