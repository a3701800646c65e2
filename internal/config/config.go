package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/askbase/knowledge-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Vector store configuration
	QdrantCfg QdrantConfig `envPrefix:"QDRANT_"`

	// Model provider configuration
	ProviderCfg ProviderConfig `envPrefix:"PROVIDER_"`

	// External service configurations
	TranscribeConnectorCfg TranscribeConnectorConfig `envPrefix:"TRANSCRIBE_"`
	AuthConnectorCfg       AuthConnectorConfig       `envPrefix:"AUTH_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS,notEmpty"`

	// Environment (set from flag, not from env var)
	Environment string
}

// QdrantConfig points at the vector store and names the collection that
// holds every ingested chunk.
type QdrantConfig struct {
	Host       string `env:"HOST,notEmpty"`
	Port       int    `env:"PORT" envDefault:"6334"`
	Collection string `env:"COLLECTION" envDefault:"knowledge_chunks"`
	VectorSize int    `env:"VECTOR_SIZE" envDefault:"1536"`
}

// ProviderConfig selects the model provider and carries the server-funded
// key. An empty ServerKey disables the credits tier of the credential
// waterfall.
type ProviderConfig struct {
	Name            string        `env:"NAME" envDefault:"openai"` // openai or anthropic
	ServerKey       string        `env:"SERVER_KEY"`
	BaseURL         string        `env:"BASE_URL"`
	EmbeddingModel  string        `env:"EMBEDDING_MODEL"`
	CompletionModel string        `env:"COMPLETION_MODEL"`
	RequestTimeout  time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type TranscribeConnectorConfig struct {
	HTTPClientConfig
	TranscribeEndpoint string               `env:"TRANSCRIBE_ENDPOINT,notEmpty"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type AuthConnectorConfig struct {
	HTTPClientConfig
	VerifyEndpoint string `env:"VERIFY_ENDPOINT,notEmpty"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT,notEmpty"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT,notEmpty"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE,notEmpty"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT,notEmpty"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT,notEmpty"`
	Token                 string        `env:"TOKEN"`
	URL                   string        `env:"SERVICE_URL,notEmpty"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize      int64 `env:"MAX_FILE_SIZE,notEmpty"`       // 5 MiB
	MaxAudioFileSize int64 `env:"MAX_AUDIO_FILE_SIZE,notEmpty"` // 25 MiB
	MaxUploadSize    int64 `env:"MAX_UPLOAD_SIZE,notEmpty"`     // 32 MB
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}

	switch cfg.ProviderCfg.Name {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("PROVIDER_NAME must be openai or anthropic, got %q", cfg.ProviderCfg.Name)
	}

	if cfg.QdrantCfg.VectorSize < 1 {
		return fmt.Errorf("QDRANT_VECTOR_SIZE must be positive, got %d", cfg.QdrantCfg.VectorSize)
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
