package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug bool `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// Preferred object storage provider; falls back to the local
	// filesystem when S3 credentials are missing or unreachable.
	StorageProvider string `envconfig:"STORAGE_PROVIDER" default:"s3"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"skillforge-knowledge"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Filesystem provider settings
	StorageDir     string `envconfig:"STORAGE_DIR" default:"./data/storage"`
	StorageBaseURL string `envconfig:"STORAGE_BASE_URL" default:"http://localhost:8080/blobs"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	ProcessPollInterval time.Duration `envconfig:"PROCESS_POLL_INTERVAL" default:"5s"`
	SyncPollInterval    time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"10s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SKILLFORGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
