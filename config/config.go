package config

import (
	"errors"
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

type AWSConfig struct {
	Region    string `env:"AWS_REGION,default=us-east-1"`
	AccountID string `env:"AWS_ACCOUNT_ID"`
	Endpoint  string `env:"AWS_ENDPOINT_URL"` // set for localstack, empty in prod
}

func (c AWSConfig) Validate() error {
	if c.Region == "" {
		return errors.New("AWS_REGION must be set")
	}
	return nil
}

type DynamoDBConfig struct {
	FilesTableName string `env:"DYNAMODB_FILES_TABLE,default=stored-files"`
}

type RedisConfig struct {
	Host string `env:"REDIS_HOST,default=localhost:6379"`
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET,default=lightgrid-uploads"`
}

type ServiceConfig struct {
	HTTPAddr string `env:"UPLOADS_HTTP_ADDR,default=:8083"`

	ChunkSizeBytes   int64 `env:"UPLOAD_CHUNK_SIZE,default=5242880"` // 5 MB
	SessionTTLMin    int   `env:"UPLOAD_SESSION_TTL_MINUTES,default=120"`
	SweepIntervalSec int   `env:"UPLOAD_SWEEP_INTERVAL_SECONDS,default=300"`

	AuditQueueName string `env:"UPLOADS_AUDIT_QUEUE_NAME,default=uploads-audit"`
}

func (c ServiceConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

func (c ServiceConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

type Config struct {
	Env         string `env:"APP_ENV,default=development"`
	Tracing     bool   `env:"TRACING_ENABLED,default=false"`
	TracingAddr string `env:"TRACING_ADDR,default=localhost:4318"`

	AWSConfig      *AWSConfig
	DynamoDBConfig *DynamoDBConfig
	RedisConfig    *RedisConfig
	S3Config       *S3Config
	ServiceConfig  *ServiceConfig

	Extras env.EnvSet
}

// LoadConfig reads configuration from the process environment. Defaults
// are development-friendly; production deployments override via env.
func LoadConfig() Config {
	cfg := Config{
		AWSConfig:      &AWSConfig{},
		DynamoDBConfig: &DynamoDBConfig{},
		RedisConfig:    &RedisConfig{},
		S3Config:       &S3Config{},
		ServiceConfig:  &ServiceConfig{},
	}

	for _, target := range []any{
		&cfg, cfg.AWSConfig, cfg.DynamoDBConfig, cfg.RedisConfig, cfg.S3Config, cfg.ServiceConfig,
	} {
		if _, err := env.UnmarshalFromEnviron(target); err != nil {
			panic(fmt.Sprintf("config: %v", err))
		}
	}

	return cfg
}
