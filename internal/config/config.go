package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service    Service    `envconfig:"SERVICE"`
	ClickHouse ClickHouse `envconfig:"CLICKHOUSE"`
	Postgres   Postgres   `envconfig:"POSTGRES"`
	Redis      Redis      `envconfig:"REDIS"`
	SQS        SQS        `envconfig:"SQS"`
	Pipeline   Pipeline   `envconfig:"PIPELINE"`
	Analytics  Analytics  `envconfig:"ANALYTICS"`
	Replayer   Replayer   `envconfig:"REPLAYER"`
	Jobs       Jobs       `envconfig:"JOBS"`
}

type Service struct {
	Environment     string        `split_words:"true" required:"true"`
	APIPort         string        `split_words:"true" default:"8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	LogLevel        string        `split_words:"true" default:"info"`
}

type ClickHouse struct {
	Host               string `split_words:"true" required:"true"`
	Port               string `split_words:"true" required:"true"`
	Database           string `split_words:"true" required:"true"`
	User               string `split_words:"true" default:""`
	Password           string `split_words:"true" default:""`
	UseTLS             bool   `split_words:"true" default:"false"`
	MaxOpenConns       int    `split_words:"true" default:"5"`
	MaxIdleConns       int    `split_words:"true" default:"2"`
	ConnMaxLifetimeSec int    `split_words:"true" default:"3600"`
}

type Postgres struct {
	DSN      string `split_words:"true" required:"true"`
	MaxConns int32  `split_words:"true" default:"5"`
}

// Redis is optional; an empty Host disables result caching.
type Redis struct {
	Host     string        `split_words:"true" default:""`
	Port     string        `split_words:"true" default:"6379"`
	Password string        `split_words:"true" default:""`
	DB       int           `split_words:"true" default:"0"`
	CacheTTL time.Duration `split_words:"true" default:"5m"`
}

// SQS holds the dead-letter queue settings. An empty DeadLetterQueueURL
// disables dead-lettering and batches that exhaust retries are dropped.
type SQS struct {
	Endpoint           string `split_words:"true"`
	Region             string `split_words:"true" default:"eu-central-1"`
	DeadLetterQueueURL string `split_words:"true"`
}

type Pipeline struct {
	BatchSize         int           `split_words:"true" default:"100"`
	MaxBufferSize     int           `split_words:"true" default:"0"`
	FlushInterval     time.Duration `split_words:"true" default:"60s"`
	FlushTimeout      time.Duration `split_words:"true" default:"30s"`
	FlushMaxRetries   int           `split_words:"true" default:"3"`
	FlushRetryInitial time.Duration `split_words:"true" default:"10s"`
	FlushRetryMax     time.Duration `split_words:"true" default:"60s"`
	BreakerFailures   uint32        `split_words:"true" default:"5"`
	BreakerTimeout    time.Duration `split_words:"true" default:"30s"`
}

type Analytics struct {
	SinglePurchaseFrequency float64 `split_words:"true" default:"0.5"`
	ProjectionMonths        int     `split_words:"true" default:"24"`
	PowerUserMinEvents      int     `split_words:"true" default:"50"`
	PowerUserMinPurchases   int     `split_words:"true" default:"5"`
	PowerUserWindowDays     int     `split_words:"true" default:"30"`
}

type Replayer struct {
	BatchSizeMax    int    `split_words:"true" default:"500"`
	BatchTimeoutSec int    `split_words:"true" default:"10"`
	HealthCheckPort string `split_words:"true" default:"8081"`
}

type Jobs struct {
	RetentionDays       int           `split_words:"true" default:"90"`
	RetentionInterval   time.Duration `split_words:"true" default:"24h"`
	DailyReportInterval time.Duration `split_words:"true" default:"24h"`
	DailyReportTTL      time.Duration `split_words:"true" default:"168h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Pipeline.BatchSize <= 0 {
		return nil, fmt.Errorf("PIPELINE_BATCH_SIZE must be positive, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.MaxBufferSize != 0 && cfg.Pipeline.MaxBufferSize < cfg.Pipeline.BatchSize {
		return nil, fmt.Errorf("PIPELINE_MAX_BUFFER_SIZE (%d) must be 0 or at least PIPELINE_BATCH_SIZE (%d)",
			cfg.Pipeline.MaxBufferSize, cfg.Pipeline.BatchSize)
	}

	if cfg.Pipeline.FlushInterval <= 0 {
		return nil, fmt.Errorf("PIPELINE_FLUSH_INTERVAL must be positive, got %s", cfg.Pipeline.FlushInterval)
	}
	if cfg.Pipeline.FlushRetryInitial <= 0 || cfg.Pipeline.FlushRetryMax <= 0 {
		return nil, fmt.Errorf("PIPELINE_FLUSH_RETRY_INITIAL (%s) and PIPELINE_FLUSH_RETRY_MAX (%s) must be positive",
			cfg.Pipeline.FlushRetryInitial, cfg.Pipeline.FlushRetryMax)
	}

	return &cfg, nil
}
