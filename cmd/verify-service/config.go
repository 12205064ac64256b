package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codehosp/internal/common/cache"
	"codehosp/internal/common/db"
	"codehosp/internal/common/mq"
	"codehosp/internal/common/storage"
	studycache "codehosp/internal/study/cache"
	"codehosp/internal/verify"
	"codehosp/internal/verify/comparator"
	"codehosp/internal/verify/comparator/semantic"
	"codehosp/internal/verify/sandbox"
	"codehosp/internal/verify/sandbox/local"
	"codehosp/internal/verify/sandbox/piston"
	"codehosp/pkg/utils/logger"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultTaskTopic   = "verify.tasks"
	defaultResultTopic = "verify.results"

	defaultStatusTTL     = 24 * time.Hour
	defaultStatusTimeout = 5 * time.Second
	defaultStudyCacheTTL = 10 * time.Minute
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ClientID      string        `yaml:"clientID"`
	MinBytes      int           `yaml:"minBytes"`
	MaxBytes      int           `yaml:"maxBytes"`
	MaxWait       time.Duration `yaml:"maxWait"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	RequiredAcks  int           `yaml:"requiredAcks"`
	Compression   string        `yaml:"compression"`
	TaskTopic     string        `yaml:"taskTopic"`
	ResultTopic   string        `yaml:"resultTopic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Concurrency   int           `yaml:"concurrency"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	DeadLetter    string        `yaml:"deadLetterTopic"`
	MessageTTL    time.Duration `yaml:"messageTTL"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	PoolSize int `yaml:"poolSize"`
}

// StatusConfig holds verification status persistence settings.
type StatusConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Timeout time.Duration `yaml:"timeout"`
}

// StudyConfig holds study repository settings.
type StudyConfig struct {
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ExecutorConfig selects and configures the execution backend.
type ExecutorConfig struct {
	Backend string        `yaml:"backend"` // piston or local
	Piston  piston.Config `yaml:"piston"`
	Local   local.Config  `yaml:"local"`
}

// ComparatorConfig selects and configures the comparison strategy.
type ComparatorConfig struct {
	Strategy   string                `yaml:"strategy"` // token or semantic
	Thresholds comparator.Thresholds `yaml:"thresholds"`
	Semantic   semantic.Config       `yaml:"semantic"`
}

// VerifierConfig holds orchestrator settings.
type VerifierConfig struct {
	// LenientStderr keeps executions that produced stdout alive even
	// when stderr is non-empty.
	LenientStderr  bool `yaml:"lenientStderr"`
	MaxStderrBytes int  `yaml:"maxStderrBytes"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// AppConfig holds verify-service config.
type AppConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Logger     logger.Config       `yaml:"logger"`
	Kafka      KafkaConfig         `yaml:"kafka"`
	Database   db.MySQLConfig      `yaml:"database"`
	Redis      cache.RedisConfig   `yaml:"redis"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Artifacts  studycache.Config   `yaml:"artifacts"`
	Executor   ExecutorConfig      `yaml:"executor"`
	Comparator ComparatorConfig    `yaml:"comparator"`
	Verifier   VerifierConfig      `yaml:"verifier"`
	Worker     WorkerConfig        `yaml:"worker"`
	Status     StatusConfig        `yaml:"status"`
	Study      StudyConfig         `yaml:"study"`
	Auth       AuthConfig          `yaml:"auth"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	applyRedisDefaults(&cfg.Redis)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Kafka.TaskTopic == "" {
		cfg.Kafka.TaskTopic = defaultTaskTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = defaultResultTopic
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 1
	}
	if cfg.Status.TTL == 0 {
		cfg.Status.TTL = defaultStatusTTL
	}
	if cfg.Status.Timeout == 0 {
		cfg.Status.Timeout = defaultStatusTimeout
	}
	if cfg.Study.CacheTTL == 0 {
		cfg.Study.CacheTTL = defaultStudyCacheTTL
	}
	if cfg.Artifacts.Bucket == "" {
		cfg.Artifacts.Bucket = cfg.MinIO.Bucket
	}
	if cfg.Executor.Backend == "" {
		cfg.Executor.Backend = "piston"
	}
	if cfg.Comparator.Strategy == "" {
		cfg.Comparator.Strategy = "token"
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	cfg := mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		ReadTimeout:  k.ReadTimeout,
		WriteTimeout: k.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
	}
	cfg.Compression = parseCompression(k.Compression)
	return cfg
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}

func buildExecutor(cfg ExecutorConfig) (sandbox.Executor, error) {
	switch strings.ToLower(cfg.Backend) {
	case "piston":
		return piston.NewClient(cfg.Piston)
	case "local":
		return local.NewRunner(cfg.Local)
	default:
		return nil, fmt.Errorf("unknown executor backend: %s", cfg.Backend)
	}
}

func buildComparator(cfg ComparatorConfig) (*comparator.Comparator, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "token":
		thresholds := cfg.Thresholds
		if thresholds == (comparator.Thresholds{}) {
			thresholds = comparator.LocalThresholds()
		}
		return comparator.New(comparator.NewTokenOverlap(), thresholds), nil
	case "semantic":
		client, err := semantic.NewClient(cfg.Semantic)
		if err != nil {
			return nil, err
		}
		thresholds := cfg.Thresholds
		if thresholds == (comparator.Thresholds{}) {
			thresholds = comparator.RemoteThresholds()
		}
		return comparator.New(client, thresholds), nil
	default:
		return nil, fmt.Errorf("unknown comparator strategy: %s", cfg.Strategy)
	}
}

func (v VerifierConfig) toVerifyConfig() verify.Config {
	cfg := verify.DefaultConfig()
	if v.LenientStderr {
		cfg.FailOnStderrWithStdout = false
	}
	if v.MaxStderrBytes > 0 {
		cfg.MaxStderrBytes = v.MaxStderrBytes
	}
	return cfg
}
