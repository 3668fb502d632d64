package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/envutil"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	VocabNeo4j    = "neo4j"
)

// Config is read from an optional YAML file (CONFIG_FILE) and then
// overridden by environment variables.
type Config struct {
	ServiceName string   `yaml:"service_name"`
	Environment string   `yaml:"environment"`
	Port        string   `yaml:"port"`
	LogMode     string   `yaml:"log_mode"`
	CORSOrigins []string `yaml:"cors_origins"`

	RetrievalK             int           `yaml:"retrieval_k"`
	SectionMaxAttempts     int           `yaml:"section_max_attempts"`
	SectionMaxBackoff      time.Duration `yaml:"section_max_backoff"`
	WorkerConcurrency      int           `yaml:"worker_concurrency"`
	TermResolveConcurrency int           `yaml:"term_resolve_concurrency"`

	ChunkStoreDriver string `yaml:"chunk_store_driver"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	SQLitePath       string `yaml:"sqlite_path"`

	JobStore       string        `yaml:"job_store"`
	RedisJobPrefix string        `yaml:"redis_job_prefix"`
	RedisJobTTL    time.Duration `yaml:"redis_job_ttl"`

	// VocabBackend is neo4j or memory; empty picks neo4j when NEO4J_URI is set.
	VocabBackend string `yaml:"vocab_backend"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:            "notegen-ai-apis",
		Environment:            "development",
		Port:                   "8080",
		LogMode:                "development",
		RetrievalK:             15,
		SectionMaxAttempts:     3,
		SectionMaxBackoff:      10 * time.Second,
		WorkerConcurrency:      4,
		TermResolveConcurrency: 4,
		ChunkStoreDriver:       StoreMemory,
		SQLitePath:             "notegen.db",
		JobStore:               StoreMemory,
		RedisJobPrefix:         "notegen:job:",
		RedisJobTTL:            72 * time.Hour,
	}
}

func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	if origins := envutil.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	cfg.RetrievalK = envutil.Int("RETRIEVAL_K", cfg.RetrievalK)
	cfg.SectionMaxAttempts = envutil.Int("SECTION_MAX_ATTEMPTS", cfg.SectionMaxAttempts)
	cfg.SectionMaxBackoff = envutil.Seconds("SECTION_MAX_BACKOFF_SECONDS", cfg.SectionMaxBackoff)
	cfg.WorkerConcurrency = envutil.Int("WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.TermResolveConcurrency = envutil.Int("TERM_RESOLVE_CONCURRENCY", cfg.TermResolveConcurrency)

	cfg.ChunkStoreDriver = strings.ToLower(envutil.String("CHUNK_STORE_DRIVER", cfg.ChunkStoreDriver))
	cfg.PostgresDSN = envutil.String("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.SQLitePath = envutil.String("SQLITE_PATH", cfg.SQLitePath)

	cfg.JobStore = strings.ToLower(envutil.String("JOB_STORE", cfg.JobStore))
	cfg.RedisJobPrefix = envutil.String("REDIS_JOB_PREFIX", cfg.RedisJobPrefix)
	cfg.RedisJobTTL = time.Duration(envutil.Int("REDIS_JOB_TTL_HOURS", int(cfg.RedisJobTTL/time.Hour))) * time.Hour

	cfg.VocabBackend = strings.ToLower(envutil.String("VOCAB_BACKEND", cfg.VocabBackend))
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.ChunkStoreDriver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("CHUNK_STORE_DRIVER: unsupported %q", c.ChunkStoreDriver)
	}
	if c.ChunkStoreDriver == StorePostgres && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN required for the postgres chunk store")
	}
	switch c.JobStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("JOB_STORE: unsupported %q", c.JobStore)
	}
	switch c.VocabBackend {
	case "", StoreMemory, VocabNeo4j:
	default:
		return fmt.Errorf("VOCAB_BACKEND: unsupported %q", c.VocabBackend)
	}
	if c.SectionMaxAttempts < 1 {
		return fmt.Errorf("SECTION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
