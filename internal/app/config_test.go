package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RetrievalK != 15 {
		t.Fatalf("retrieval k: want=15 got=%d", cfg.RetrievalK)
	}
	if cfg.SectionMaxAttempts != 3 {
		t.Fatalf("max attempts: want=3 got=%d", cfg.SectionMaxAttempts)
	}
	if cfg.SectionMaxBackoff != 10*time.Second {
		t.Fatalf("max backoff: want=10s got=%v", cfg.SectionMaxBackoff)
	}
	if cfg.ChunkStoreDriver != StoreMemory || cfg.JobStore != StoreMemory {
		t.Fatalf("stores: want=memory got=%s/%s", cfg.ChunkStoreDriver, cfg.JobStore)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notegen.yaml")
	raw := []byte("retrieval_k: 8\nworker_concurrency: 2\njob_store: redis\ncors_origins:\n  - https://clinic.example\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RETRIEVAL_K", "20")
	t.Setenv("SECTION_MAX_BACKOFF_SECONDS", "4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RetrievalK != 20 {
		t.Fatalf("env should override file: want=20 got=%d", cfg.RetrievalK)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("worker concurrency: want=2 got=%d", cfg.WorkerConcurrency)
	}
	if cfg.JobStore != StoreRedis {
		t.Fatalf("job store: want=redis got=%s", cfg.JobStore)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://clinic.example" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
	if cfg.SectionMaxBackoff != 4*time.Second {
		t.Fatalf("max backoff: want=4s got=%v", cfg.SectionMaxBackoff)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown chunk driver", func(c *Config) { c.ChunkStoreDriver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.ChunkStoreDriver = StorePostgres }},
		{"unknown job store", func(c *Config) { c.JobStore = "etcd" }},
		{"unknown vocab backend", func(c *Config) { c.VocabBackend = "elastic" }},
		{"zero attempts", func(c *Config) { c.SectionMaxAttempts = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
