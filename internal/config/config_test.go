package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_ChunkBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.MinChunkLen = 240
	cfg.Ingest.MaxChunkLen = 240

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_chunk_len >= max_chunk_len")
	}
}

func TestValidate_FlattenModes(t *testing.T) {
	for _, mode := range []string{"none", "soft", "all"} {
		cfg := validConfig()
		cfg.Ingest.Flatten = mode
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error for flatten=%q: %v", mode, err)
		}
	}

	cfg := validConfig()
	cfg.Ingest.Flatten = "hard"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown flatten mode")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.BatchSize != 48 {
		t.Errorf("expected BatchSize=48, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Embedding.ChatModel != "gpt-4o" {
		t.Errorf("expected ChatModel=gpt-4o, got %q", cfg.Embedding.ChatModel)
	}
	if cfg.Search.MaxCandidates != 4096 {
		t.Errorf("expected MaxCandidates=4096, got %d", cfg.Search.MaxCandidates)
	}
	if cfg.Search.DefaultPageSize != 15 {
		t.Errorf("expected DefaultPageSize=15, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Search.Workers != 8 {
		t.Errorf("expected Workers=8, got %d", cfg.Search.Workers)
	}
	if cfg.Ingest.MinChunkLen != 130 || cfg.Ingest.MaxChunkLen != 240 {
		t.Errorf("expected chunk bounds 130/240, got %d/%d", cfg.Ingest.MinChunkLen, cfg.Ingest.MaxChunkLen)
	}
	if cfg.Ingest.Flatten != "soft" {
		t.Errorf("expected flatten=soft, got %q", cfg.Ingest.Flatten)
	}
	if cfg.Storage.BlobDir != "data/blobs" {
		t.Errorf("expected BlobDir=data/blobs, got %q", cfg.Storage.BlobDir)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Embedding: EmbeddingConfig{Model: "custom-model", BatchSize: 16},
		Search:    SearchConfig{DefaultPageSize: 50, MaxPageSize: 500, Workers: 2},
		Ingest:    IngestConfig{MinChunkLen: 100, MaxChunkLen: 300, Flatten: "none"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.Model != "custom-model" {
		t.Errorf("expected custom model, got %q", cfg.Embedding.Model)
	}
	if cfg.Search.DefaultPageSize != 50 || cfg.Search.Workers != 2 {
		t.Errorf("search overrides lost: %+v", cfg.Search)
	}
	if cfg.Ingest.Flatten != "none" {
		t.Errorf("expected flatten=none, got %q", cfg.Ingest.Flatten)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MATCHAGIG_TEST_ADDR", "redis-prod:6379")

	in := []byte("addrs: [\"${MATCHAGIG_TEST_ADDR}\"]\npassword: \"${MATCHAGIG_TEST_UNSET:-fallback}\"\nplain: value")
	out := string(expandEnvVars(in))

	if out != "addrs: [\"redis-prod:6379\"]\npassword: \"fallback\"\nplain: value" {
		t.Errorf("unexpected expansion:\n%s", out)
	}
}

func TestExpandEnvVars_EmptyWithoutDefault(t *testing.T) {
	out := string(expandEnvVars([]byte("key: ${MATCHAGIG_TEST_UNSET}")))
	if out != "key: " {
		t.Errorf("unexpected expansion: %q", out)
	}
}
