package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadIncludesPredictionDefaults(t *testing.T) {
	t.Setenv("MAX_QUERIES", "")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "")
	t.Setenv("MAX_RESULTS", "")
	t.Setenv("BATCH_PREDICT", "")
	t.Setenv("FUSION_METHODS", "")
	t.Setenv("API_CORS_ORIGINS", "")

	cfg := Load()
	if cfg.MaxQueries != 100 {
		t.Fatalf("expected default max queries 100, got %d", cfg.MaxQueries)
	}
	if cfg.QueryTimeout() != 2*time.Second {
		t.Fatalf("expected default timeout 2s, got %v", cfg.QueryTimeout())
	}
	if cfg.MaxResults != 100 {
		t.Fatalf("expected default max results 100, got %d", cfg.MaxResults)
	}
	if cfg.ChunkSize() != 1 {
		t.Fatalf("expected chunk size 1 without batching, got %d", cfg.ChunkSize())
	}
	if cfg.FusionMethods != "" {
		t.Fatalf("expected all fusion methods by default, got %q", cfg.FusionMethods)
	}
	if cfg.APICORSOrigins != "*" {
		t.Fatalf("expected any origin allowed by default, got %q", cfg.APICORSOrigins)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT_SECONDS", "0")
	t.Setenv("BATCH_PREDICT", "true")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("CALIBRATION_FACTOR", "2.5")
	t.Setenv("MAX_RESULTS", "not-a-number")

	cfg := Load()
	if cfg.QueryTimeout() != 0 {
		t.Fatalf("expected zero timeout to request calibration, got %v", cfg.QueryTimeout())
	}
	if cfg.ChunkSize() != 25 {
		t.Fatalf("expected chunk size 25, got %d", cfg.ChunkSize())
	}
	if cfg.CalibrationFactor != 2.5 {
		t.Fatalf("expected calibration factor 2.5, got %v", cfg.CalibrationFactor)
	}
	if cfg.MaxResults != 100 {
		t.Fatalf("expected invalid value to fall back to 100, got %d", cfg.MaxResults)
	}
}

func TestLoadFileOverlaysPresentKeys(t *testing.T) {
	t.Setenv("SPARQL_ENDPOINT", "http://env/sparql")
	t.Setenv("MAX_QUERIES", "7")

	path := filepath.Join(t.TempDir(), "predict.yaml")
	body := "sparql_endpoint: http://file/sparql\nfusion_methods: basic,rrf\nquery_timeout_seconds: 1.5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.SPARQLEndpoint != "http://file/sparql" {
		t.Fatalf("expected file endpoint, got %q", cfg.SPARQLEndpoint)
	}
	if cfg.MaxQueries != 7 {
		t.Fatalf("expected env value to survive, got %d", cfg.MaxQueries)
	}
	if cfg.FusionMethods != "basic,rrf" {
		t.Fatalf("unexpected fusion methods %q", cfg.FusionMethods)
	}
	if cfg.QueryTimeout() != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", cfg.QueryTimeout())
	}
}

func TestLoadFileRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_queries: [oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
