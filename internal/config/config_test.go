package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved = %q", resolved)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Fatalf("workers = %d", cfg.Pipeline.Workers)
	}
	if want := filepath.Join(cfg.Paths.DataDir, "blobs"); cfg.Storage.Root != want {
		t.Fatalf("derived storage root = %q, want %q", cfg.Storage.Root, want)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[pipeline]
workers = 4
transient_retries = 3

[gateway]
base_url = "https://models.example.com"
api_key = "k"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("file not reported as read")
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.TransientRetries != 3 {
		t.Fatalf("pipeline overrides not applied: %+v", cfg.Pipeline)
	}
	if cfg.Gateway.BaseURL != "https://models.example.com" {
		t.Fatalf("gateway override not applied: %+v", cfg.Gateway)
	}
	// Untouched sections keep defaults.
	if cfg.Segmenter.MaxSegments != 5 {
		t.Fatalf("segmenter default lost: %+v", cfg.Segmenter)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[pipeline]
workers = 0
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "pipeline.workers") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateS3RequiresEndpointAndBucket(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "s3"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "storage.endpoint") || !strings.Contains(err.Error(), "storage.bucket") {
		t.Fatalf("err = %v", err)
	}

	cfg.Storage.Endpoint = "s3.example.com"
	cfg.Storage.Bucket = "clips"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	cfg := Default()
	if err := toml.Unmarshal([]byte(Sample()), cfg); err != nil {
		t.Fatalf("sample does not parse: %v", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample does not validate: %v", err)
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != Sample() {
		t.Fatal("written sample differs from embedded sample")
	}
}
