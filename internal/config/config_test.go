package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for missing file")
	}
	if resolved != "" && filepath.Clean(resolved) != filepath.Clean(path) {
		t.Fatalf("unexpected resolved path: %s", resolved)
	}
	if cfg.Processing.BatchSize <= 0 {
		t.Fatalf("expected default batch size to be positive, got %d", cfg.Processing.BatchSize)
	}
}

func TestLoadOverlaysTOMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audiopipe.toml")
	contents := `
[blobstore]
bucket = "clips-bucket"
region = "eu-west-1"

[processing]
batch_size = 250
ffmpeg_workers = 2
opus_bitrate = "32k"
whisperx_model = "large-v3-turbo"
scratch_max_age_hours = 12
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if cfg.Blobstore.Bucket != "clips-bucket" {
		t.Fatalf("expected bucket override, got %q", cfg.Blobstore.Bucket)
	}
	if cfg.Blobstore.Region != "eu-west-1" {
		t.Fatalf("expected region override, got %q", cfg.Blobstore.Region)
	}
	if cfg.Processing.BatchSize != 250 {
		t.Fatalf("expected batch size override, got %d", cfg.Processing.BatchSize)
	}
	// Fields not present in the TOML file retain their baked-in defaults.
	if cfg.Queue.Addr == "" {
		t.Fatalf("expected default queue addr to survive overlay")
	}
}

func TestLoadAppliesPostgresPasswordEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audiopipe.toml")
	if err := os.WriteFile(path, []byte("[postgres]\nhost = \"db.internal\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("POSTGRES_PASSWORD", "s3cr3t")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Postgres.Password != "s3cr3t" {
		t.Fatalf("expected password from environment, got %q", cfg.Postgres.Password)
	}
}

func TestValidateRejectsInvalidLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestValidateRejectsZeroBatchSize(t *testing.T) {
	cfg := config.Default()
	cfg.Processing.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero batch size")
	}
}

func TestValidateRejectsRetryMaxBelowBase(t *testing.T) {
	cfg := config.Default()
	cfg.Retry.BaseSeconds = 10
	cfg.Retry.MaxSeconds = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when max_seconds < base_seconds")
	}
}

func TestEnsureDirectoriesCreatesScratchAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}

	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}

func TestCreateSampleWritesEmbeddedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "audiopipe.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty sample config")
	}
}
