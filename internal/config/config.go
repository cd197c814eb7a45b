package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Queue contains connection settings for the Queue & Counter Service.
type Queue struct {
	Addr               string `toml:"addr"`
	Password           string `toml:"password"`
	DB                 int    `toml:"db"`
	UnpackQueue        string `toml:"unpack_queue"`
	TranscribeQueue    string `toml:"transcribe_queue"`
	FailedQueue        string `toml:"failed_queue"`
	DialTimeoutSeconds int    `toml:"dial_timeout_seconds"`
}

// Blobstore contains connection settings for the S3-compatible blob store.
type Blobstore struct {
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	AccessKeyID          string `toml:"access_key_id"`
	SecretAccessKey      string `toml:"secret_access_key"`
	Bucket               string `toml:"bucket"`
	ArchivePrefix        string `toml:"archive_prefix"`
	ProcessedPrefix      string `toml:"processed_prefix"`
	UsePathStyle         bool   `toml:"use_path_style"`
	MultipartThresholdMB int64  `toml:"multipart_threshold_mb"`
}

// Postgres contains connection settings for the relational store.
type Postgres struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	MaxConns int32  `toml:"max_conns"`
}

// Processing contains settings that govern unpack/transcode/batch behavior.
type Processing struct {
	BatchSize           int    `toml:"batch_size"`
	FFmpegWorkers       int    `toml:"ffmpeg_workers"`
	OpusBitrate         string `toml:"opus_bitrate"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	ScratchMaxAgeHours  int    `toml:"scratch_max_age_hours"`
}

// LLM contains connection settings for the classification model endpoint.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Retry contains the shared bounded-backoff policy for transient infra errors.
type Retry struct {
	BaseSeconds int `toml:"base_seconds"`
	MaxSeconds  int `toml:"max_seconds"`
	MaxAttempts int `toml:"max_attempts"`
}

// Config encapsulates all configuration values for the pipeline workers and CLI.
//
// Configuration sections by subsystem:
//   - Paths: local scratch/log directories
//   - Queue: Queue & Counter Service connection and queue names
//   - Blobstore: S3-compatible object store connection and key prefixes
//   - Postgres: relational store connection
//   - Processing: batch size, transcode concurrency, codec settings
//   - LLM: classifier endpoint connection
//   - Logging: log format, level, and retention
//   - Retry: bounded exponential backoff policy for transient infra errors
type Config struct {
	Paths      Paths      `toml:"paths"`
	Queue      Queue      `toml:"queue"`
	Blobstore  Blobstore  `toml:"blobstore"`
	Postgres   Postgres   `toml:"postgres"`
	Processing Processing `toml:"processing"`
	LLM        LLM        `toml:"llm"`
	Logging    Logging    `toml:"logging"`
	Retry      Retry      `toml:"retry"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audiopipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized, and environment fallbacks such as
// POSTGRES_PASSWORD applied when the corresponding TOML field is blank.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/audiopipe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audiopipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the worker processes require.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for Opus transcoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// PostgresDSN builds a libpq-style connection string for pgx.
func (c *Config) PostgresDSN() string {
	mode := c.Postgres.SSLMode
	if mode == "" {
		mode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.Database, c.Postgres.User, c.Postgres.Password, mode,
	)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository's path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration file to path.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConnection contains the settings needed to construct a classifier client.
type LLMConnection struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the classifier connection settings with whitespace trimmed.
func (c *Config) GetLLM() LLMConnection {
	return LLMConnection{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
