package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent and contains
// every value the worker processes need before they touch the network or
// filesystem. It is called automatically by Load.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		errs = append(errs, errors.New("paths.scratch_dir must not be empty"))
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		errs = append(errs, errors.New("paths.log_dir must not be empty"))
	}

	if strings.TrimSpace(c.Queue.Addr) == "" {
		errs = append(errs, errors.New("queue.addr must not be empty"))
	}
	if strings.TrimSpace(c.Queue.UnpackQueue) == "" {
		errs = append(errs, errors.New("queue.unpack_queue must not be empty"))
	}
	if strings.TrimSpace(c.Queue.TranscribeQueue) == "" {
		errs = append(errs, errors.New("queue.transcribe_queue must not be empty"))
	}
	if c.Queue.DialTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("queue.dial_timeout_seconds must be positive"))
	}

	if strings.TrimSpace(c.Blobstore.Bucket) == "" {
		errs = append(errs, errors.New("blobstore.bucket must not be empty"))
	}
	if strings.TrimSpace(c.Blobstore.Region) == "" {
		errs = append(errs, errors.New("blobstore.region must not be empty"))
	}
	if c.Blobstore.MultipartThresholdMB <= 0 {
		errs = append(errs, errors.New("blobstore.multipart_threshold_mb must be positive"))
	}

	if strings.TrimSpace(c.Postgres.Host) == "" {
		errs = append(errs, errors.New("postgres.host must not be empty"))
	}
	if c.Postgres.Port <= 0 {
		errs = append(errs, errors.New("postgres.port must be positive"))
	}
	if strings.TrimSpace(c.Postgres.Database) == "" {
		errs = append(errs, errors.New("postgres.database must not be empty"))
	}
	if c.Postgres.MaxConns <= 0 {
		errs = append(errs, errors.New("postgres.max_conns must be positive"))
	}

	if c.Processing.BatchSize <= 0 {
		errs = append(errs, errors.New("processing.batch_size must be positive"))
	}
	if c.Processing.FFmpegWorkers <= 0 {
		errs = append(errs, errors.New("processing.ffmpeg_workers must be positive"))
	}
	if strings.TrimSpace(c.Processing.OpusBitrate) == "" {
		errs = append(errs, errors.New("processing.opus_bitrate must not be empty"))
	}
	if strings.TrimSpace(c.Processing.WhisperXModel) == "" {
		errs = append(errs, errors.New("processing.whisperx_model must not be empty"))
	}
	if c.Processing.ScratchMaxAgeHours <= 0 {
		errs = append(errs, errors.New("processing.scratch_max_age_hours must be positive"))
	}

	if c.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("llm.timeout_seconds must be positive"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	if c.Logging.RetentionDays < 0 {
		errs = append(errs, errors.New("logging.retention_days must not be negative"))
	}

	if c.Retry.BaseSeconds <= 0 {
		errs = append(errs, errors.New("retry.base_seconds must be positive"))
	}
	if c.Retry.MaxSeconds < c.Retry.BaseSeconds {
		errs = append(errs, errors.New("retry.max_seconds must be at least retry.base_seconds"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry.max_attempts must be positive"))
	}

	return errors.Join(errs...)
}
