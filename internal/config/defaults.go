package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultScratchDirName = "audiopipe/scratch"
	defaultLogDirName     = "audiopipe/logs"

	defaultQueueAddr            = "127.0.0.1:6379"
	defaultUnpackQueueName      = "unpack:pending"
	defaultTranscribeQueueName  = "transcribe:pending"
	defaultFailedQueueName      = "pipeline:failed"
	defaultQueueDialTimeout     = 5

	defaultBlobRegion          = "us-east-1"
	defaultBucket              = "audiopipe-clips"
	defaultArchivePrefix       = "archives"
	defaultProcessedPrefix     = "processed"
	defaultMultipartThreshold  = 64

	defaultPostgresHost     = "127.0.0.1"
	defaultPostgresPort     = 5432
	defaultPostgresDatabase = "audiopipe"
	defaultPostgresSSLMode  = "disable"
	defaultPostgresMaxConns = 10

	defaultBatchSize           = 500
	defaultFFmpegWorkers       = 4
	defaultOpusBitrate         = "32k"
	defaultWhisperXModel       = "large-v3-turbo"
	defaultScratchMaxAgeHours  = 24

	defaultLLMTimeoutSeconds = 60

	defaultLogFormat        = "json"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14

	defaultRetryBaseSeconds = 1
	defaultRetryMaxSeconds  = 30
	defaultRetryMaxAttempts = 5
)

func defaultScratchDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultScratchDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/" + defaultScratchDirName
	}
	return filepath.Join(home, ".cache", defaultScratchDirName)
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/state/" + defaultLogDirName
	}
	return filepath.Join(home, ".local", "state", defaultLogDirName)
}

// Default returns a Config populated with the repository's baked-in defaults.
// Load overlays any TOML file contents and environment fallbacks on top of this.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			LogDir:     defaultLogDir(),
		},
		Queue: Queue{
			Addr:               defaultQueueAddr,
			DB:                 0,
			UnpackQueue:        defaultUnpackQueueName,
			TranscribeQueue:    defaultTranscribeQueueName,
			FailedQueue:        defaultFailedQueueName,
			DialTimeoutSeconds: defaultQueueDialTimeout,
		},
		Blobstore: Blobstore{
			Region:               defaultBlobRegion,
			Bucket:               defaultBucket,
			ArchivePrefix:        defaultArchivePrefix,
			ProcessedPrefix:      defaultProcessedPrefix,
			UsePathStyle:         false,
			MultipartThresholdMB: defaultMultipartThreshold,
		},
		Postgres: Postgres{
			Host:     defaultPostgresHost,
			Port:     defaultPostgresPort,
			Database: defaultPostgresDatabase,
			User:     "audiopipe",
			SSLMode:  defaultPostgresSSLMode,
			MaxConns: defaultPostgresMaxConns,
		},
		Processing: Processing{
			BatchSize:           defaultBatchSize,
			FFmpegWorkers:       defaultFFmpegWorkers,
			OpusBitrate:         defaultOpusBitrate,
			WhisperXModel:       defaultWhisperXModel,
			WhisperXCUDAEnabled: true,
			ScratchMaxAgeHours:  defaultScratchMaxAgeHours,
		},
		LLM: LLM{
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Retry: Retry{
			BaseSeconds: defaultRetryBaseSeconds,
			MaxSeconds:  defaultRetryMaxSeconds,
			MaxAttempts: defaultRetryMaxAttempts,
		},
	}
}
