package config

import (
	"os"
	"strings"
)

// normalize expands filesystem paths, trims whitespace, and applies environment
// variable fallbacks for secrets that operators prefer to keep out of the TOML
// file on disk.
func (c *Config) normalize() error {
	expanded, err := expandPath(c.Paths.ScratchDir)
	if err != nil {
		return err
	}
	c.Paths.ScratchDir = expanded

	expanded, err = expandPath(c.Paths.LogDir)
	if err != nil {
		return err
	}
	c.Paths.LogDir = expanded

	c.Queue.Addr = strings.TrimSpace(c.Queue.Addr)
	c.Queue.UnpackQueue = strings.TrimSpace(c.Queue.UnpackQueue)
	c.Queue.TranscribeQueue = strings.TrimSpace(c.Queue.TranscribeQueue)
	c.Queue.FailedQueue = strings.TrimSpace(c.Queue.FailedQueue)
	if v := os.Getenv("REDIS_PASSWORD"); v != "" && c.Queue.Password == "" {
		c.Queue.Password = v
	}

	c.Blobstore.Endpoint = strings.TrimSpace(c.Blobstore.Endpoint)
	c.Blobstore.Bucket = strings.TrimSpace(c.Blobstore.Bucket)
	c.Blobstore.ArchivePrefix = strings.Trim(strings.TrimSpace(c.Blobstore.ArchivePrefix), "/")
	c.Blobstore.ProcessedPrefix = strings.Trim(strings.TrimSpace(c.Blobstore.ProcessedPrefix), "/")
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && c.Blobstore.AccessKeyID == "" {
		c.Blobstore.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && c.Blobstore.SecretAccessKey == "" {
		c.Blobstore.SecretAccessKey = v
	}

	c.Postgres.Host = strings.TrimSpace(c.Postgres.Host)
	c.Postgres.Database = strings.TrimSpace(c.Postgres.Database)
	c.Postgres.User = strings.TrimSpace(c.Postgres.User)
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" && c.Postgres.Password == "" {
		c.Postgres.Password = v
	}

	c.Processing.OpusBitrate = strings.TrimSpace(c.Processing.OpusBitrate)
	c.Processing.WhisperXModel = strings.TrimSpace(c.Processing.WhisperXModel)

	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if v := os.Getenv("LLM_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
