// Package blobstore wraps an S3-compatible object store for batch archives
// and processed Opus clips. Archives live under "archives/{batch_id}.tar",
// successfully unpacked archives move to "processed/{batch_id}.tar", and
// decoded clips land at "processed/{date}/{audio_id}.opus".
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/retry"
)

// Client wraps the S3 SDK client plus a multipart uploader for the bucket
// and prefixes configured for this pipeline.
type Client struct {
	s3       *s3.Client
	uploader *manager.Uploader
	bucket   string
	cfg      config.Blobstore
	retry    retry.Policy
}

// New builds a Client from cfg's blob store and retry sections. An explicit
// Endpoint enables pointing at an S3-compatible store other than AWS.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	blobCfg := cfg.Blobstore
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(blobCfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			blobCfg.AccessKeyID, blobCfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if blobCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(blobCfg.Endpoint)
		}
		o.UsePathStyle = blobCfg.UsePathStyle
	})

	threshold := blobCfg.MultipartThresholdMB
	if threshold <= 0 {
		threshold = 64
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
		u.Concurrency = 4
	})

	return &Client{s3: client, uploader: uploader, bucket: blobCfg.Bucket, cfg: blobCfg, retry: retry.NewPolicy(cfg.Retry)}, nil
}

// Ping verifies connectivity and bucket access.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("blobstore: head bucket: %w", err)
	}
	return nil
}

// multipartThreshold is the size above which PutObject uses the multipart
// uploader rather than a single-shot PUT.
func (c *Client) multipartThreshold() int64 {
	mb := c.cfg.MultipartThresholdMB
	if mb <= 0 {
		mb = 64
	}
	return mb * 1024 * 1024
}

// PutObjectFile uploads the local file at localPath to key, using the
// multipart uploader once the file exceeds the configured threshold.
func (c *Client) PutObjectFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("blobstore: open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("blobstore: stat %s: %w", localPath, err)
	}

	if info.Size() > c.multipartThreshold() {
		err := c.retry.Do(ctx, func() error {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return retry.Permanent(fmt.Errorf("blobstore: rewind %s: %w", localPath, err))
			}
			_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    aws.String(key),
				Body:   f,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("blobstore: multipart upload %s: %w", key, err)
		}
		return nil
	}

	err = c.retry.Do(ctx, func() error {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return retry.Permanent(fmt.Errorf("blobstore: rewind %s: %w", localPath, err))
		}
		_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("blobstore: put object %s: %w", key, err)
	}
	return nil
}

// GetObjectToFile streams key's contents to localPath, creating parent
// directories as needed.
func (c *Client) GetObjectToFile(ctx context.Context, key, localPath string) error {
	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("blobstore: create parent dir for %s: %w", localPath, err)
		}
	}

	err := c.retry.Do(ctx, func() error {
		result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer result.Body.Close()

		f, err := os.Create(localPath)
		if err != nil {
			return retry.Permanent(fmt.Errorf("blobstore: create %s: %w", localPath, err))
		}
		defer f.Close()

		if _, err := io.Copy(f, result.Body); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("blobstore: get object %s: %w", key, err)
	}
	return nil
}

// DeleteObject removes key from the bucket.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("blobstore: delete object %s: %w", key, err)
	}
	return nil
}

// MoveObject copies key srcKey to dstKey and deletes srcKey, used to
// relocate a consumed archive from the archives/ prefix to processed/.
func (c *Client) MoveObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		CopySource: aws.String(c.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("blobstore: copy %s to %s: %w", srcKey, dstKey, err)
	}
	return c.DeleteObject(ctx, srcKey)
}

// StatObject reports the size of an object, or an error if it does not
// exist.
func (c *Client) StatObject(ctx context.Context, key string) (int64, error) {
	result, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("blobstore: head object %s: %w", key, err)
	}
	if result.ContentLength == nil {
		return 0, nil
	}
	return *result.ContentLength, nil
}

// ArchiveKey builds the object key for a batch's source archive.
func ArchiveKey(cfg config.Blobstore, batchID string) string {
	return fmt.Sprintf("%s/%s.tar", cfg.ArchivePrefix, batchID)
}

// ProcessedArchiveKey builds the object key a consumed archive moves to.
func ProcessedArchiveKey(cfg config.Blobstore, batchID string) string {
	return fmt.Sprintf("%s/%s.tar", cfg.ProcessedPrefix, batchID)
}

// ProcessedClipKey builds the object key for a decoded, transcoded clip.
func ProcessedClipKey(cfg config.Blobstore, audioID int64, when time.Time) string {
	return fmt.Sprintf("%s/%s/%d.opus", cfg.ProcessedPrefix, when.Format("2006-01-02"), audioID)
}
