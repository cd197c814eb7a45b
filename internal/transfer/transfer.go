// Package transfer models the external Transfer stage's boundary into this
// repository: it uploads an archive to the Blob Store and pushes its object
// key onto the unpack queue. Transfer's own internals (SSH/rsync mechanics)
// are out of scope; this package exists only so the Unpack Worker's tests
// can submit archives without a real Transfer deployment.
package transfer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fenwicklabs/audiopipe/internal/blobstore"
	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
)

// Submitter is the contract Transfer is expected to call: given a local
// archive path, upload it and enqueue it for the Unpack Worker.
type Submitter interface {
	Submit(ctx context.Context, archivePath, batchID string) (archiveKey string, err error)
}

// Client is the production Submitter: it uploads to the real Blob Store
// and pushes onto the real unpack queue.
type Client struct {
	blob  *blobstore.Client
	queue *queueclient.Client
	cfg   config.Blobstore
}

// NewClient builds a Client backed by the given collaborators.
func NewClient(blob *blobstore.Client, queue *queueclient.Client, cfg config.Blobstore) *Client {
	return &Client{blob: blob, queue: queue, cfg: cfg}
}

// Submit uploads the archive at archivePath under its batch-derived key and
// pushes that key onto the unpack queue.
func (c *Client) Submit(ctx context.Context, archivePath, batchID string) (string, error) {
	key := blobstore.ArchiveKey(c.cfg, batchID)
	if err := c.blob.PutObjectFile(ctx, key, archivePath); err != nil {
		return "", fmt.Errorf("transfer: upload %s: %w", archivePath, err)
	}
	if err := c.queue.PushUnpack(ctx, key); err != nil {
		return "", fmt.Errorf("transfer: enqueue %s: %w", key, err)
	}
	return key, nil
}

// Fake is an in-memory Submitter for integration tests that don't need a
// real Blob Store or queue.
type Fake struct {
	Submitted []FakeSubmission
}

// FakeSubmission records one call to Fake.Submit.
type FakeSubmission struct {
	ArchivePath string
	BatchID     string
	ArchiveKey  string
}

// Submit records the call and returns a deterministic archive key built
// from batchID and the archive path's extension, without touching any real
// storage.
func (f *Fake) Submit(_ context.Context, archivePath, batchID string) (string, error) {
	key := fmt.Sprintf("archives/%s%s", batchID, filepath.Ext(archivePath))
	f.Submitted = append(f.Submitted, FakeSubmission{ArchivePath: archivePath, BatchID: batchID, ArchiveKey: key})
	return key, nil
}
