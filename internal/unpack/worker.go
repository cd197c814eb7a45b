// Package unpack implements the Unpack Worker: it pops archive object keys
// from the unpack queue, extracts them, transcodes every MP3 clip to Opus,
// and hands the resulting clips to the GPU Worker via the transcribe queue.
// It never touches the relational store — AudioRecord creation belongs to
// the GPU Worker, which is the only thing that ever writes audio_files.
package unpack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fenwicklabs/audiopipe/internal/archive"
	"github.com/fenwicklabs/audiopipe/internal/blobstore"
	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/model"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
	"github.com/fenwicklabs/audiopipe/internal/scratchledger"
	"github.com/fenwicklabs/audiopipe/internal/services"
	"github.com/fenwicklabs/audiopipe/internal/transcode"
)

const popTimeout = 5 * time.Second

// Worker runs the Unpack Worker's main loop.
type Worker struct {
	cfg     *config.Config
	queue   *queueclient.Client
	blob    *blobstore.Client
	scratch *scratchledger.Store
	logger  *slog.Logger
}

// New builds a Worker from its collaborators.
func New(cfg *config.Config, queue *queueclient.Client, blob *blobstore.Client, scratch *scratchledger.Store, logger *slog.Logger) *Worker {
	return &Worker{cfg: cfg, queue: queue, blob: blob, scratch: scratch, logger: logger}
}

// Run blocks on the unpack queue until ctx is canceled, processing one
// archive at a time. A per-archive failure is logged and routed to the
// failed queue; it never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		archiveKey, err := w.queue.PopUnpack(ctx, popTimeout)
		if errors.Is(err, queueclient.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("pop unpack queue failed", slog.String("error", err.Error()))
			continue
		}

		if err := w.ProcessArchive(ctx, archiveKey); err != nil {
			w.logger.Error("process archive failed",
				slog.String("archive_key", archiveKey),
				slog.String("error", err.Error()),
			)
			if pushErr := w.queue.PushFailed(ctx, archiveKey); pushErr != nil {
				w.logger.Error("push to failed queue failed",
					slog.String("archive_key", archiveKey),
					slog.String("error", pushErr.Error()),
				)
			}
		}
	}
}

// ProcessArchive downloads an archive, extracts it, transcodes every MP3
// clip to Opus, sets the batch's ledger total, queues a transcribe job per
// clip, and relocates the consumed archive to the processed prefix.
func (w *Worker) ProcessArchive(ctx context.Context, archiveKey string) error {
	batchID := batchIDFromArchiveKey(archiveKey)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	requestID, _ := services.RequestIDFromContext(ctx)
	logger := w.logger.With(slog.String("batch_id", batchID), slog.String("archive_key", archiveKey), slog.String("request_id", requestID))

	scratchDir, err := os.MkdirTemp(w.cfg.Paths.ScratchDir, "batch-*")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "unpack", "mkdir scratch", "create scratch directory", err)
	}
	if err := w.scratch.Record(ctx, batchID, scratchDir); err != nil {
		logger.Warn("record scratch directory failed", slog.String("error", err.Error()))
	}

	localArchivePath := filepath.Join(scratchDir, filepath.Base(archiveKey))
	if err := w.blob.GetObjectToFile(ctx, archiveKey, localArchivePath); err != nil {
		return services.Wrap(services.ErrTransient, "unpack", "download archive", archiveKey, err)
	}

	extractDir := filepath.Join(scratchDir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "unpack", "mkdir extract dir", extractDir, err)
	}
	if err := archive.Extract(localArchivePath, extractDir); err != nil {
		return services.Wrap(services.ErrValidation, "unpack", "extract archive", archiveKey, err)
	}

	mp3Paths, err := findMP3Files(extractDir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "unpack", "find mp3 files", extractDir, err)
	}

	opusDir := filepath.Join(scratchDir, "opus")
	jobs := make([]transcode.Job, len(mp3Paths))
	for i, mp3Path := range mp3Paths {
		name := filepath.Base(mp3Path)
		opusName := name[:len(name)-len(filepath.Ext(name))] + ".opus"
		jobs[i] = transcode.Job{MP3Path: mp3Path, OpusPath: filepath.Join(opusDir, opusName)}
	}

	pool := transcode.NewPool(w.cfg.FFmpegBinary(), w.cfg.Processing.OpusBitrate, w.cfg.Processing.FFmpegWorkers)
	results := pool.Run(ctx, jobs)

	type convertedClip struct {
		opusPath         string
		originalFilename string
	}
	clips := make([]convertedClip, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			logger.Warn("mp3 conversion failed",
				slog.String("mp3_path", result.Job.MP3Path),
				slog.String("error", result.Err.Error()),
			)
			continue
		}
		clips = append(clips, convertedClip{
			opusPath:         result.Job.OpusPath,
			originalFilename: filepath.Base(result.Job.MP3Path),
		})
	}

	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, "unpack", "convert clips", archiveKey, errors.New("no clips converted successfully"))
	}

	if err := w.queue.SetLedgerTotal(ctx, batchID, int64(len(clips)), archiveKey); err != nil {
		return services.Wrap(services.ErrTransient, "unpack", "set ledger total", batchID, err)
	}

	for _, clip := range clips {
		item := model.TranscribeQueueItem{
			BatchID:          batchID,
			OpusPath:         clip.opusPath,
			OriginalFilename: clip.originalFilename,
		}
		payload, err := json.Marshal(item)
		if err != nil {
			logger.Error("marshal transcribe item failed", slog.String("opus_path", clip.opusPath), slog.String("error", err.Error()))
			continue
		}
		if err := w.queue.PushTranscribeJSON(ctx, payload); err != nil {
			logger.Error("push transcribe item failed", slog.String("opus_path", clip.opusPath), slog.String("error", err.Error()))
		}
	}

	if err := os.Remove(localArchivePath); err != nil {
		logger.Warn("remove local archive copy failed", slog.String("path", localArchivePath), slog.String("error", err.Error()))
	}

	processedKey := blobstore.ProcessedArchiveKey(w.cfg.Blobstore, batchID)
	if err := w.blob.MoveObject(ctx, archiveKey, processedKey); err != nil {
		logger.Warn("relocate archive to processed prefix failed", slog.String("error", err.Error()))
	}

	logger.Info("archive unpacked", slog.Int("clip_count", len(clips)))
	return nil
}

func findMP3Files(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".mp3" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unpack: walk %s: %w", root, err)
	}
	return paths, nil
}

func batchIDFromArchiveKey(archiveKey string) string {
	name := filepath.Base(archiveKey)
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar", ".gz"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
