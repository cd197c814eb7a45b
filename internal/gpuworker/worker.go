// Package gpuworker implements the GPU Worker: it drains the transcribe
// queue, and for each clip inserts its AudioRecord, runs WhisperX
// transcription and LLM harmful-content classification, uploads the opus
// file to the blob store, persists the results, and finalizes each batch
// exactly once every clip it contains has been accounted for. The GPU
// Worker is the only component that writes to audio_files: it creates the
// row on first sight of a clip and mutates only that row afterward.
package gpuworker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fenwicklabs/audiopipe/internal/blobstore"
	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/model"
	"github.com/fenwicklabs/audiopipe/internal/probe"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
	"github.com/fenwicklabs/audiopipe/internal/relstore"
	"github.com/fenwicklabs/audiopipe/internal/scratchledger"
	"github.com/fenwicklabs/audiopipe/internal/services"
	"github.com/fenwicklabs/audiopipe/internal/services/llm"
	"github.com/fenwicklabs/audiopipe/internal/services/whisperx"
)

const (
	popTimeout   = 5 * time.Second
	drainTimeout = 100 * time.Millisecond
)

// Worker runs the GPU Worker's main loop: insert, transcribe, classify,
// upload, persist, count, and finalize.
type Worker struct {
	cfg        *config.Config
	queue      *queueclient.Client
	blob       *blobstore.Client
	rel        *relstore.Store
	scratch    *scratchledger.Store
	transcribe *whisperx.Service
	classifier *llm.Client
	logger     *slog.Logger
}

// New builds a Worker from its collaborators.
func New(cfg *config.Config, queue *queueclient.Client, blob *blobstore.Client, rel *relstore.Store, scratch *scratchledger.Store, transcribe *whisperx.Service, classifier *llm.Client, logger *slog.Logger) *Worker {
	return &Worker{cfg: cfg, queue: queue, blob: blob, rel: rel, scratch: scratch, transcribe: transcribe, classifier: classifier, logger: logger}
}

// Run blocks on the transcribe queue, draining up to the configured batch
// size before yielding back to the queue, until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	batchSize := w.cfg.Processing.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := w.queue.PopTranscribe(ctx, popTimeout)
		if errors.Is(err, queueclient.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("pop transcribe queue failed", slog.String("error", err.Error()))
			continue
		}

		items := []model.TranscribeQueueItem{}
		if item, ok := w.decodeItem(payload); ok {
			items = append(items, item)
		}
		for len(items) < batchSize {
			more, err := w.queue.PopTranscribe(ctx, drainTimeout)
			if err != nil {
				break
			}
			if item, ok := w.decodeItem(more); ok {
				items = append(items, item)
			}
		}

		if len(items) == 0 {
			continue
		}

		started := time.Now()
		for _, item := range items {
			w.ProcessItem(ctx, item)
		}
		elapsed := time.Since(started)
		w.logger.Info("drain cycle complete",
			slog.Int("items", len(items)),
			slog.Duration("elapsed", elapsed),
			slog.Float64("items_per_sec", float64(len(items))/elapsed.Seconds()),
		)
	}
}

func (w *Worker) decodeItem(payload string) (model.TranscribeQueueItem, bool) {
	var item model.TranscribeQueueItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		w.logger.Error("decode transcribe item failed", slog.String("error", err.Error()), slog.String("payload", payload))
		return item, false
	}
	return item, true
}

// ProcessItem inserts the clip's AudioRecord, transcribes, classifies,
// uploads its opus file, and persists the results, then advances the
// owning batch's ledger and finalizes the batch if this was its last
// outstanding clip. The ledger advance runs via defer scheduled before any
// fallible step, so the counter is incremented exactly once per item no
// matter how early processing fails — liveness (I5) never depends on how
// far the clip got, only on item.BatchID, which arrives with the job
// itself rather than a DB lookup that could itself fail.
func (w *Worker) ProcessItem(ctx context.Context, item model.TranscribeQueueItem) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	requestID, _ := services.RequestIDFromContext(ctx)
	logger := w.logger.With(slog.String("batch_id", item.BatchID), slog.String("request_id", requestID))
	defer w.advanceLedger(ctx, item.BatchID, logger)

	fileSize, err := fileSizeOf(item.OpusPath)
	if err != nil {
		logger.Warn("stat opus file failed", slog.String("opus_path", item.OpusPath), slog.String("error", err.Error()))
	}
	duration, err := probe.Duration(ctx, w.cfg.FFprobeBinary(), item.OpusPath)
	if err != nil {
		logger.Warn("duration probe failed", slog.String("opus_path", item.OpusPath), slog.String("error", err.Error()))
	}

	audioID, err := w.rel.InsertAudioRecord(ctx, model.AudioRecord{
		BatchID:          item.BatchID,
		OriginalFilename: item.OriginalFilename,
		OpusPath:         item.OpusPath,
		ArchiveSource:    item.BatchID,
		DurationSeconds:  duration,
		FileSizeBytes:    fileSize,
		Status:           model.ClipStatusPending,
	})
	if err != nil {
		logger.Error("insert audio record failed", slog.String("error", err.Error()))
		return
	}
	logger = logger.With(slog.Int64("audio_id", audioID))

	status := model.ClipStatusTranscribed
	flagged, err := w.transcribeAndClassify(ctx, audioID, item.OpusPath)
	if err != nil {
		logger.Error("process clip failed", slog.String("error", err.Error()))
		status = services.FailureStatus(err)
	} else if flagged {
		status = model.ClipStatusFlagged
	}

	if status != model.ClipStatusFailed {
		objectKey := blobstore.ProcessedClipKey(w.cfg.Blobstore, audioID, time.Now())
		if err := w.blob.PutObjectFile(ctx, objectKey, item.OpusPath); err != nil {
			logger.Error("upload opus clip failed", slog.String("error", err.Error()))
			status = model.ClipStatusFailed
		} else if err := w.rel.UpdateOpusObjectKey(ctx, audioID, objectKey); err != nil {
			logger.Error("persist opus object key failed", slog.String("error", err.Error()))
		}
	}

	if err := w.rel.UpdateStatus(ctx, audioID, status); err != nil {
		logger.Error("update clip status failed", slog.String("error", err.Error()))
	}
}

func (w *Worker) transcribeAndClassify(ctx context.Context, audioID int64, opusPath string) (bool, error) {
	outputDir := filepath.Dir(opusPath)
	transcript, err := w.transcribe.TranscribeClip(ctx, opusPath, outputDir)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "gpuworker", "transcribe clip", opusPath, err)
	}
	if err := w.rel.UpsertTranscript(ctx, model.Transcript{
		AudioID:    audioID,
		Text:       transcript.Text,
		Language:   transcript.Language,
		Confidence: transcript.Confidence,
	}); err != nil {
		return false, services.Wrap(services.ErrTransient, "gpuworker", "persist transcript", opusPath, err)
	}

	result, err := w.classifier.Classify(ctx, transcript.Text)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "gpuworker", "classify transcript", opusPath, err)
	}
	if err := w.rel.UpsertClassification(ctx, model.Classification{
		AudioID:  audioID,
		Flagged:  result.Flagged,
		Score:    result.Score,
		Category: result.Category,
	}); err != nil {
		return false, services.Wrap(services.ErrTransient, "gpuworker", "persist classification", opusPath, err)
	}

	return result.Flagged, nil
}

func fileSizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// advanceLedger increments the batch's processed counter and, if this
// increment brought processed up to total, deletes the batch's scratch
// directory and finalizes the ledger. Because IncrBy is atomic, exactly
// one GPU Worker observes processed == total for a given batch even when
// multiple workers finish the batch's last few clips concurrently (I2).
func (w *Worker) advanceLedger(ctx context.Context, batchID string, logger *slog.Logger) {
	processed, total, err := w.queue.IncrementProcessed(ctx, batchID)
	if err != nil {
		logger.Error("increment ledger failed", slog.String("batch_id", batchID), slog.String("error", err.Error()))
		return
	}
	if processed < total {
		return
	}

	logger.Info("batch complete", slog.String("batch_id", batchID), slog.Int64("total", total))

	if path, ok, err := w.scratch.PathFor(ctx, batchID); err != nil {
		logger.Error("look up scratch directory failed", slog.String("batch_id", batchID), slog.String("error", err.Error()))
	} else if ok {
		if err := os.RemoveAll(path); err != nil {
			logger.Error("remove scratch directory failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		if err := w.scratch.Forget(ctx, batchID); err != nil {
			logger.Error("forget scratch directory failed", slog.String("batch_id", batchID), slog.String("error", err.Error()))
		}
	}

	if err := w.queue.FinalizeLedger(ctx, batchID); err != nil {
		logger.Error("finalize ledger failed", slog.String("batch_id", batchID), slog.String("error", err.Error()))
	}
}
