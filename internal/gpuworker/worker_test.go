package gpuworker

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestWorker() *Worker {
	return &Worker{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestDecodeItemParsesValidPayload(t *testing.T) {
	w := newTestWorker()
	item, ok := w.decodeItem(`{"batch_id": "batch-7", "opus_path": "/scratch/7.opus", "original_filename": "7.mp3"}`)
	if !ok {
		t.Fatalf("expected decodeItem to succeed")
	}
	if item.BatchID != "batch-7" || item.OpusPath != "/scratch/7.opus" || item.OriginalFilename != "7.mp3" {
		t.Fatalf("unexpected decoded item: %+v", item)
	}
}

func TestDecodeItemRejectsMalformedPayload(t *testing.T) {
	w := newTestWorker()
	if _, ok := w.decodeItem("not json"); ok {
		t.Fatalf("expected decodeItem to reject malformed payload")
	}
}

func TestFileSizeOfReturnsSizeOfExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.opus")
	if err := os.WriteFile(path, make([]byte, 42), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	size, err := fileSizeOf(path)
	if err != nil {
		t.Fatalf("fileSizeOf: %v", err)
	}
	if size != 42 {
		t.Fatalf("expected size 42, got %d", size)
	}
}

func TestFileSizeOfReturnsErrorForMissingFile(t *testing.T) {
	if _, err := fileSizeOf(filepath.Join(t.TempDir(), "missing.opus")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
