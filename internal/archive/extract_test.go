package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		header := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write tar content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("write gzip content: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestDetectTypePlainTar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.tar.gz")
	if err := os.WriteFile(path, buildTar(t, map[string]string{"a.mp3": "x"}), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	got, err := DetectType(path)
	if err != nil {
		t.Fatalf("DetectType returned error: %v", err)
	}
	if got != model.ArchiveTypeTar {
		t.Fatalf("expected tar, got %v", got)
	}
}

func TestDetectTypeGzippedTar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.tar.gz")
	tarBytes := buildTar(t, map[string]string{"a.mp3": "x"})
	if err := os.WriteFile(path, gzipBytes(t, tarBytes), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	got, err := DetectType(path)
	if err != nil {
		t.Fatalf("DetectType returned error: %v", err)
	}
	if got != model.ArchiveTypeTarGz {
		t.Fatalf("expected tar.gz, got %v", got)
	}
}

func TestDetectTypePlainGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3.gz")
	if err := os.WriteFile(path, gzipBytes(t, []byte("not a tar stream at all")), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	got, err := DetectType(path)
	if err != nil {
		t.Fatalf("DetectType returned error: %v", err)
	}
	if got != model.ArchiveTypeGzip {
		t.Fatalf("expected gzip, got %v", got)
	}
}

func TestDetectTypeUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mystery.bin")
	if err := os.WriteFile(path, []byte("not an archive"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := DetectType(path)
	if err != nil {
		t.Fatalf("DetectType returned error: %v", err)
	}
	if got != model.ArchiveTypeUnknown {
		t.Fatalf("expected unknown, got %v", got)
	}
}

func TestExtractMislabeledPlainTar(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "batch.tar.gz")
	if err := os.WriteFile(archivePath, buildTar(t, map[string]string{"clip.mp3": "audio-bytes"}), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	extractDir := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		t.Fatalf("mkdir extract dir: %v", err)
	}

	if err := Extract(archivePath, extractDir); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(extractDir, "clip.mp3"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "audio-bytes" {
		t.Fatalf("expected audio-bytes, got %q", got)
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "batch.tar.gz")
	tarBytes := buildTar(t, map[string]string{"clip.mp3": "compressed-audio"})
	if err := os.WriteFile(archivePath, gzipBytes(t, tarBytes), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	extractDir := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		t.Fatalf("mkdir extract dir: %v", err)
	}

	if err := Extract(archivePath, extractDir); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(extractDir, "clip.mp3"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "compressed-audio" {
		t.Fatalf("expected compressed-audio, got %q", got)
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")
	if err := os.WriteFile(archivePath, buildTar(t, map[string]string{"../escape.mp3": "x"}), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	extractDir := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		t.Fatalf("mkdir extract dir: %v", err)
	}

	if err := Extract(archivePath, extractDir); err == nil {
		t.Fatal("expected traversal entry to be rejected")
	}
}

func TestExtractUnknownTypeFails(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "mystery.bin")
	if err := os.WriteFile(archivePath, []byte("not an archive"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	extractDir := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		t.Fatalf("mkdir extract dir: %v", err)
	}

	if err := Extract(archivePath, extractDir); err == nil {
		t.Fatal("expected unknown archive type to fail")
	}
}
