package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func fakeFFprobe(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary shebang scripts require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

func TestDurationParsesSeconds(t *testing.T) {
	binary := fakeFFprobe(t, "#!/bin/sh\necho 12.345\n")
	got, err := Duration(context.Background(), binary, "clip.opus")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if got != 12.345 {
		t.Fatalf("expected 12.345, got %v", got)
	}
}

func TestDurationHandlesNotApplicable(t *testing.T) {
	binary := fakeFFprobe(t, "#!/bin/sh\necho N/A\n")
	got, err := Duration(context.Background(), binary, "clip.opus")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 for N/A duration, got %v", got)
	}
}

func TestDurationReturnsErrorOnFailure(t *testing.T) {
	binary := fakeFFprobe(t, "#!/bin/sh\necho 'bad input' 1>&2\nexit 1\n")
	if _, err := Duration(context.Background(), binary, "clip.opus"); err == nil {
		t.Fatal("expected error for failing ffprobe invocation")
	}
}

func TestDurationRejectsEmptyPath(t *testing.T) {
	if _, err := Duration(context.Background(), "ffprobe", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
