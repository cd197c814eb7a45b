package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/fenwicklabs/audiopipe/internal/model"
	"github.com/fenwicklabs/audiopipe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "encoding", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encoding", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusAlwaysFailsTheClip(t *testing.T) {
	// Per the liveness invariant, every non-nil processing error resolves
	// to a failed clip status: the ledger still counts it, it just never
	// reaches transcribed/flagged.
	validationErr := services.Wrap(services.ErrValidation, "unpack", "extract", "invalid archive", nil)
	if status := services.FailureStatus(validationErr); status != model.ClipStatusFailed {
		t.Fatalf("expected failed for validation error, got %s", status)
	}

	transientErr := services.Wrap(services.ErrTransient, "gpuworker", "persist", "write failed", errors.New("io"))
	if status := services.FailureStatus(transientErr); status != model.ClipStatusFailed {
		t.Fatalf("expected failed for transient error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != model.ClipStatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
