package config_test

import (
	"os/exec"
	"testing"

	"github.com/fenwicklabs/audiopipe/internal/testsupport"
)

func TestStubbedBinariesResolveOnPATH(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	if _, err := exec.LookPath(cfg.FFmpegBinary()); err != nil {
		t.Fatalf("expected stubbed %s on PATH: %v", cfg.FFmpegBinary(), err)
	}
	if _, err := exec.LookPath(cfg.FFprobeBinary()); err != nil {
		t.Fatalf("expected stubbed %s on PATH: %v", cfg.FFprobeBinary(), err)
	}
}

func TestNewConfigAppliesOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithOpusBitrate("48k"),
		testsupport.WithScratchMaxAge(12),
	)

	if cfg.Processing.OpusBitrate != "48k" {
		t.Fatalf("expected opus bitrate 48k, got %q", cfg.Processing.OpusBitrate)
	}
	if cfg.Processing.ScratchMaxAgeHours != 12 {
		t.Fatalf("expected scratch max age 12, got %d", cfg.Processing.ScratchMaxAgeHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("generated config failed validation: %v", err)
	}
	if testsupport.BaseDir(cfg) == "" {
		t.Fatalf("expected non-empty base dir")
	}
}
