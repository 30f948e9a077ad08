package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/preflight"
	"mixdown/internal/testsupport"
)

func TestRunAllPassesWithPreparedDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(cfg)
	if len(results) == 0 {
		t.Fatal("expected at least one check")
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Errorf("unexpected failures: %+v", failed)
	}
}

func TestRunAllReportsMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Paths.ScratchDir = filepath.Join(t.TempDir(), "missing")

	failed := preflight.Failed(preflight.RunAll(cfg))
	if len(failed) != 1 {
		t.Fatalf("expected exactly one failure, got %+v", failed)
	}
	if failed[0].Name != "Scratch directory" {
		t.Errorf("failed check = %q", failed[0].Name)
	}
}

func TestCheckAnalyzerScript(t *testing.T) {
	dir := t.TempDir()

	script := filepath.Join(dir, "analyze.py")
	if err := os.WriteFile(script, []byte("print('{}')\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if result := preflight.CheckAnalyzerScript(script); !result.Passed {
		t.Errorf("existing script failed check: %+v", result)
	}

	if result := preflight.CheckAnalyzerScript(filepath.Join(dir, "gone.py")); result.Passed {
		t.Error("missing script passed check")
	}
	if result := preflight.CheckAnalyzerScript(dir); result.Passed {
		t.Error("directory passed script check")
	}
}

func TestCheckSystemDepsWithStubbedPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			t.Errorf("required dependency %s unavailable with stubbed PATH: %s", status.Name, status.Detail)
		}
	}
}

func TestCheckSystemDepsUsesConfiguredBinaries(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	cfg := config.Default()
	cfg.Render.FFmpegBinary = ffmpeg
	cfg.Render.FFprobeBinary = filepath.Join(dir, "no-such-ffprobe")
	cfg.Alignment.AnalyzerBinary = ""

	statuses := preflight.CheckSystemDeps(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Errorf("ffmpeg stub unavailable: %+v", statuses[0])
	}
	if statuses[1].Available {
		t.Error("missing ffprobe reported available")
	}
	if !statuses[2].Optional {
		t.Error("analyzer interpreter should be optional")
	}
}
