package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "fakemixer")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "FakeMixer", Command: stub, Description: "stub tool"},
		{Name: "Missing", Command: filepath.Join(dir, "does-not-exist")},
		{Name: "Unset", Command: "   "},
	})

	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Errorf("stub binary should be available: %+v", statuses[0])
	}
	if statuses[0].Command != stub {
		t.Errorf("resolved command = %q, want %q", statuses[0].Command, stub)
	}
	if statuses[1].Available {
		t.Error("missing binary reported as available")
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Errorf("unset command status = %+v", statuses[2])
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true},
		{Name: "FFprobe", Available: false},
		{Name: "Analyzer", Available: false, Optional: true},
	}

	missing := deps.MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "FFprobe" {
		t.Errorf("missing = %v, want [FFprobe]", missing)
	}
}
