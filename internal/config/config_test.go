package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mixdown/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Worker.MaxRetries != 3 {
		t.Fatalf("default max retries = %d, want 3", cfg.Worker.MaxRetries)
	}
	if cfg.Worker.RetryDelayMS != 5000 {
		t.Fatalf("default retry delay = %d, want 5000", cfg.Worker.RetryDelayMS)
	}
	if cfg.Alignment.MaxOffsetMS != 2000 {
		t.Fatalf("default max offset = %d, want 2000", cfg.Alignment.MaxOffsetMS)
	}
	if cfg.RateLimit.Backend != "memory" {
		t.Fatalf("default rate limit backend = %q, want memory", cfg.RateLimit.Backend)
	}
}

func TestLoadOverridesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
scratch_dir = "`+dir+`/scratch"
log_dir = "`+dir+`/logs"
store_root = "`+dir+`/store"

[worker]
poll_interval = 7
job_timeout = 120

[render]
target_lufs = -16.0
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Worker.PollInterval != 7 {
		t.Fatalf("poll interval = %d, want 7", cfg.Worker.PollInterval)
	}
	if cfg.Worker.JobTimeout != 120 {
		t.Fatalf("job timeout = %d, want 120", cfg.Worker.JobTimeout)
	}
	if cfg.Render.TargetLUFS != -16.0 {
		t.Fatalf("target lufs = %v, want -16", cfg.Render.TargetLUFS)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data dir not absolute: %q", cfg.Paths.DataDir)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "mixdown.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadRejectsNonNegativeTargetLUFS(t *testing.T) {
	path := writeConfig(t, `
[render]
target_lufs = 2.0
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for positive target_lufs")
	} else if !strings.Contains(err.Error(), "target_lufs") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownRateLimitBackend(t *testing.T) {
	path := writeConfig(t, `
[rate_limit]
backend = "memcached"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoadRejectsReclaimBeforeLease(t *testing.T) {
	path := writeConfig(t, `
[worker]
lease_timeout = 600
reclaim_after = 300
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error when reclaim_after <= lease_timeout")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ScratchDir = filepath.Join(dir, "scratch")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.StoreRoot = filepath.Join(dir, "store")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir, cfg.Paths.StoreRoot} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q not created: %v", d, err)
		}
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
