package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for daemon operation.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	StoreRoot  string `toml:"store_root"`
}

// Worker contains polling, lease, and retry configuration.
type Worker struct {
	PollInterval         int `toml:"poll_interval"`
	DrainInterval        int `toml:"drain_interval"`
	LeaseTimeout         int `toml:"lease_timeout"`
	ReclaimAfter         int `toml:"reclaim_after"`
	JobTimeout           int `toml:"job_timeout"`
	MaxRetries           int `toml:"max_retries"`
	RetryDelayMS         int `toml:"retry_delay_ms"`
	MaxConsecutiveErrors int `toml:"max_consecutive_errors"`
	ErrorCooldown        int `toml:"error_cooldown"`
	MaxInputDuration     int `toml:"max_input_duration"`
}

// Render contains configuration for the ffmpeg renderer.
type Render struct {
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
	Timeout       int     `toml:"timeout"`
	Bitrate       string  `toml:"bitrate"`
	TargetLUFS    float64 `toml:"target_lufs"`
}

// Alignment contains configuration for the offset detector.
type Alignment struct {
	AnalyzerBinary      string  `toml:"analyzer_binary"`
	AnalyzerScript      string  `toml:"analyzer_script"`
	AnalyzerTimeout     int     `toml:"analyzer_timeout"`
	SampleRate          int     `toml:"sample_rate"`
	SampleSeconds       int     `toml:"sample_seconds"`
	MaxOffsetMS         int     `toml:"max_offset_ms"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// Artifacts contains artifact lifetime configuration.
type Artifacts struct {
	PrepTTL    int `toml:"prep_ttl"`
	AIOkTTL    int `toml:"ai_ok_ttl"`
	RetryAfter int `toml:"retry_after"`
}

// RateLimit contains rate limiter backend configuration.
type RateLimit struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Notifications contains push notification configuration. An empty topic
// disables notifications entirely.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mixdown.
//
// Configuration sections by subsystem:
//   - Paths: data, scratch, log, and object store directories
//   - Worker: polling intervals, lease and job timeouts, retry policy
//   - Render: ffmpeg/ffprobe binaries, render timeout, output settings
//   - Alignment: external analyzer command and fallback sampling parameters
//   - Artifacts: prep/ai-ok artifact lifetimes
//   - RateLimit: memory or redis backend selection
//   - Notifications: ntfy topic for job lifecycle pushes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Worker        Worker        `toml:"worker"`
	Render        Render        `toml:"render"`
	Alignment     Alignment     `toml:"alignment"`
	Artifacts     Artifacts     `toml:"artifacts"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mixdown/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/mixdown/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mixdown.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// StoreRoot is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.StoreRoot) != "" {
		_ = os.MkdirAll(c.Paths.StoreRoot, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the SQLite queue database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mixdown.db")
}

// LockPath returns the daemon instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "mixdownd.lock")
}

// PollInterval returns the idle poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollInterval) * time.Second
}

// DrainInterval returns the post-success sleep as a duration.
func (c *Config) DrainInterval() time.Duration {
	return time.Duration(c.Worker.DrainInterval) * time.Second
}

// LeaseTimeout returns the worker lease timeout as a duration.
func (c *Config) LeaseTimeout() time.Duration {
	return time.Duration(c.Worker.LeaseTimeout) * time.Second
}

// ReclaimAfter returns how old a lease must be before reclamation.
func (c *Config) ReclaimAfter() time.Duration {
	return time.Duration(c.Worker.ReclaimAfter) * time.Second
}

// JobTimeout returns the per-job wall clock limit as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Worker.JobTimeout) * time.Second
}

// RetryDelay returns the base retry delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Worker.RetryDelayMS) * time.Millisecond
}

// ErrorCooldown returns the consecutive-error cooldown as a duration.
func (c *Config) ErrorCooldown() time.Duration {
	return time.Duration(c.Worker.ErrorCooldown) * time.Second
}

// RenderTimeout returns the renderer subprocess limit as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.Timeout) * time.Second
}

// AnalyzerTimeout returns the external analyzer limit as a duration.
func (c *Config) AnalyzerTimeout() time.Duration {
	return time.Duration(c.Alignment.AnalyzerTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
