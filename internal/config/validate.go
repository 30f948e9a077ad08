package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorker() error {
	if err := ensurePositiveMap(map[string]int{
		"worker.poll_interval":          c.Worker.PollInterval,
		"worker.drain_interval":         c.Worker.DrainInterval,
		"worker.job_timeout":            c.Worker.JobTimeout,
		"worker.max_retries":            c.Worker.MaxRetries,
		"worker.retry_delay_ms":         c.Worker.RetryDelayMS,
		"worker.max_consecutive_errors": c.Worker.MaxConsecutiveErrors,
		"worker.error_cooldown":         c.Worker.ErrorCooldown,
		"worker.max_input_duration":     c.Worker.MaxInputDuration,
	}); err != nil {
		return err
	}
	if c.Worker.LeaseTimeout <= 0 {
		return errors.New("worker.lease_timeout must be positive")
	}
	if c.Worker.ReclaimAfter <= 0 {
		return errors.New("worker.reclaim_after must be positive")
	}
	if c.Worker.ReclaimAfter <= c.Worker.LeaseTimeout {
		return errors.New("worker.reclaim_after must be greater than worker.lease_timeout")
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.FFmpegBinary) == "" {
		return errors.New("render.ffmpeg_binary must be set")
	}
	if strings.TrimSpace(c.Render.FFprobeBinary) == "" {
		return errors.New("render.ffprobe_binary must be set")
	}
	if c.Render.Timeout <= 0 {
		return errors.New("render.timeout must be positive (seconds)")
	}
	if c.Render.TargetLUFS >= 0 {
		return errors.New("render.target_lufs must be negative")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if err := ensurePositiveMap(map[string]int{
		"alignment.analyzer_timeout": c.Alignment.AnalyzerTimeout,
		"alignment.sample_rate":      c.Alignment.SampleRate,
		"alignment.sample_seconds":   c.Alignment.SampleSeconds,
		"alignment.max_offset_ms":    c.Alignment.MaxOffsetMS,
	}); err != nil {
		return err
	}
	if c.Alignment.ConfidenceThreshold <= 0 || c.Alignment.ConfidenceThreshold > 1 {
		return errors.New("alignment.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	return ensurePositiveMap(map[string]int{
		"artifacts.prep_ttl":    c.Artifacts.PrepTTL,
		"artifacts.ai_ok_ttl":   c.Artifacts.AIOkTTL,
		"artifacts.retry_after": c.Artifacts.RetryAfter,
	})
}

func (c *Config) validateRateLimit() error {
	switch c.RateLimit.Backend {
	case "memory":
		return nil
	case "redis":
		if strings.TrimSpace(c.RateLimit.RedisAddr) == "" {
			return errors.New("rate_limit.redis_addr must be set when rate_limit.backend is \"redis\"")
		}
		return nil
	default:
		return fmt.Errorf("rate_limit.backend must be \"memory\" or \"redis\", got %q", c.RateLimit.Backend)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
