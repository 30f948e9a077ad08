package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	if err := c.normalizeAlignment(); err != nil {
		return err
	}
	c.normalizeArtifacts()
	c.normalizeRateLimit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StoreRoot) == "" {
		c.Paths.StoreRoot = defaultStoreRoot
	}
	if c.Paths.StoreRoot, err = expandPath(c.Paths.StoreRoot); err != nil {
		return fmt.Errorf("paths.store_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorker() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = defaultPollInterval
	}
	if c.Worker.DrainInterval <= 0 {
		c.Worker.DrainInterval = defaultDrainInterval
	}
	if c.Worker.LeaseTimeout <= 0 {
		c.Worker.LeaseTimeout = defaultLeaseTimeout
	}
	if c.Worker.ReclaimAfter <= 0 {
		c.Worker.ReclaimAfter = defaultReclaimAfter
	}
	if c.Worker.JobTimeout <= 0 {
		c.Worker.JobTimeout = defaultJobTimeout
	}
	if c.Worker.MaxRetries <= 0 {
		c.Worker.MaxRetries = defaultMaxRetries
	}
	if c.Worker.RetryDelayMS <= 0 {
		c.Worker.RetryDelayMS = defaultRetryDelayMS
	}
	if c.Worker.MaxConsecutiveErrors <= 0 {
		c.Worker.MaxConsecutiveErrors = defaultMaxConsecutiveErrors
	}
	if c.Worker.ErrorCooldown <= 0 {
		c.Worker.ErrorCooldown = defaultErrorCooldown
	}
	if c.Worker.MaxInputDuration <= 0 {
		c.Worker.MaxInputDuration = defaultMaxInputDuration
	}
}

func (c *Config) normalizeRender() error {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Render.Timeout <= 0 {
		c.Render.Timeout = defaultRenderTimeout
	}
	c.Render.Bitrate = strings.TrimSpace(c.Render.Bitrate)
	if c.Render.Bitrate == "" {
		c.Render.Bitrate = defaultBitrate
	}
	if c.Render.TargetLUFS == 0 {
		c.Render.TargetLUFS = defaultTargetLUFS
	}
	return nil
}

func (c *Config) normalizeAlignment() error {
	var err error
	c.Alignment.AnalyzerBinary = strings.TrimSpace(c.Alignment.AnalyzerBinary)
	if c.Alignment.AnalyzerBinary == "" {
		c.Alignment.AnalyzerBinary = defaultAnalyzerBinary
	}
	c.Alignment.AnalyzerScript = strings.TrimSpace(c.Alignment.AnalyzerScript)
	if c.Alignment.AnalyzerScript == "" {
		if value, ok := os.LookupEnv("MIXDOWN_ANALYZER_SCRIPT"); ok {
			c.Alignment.AnalyzerScript = strings.TrimSpace(value)
		}
	}
	if c.Alignment.AnalyzerScript != "" {
		if c.Alignment.AnalyzerScript, err = expandPath(c.Alignment.AnalyzerScript); err != nil {
			return fmt.Errorf("alignment.analyzer_script: %w", err)
		}
	}
	if c.Alignment.AnalyzerTimeout <= 0 {
		c.Alignment.AnalyzerTimeout = defaultAnalyzerTimeout
	}
	if c.Alignment.SampleRate <= 0 {
		c.Alignment.SampleRate = defaultSampleRate
	}
	if c.Alignment.SampleSeconds <= 0 {
		c.Alignment.SampleSeconds = defaultSampleSeconds
	}
	if c.Alignment.MaxOffsetMS <= 0 {
		c.Alignment.MaxOffsetMS = defaultMaxOffsetMS
	}
	if c.Alignment.ConfidenceThreshold <= 0 {
		c.Alignment.ConfidenceThreshold = defaultConfidenceThreshold
	}
	return nil
}

func (c *Config) normalizeArtifacts() {
	if c.Artifacts.PrepTTL <= 0 {
		c.Artifacts.PrepTTL = defaultPrepTTL
	}
	if c.Artifacts.AIOkTTL <= 0 {
		c.Artifacts.AIOkTTL = defaultAIOkTTL
	}
	if c.Artifacts.RetryAfter <= 0 {
		c.Artifacts.RetryAfter = defaultRetryAfter
	}
}

func (c *Config) normalizeRateLimit() {
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = defaultRateLimitBackend
	}
	c.RateLimit.RedisAddr = strings.TrimSpace(c.RateLimit.RedisAddr)
	if c.RateLimit.RedisAddr == "" {
		c.RateLimit.RedisAddr = defaultRedisAddr
	}
	if c.RateLimit.RedisPassword == "" {
		if value, ok := os.LookupEnv("MIXDOWN_REDIS_PASSWORD"); ok {
			c.RateLimit.RedisPassword = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
