package config

const (
	defaultDataDir    = "~/.local/share/mixdown"
	defaultScratchDir = "~/.local/share/mixdown/scratch"
	defaultLogDir     = "~/.local/share/mixdown/logs"
	defaultStoreRoot  = "~/.local/share/mixdown/store"

	defaultPollInterval         = 3
	defaultDrainInterval        = 1
	defaultLeaseTimeout         = 600
	defaultReclaimAfter         = 900
	defaultJobTimeout           = 300
	defaultMaxRetries           = 3
	defaultRetryDelayMS         = 5000
	defaultMaxConsecutiveErrors = 10
	defaultErrorCooldown        = 30
	defaultMaxInputDuration     = 600

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultRenderTimeout = 240
	defaultBitrate       = "320k"
	defaultTargetLUFS    = -14.0

	defaultAnalyzerBinary      = "python3"
	defaultAnalyzerTimeout     = 30
	defaultSampleRate          = 22050
	defaultSampleSeconds       = 15
	defaultMaxOffsetMS         = 2000
	defaultConfidenceThreshold = 0.3

	defaultPrepTTL    = 86400
	defaultAIOkTTL    = 86400
	defaultRetryAfter = 15

	defaultRateLimitBackend = "memory"
	defaultRedisAddr        = "127.0.0.1:6379"

	defaultNtfyRequestTimeout = 10

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			StoreRoot:  defaultStoreRoot,
		},
		Worker: Worker{
			PollInterval:         defaultPollInterval,
			DrainInterval:        defaultDrainInterval,
			LeaseTimeout:         defaultLeaseTimeout,
			ReclaimAfter:         defaultReclaimAfter,
			JobTimeout:           defaultJobTimeout,
			MaxRetries:           defaultMaxRetries,
			RetryDelayMS:         defaultRetryDelayMS,
			MaxConsecutiveErrors: defaultMaxConsecutiveErrors,
			ErrorCooldown:        defaultErrorCooldown,
			MaxInputDuration:     defaultMaxInputDuration,
		},
		Render: Render{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			Timeout:       defaultRenderTimeout,
			Bitrate:       defaultBitrate,
			TargetLUFS:    defaultTargetLUFS,
		},
		Alignment: Alignment{
			AnalyzerBinary:      defaultAnalyzerBinary,
			AnalyzerTimeout:     defaultAnalyzerTimeout,
			SampleRate:          defaultSampleRate,
			SampleSeconds:       defaultSampleSeconds,
			MaxOffsetMS:         defaultMaxOffsetMS,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Artifacts: Artifacts{
			PrepTTL:    defaultPrepTTL,
			AIOkTTL:    defaultAIOkTTL,
			RetryAfter: defaultRetryAfter,
		},
		RateLimit: RateLimit{
			Backend:   defaultRateLimitBackend,
			RedisAddr: defaultRedisAddr,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
