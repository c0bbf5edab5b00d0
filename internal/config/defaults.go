package config

const (
	defaultDownloadDir        = "~/.local/share/spool/downloads"
	defaultWorkDir            = "~/.local/share/spool/work"
	defaultLogDir             = "~/.local/share/spool/logs"
	defaultBind               = ":10000"
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
	defaultAudioQuality       = "192"
	defaultMaxAttempts        = 2
	defaultRetentionDays      = 7
	defaultAnalyzeTimeout     = 120
	defaultDownloadTimeout    = 3600
	defaultMergeTimeout       = 1800
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
		},
		Server: Server{
			Bind: defaultBind,
		},
		Tools: Tools{
			AnalyzeTimeout:  defaultAnalyzeTimeout,
			DownloadTimeout: defaultDownloadTimeout,
			MergeTimeout:    defaultMergeTimeout,
		},
		Downloads: Downloads{
			AudioQuality:  defaultAudioQuality,
			MaxAttempts:   defaultMaxAttempts,
			RetentionDays: defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
