package config

// Failure policies select which attempt failure a request surfaces.
const (
	FailurePolicyLast         = "last"
	FailurePolicyMostSpecific = "most_specific"
)

const (
	defaultOutputDir     = "~/.local/share/dripl/output"
	defaultLogDir        = "~/.local/share/dripl/logs"
	defaultAPIBind       = "127.0.0.1:7490"
	defaultYTDLPBinary   = "yt-dlp"
	defaultTimeoutMS     = 120000
	defaultKillGraceMS   = 2000
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultRetries       = 3
	defaultSocketTimeout = 20
	defaultMaxConcurrent = 2
	defaultFailurePolicy = FailurePolicyLast
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRetentionDays = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Downloader: Downloader{
			Binary:        defaultYTDLPBinary,
			TimeoutMS:     defaultTimeoutMS,
			KillGraceMS:   defaultKillGraceMS,
			UserAgent:     defaultUserAgent,
			Retries:       defaultRetries,
			SocketTimeout: defaultSocketTimeout,
		},
		Retrieval: Retrieval{
			MaxConcurrent: defaultMaxConcurrent,
			FailurePolicy: defaultFailurePolicy,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
