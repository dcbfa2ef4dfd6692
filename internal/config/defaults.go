package config

const (
	defaultConfigPath            = "~/.config/trackpull/config.toml"
	defaultScratchDir            = "~/.cache/trackpull/scratch"
	defaultOutputDir             = "~/Music/trackpull"
	defaultLogDir                = "~/.local/share/trackpull/logs"
	defaultQuality               = 4
	defaultAcquisitionAttempts   = 3
	defaultAcquisitionDelayMS    = 500
	defaultRequestTimeoutSeconds = 120
	defaultYtdlpBinary           = "yt-dlp"
	defaultContainer             = "m4a"
	defaultProbeTimeoutSeconds   = 5
	defaultFFmpegBinary          = "ffmpeg"
	defaultTranscodeFormat       = "mp3"
	defaultTranscodeAttempts     = 2
	defaultTranscodeDelayMS      = 1000
	defaultTranscodeTimeout      = 600
	defaultConcurrency           = 3
	defaultServerBind            = "127.0.0.1:7490"
	defaultNtfyTimeoutSeconds    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	envFileVar = "TRACKPULL_ENV_FILE"
)

// Strategy names accepted in acquisition.strategies.
const (
	StrategyLibrary  = "library"
	StrategyBinary   = "binary"
	StrategyRedirect = "redirect"
)

func defaultStrategies() []string {
	return []string{StrategyLibrary, StrategyBinary, StrategyRedirect}
}

func defaultRedirectServices() []string {
	return []string{
		"https://www.yt-download.org/api/button/mp3/{id}",
		"https://api.vevioz.com/@api/button/mp3/{id}",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Acquisition: Acquisition{
			Strategies:       defaultStrategies(),
			DefaultQuality:   defaultQuality,
			Attempts:         defaultAcquisitionAttempts,
			InitialDelayMS:   defaultAcquisitionDelayMS,
			RequestTimeout:   defaultRequestTimeoutSeconds,
			YtdlpBinary:      defaultYtdlpBinary,
			Container:        defaultContainer,
			RedirectServices: defaultRedirectServices(),
			ProbeTimeout:     defaultProbeTimeoutSeconds,
		},
		Transcode: Transcode{
			FFmpegBinary:   defaultFFmpegBinary,
			Format:         defaultTranscodeFormat,
			Attempts:       defaultTranscodeAttempts,
			InitialDelayMS: defaultTranscodeDelayMS,
			Timeout:        defaultTranscodeTimeout,
		},
		Batch: Batch{
			Concurrency: defaultConcurrency,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
