package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays TRACKPULL_* environment variables onto file values.
func (c *Config) applyEnv() error {
	if value, ok := lookupTrimmed("TRACKPULL_SCRATCH_DIR"); ok {
		c.Paths.ScratchDir = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_OUTPUT_DIR"); ok {
		c.Paths.OutputDir = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_LOG_FORMAT"); ok {
		c.Logging.Format = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_YTDLP_BINARY"); ok {
		c.Acquisition.YtdlpBinary = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_FFMPEG_BINARY"); ok {
		c.Transcode.FFmpegBinary = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	if value, ok := lookupTrimmed("TRACKPULL_CONCURRENCY"); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("TRACKPULL_CONCURRENCY: %w", err)
		}
		c.Batch.Concurrency = n
	}
	return nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeTranscode()
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = defaultConcurrency
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	if len(c.Acquisition.Strategies) == 0 {
		c.Acquisition.Strategies = defaultStrategies()
	} else {
		names := make([]string, 0, len(c.Acquisition.Strategies))
		for _, name := range c.Acquisition.Strategies {
			names = append(names, strings.ToLower(strings.TrimSpace(name)))
		}
		c.Acquisition.Strategies = names
	}
	if c.Acquisition.DefaultQuality == 0 {
		c.Acquisition.DefaultQuality = defaultQuality
	}
	if c.Acquisition.Attempts == 0 {
		c.Acquisition.Attempts = defaultAcquisitionAttempts
	}
	if c.Acquisition.InitialDelayMS < 0 {
		c.Acquisition.InitialDelayMS = 0
	}
	if c.Acquisition.RequestTimeout <= 0 {
		c.Acquisition.RequestTimeout = defaultRequestTimeoutSeconds
	}
	c.Acquisition.YtdlpBinary = strings.TrimSpace(c.Acquisition.YtdlpBinary)
	if c.Acquisition.YtdlpBinary == "" {
		c.Acquisition.YtdlpBinary = defaultYtdlpBinary
	}
	c.Acquisition.Container = strings.ToLower(strings.TrimSpace(c.Acquisition.Container))
	if c.Acquisition.Container == "" {
		c.Acquisition.Container = defaultContainer
	}
	services := make([]string, 0, len(c.Acquisition.RedirectServices))
	for _, svc := range c.Acquisition.RedirectServices {
		if svc = strings.TrimSpace(svc); svc != "" {
			services = append(services, svc)
		}
	}
	c.Acquisition.RedirectServices = services
	if c.Acquisition.ProbeTimeout <= 0 {
		c.Acquisition.ProbeTimeout = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcode.Format = strings.ToLower(strings.TrimSpace(c.Transcode.Format))
	if c.Transcode.Format == "" {
		c.Transcode.Format = defaultTranscodeFormat
	}
	if c.Transcode.Attempts == 0 {
		c.Transcode.Attempts = defaultTranscodeAttempts
	}
	if c.Transcode.InitialDelayMS < 0 {
		c.Transcode.InitialDelayMS = 0
	}
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTranscodeTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeoutSeconds
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
}
