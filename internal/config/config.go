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

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Acquisition configures the strategy chain and the quality ladder entry point.
type Acquisition struct {
	Strategies       []string `toml:"strategies"`
	DefaultQuality   int      `toml:"default_quality"`
	Attempts         int      `toml:"attempts"`
	InitialDelayMS   int      `toml:"initial_delay_ms"`
	RequestTimeout   int      `toml:"request_timeout"`
	YtdlpBinary      string   `toml:"ytdlp_binary"`
	Container        string   `toml:"container"`
	RedirectServices []string `toml:"redirect_services"`
	ProbeTimeout     int      `toml:"probe_timeout"`
}

// Transcode configures the ffmpeg stage.
type Transcode struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	Format         string `toml:"format"`
	Attempts       int    `toml:"attempts"`
	InitialDelayMS int    `toml:"initial_delay_ms"`
	Timeout        int    `toml:"timeout"`
}

// Batch configures playlist processing.
type Batch struct {
	Concurrency int `toml:"concurrency"`
}

// Server configures the HTTP surface.
type Server struct {
	Bind string `toml:"bind"`
}

// Ledger toggles the sqlite outcome ledger.
type Ledger struct {
	Enabled bool `toml:"enabled"`
}

// Notifications configures ntfy batch summaries. An empty topic disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for trackpull.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, and log directories
//   - Acquisition: strategy order, default tier, per-strategy retry budget, yt-dlp, redirect services
//   - Transcode: ffmpeg binary, output format, retry budget, timeout
//   - Batch: concurrency bound
//   - Server: HTTP bind address
//   - Ledger: outcome history toggle
//   - Notifications: ntfy topic for batch summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Transcode     Transcode     `toml:"transcode"`
	Batch         Batch         `toml:"batch"`
	Server        Server        `toml:"server"`
	Ledger        Ledger        `toml:"ledger"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file (TRACKPULL_ENV_FILE or ./.env) is
// loaded first so its values participate in the environment overrides.
func Load(path string) (*Config, string, bool, error) {
	if err := loadEnvFile(); err != nil {
		return nil, "", false, err
	}

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

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile overlays key/value pairs from a dotenv file. Existing environment
// variables win. A missing default .env is not an error; a missing explicit
// TRACKPULL_ENV_FILE is.
func loadEnvFile() error {
	if explicit := strings.TrimSpace(os.Getenv(envFileVar)); explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return fmt.Errorf("load env file %s: %w", explicit, err)
		}
		return nil
	}
	if info, err := os.Stat(".env"); err == nil && !info.IsDir() {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load env file .env: %w", err)
		}
	}
	return nil
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trackpull.toml")
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

// EnsureDirectories creates the output and log directories. The scratch
// directory is owned by the scratch manager, which creates it lazily.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the sqlite database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.LogDir, "ledger.db")
}

// AcquisitionDelay is the initial backoff between strategy attempts.
func (c *Config) AcquisitionDelay() time.Duration {
	return time.Duration(c.Acquisition.InitialDelayMS) * time.Millisecond
}

// RequestTimeout bounds one library fetch.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Acquisition.RequestTimeout) * time.Second
}

// ProbeTimeout bounds one redirect existence check.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Acquisition.ProbeTimeout) * time.Second
}

// TranscodeDelay is the initial backoff between transcode attempts.
func (c *Config) TranscodeDelay() time.Duration {
	return time.Duration(c.Transcode.InitialDelayMS) * time.Millisecond
}

// NotificationTimeout bounds a single ntfy request.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// TranscodeTimeout bounds one ffmpeg invocation.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Transcode.Timeout) * time.Second
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
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
