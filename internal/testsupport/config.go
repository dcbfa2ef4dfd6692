package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"trackpull/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Backoff delays are zeroed so retry paths run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Acquisition.InitialDelayMS = 0
	cfgVal.Transcode.InitialDelayMS = 0
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStrategies overrides the acquisition strategy order.
func WithStrategies(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Acquisition.Strategies = append([]string(nil), names...)
	}
}

// WithRedirectServices overrides the hosted converter templates.
func WithRedirectServices(templates ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Acquisition.RedirectServices = append([]string(nil), templates...)
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, yt-dlp and ffmpeg are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		for _, name := range names {
			writeStub(b, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubScript installs a named shell script on PATH.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b, name, script)
	}
}

// WithWorkingTools installs yt-dlp and ffmpeg stubs that produce real output
// files: yt-dlp writes payload to its -o template, ffmpeg copies its input
// to the output path with an "encoded:" prefix.
func WithWorkingTools(payload string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b, "yt-dlp", YtdlpScript(payload))
		writeStub(b, "ffmpeg", FFmpegScript)
	}
}

// YtdlpScript returns a yt-dlp stand-in that writes payload to the output
// template with the requested audio extension.
func YtdlpScript(payload string) string {
	return `#!/bin/sh
out=""
ext=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
    --audio-format) ext="$2"; shift ;;
    --version) echo "2025.01.01"; exit 0 ;;
  esac
  shift
done
target=$(printf '%s' "$out" | sed "s/%(ext)s/$ext/")
printf '%s' '` + payload + `' > "$target"
`
}

// FFmpegScript is an ffmpeg stand-in that prefixes its input with "encoded:".
const FFmpegScript = `#!/bin/sh
in=""
last=""
for arg in "$@"; do
  last="$arg"
done
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift ;;
    -version) echo "ffmpeg version 7.1 Copyright (c) 2000-2024"; exit 0 ;;
  esac
  shift
done
printf 'encoded:' > "$last"
cat "$in" >> "$last"
`

func writeStub(b *configBuilder, name, script string) {
	b.t.Helper()
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if entries := filepath.SplitList(oldPath); len(entries) > 0 && entries[0] == binDir {
		return
	}
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}
