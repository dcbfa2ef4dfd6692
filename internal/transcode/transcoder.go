package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/scratch"
	"trackpull/internal/services"
)

var commandContext = exec.CommandContext

const stderrLimit = 64 * 1024

// Transcoder runs ffmpeg for one acquisition result at a time. It is safe for
// concurrent use; every call works on its own scratch paths.
type Transcoder struct {
	binary  string
	format  Format
	timeout time.Duration
	scratch *scratch.Manager
	logger  *slog.Logger
}

// New returns a Transcoder. A non-positive timeout means no per-run deadline
// beyond ctx.
func New(binary string, format Format, timeout time.Duration, mgr *scratch.Manager, logger *slog.Logger) *Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if format.Name == "" {
		format = MP3
	}
	return &Transcoder{
		binary:  binary,
		format:  format,
		timeout: timeout,
		scratch: mgr,
		logger:  logging.NewComponentLogger(logger, "transcode"),
	}
}

// Format returns the delivery format.
func (t *Transcoder) Format() Format {
	return t.format
}

// Transcode converts in.Raw, tagging the output with the request's metadata.
func (t *Transcoder) Transcode(ctx context.Context, in *model.AcquisitionResult, req model.TrackRequest) (model.TranscodeResult, error) {
	if in == nil || len(in.Raw) == 0 {
		return model.TranscodeResult{}, services.Wrap(services.ErrTranscodeFailed, "transcode", "input", "no audio to transcode", nil)
	}

	container := strings.TrimPrefix(strings.TrimSpace(in.Container), ".")
	if container == "" {
		container = "bin"
	}
	input, err := t.scratch.Acquire("in-*." + container)
	if err != nil {
		return model.TranscodeResult{}, services.Wrap(services.ErrConfiguration, "transcode", "scratch", "", err)
	}
	defer input.Release()
	output, err := t.scratch.Acquire("out-*." + t.format.Extension)
	if err != nil {
		return model.TranscodeResult{}, services.Wrap(services.ErrConfiguration, "transcode", "scratch", "", err)
	}
	defer output.Release()

	if err := os.WriteFile(input.Path(), in.Raw, 0o600); err != nil {
		return model.TranscodeResult{}, services.Wrap(services.ErrTranscodeFailed, "transcode", "stage input", "", err)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := t.args(input.Path(), output.Path(), req)
	stderr := services.NewTailBuffer(stderrLimit)
	cmd := commandContext(runCtx, t.binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	start := time.Now()
	logger := logging.WithContext(ctx, t.logger)
	logger.Debug("ffmpeg starting",
		logging.String("input", filepath.Base(input.Path())),
		logging.String("format", t.format.Name),
		logging.Int("input_bytes", len(in.Raw)),
	)

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.TranscodeResult{}, ctxErr
	}
	if runErr != nil {
		return model.TranscodeResult{}, t.failure(runErr, stderr.String(), runCtx.Err())
	}

	data, err := readOutput(output.Path())
	if err != nil {
		return model.TranscodeResult{}, &services.ProcessError{
			Tool:       filepath.Base(t.binary),
			StderrTail: services.Tail(stderr.String()),
			Err:        services.Wrap(services.ErrTranscodeFailed, "transcode", "output", "", err),
		}
	}

	logger.Debug("ffmpeg finished",
		logging.Int("output_bytes", len(data)),
		logging.Duration("duration", time.Since(start)),
	)
	return model.TranscodeResult{
		AudioBytes: data,
		MimeType:   t.format.MimeType,
		SizeBytes:  int64(len(data)),
		Extension:  t.format.Extension,
	}, nil
}

func (t *Transcoder) args(input, output string, req model.TrackRequest) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-map_metadata", "-1",
	}
	args = append(args, t.format.codecArgs...)
	if title := strings.TrimSpace(req.Title); title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	if artist := strings.TrimSpace(req.Artist); artist != "" {
		args = append(args, "-metadata", "artist="+artist)
	}
	return append(args, output)
}

func (t *Transcoder) failure(runErr error, stderr string, deadlineErr error) error {
	tool := filepath.Base(t.binary)
	if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, "transcode", "exec", tool+" not found", runErr)
	}
	marker := services.ErrTranscodeFailed
	if errors.Is(deadlineErr, context.DeadlineExceeded) {
		marker = services.Wrap(services.ErrTranscodeFailed, "transcode", "run", fmt.Sprintf("timed out after %s", t.timeout), nil)
	}
	return &services.ProcessError{
		Tool:       tool,
		ExitCode:   services.ExitCode(runErr),
		StderrTail: services.Tail(stderr),
		Err:        marker,
	}
}

func readOutput(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("output file missing")
		}
		return nil, err
	}
	if info.Size() == 0 {
		return nil, errors.New("output file is zero bytes")
	}
	return os.ReadFile(path)
}
