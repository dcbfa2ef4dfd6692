package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/scratch"
	"trackpull/internal/services"
)

var commandContext = exec.CommandContext

var (
	reFormatUnavailable = regexp.MustCompile(`(?i)requested format is not available|no video formats found`)
	reSourceMissing     = regexp.MustCompile(`(?i)video unavailable|private video|this video is not available|` +
		`has been removed|account associated with this video has been terminated|` +
		`sign in to confirm your age|incomplete youtube id|is not a valid url`)
	reTransientNetwork = regexp.MustCompile(`(?i)http error 5\d\d|http error 429|timed out|connection reset|` +
		`unable to download webpage|temporary failure in name resolution|read operation timed out`)
)

// Binary runs the yt-dlp extractor for one track.
type Binary struct {
	binary    string
	container string
	scratch   *scratch.Manager
	logger    *slog.Logger
}

// NewBinary returns a Binary strategy that writes extractor output into mgr.
func NewBinary(binary, container string, mgr *scratch.Manager, logger *slog.Logger) *Binary {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	container = strings.TrimSpace(container)
	if container == "" {
		container = "m4a"
	}
	return &Binary{
		binary:    binary,
		container: container,
		scratch:   mgr,
		logger:    logging.NewComponentLogger(logger, "ytdlp"),
	}
}

func (b *Binary) Name() model.StrategyName { return model.StrategyBinary }

func (b *Binary) Acquire(ctx context.Context, req model.TrackRequest, tier quality.Tier) (Fetched, error) {
	handle, err := b.scratch.Acquire("ytdlp-*." + b.container)
	if err != nil {
		return Fetched{}, services.Wrap(services.ErrConfiguration, "binary", "scratch", "", err)
	}
	defer handle.Release()

	outputPath := handle.Path()
	template := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".%(ext)s"
	args := []string{
		"--no-playlist",
		"--no-part",
		"--no-progress",
		"--quiet",
		"-f", formatSelector(tier),
		"-x",
		"--audio-format", b.container,
		"-o", template,
		"--",
		model.FallbackURL(req.ID),
	}

	stderr := services.NewTailBuffer(32 * 1024)
	cmd := commandContext(ctx, b.binary, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	logging.WithContext(ctx, b.logger).Debug("running extractor",
		logging.String("binary", b.binary),
		logging.String("selector", formatSelector(tier)),
		logging.String("output", outputPath),
	)

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Fetched{}, ctxErr
	}
	if runErr != nil {
		return Fetched{}, classifyBinaryFailure(b.binary, runErr, stderr.String())
	}

	data, err := readOutput(outputPath)
	if err != nil {
		return Fetched{}, &services.ProcessError{
			Tool:       filepath.Base(b.binary),
			StderrTail: services.Tail(stderr.String()),
			Err:        err,
		}
	}

	return Fetched{Result: &model.AcquisitionResult{
		Raw:       data,
		Container: b.container,
		Strategy:  model.StrategyBinary,
		Tier:      tier,
	}}, nil
}

// formatSelector expresses a tier as a yt-dlp format filter. The lowest tier
// takes whatever audio exists.
func formatSelector(tier quality.Tier) string {
	if tier.IsLowest() || !tier.Valid() {
		return "bestaudio/best"
	}
	return fmt.Sprintf("bestaudio[abr>=%d]", tier.MinBitrateKbps())
}

// readOutput enforces the success oracle: the file exists and is non-empty.
func readOutput(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: output file missing", services.ErrEmptyOutput)
		}
		return nil, fmt.Errorf("%w: stat output: %v", services.ErrProcess, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: output file is zero bytes", services.ErrEmptyOutput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", services.ErrProcess, err)
	}
	return data, nil
}

func classifyBinaryFailure(binary string, runErr error, stderr string) error {
	tool := filepath.Base(binary)
	if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, "binary", "exec", tool+" not found", runErr)
	}
	marker := services.ErrProcess
	switch {
	case reFormatUnavailable.MatchString(stderr):
		marker = services.ErrQualityUnavailable
	case reSourceMissing.MatchString(stderr):
		marker = services.ErrSourceNotFound
	case reTransientNetwork.MatchString(stderr):
		marker = services.ErrNetwork
	}
	return &services.ProcessError{
		Tool:       tool,
		ExitCode:   services.ExitCode(runErr),
		StderrTail: services.Tail(stderr),
		Err:        marker,
	}
}
