package pipeline

import (
	"fmt"
	"log/slog"

	"trackpull/internal/acquire"
	"trackpull/internal/config"
	"trackpull/internal/metrics"
	"trackpull/internal/quality"
	"trackpull/internal/scratch"
	"trackpull/internal/transcode"
)

// FromConfig wires the strategy chain, the ffmpeg transcoder, and a pipeline
// over them. The scratch directory is created here so an unusable one fails
// startup instead of individual tracks. m may be nil.
func FromConfig(cfg *config.Config, mgr *scratch.Manager, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config is nil")
	}
	if mgr == nil {
		return nil, fmt.Errorf("pipeline: scratch manager is nil")
	}
	if err := mgr.Init(); err != nil {
		return nil, err
	}

	strategies, err := acquire.FromConfig(cfg, mgr, logger)
	if err != nil {
		return nil, err
	}
	chain := acquire.NewChain(strategies,
		acquire.WithRetry(cfg.Acquisition.Attempts, cfg.AcquisitionDelay()),
		acquire.WithLogger(logger),
		acquire.WithRecorder(m),
	)

	format, err := transcode.LookupFormat(cfg.Transcode.Format)
	if err != nil {
		return nil, err
	}
	transcoder := transcode.New(cfg.Transcode.FFmpegBinary, format, cfg.TranscodeTimeout(), mgr, logger)

	base := []Option{
		WithDefaultQuality(quality.Tier(cfg.Acquisition.DefaultQuality)),
		WithTranscodeRetry(cfg.Transcode.Attempts, cfg.TranscodeDelay()),
		WithRecorder(m),
		WithLogger(logger),
	}
	return New(chain, transcoder, append(base, opts...)...), nil
}
