package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"trackpull/internal/config"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/scratch"
)

// Strategy is one method of obtaining audio for a request at a given tier.
// Implementations return exactly one of Fetched.Result or Fetched.Redirect
// on success.
type Strategy interface {
	Name() model.StrategyName
	Acquire(ctx context.Context, req model.TrackRequest, tier quality.Tier) (Fetched, error)
}

// Fetched is a successful strategy attempt.
type Fetched struct {
	Result   *model.AcquisitionResult
	Redirect *model.Redirect
}

// FromConfig builds the strategies named in cfg.Acquisition.Strategies, in order.
func FromConfig(cfg *config.Config, mgr *scratch.Manager, logger *slog.Logger) ([]Strategy, error) {
	if cfg == nil {
		return nil, fmt.Errorf("acquire: config is nil")
	}
	strategies := make([]Strategy, 0, len(cfg.Acquisition.Strategies))
	for _, name := range cfg.Acquisition.Strategies {
		switch model.StrategyName(name) {
		case model.StrategyLibrary:
			strategies = append(strategies, NewLibrary(cfg.RequestTimeout()))
		case model.StrategyBinary:
			strategies = append(strategies, NewBinary(cfg.Acquisition.YtdlpBinary, cfg.Acquisition.Container, mgr, logger))
		case model.StrategyRedirect:
			strategies = append(strategies, NewRedirect(cfg.Acquisition.RedirectServices, cfg.ProbeTimeout()))
		default:
			return nil, fmt.Errorf("acquire: unknown strategy %q", name)
		}
	}
	return strategies, nil
}
