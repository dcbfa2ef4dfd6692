package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/retry"
	"trackpull/internal/scratch"
	"trackpull/internal/services"
)

// Recorder receives one call per acquisition attempt.
type Recorder interface {
	AcquireAttempt(strategy, result string)
}

// Resolution is the chain's answer for one request. Attempts is populated on
// success and failure alike.
type Resolution struct {
	Result   *model.AcquisitionResult
	Redirect *model.Redirect
	Strategy model.StrategyName
	Tier     quality.Tier
	Attempts []model.Attempt
}

// Chain tries strategies in priority order.
type Chain struct {
	strategies []Strategy
	attempts   int
	delay      time.Duration
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
	recorder   Recorder
}

// ChainOption customizes a Chain.
type ChainOption func(*Chain)

// WithRetry sets the per-strategy, per-tier attempt budget and initial backoff.
func WithRetry(attempts int, initialDelay time.Duration) ChainOption {
	return func(c *Chain) {
		c.attempts = attempts
		c.delay = initialDelay
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) ChainOption {
	return func(c *Chain) {
		c.sleep = sleep
	}
}

// WithLogger sets the logger for acquire_attempt events.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithRecorder attaches an attempt metrics sink.
func WithRecorder(r Recorder) ChainOption {
	return func(c *Chain) {
		c.recorder = r
	}
}

// NewChain builds a chain over strategies in the order given.
func NewChain(strategies []Strategy, opts ...ChainOption) *Chain {
	c := &Chain{
		strategies: append([]Strategy(nil), strategies...),
		attempts:   3,
		delay:      500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "acquire")
	return c
}

// Strategies returns the configured order.
func (c *Chain) Strategies() []model.StrategyName {
	names := make([]model.StrategyName, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Resolve walks the chain for req. It returns an error marked
// services.ErrCancelled when ctx ends, or services.ErrNoAvailableSource
// (wrapping the last strategy error) when every strategy has given up. A
// scratch.ErrUnavailable failure stops the walk and is returned as is; later
// strategies are not tried.
func (c *Chain) Resolve(ctx context.Context, req model.TrackRequest) (Resolution, error) {
	res := Resolution{}
	var lastErr error

	for _, strategy := range c.strategies {
		sctx := services.WithStrategy(ctx, string(strategy.Name()))
		for _, tier := range quality.Ladder(req.Quality) {
			fetched, err := c.attempt(sctx, strategy, req, tier, &res.Attempts)
			if err == nil {
				res.Result = fetched.Result
				res.Redirect = fetched.Redirect
				res.Strategy = strategy.Name()
				res.Tier = tier
				return res, nil
			}
			lastErr = err
			if errors.Is(err, scratch.ErrUnavailable) {
				return res, err
			}
			if ctx.Err() != nil || services.KindOf(err) == services.KindCancelled {
				return res, services.Wrap(services.ErrCancelled, "acquire", string(strategy.Name()), "", err)
			}
			if !errors.Is(err, services.ErrQualityUnavailable) {
				break
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return res, services.Wrap(services.ErrNoAvailableSource, "acquire", "chain",
		fmt.Sprintf("%d strategies exhausted after %d attempts", len(c.strategies), len(res.Attempts)), lastErr)
}

func (c *Chain) attempt(ctx context.Context, strategy Strategy, req model.TrackRequest, tier quality.Tier, log *[]model.Attempt) (Fetched, error) {
	policy := retry.Policy{
		MaxAttempts:  c.attempts,
		InitialDelay: c.delay,
		Retryable:    services.Transient,
		Sleep:        c.sleep,
	}
	return retry.Value(ctx, policy, func(ctx context.Context, n int) (Fetched, error) {
		start := time.Now()
		fetched, err := strategy.Acquire(ctx, req, tier)
		if err == nil && fetched.Result == nil && fetched.Redirect == nil {
			err = services.Wrap(services.ErrEmptyOutput, string(strategy.Name()), "acquire", "strategy returned nothing", nil)
		}
		entry := model.Attempt{
			Strategy: strategy.Name(),
			Tier:     tier,
			Number:   n,
			Kind:     services.KindOf(err),
			Duration: time.Since(start),
		}
		if err != nil {
			entry.Message = err.Error()
		}
		*log = append(*log, entry)
		c.observe(ctx, entry)
		return fetched, err
	})
}

func (c *Chain) observe(ctx context.Context, a model.Attempt) {
	result := "ok"
	if !a.Succeeded() {
		result = string(a.Kind)
	}
	if c.recorder != nil {
		c.recorder.AcquireAttempt(string(a.Strategy), result)
	}

	logger := logging.WithContext(ctx, c.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "acquire_attempt"),
		logging.String(logging.FieldTier, a.Tier.String()),
		logging.Int(logging.FieldAttempt, a.Number),
		logging.String("result", result),
		logging.Duration("duration", a.Duration),
	}
	if a.Succeeded() {
		logger.Info("acquisition attempt succeeded", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.String(logging.FieldErrorKind, string(a.Kind)),
		logging.String("error", a.Message),
		logging.String(logging.FieldErrorHint, hintFor(a.Kind)),
	)
	logging.WarnWithContext(logger, "acquisition attempt failed", "acquire_attempt",
		append(attrs, logging.String(logging.FieldImpact, impactFor(a.Kind)))...)
}

func hintFor(kind services.ErrorKind) string {
	switch kind {
	case services.KindNetwork:
		return "check network connectivity; the attempt is retried with backoff"
	case services.KindProcess, services.KindEmptyOutput:
		return "update yt-dlp or inspect its stderr tail"
	case services.KindQualityUnavailable:
		return "the lowest quality tier is tried next"
	case services.KindSourceNotFound:
		return "verify the track id is public and playable"
	case services.KindConfiguration:
		return "run trackpull check to verify tools and settings"
	default:
		return "check logs for details"
	}
}

func impactFor(kind services.ErrorKind) string {
	switch kind {
	case services.KindNetwork, services.KindProcess, services.KindEmptyOutput:
		return "attempt retried or strategy abandoned when budget is spent"
	case services.KindQualityUnavailable:
		return "track may be delivered at reduced quality"
	case services.KindCancelled:
		return "track reported as cancelled"
	default:
		return "next strategy in the chain is tried"
	}
}
