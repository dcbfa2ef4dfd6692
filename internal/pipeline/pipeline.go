package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trackpull/internal/acquire"
	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/retry"
	"trackpull/internal/services"
)

// Resolver finds audio or a redirect for a request.
type Resolver interface {
	Resolve(ctx context.Context, req model.TrackRequest) (acquire.Resolution, error)
}

// Transcoder turns acquired audio into the delivery format.
type Transcoder interface {
	Transcode(ctx context.Context, in *model.AcquisitionResult, req model.TrackRequest) (model.TranscodeResult, error)
}

// Recorder receives outcome and transcode timings.
type Recorder interface {
	Outcome(status, kind string)
	TranscodeDuration(d time.Duration)
}

// Pipeline is safe for concurrent use; runs share no mutable state.
type Pipeline struct {
	resolver    Resolver
	transcoder  Transcoder
	defaultTier quality.Tier
	attempts    int
	delay       time.Duration
	sleep       func(context.Context, time.Duration) error
	observer    Observer
	recorder    Recorder
	logger      *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTranscodeRetry sets the attempt budget and initial backoff around the
// transcode step.
func WithTranscodeRetry(attempts int, initialDelay time.Duration) Option {
	return func(p *Pipeline) {
		p.attempts = attempts
		p.delay = initialDelay
	}
}

// WithDefaultQuality sets the tier used when a request names none.
func WithDefaultQuality(tier quality.Tier) Option {
	return func(p *Pipeline) {
		p.defaultTier = tier
	}
}

// WithSleeper overrides backoff sleeps between transcode attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

// WithObserver registers a transition callback.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// WithRecorder attaches a metrics sink.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New assembles a pipeline from its two stages.
func New(resolver Resolver, transcoder Transcoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:    resolver,
		transcoder:  transcoder,
		defaultTier: quality.Highest,
		attempts:    2,
		delay:       time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

// AcquireAndTranscode runs one track to a terminal outcome.
func (p *Pipeline) AcquireAndTranscode(ctx context.Context, req model.TrackRequest) model.Outcome {
	start := time.Now()
	req.Quality = req.Quality.OrDefault(p.defaultTier)

	run := &runState{
		pipeline: p,
		outcome:  model.Outcome{RunID: uuid.NewString(), Request: req},
	}
	ctx = services.WithRunID(ctx, run.outcome.RunID)
	ctx = services.WithTrackID(ctx, req.ID)
	run.logger = logging.WithContext(ctx, p.logger)

	run.transition(StatePending)
	p.execute(ctx, run)
	run.outcome.Duration = time.Since(start)
	p.finish(run)
	return run.outcome
}

func (p *Pipeline) execute(ctx context.Context, run *runState) {
	req := run.outcome.Request

	if err := ctx.Err(); err != nil {
		run.fail(services.Wrap(services.ErrCancelled, "pipeline", "admit", "", err))
		return
	}

	run.transition(StateResolving)
	resolution, err := p.resolver.Resolve(ctx, req)
	run.outcome.Attempts = resolution.Attempts
	if err != nil {
		run.fail(err)
		return
	}
	run.outcome.Strategy = resolution.Strategy
	run.outcome.Tier = resolution.Tier

	if resolution.Redirect != nil {
		run.transition(StateRedirecting)
		run.outcome.Redirect = resolution.Redirect
		run.outcome.Status = model.StatusRedirected
		run.transition(StateComplete)
		return
	}

	run.transition(StateTranscoding)
	acquired := resolution.Result
	transcodeStart := time.Now()
	policy := retry.Policy{
		MaxAttempts:  p.attempts,
		InitialDelay: p.delay,
		Retryable:    retryableTranscode,
		Sleep:        p.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			run.logger.Warn("transcode attempt failed; retrying",
				logging.String(logging.FieldEventType, "transcode_retry"),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Duration("backoff", delay),
				logging.Error(err),
			)
		},
	}
	result, err := retry.Value(ctx, policy, func(ctx context.Context, _ int) (model.TranscodeResult, error) {
		run.outcome.TranscodeAttempts++
		return p.transcoder.Transcode(ctx, acquired, req)
	})
	// The transcoder has consumed the raw bytes.
	acquired.Raw = nil
	if err != nil {
		if ctx.Err() != nil {
			err = services.Wrap(services.ErrCancelled, "pipeline", "transcode", "", err)
		}
		run.fail(err)
		return
	}
	if p.recorder != nil {
		p.recorder.TranscodeDuration(time.Since(transcodeStart))
	}

	run.outcome.Result = &result
	run.outcome.Status = model.StatusComplete
	run.transition(StateComplete)
}

func (p *Pipeline) finish(run *runState) {
	o := run.outcome
	kind := ""
	if o.Failure != nil {
		kind = string(o.Failure.Kind)
	}
	if p.recorder != nil {
		p.recorder.Outcome(string(o.Status), kind)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "track_outcome"),
		logging.String("status", string(o.Status)),
		logging.String("disposition", string(o.Disposition())),
		logging.Int("attempts", len(o.Attempts)),
		logging.Int("transcode_attempts", o.TranscodeAttempts),
		logging.Duration("duration", o.Duration),
	}
	if o.Strategy != "" {
		attrs = append(attrs,
			logging.String(logging.FieldStrategy, string(o.Strategy)),
			logging.String(logging.FieldTier, o.Tier.String()),
		)
	}
	switch {
	case o.Failure != nil:
		attrs = append(attrs,
			logging.String(logging.FieldErrorKind, string(o.Failure.Kind)),
			logging.String("last_kind", string(o.Failure.LastKind)),
			logging.String("error", o.Failure.Detail),
		)
		if o.Failure.Kind == services.KindCancelled {
			run.logger.Info("track cancelled", logging.Args(attrs...)...)
			return
		}
		logging.ErrorWithContext(run.logger, "track failed", "track_outcome",
			append(attrs,
				logging.String(logging.FieldErrorHint, failureHint(o.Disposition())),
				logging.String(logging.FieldImpact, "track not delivered"),
			)...)
	case o.Redirect != nil:
		run.logger.Info("track delegated to converter",
			logging.Args(append(attrs, logging.String("redirect_service", o.Redirect.Service))...)...)
	default:
		size := int64(0)
		if o.Result != nil {
			size = o.Result.SizeBytes
		}
		run.logger.Info("track complete", logging.Args(append(attrs, logging.Int64("size_bytes", size))...)...)
	}
}

func failureHint(d model.Disposition) string {
	switch d {
	case model.DispositionRetryLater:
		return "upstream or tooling failure; retry the track later"
	case model.DispositionUnavailable:
		return "no source carries this track; use the fallback watch link"
	default:
		return "check logs for details"
	}
}

// retryableTranscode treats encoder failures as worth another run but not
// configuration problems or cancellation.
func retryableTranscode(err error) bool {
	switch services.KindOf(err) {
	case services.KindTranscodeFailed, services.KindProcess, services.KindEmptyOutput:
		return true
	default:
		return false
	}
}

type runState struct {
	pipeline *Pipeline
	outcome  model.Outcome
	logger   *slog.Logger
}

func (r *runState) transition(next State) {
	r.logger.Debug("pipeline state",
		logging.String(logging.FieldEventType, "pipeline_state"),
		logging.String("state", string(next)),
	)
	if r.pipeline.observer != nil {
		r.pipeline.observer(Event{
			RunID:   r.outcome.RunID,
			TrackID: r.outcome.Request.ID,
			State:   next,
			At:      time.Now(),
		})
	}
}

func (r *runState) fail(err error) {
	r.outcome.Status = model.StatusFailed
	r.outcome.Failure = failureFrom(err, r.outcome.Attempts)
	r.transition(StateFailed)
}
