package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/services"
)

// DefaultBound is used when Run receives a non-positive bound.
const DefaultBound = 3

// State is the batch lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Runner processes one track to a terminal outcome.
type Runner interface {
	AcquireAndTranscode(ctx context.Context, req model.TrackRequest) model.Outcome
}

// Recorder tracks in-flight work.
type Recorder interface {
	TrackStarted()
	TrackFinished()
}

// Event reports batch state changes and admissions.
type Event struct {
	BatchID  string
	State    State
	InFlight int
	Admitted int
	Finished int
	Total    int
}

// Controller is safe for concurrent Run calls; each call is an independent batch.
type Controller struct {
	runner   Runner
	logger   *slog.Logger
	recorder Recorder
	observer func(Event)
	sink     func(index int, outcome model.Outcome)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder attaches an in-flight gauge.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithObserver receives every state change and admission. Calls are
// serialized.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithSink receives each outcome as soon as it is final, including
// cancellations of unadmitted tracks. Calls are serialized.
func WithSink(fn func(index int, outcome model.Outcome)) Option {
	return func(c *Controller) {
		c.sink = fn
	}
}

// New returns a Controller that runs tracks through runner.
func New(runner Runner, opts ...Option) *Controller {
	c := &Controller{runner: runner}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "batch")
	return c
}

// Run processes reqs with at most bound tracks in flight and returns once
// every track has a terminal outcome.
func (c *Controller) Run(ctx context.Context, reqs []model.TrackRequest, bound int) Report {
	if bound <= 0 {
		bound = DefaultBound
	}
	b := &run{
		controller: c,
		report: Report{
			BatchID:  uuid.NewString(),
			State:    StateIdle,
			Bound:    bound,
			Outcomes: make([]model.Outcome, len(reqs)),
		},
		total: len(reqs),
	}
	ctx = services.WithBatchID(ctx, b.report.BatchID)
	b.logger = logging.WithContext(ctx, c.logger)
	start := time.Now()

	b.setState(StateRunning)
	b.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("tracks", len(reqs)),
		logging.Int("bound", bound),
	)

	slots := make(chan struct{}, bound)
	var wg sync.WaitGroup
	next := 0
admit:
	for ; next < len(reqs); next++ {
		select {
		case <-ctx.Done():
			break admit
		case slots <- struct{}{}:
		}
		// A finishing track may cancel the batch before freeing its slot.
		if ctx.Err() != nil {
			<-slots
			break admit
		}
		b.admitted()
		wg.Add(1)
		go func(index int, req model.TrackRequest) {
			defer wg.Done()
			defer func() { <-slots }()
			outcome := c.runner.AcquireAndTranscode(ctx, req)
			b.finished(index, outcome)
		}(next, reqs[next])
	}
	wg.Wait()

	for i := next; i < len(reqs); i++ {
		b.deliver(i, model.Cancelled(reqs[i], "batch cancelled before the track was admitted"))
	}

	b.report.Duration = time.Since(start)
	final := StateCompleted
	if next < len(reqs) || (ctx.Err() != nil && b.report.Counts().Cancelled > 0) {
		final = StateCancelled
	}
	b.setState(final)

	counts := b.report.Counts()
	b.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("state", string(final)),
		logging.Int("complete", counts.Complete),
		logging.Int("redirected", counts.Redirected),
		logging.Int("failed", counts.Failed),
		logging.Int("cancelled", counts.Cancelled),
		logging.Int("max_in_flight", b.report.MaxInFlight),
		logging.Duration("duration", b.report.Duration),
	)
	return b.report
}

type run struct {
	controller *Controller
	logger     *slog.Logger

	mu       sync.Mutex
	report   Report
	total    int
	inFlight int
	admits   int
	finishes int
}

func (b *run) setState(state State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.State = state
	b.emitLocked()
}

func (b *run) admitted() {
	if b.controller.recorder != nil {
		b.controller.recorder.TrackStarted()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight++
	b.admits++
	if b.inFlight > b.report.MaxInFlight {
		b.report.MaxInFlight = b.inFlight
	}
	b.emitLocked()
}

func (b *run) finished(index int, outcome model.Outcome) {
	if b.controller.recorder != nil {
		b.controller.recorder.TrackFinished()
	}
	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()
	b.deliver(index, outcome)
}

func (b *run) deliver(index int, outcome model.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.Outcomes[index] = outcome
	b.finishes++
	if b.controller.sink != nil {
		b.controller.sink(index, outcome)
	}
	b.emitLocked()
}

func (b *run) emitLocked() {
	if b.controller.observer == nil {
		return
	}
	b.controller.observer(Event{
		BatchID:  b.report.BatchID,
		State:    b.report.State,
		InFlight: b.inFlight,
		Admitted: b.admits,
		Finished: b.finishes,
		Total:    b.total,
	})
}
