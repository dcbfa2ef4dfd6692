package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trackpull/internal/acquire"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/services"
)

type fakeStrategy struct {
	name model.StrategyName
	fn   func(ctx context.Context, tier quality.Tier) (acquire.Fetched, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeStrategy) Name() model.StrategyName { return f.name }

func (f *fakeStrategy) Acquire(ctx context.Context, _ model.TrackRequest, tier quality.Tier) (acquire.Fetched, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, tier)
}

func rawAudio(payload string) func(context.Context, quality.Tier) (acquire.Fetched, error) {
	return func(_ context.Context, tier quality.Tier) (acquire.Fetched, error) {
		return acquire.Fetched{Result: &model.AcquisitionResult{Raw: []byte(payload), Container: "webm", Tier: tier}}, nil
	}
}

type fakeTranscoder struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	inputs []*model.AcquisitionResult
}

func (f *fakeTranscoder) Transcode(_ context.Context, in *model.AcquisitionResult, _ model.TrackRequest) (model.TranscodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, in)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return model.TranscodeResult{}, err
		}
	}
	out := append([]byte("mp3:"), in.Raw...)
	return model.TranscodeResult{AudioBytes: out, MimeType: "audio/mpeg", SizeBytes: int64(len(out)), Extension: "mp3"}, nil
}

type recordingRecorder struct {
	mu        sync.Mutex
	outcomes  []string
	transcode int
}

func (r *recordingRecorder) Outcome(status, kind string) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, status+"/"+kind)
	r.mu.Unlock()
}

func (r *recordingRecorder) TranscodeDuration(time.Duration) {
	r.mu.Lock()
	r.transcode++
	r.mu.Unlock()
}

func noSleep(context.Context, time.Duration) error { return nil }

func newPipeline(strategies []acquire.Strategy, tr Transcoder, opts ...Option) *Pipeline {
	chain := acquire.NewChain(strategies, acquire.WithSleeper(noSleep))
	return New(chain, tr, append([]Option{WithSleeper(noSleep)}, opts...)...)
}

func collectStates(events *[]State) Observer {
	var mu sync.Mutex
	return func(e Event) {
		mu.Lock()
		*events = append(*events, e.State)
		mu.Unlock()
	}
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAcquireAndTranscodeComplete(t *testing.T) {
	tr := &fakeTranscoder{}
	rec := &recordingRecorder{}
	var states []State
	p := newPipeline(
		[]acquire.Strategy{&fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("pcm")}},
		tr,
		WithObserver(collectStates(&states)),
		WithRecorder(rec),
	)

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc", Title: "Song", Artist: "Band"})
	if out.Status != model.StatusComplete || out.Result == nil {
		t.Fatalf("expected complete outcome, got %+v", out)
	}
	if string(out.Result.AudioBytes) != "mp3:pcm" {
		t.Fatalf("unexpected bytes %q", out.Result.AudioBytes)
	}
	if out.RunID == "" || out.Strategy != model.StrategyLibrary || out.Tier != quality.Highest {
		t.Fatalf("unexpected outcome metadata %+v", out)
	}
	if out.Filename() != "Band_Song.mp3" {
		t.Fatalf("filename = %q", out.Filename())
	}
	if len(out.Attempts) != 1 || out.TranscodeAttempts != 1 {
		t.Fatalf("attempts = %d transcode = %d", len(out.Attempts), out.TranscodeAttempts)
	}
	want := []State{StatePending, StateResolving, StateTranscoding, StateComplete}
	if !equalStates(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	if tr.inputs[0].Raw != nil {
		t.Fatal("raw acquisition bytes were not released after transcoding")
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != "complete/" || rec.transcode != 1 {
		t.Fatalf("recorder saw %v / %d", rec.outcomes, rec.transcode)
	}
}

func TestAcquireAndTranscodeRedirectSkipsTranscoder(t *testing.T) {
	tr := &fakeTranscoder{}
	var states []State
	redirect := &fakeStrategy{name: model.StrategyRedirect, fn: func(context.Context, quality.Tier) (acquire.Fetched, error) {
		return acquire.Fetched{Redirect: &model.Redirect{URL: "https://conv.example/abc", Service: "conv.example"}}, nil
	}}
	p := newPipeline([]acquire.Strategy{redirect}, tr, WithObserver(collectStates(&states)))

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc"})
	if out.Status != model.StatusRedirected || out.Redirect == nil || out.Result != nil {
		t.Fatalf("expected redirect outcome, got %+v", out)
	}
	if out.Disposition() != model.DispositionRedirect {
		t.Fatalf("disposition = %s", out.Disposition())
	}
	if tr.calls != 0 {
		t.Fatal("transcoder must not run for a redirect")
	}
	want := []State{StatePending, StateResolving, StateRedirecting, StateComplete}
	if !equalStates(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
}

func TestAcquireAndTranscodeNoSource(t *testing.T) {
	notFound := &fakeStrategy{name: model.StrategyLibrary, fn: func(context.Context, quality.Tier) (acquire.Fetched, error) {
		return acquire.Fetched{}, services.Wrap(services.ErrSourceNotFound, "library", "lookup", "video unavailable", nil)
	}}
	flaky := &fakeStrategy{name: model.StrategyBinary, fn: func(context.Context, quality.Tier) (acquire.Fetched, error) {
		return acquire.Fetched{}, &services.ProcessError{Tool: "yt-dlp", ExitCode: 1, StderrTail: "HTTP Error 503", Err: services.ErrNetwork}
	}}
	var states []State
	p := newPipeline([]acquire.Strategy{notFound, flaky}, &fakeTranscoder{}, WithObserver(collectStates(&states)))

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "gone"})
	if out.Status != model.StatusFailed || out.Failure == nil {
		t.Fatalf("expected failure, got %+v", out)
	}
	f := out.Failure
	if f.Kind != services.KindNoAvailableSource || f.LastKind != services.KindNetwork {
		t.Fatalf("unexpected failure kinds %+v", f)
	}
	if f.ExitCode != 1 || f.StderrTail != "HTTP Error 503" {
		t.Fatalf("process details lost: %+v", f)
	}
	if len(out.Attempts) != 1+3 {
		t.Fatalf("expected 4 logged attempts, got %d", len(out.Attempts))
	}
	if out.Disposition() != model.DispositionRetryLater {
		t.Fatalf("disposition = %s", out.Disposition())
	}
	if states[len(states)-1] != StateFailed {
		t.Fatalf("final state = %s", states[len(states)-1])
	}
}

func TestAcquireAndTranscodeRetriesTranscoder(t *testing.T) {
	tr := &fakeTranscoder{errs: []error{
		&services.ProcessError{Tool: "ffmpeg", ExitCode: 1, Err: services.ErrTranscodeFailed},
	}}
	p := newPipeline([]acquire.Strategy{&fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("x")}}, tr, WithTranscodeRetry(2, time.Millisecond))

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc"})
	if out.Status != model.StatusComplete {
		t.Fatalf("expected complete after retry, got %+v", out.Failure)
	}
	if out.TranscodeAttempts != 2 {
		t.Fatalf("transcode attempts = %d", out.TranscodeAttempts)
	}
}

func TestAcquireAndTranscodeTranscodeFailure(t *testing.T) {
	failure := &services.ProcessError{Tool: "ffmpeg", ExitCode: 69, StderrTail: "Invalid data", Err: services.ErrTranscodeFailed}
	tr := &fakeTranscoder{errs: []error{failure, failure}}
	p := newPipeline([]acquire.Strategy{&fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("x")}}, tr, WithTranscodeRetry(2, 0))

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc"})
	if out.Failure == nil || out.Failure.Kind != services.KindTranscodeFailed {
		t.Fatalf("expected transcode failure, got %+v", out)
	}
	if out.Failure.ExitCode != 69 || out.Failure.StderrTail != "Invalid data" {
		t.Fatalf("process details lost: %+v", out.Failure)
	}
	if out.Strategy != model.StrategyLibrary {
		t.Fatalf("strategy should be recorded on transcode failure, got %q", out.Strategy)
	}
	if out.Disposition() != model.DispositionRetryLater {
		t.Fatalf("disposition = %s", out.Disposition())
	}
}

func TestAcquireAndTranscodeConfigurationFailureNotRetried(t *testing.T) {
	tr := &fakeTranscoder{errs: []error{services.Wrap(services.ErrConfiguration, "transcode", "exec", "ffmpeg not found", nil)}}
	p := newPipeline([]acquire.Strategy{&fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("x")}}, tr, WithTranscodeRetry(3, 0))
	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc"})
	if out.TranscodeAttempts != 1 || out.Failure.Kind != services.KindConfiguration {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestAcquireAndTranscodeCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	strategy := &fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("x")}
	p := newPipeline([]acquire.Strategy{strategy}, &fakeTranscoder{})

	out := p.AcquireAndTranscode(ctx, model.TrackRequest{ID: "abc"})
	if out.Failure == nil || out.Failure.Kind != services.KindCancelled {
		t.Fatalf("expected cancelled, got %+v", out)
	}
	if strategy.calls != 0 {
		t.Fatal("strategy ran after cancellation")
	}
	if out.Disposition() != model.DispositionCancelled {
		t.Fatalf("disposition = %s", out.Disposition())
	}
}

func TestAcquireAndTranscodeCancelledDuringAcquisition(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := &fakeStrategy{name: model.StrategyLibrary, fn: func(ctx context.Context, _ quality.Tier) (acquire.Fetched, error) {
		cancel()
		<-ctx.Done()
		return acquire.Fetched{}, ctx.Err()
	}}
	p := newPipeline([]acquire.Strategy{blocking}, &fakeTranscoder{})
	out := p.AcquireAndTranscode(ctx, model.TrackRequest{ID: "abc"})
	if out.Failure == nil || out.Failure.Kind != services.KindCancelled {
		t.Fatalf("expected cancelled, got %+v", out)
	}
}

func TestAcquireAndTranscodeAppliesDefaultQuality(t *testing.T) {
	var seen []quality.Tier
	var mu sync.Mutex
	strategy := &fakeStrategy{name: model.StrategyLibrary, fn: func(ctx context.Context, tier quality.Tier) (acquire.Fetched, error) {
		mu.Lock()
		seen = append(seen, tier)
		mu.Unlock()
		return rawAudio("x")(ctx, tier)
	}}
	p := newPipeline([]acquire.Strategy{strategy}, &fakeTranscoder{}, WithDefaultQuality(quality.Tier2))
	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "abc"})
	if out.Request.Quality != quality.Tier2 || len(seen) != 1 || seen[0] != quality.Tier2 {
		t.Fatalf("expected tier2, got request %v and calls %v", out.Request.Quality, seen)
	}
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	p := newPipeline([]acquire.Strategy{&fakeStrategy{name: model.StrategyLibrary, fn: rawAudio("same")}}, &fakeTranscoder{})
	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "dup"})
			ids[i] = out.RunID
		}(i)
	}
	wg.Wait()
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Fatalf("run ids not unique: %v", ids)
		}
		seen[id] = true
	}
}

func TestFailureFromPlainError(t *testing.T) {
	f := failureFrom(errors.New("boom"), nil)
	if f.Kind != services.KindNetwork || f.LastKind != services.KindNetwork || f.Detail != "boom" {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestAcquireAndTranscodeRemovedTrackIsUnavailableDespiteConverterOutage(t *testing.T) {
	gone := func(stage string) func(context.Context, quality.Tier) (acquire.Fetched, error) {
		return func(context.Context, quality.Tier) (acquire.Fetched, error) {
			return acquire.Fetched{}, services.Wrap(services.ErrSourceNotFound, stage, "lookup", "private video", nil)
		}
	}
	lib := &fakeStrategy{name: model.StrategyLibrary, fn: gone("library")}
	bin := &fakeStrategy{name: model.StrategyBinary, fn: gone("binary")}
	converter := &fakeStrategy{name: model.StrategyRedirect, fn: func(context.Context, quality.Tier) (acquire.Fetched, error) {
		return acquire.Fetched{}, services.Wrap(services.ErrNetwork, "redirect", "probe", "no converter reachable", nil)
	}}
	p := newPipeline([]acquire.Strategy{lib, bin, converter}, &fakeTranscoder{})

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "removed"})
	if out.Failure == nil || out.Failure.Kind != services.KindNoAvailableSource {
		t.Fatalf("expected exhausted chain, got %+v", out.Failure)
	}
	if out.Failure.LastKind != services.KindSourceNotFound {
		t.Fatalf("last kind = %s", out.Failure.LastKind)
	}
	if out.Disposition() != model.DispositionUnavailable {
		t.Fatalf("disposition = %s", out.Disposition())
	}
	if len(out.Attempts) != 1+1+3 {
		t.Fatalf("expected 5 logged attempts, got %d", len(out.Attempts))
	}
}

func TestExhaustedKindNeedsEveryExtractorMissing(t *testing.T) {
	attempts := []model.Attempt{
		{Strategy: model.StrategyLibrary, Kind: services.KindSourceNotFound},
		{Strategy: model.StrategyBinary, Kind: services.KindNetwork},
		{Strategy: model.StrategyRedirect, Kind: services.KindNetwork},
	}
	if got := exhaustedKind(attempts); got != services.KindNetwork {
		t.Fatalf("exhaustedKind = %s, want network", got)
	}
	if got := exhaustedKind(attempts[2:]); got != services.KindNetwork {
		t.Fatalf("redirect-only chain: exhaustedKind = %s", got)
	}
	attempts[1].Kind = services.KindSourceNotFound
	if got := exhaustedKind(attempts); got != services.KindSourceNotFound {
		t.Fatalf("exhaustedKind = %s, want source_not_found", got)
	}
}
