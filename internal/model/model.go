// Package model holds the value types that flow through the acquisition and
// transcode pipeline: requests, intermediate results, attempt records, and
// the per-track outcome returned to callers.
package model

import (
	"strings"
	"time"

	"trackpull/internal/quality"
	"trackpull/internal/services"
	"trackpull/internal/textutil"
)

// StrategyName identifies one acquisition strategy.
type StrategyName string

const (
	StrategyLibrary  StrategyName = "library"
	StrategyBinary   StrategyName = "binary"
	StrategyRedirect StrategyName = "redirect"
)

// TrackRequest asks for one track. It is treated as immutable once submitted.
type TrackRequest struct {
	ID      string
	Title   string
	Artist  string
	Quality quality.Tier
}

// Label returns "Artist - Title" or the ID when metadata is missing.
func (r TrackRequest) Label() string {
	artist := strings.TrimSpace(r.Artist)
	title := strings.TrimSpace(r.Title)
	switch {
	case artist != "" && title != "":
		return artist + " - " + title
	case title != "":
		return title
	case artist != "":
		return artist
	default:
		return r.ID
	}
}

// AcquisitionResult is raw audio obtained by exactly one strategy attempt.
// The transcoder takes ownership of Raw.
type AcquisitionResult struct {
	Raw       []byte
	Container string
	Strategy  StrategyName
	Tier      quality.Tier
}

// Redirect delegates delivery to a hosted converter.
type Redirect struct {
	URL     string
	Service string
}

// TranscodeResult is the terminal success payload for one track.
type TranscodeResult struct {
	AudioBytes []byte
	MimeType   string
	SizeBytes  int64
	Extension  string
}

// Attempt records one acquisition attempt.
type Attempt struct {
	Strategy StrategyName
	Tier     quality.Tier
	Number   int
	Kind     services.ErrorKind
	Message  string
	Duration time.Duration
}

// Succeeded reports whether the attempt produced bytes or a redirect.
func (a Attempt) Succeeded() bool {
	return a.Kind == services.KindNone
}

// Failure is the classified terminal error of a track.
type Failure struct {
	Kind       services.ErrorKind
	Detail     string
	LastKind   services.ErrorKind
	ExitCode   int
	StderrTail string
}

// Status is the terminal state of a track's pipeline.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusRedirected Status = "redirected"
	StatusFailed     Status = "failed"
)

// Disposition tells the caller what to do with an outcome.
type Disposition string

const (
	DispositionOK          Disposition = "ok"
	DispositionRedirect    Disposition = "redirect"
	DispositionRetryLater  Disposition = "retry_later"
	DispositionUnavailable Disposition = "unavailable"
	DispositionCancelled   Disposition = "cancelled"
)

// Outcome is the result of one acquireAndTranscode run.
type Outcome struct {
	RunID             string
	Request           TrackRequest
	Status            Status
	Result            *TranscodeResult
	Redirect          *Redirect
	Strategy          StrategyName
	Tier              quality.Tier
	Failure           *Failure
	Attempts          []Attempt
	TranscodeAttempts int
	Duration          time.Duration
}

// Succeeded reports a Complete outcome, with bytes or a redirect.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusComplete || o.Status == StatusRedirected
}

// Disposition classifies the outcome for user-facing presentation. Transient
// exhaustion (network, process, empty output, transcode) is "retry later";
// identifiers without any audio source are "unavailable".
func (o Outcome) Disposition() Disposition {
	switch o.Status {
	case StatusComplete:
		return DispositionOK
	case StatusRedirected:
		return DispositionRedirect
	}
	if o.Failure == nil {
		return DispositionRetryLater
	}
	if o.Failure.Kind == services.KindCancelled {
		return DispositionCancelled
	}
	switch o.Failure.LastKind {
	case services.KindNetwork, services.KindProcess, services.KindEmptyOutput, services.KindTranscodeFailed:
		return DispositionRetryLater
	}
	if o.Failure.Kind == services.KindTranscodeFailed {
		return DispositionRetryLater
	}
	return DispositionUnavailable
}

// Filename returns the suggested download name for a Complete outcome.
func (o Outcome) Filename() string {
	ext := ""
	if o.Result != nil {
		ext = o.Result.Extension
	}
	return textutil.SuggestedFilename(o.Request.Artist, o.Request.Title, ext)
}

// FallbackURL is the source platform's watch page for manual retrieval.
func FallbackURL(id string) string {
	return "https://www.youtube.com/watch?v=" + strings.TrimSpace(id)
}

// Cancelled builds the outcome reported for a track that was never admitted
// or was interrupted by batch cancellation.
func Cancelled(req TrackRequest, detail string) Outcome {
	return Outcome{
		Request: req,
		Status:  StatusFailed,
		Failure: &Failure{Kind: services.KindCancelled, Detail: detail, LastKind: services.KindCancelled},
	}
}
