package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceNotFound     = errors.New("source not found")
	ErrNetwork            = errors.New("network failure")
	ErrProcess            = errors.New("process failure")
	ErrEmptyOutput        = emptyOutputError{}
	ErrQualityUnavailable = errors.New("quality unavailable")
	ErrNoAvailableSource  = errors.New("no available source")
	ErrCancelled          = errors.New("cancelled")
	ErrTranscodeFailed    = errors.New("transcode failed")
	ErrConfiguration      = errors.New("configuration error")
)

// emptyOutputError is a zero-byte result despite a success signal. It also
// matches ErrProcess so callers treating process failures uniformly do not
// need a second check.
type emptyOutputError struct{}

func (emptyOutputError) Error() string { return "empty output" }

func (emptyOutputError) Is(target error) bool { return target == ErrProcess }

// ErrorKind is the user-facing classification of a pipeline failure.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindSourceNotFound     ErrorKind = "source_not_found"
	KindNetwork            ErrorKind = "network_failure"
	KindProcess            ErrorKind = "process_failure"
	KindEmptyOutput        ErrorKind = "empty_output"
	KindQualityUnavailable ErrorKind = "quality_unavailable"
	KindNoAvailableSource  ErrorKind = "no_available_source"
	KindCancelled          ErrorKind = "cancelled"
	KindTranscodeFailed    ErrorKind = "transcode_failed"
	KindConfiguration      ErrorKind = "configuration"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error onto the taxonomy. Context cancellation and deadline
// expiry of the caller are reported as KindCancelled.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrNoAvailableSource):
		return KindNoAvailableSource
	case errors.Is(err, ErrTranscodeFailed):
		return KindTranscodeFailed
	case errors.Is(err, ErrQualityUnavailable):
		return KindQualityUnavailable
	case errors.Is(err, ErrSourceNotFound):
		return KindSourceNotFound
	case errors.Is(err, ErrEmptyOutput):
		return KindEmptyOutput
	case errors.Is(err, ErrProcess):
		return KindProcess
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	default:
		return KindNetwork
	}
}

// Transient reports whether err is worth retrying inside a strategy or around
// the transcode step.
func Transient(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindProcess, KindEmptyOutput:
		return true
	default:
		return false
	}
}

// ProcessError describes an external tool invocation that did not satisfy the
// success oracle (exit code zero, output present, output non-empty).
type ProcessError struct {
	Tool       string
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	} else {
		b.WriteString(" failed")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if tail := strings.TrimSpace(e.StderrTail); tail != "" {
		b.WriteString(": ")
		b.WriteString(lastLine(tail))
	}
	return b.String()
}

func (e *ProcessError) Unwrap() error { return e.Err }

// AsProcessError extracts the ProcessError carried by err, if any.
func AsProcessError(err error) (*ProcessError, bool) {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
