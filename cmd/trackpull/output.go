package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trackpull/internal/fileutil"
	"trackpull/internal/model"
)

// saveOutcome writes a Complete outcome's bytes under dir using the suggested
// filename, adding a " (n)" suffix instead of overwriting.
func saveOutcome(dir string, o model.Outcome) (string, error) {
	if o.Result == nil {
		return "", fmt.Errorf("track %s has no audio payload", o.Request.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	target, err := fileutil.UniquePath(dir, o.Filename())
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(target, o.Result.AudioBytes, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	return target, nil
}

// saveAndRelease saves like saveOutcome and then drops the payload from
// o.Result so a finished batch does not keep every track in memory.
// SizeBytes is kept for reporting.
func saveAndRelease(dir string, o model.Outcome) (string, error) {
	path, err := saveOutcome(dir, o)
	if err != nil {
		return "", err
	}
	o.Result.AudioBytes = nil
	return path, nil
}

// outcomeDetail is the one-line message shown next to a track label.
func outcomeDetail(o model.Outcome, savedPath string) string {
	switch o.Status {
	case model.StatusComplete:
		if savedPath != "" {
			return fmt.Sprintf("%s (%s)", savedPath, formatBytes(o.Result.SizeBytes))
		}
		return formatBytes(o.Result.SizeBytes)
	case model.StatusRedirected:
		return o.Redirect.URL
	}
	if o.Failure == nil {
		return string(o.Disposition())
	}
	parts := []string{string(o.Failure.Kind)}
	if detail := strings.TrimSpace(o.Failure.Detail); detail != "" {
		parts = append(parts, detail)
	}
	return strings.Join(parts, ": ")
}

// printFailure writes the fallback hint and process diagnostics for a failed
// outcome.
func printFailure(out io.Writer, o model.Outcome, colorize bool) {
	if o.Failure == nil {
		return
	}
	if o.Failure.LastKind != "" && o.Failure.LastKind != o.Failure.Kind {
		fmt.Fprintln(out, renderStatusLine("Last error", statusInfo, string(o.Failure.LastKind), colorize))
	}
	if o.Failure.ExitCode != 0 {
		fmt.Fprintln(out, renderStatusLine("Exit code", statusInfo, fmt.Sprint(o.Failure.ExitCode), colorize))
	}
	if tail := strings.TrimSpace(o.Failure.StderrTail); tail != "" {
		fmt.Fprintln(out, renderStatusLine("Tool output", statusInfo, lastLine(tail), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Try manually", statusInfo, model.FallbackURL(o.Request.ID), colorize))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
