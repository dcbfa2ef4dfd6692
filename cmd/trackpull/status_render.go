package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"trackpull/internal/model"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

const statusLabelWidth = 20

// renderStatusLine prints "  label:   [KIND] message", padded so a run of
// lines for several tracks lines up.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	if kind < statusInfo || int(kind) >= len(statusStyles) {
		kind = statusInfo
	}
	style := statusStyles[kind]

	var b strings.Builder
	fmt.Fprintf(&b, "  %-*s [%s]", statusLabelWidth, label+":", style.label)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	if !colorize {
		return b.String()
	}
	return style.color + b.String() + ansiReset
}

// dispositionKind picks the status color for an outcome. Transient failures
// and cancellations are warnings; a missing source is an error.
func dispositionKind(d model.Disposition) statusKind {
	switch d {
	case model.DispositionOK:
		return statusOK
	case model.DispositionRedirect:
		return statusInfo
	case model.DispositionRetryLater, model.DispositionCancelled:
		return statusWarn
	default:
		return statusError
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	lines := []string{title, strings.Repeat("=", len(title))}
	if colorize {
		for i := range lines {
			lines[i] = ansiBlue + lines[i] + ansiReset
		}
	}
	return lines
}

// shouldColorize is true only for terminals, so piped and captured output
// stays free of escape codes.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
