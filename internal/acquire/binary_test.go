package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"trackpull/internal/logging"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/scratch"
	"trackpull/internal/services"
)

func stubExtractor(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "YTDLP_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func newBinary(t *testing.T) (*Binary, *scratch.Manager) {
	t.Helper()
	mgr := scratch.New(filepath.Join(t.TempDir(), "scratch"), logging.NewNop())
	t.Cleanup(func() { _ = mgr.Close() })
	return NewBinary("yt-dlp", "m4a", mgr, logging.NewNop()), mgr
}

func TestBinarySuccessReadsOutputAndReleasesScratch(t *testing.T) {
	args := stubExtractor(t, "success")
	bin, mgr := newBinary(t)

	fetched, err := bin.Acquire(context.Background(), model.TrackRequest{ID: "dQw4w9WgXcQ"}, quality.Tier3)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if string(fetched.Result.Raw) != "extracted-audio" {
		t.Fatalf("unexpected raw %q", fetched.Result.Raw)
	}
	if fetched.Result.Container != "m4a" || fetched.Result.Strategy != model.StrategyBinary {
		t.Fatalf("unexpected result %+v", fetched.Result)
	}
	joined := strings.Join(*args, " ")
	for _, want := range []string{"-f bestaudio[abr>=192]", "--audio-format m4a", "-x", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
	if mgr.Outstanding() != 0 {
		t.Fatalf("scratch handle not released")
	}
	entries, _ := os.ReadDir(mgr.Dir())
	if len(entries) != 0 {
		t.Fatalf("expected empty scratch dir, found %d", len(entries))
	}
}

func TestBinaryLowestTierSelector(t *testing.T) {
	if got := formatSelector(quality.Tier1); got != "bestaudio/best" {
		t.Fatalf("unexpected selector %q", got)
	}
}

func TestBinaryZeroExitWithEmptyFileIsFailure(t *testing.T) {
	stubExtractor(t, "empty")
	bin, mgr := newBinary(t)
	_, err := bin.Acquire(context.Background(), model.TrackRequest{ID: "x"}, quality.Tier1)
	if services.KindOf(err) != services.KindEmptyOutput {
		t.Fatalf("expected empty output, got %v", err)
	}
	if !errors.Is(err, services.ErrProcess) {
		t.Fatal("empty output should count as process failure")
	}
	if mgr.Outstanding() != 0 {
		t.Fatal("scratch handle not released")
	}
}

func TestBinaryZeroExitWithMissingFileIsFailure(t *testing.T) {
	stubExtractor(t, "nofile")
	bin, _ := newBinary(t)
	_, err := bin.Acquire(context.Background(), model.TrackRequest{ID: "x"}, quality.Tier1)
	if services.KindOf(err) != services.KindEmptyOutput {
		t.Fatalf("expected empty output, got %v", err)
	}
}

func TestBinaryClassifiesStderr(t *testing.T) {
	cases := map[string]services.ErrorKind{
		"format":  services.KindQualityUnavailable,
		"private": services.KindSourceNotFound,
		"network": services.KindNetwork,
		"crash":   services.KindProcess,
	}
	for mode, want := range cases {
		t.Run(mode, func(t *testing.T) {
			stubExtractor(t, mode)
			bin, _ := newBinary(t)
			_, err := bin.Acquire(context.Background(), model.TrackRequest{ID: "x"}, quality.Tier4)
			if got := services.KindOf(err); got != want {
				t.Fatalf("KindOf = %q, want %q (err=%v)", got, want, err)
			}
			pe, ok := services.AsProcessError(err)
			if !ok {
				t.Fatalf("expected ProcessError, got %T", err)
			}
			if pe.ExitCode != 1 || pe.StderrTail == "" {
				t.Fatalf("expected exit code and stderr tail, got %+v", pe)
			}
		})
	}
}

func TestBinaryMissingToolIsConfiguration(t *testing.T) {
	mgr := scratch.New(filepath.Join(t.TempDir(), "scratch"), logging.NewNop())
	defer mgr.Close()
	bin := NewBinary(filepath.Join(t.TempDir(), "no-such-yt-dlp"), "m4a", mgr, logging.NewNop())
	_, err := bin.Acquire(context.Background(), model.TrackRequest{ID: "x"}, quality.Tier1)
	if services.KindOf(err) != services.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	var output, container string
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-o":
			output = args[i+1]
		case "--audio-format":
			container = args[i+1]
		}
	}
	final := strings.ReplaceAll(output, "%(ext)s", container)

	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "success":
		_ = os.WriteFile(strings.ReplaceAll(output, "%(ext)s", "webm"), []byte("intermediate"), 0o644)
		if err := os.WriteFile(final, []byte("extracted-audio"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	case "empty":
		_ = os.WriteFile(final, nil, 0o644)
		os.Exit(0)
	case "nofile":
		os.Exit(0)
	case "format":
		fmt.Fprintln(os.Stderr, "ERROR: [youtube] x: Requested format is not available. Use --list-formats for a list of available formats")
		os.Exit(1)
	case "private":
		fmt.Fprintln(os.Stderr, "ERROR: [youtube] x: Private video. Sign in if you've been granted access to this video")
		os.Exit(1)
	case "network":
		fmt.Fprintln(os.Stderr, "ERROR: Unable to download webpage: HTTP Error 503: Service Unavailable")
		os.Exit(1)
	case "crash":
		fmt.Fprintln(os.Stderr, "Traceback (most recent call last):\nKeyError: 'formats'")
		os.Exit(1)
	case "hang":
		select {}
	}
	os.Exit(0)
}
