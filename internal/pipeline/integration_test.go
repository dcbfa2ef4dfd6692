package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"trackpull/internal/config"
	"trackpull/internal/logging"
	"trackpull/internal/metrics"
	"trackpull/internal/model"
	"trackpull/internal/scratch"
	"trackpull/internal/testsupport"
)

func TestFromConfigEndToEndWithStubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStrategies(config.StrategyBinary),
		testsupport.WithWorkingTools("raw-audio"),
	)
	mgr := scratch.New(cfg.Paths.ScratchDir, logging.NewNop())
	t.Cleanup(func() { _ = mgr.Close() })

	p, err := FromConfig(cfg, mgr, logging.NewNop(), metrics.New())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "dQw4w9WgXcQ", Title: "Song", Artist: "Band"})
	if out.Status != model.StatusComplete {
		t.Fatalf("expected complete, got %+v", out.Failure)
	}
	if string(out.Result.AudioBytes) != "encoded:raw-audio" {
		t.Fatalf("unexpected payload %q", out.Result.AudioBytes)
	}
	if out.Result.MimeType != "audio/mpeg" {
		t.Fatalf("mime = %q", out.Result.MimeType)
	}
	if mgr.Outstanding() != 0 {
		t.Fatalf("outstanding scratch handles: %d", mgr.Outstanding())
	}
	if names := testsupport.DirEntries(t, cfg.Paths.ScratchDir); len(names) != 0 {
		t.Fatalf("scratch dir not empty: %v", names)
	}
}

func TestFromConfigFailingExtractorLeavesNoScratch(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStrategies(config.StrategyBinary),
		testsupport.WithStubScript("yt-dlp", "#!/bin/sh\necho 'ERROR: Private video' >&2\nexit 1\n"),
		testsupport.WithStubScript("ffmpeg", testsupport.FFmpegScript),
	)
	mgr := scratch.New(cfg.Paths.ScratchDir, logging.NewNop())
	t.Cleanup(func() { _ = mgr.Close() })

	p, err := FromConfig(cfg, mgr, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	out := p.AcquireAndTranscode(context.Background(), model.TrackRequest{ID: "x"})
	if out.Status != model.StatusFailed || out.Disposition() != model.DispositionUnavailable {
		t.Fatalf("expected unavailable failure, got %+v", out)
	}
	if names := testsupport.DirEntries(t, cfg.Paths.ScratchDir); len(names) != 0 {
		t.Fatalf("scratch dir not empty: %v", names)
	}
}

func TestFromConfigRejectsUnusableScratchDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategies(config.StrategyBinary))
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	testsupport.WriteFile(t, blocker, []byte("x"))
	cfg.Paths.ScratchDir = filepath.Join(blocker, "scratch")
	mgr := scratch.New(cfg.Paths.ScratchDir, logging.NewNop())

	p, err := FromConfig(cfg, mgr, logging.NewNop(), nil)
	if !errors.Is(err, scratch.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if p != nil {
		t.Fatal("expected no pipeline")
	}
}
