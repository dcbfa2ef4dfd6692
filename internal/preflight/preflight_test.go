package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"trackpull/internal/config"
	"trackpull/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckScratchParent_Creatable(t *testing.T) {
	result := CheckScratchParent(filepath.Join(t.TempDir(), "a", "b", "scratch"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable path, got: %s", result.Detail)
	}
}

func TestCheckScratchParent_UnderFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckScratchParent(filepath.Join(f, "scratch"))
	if result.Passed {
		t.Fatal("expected failure when ancestor is a file")
	}
}

func TestRequirementsFollowStrategies(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategies(config.StrategyLibrary))
	reqs := Requirements(cfg)
	for _, r := range reqs {
		if r.Name == "yt-dlp" && !r.Optional {
			t.Fatal("yt-dlp should be optional without the binary strategy")
		}
		if r.Name == "FFmpeg" && r.Optional {
			t.Fatal("ffmpeg is always required")
		}
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkingTools("x"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if Failed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if byName["FFmpeg"].Detail != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("unexpected ffmpeg detail %q", byName["FFmpeg"].Detail)
	}
	if byName["yt-dlp"].Detail != "2025.01.01" {
		t.Fatalf("unexpected yt-dlp detail %q", byName["yt-dlp"].Detail)
	}
}

func TestRunAllMissingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcode.FFmpegBinary = filepath.Join(t.TempDir(), "no-ffmpeg")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if !Failed(RunAll(context.Background(), cfg)) {
		t.Fatal("expected failure with missing ffmpeg")
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
