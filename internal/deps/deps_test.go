package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeScript(t, binDir, "present", "#!/bin/sh\nexit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected present status %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail %q", results[2].Detail)
	}
}

func TestProbeCapturesVersion(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := writeScript(t, binDir, "ffmpeg", "#!/bin/sh\necho\necho 'ffmpeg version 7.1 Copyright'\necho 'built with gcc'\n")
	broken := writeScript(t, binDir, "yt-dlp", "#!/bin/sh\necho boom >&2\nexit 2\n")

	results := Probe(context.Background(), []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, VersionArgs: []string{"-version"}},
		{Name: "yt-dlp", Command: broken, VersionArgs: []string{"--version"}},
		{Name: "Missing", Command: "clearly-not-present-binary", VersionArgs: []string{"--version"}},
	})
	if !results[0].Available || results[0].Version != "ffmpeg version 7.1 Copyright" {
		t.Fatalf("unexpected ffmpeg status %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected broken tool to be unavailable, got %#v", results[1])
	}
	if results[2].Available {
		t.Fatal("missing tool reported available")
	}
}
