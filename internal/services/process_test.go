package services_test

import (
	"errors"
	"strings"
	"testing"

	"trackpull/internal/services"
)

func TestTailBufferKeepsSuffix(t *testing.T) {
	buf := services.NewTailBuffer(8)
	_, _ = buf.Write([]byte("0123456789"))
	_, _ = buf.Write([]byte("ab"))
	if got := buf.String(); got != "456789ab" {
		t.Fatalf("unexpected tail %q", got)
	}
}

func TestTailKeepsLastLines(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "line")
	}
	lines = append(lines, "", "final error")
	tail := services.Tail(strings.Join(lines, "\n"))
	if !strings.HasSuffix(tail, "final error") {
		t.Fatalf("expected final line retained, got %q", tail)
	}
	if n := strings.Count(tail, "\n") + 1; n != 12 {
		t.Fatalf("expected 12 lines, got %d", n)
	}
}

func TestExitCode(t *testing.T) {
	if services.ExitCode(nil) != 0 {
		t.Fatal("nil error should be exit 0")
	}
	if services.ExitCode(errors.New("spawn failed")) != -1 {
		t.Fatal("non-exit error should be -1")
	}
}
