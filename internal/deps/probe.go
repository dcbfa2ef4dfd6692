package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

const probeTimeout = 10 * time.Second

// Probe runs CheckBinaries and then executes each present tool with its
// VersionArgs, recording the first output line. A tool that is on PATH but
// fails to run is reported unavailable.
func Probe(ctx context.Context, requirements []Requirement) []Status {
	results := CheckBinaries(requirements)
	for i, req := range requirements {
		if !results[i].Available || len(req.VersionArgs) == 0 {
			continue
		}
		version, err := runVersion(ctx, results[i].Path, req.VersionArgs)
		if err != nil {
			results[i].Available = false
			results[i].Detail = err.Error()
			continue
		}
		results[i].Version = version
	}
	return results
}

func runVersion(ctx context.Context, path string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := commandContext(ctx, path, args...) //nolint:gosec
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("version check timed out")
		}
		return "", fmt.Errorf("version check failed: %v", err)
	}
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}
