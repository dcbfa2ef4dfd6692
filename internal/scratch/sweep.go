package scratch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"trackpull/internal/logging"
)

// SweepResult contains the outcome of a stale entry sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepStale removes scratch entries older than maxAge, typically left behind
// by a crashed process. It requires the exclusive directory lock and returns
// ErrBusy when any live Manager (in this or another process) holds it shared.
func (m *Manager) SweepStale(ctx context.Context, maxAge time.Duration) (SweepResult, error) {
	result := SweepResult{}

	if err := os.MkdirAll(filepath.Dir(m.dir), 0o755); err != nil {
		return result, err
	}
	lock := flock.New(lockPath(m.dir))
	ok, err := lock.TryLock()
	if err != nil {
		return result, err
	}
	if !ok {
		return result, ErrBusy
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		path := filepath.Join(m.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			m.logger.Warn("failed to remove stale scratch entry",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		m.logger.Info("removed stale scratch entry",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "scratch_sweep"),
		)
	}
	return result, nil
}
