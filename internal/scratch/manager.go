package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"trackpull/internal/logging"
)

var (
	// ErrBusy is returned by SweepStale when another process holds the scratch directory.
	ErrBusy = errors.New("scratch directory in use")
	// ErrUnavailable marks a scratch directory that could not be created or
	// locked. No track can be processed until it is fixed.
	ErrUnavailable = errors.New("scratch directory unavailable")
)

// Manager hands out unique working paths under one scratch directory.
type Manager struct {
	dir    string
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
	lock     *flock.Flock

	mu          sync.Mutex
	outstanding map[string]struct{}
	acquired    int
	released    int
}

// New returns a Manager rooted at dir. Nothing touches the filesystem until
// Init or the first Acquire.
func New(dir string, logger *slog.Logger) *Manager {
	return &Manager{
		dir:         filepath.Clean(dir),
		logger:      logging.NewComponentLogger(logger, "scratch"),
		lock:        flock.New(lockPath(dir)),
		outstanding: make(map[string]struct{}),
	}
}

// Dir returns the scratch directory path.
func (m *Manager) Dir() string {
	return m.dir
}

func lockPath(dir string) string {
	dir = filepath.Clean(dir)
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".lock")
}

// Init creates the scratch directory and takes the shared lock. It runs
// once; later calls, and every Acquire, return the first result. Errors
// match ErrUnavailable.
func (m *Manager) Init() error {
	m.initOnce.Do(func() {
		if strings.TrimSpace(m.dir) == "" || m.dir == "." {
			m.initErr = fmt.Errorf("%w: directory not configured", ErrUnavailable)
			return
		}
		if err := os.MkdirAll(m.dir, 0o755); err != nil {
			m.initErr = fmt.Errorf("%w: create %s: %w", ErrUnavailable, m.dir, err)
			return
		}
		if err := m.lock.RLock(); err != nil {
			m.initErr = fmt.Errorf("%w: lock %s: %w", ErrUnavailable, m.lock.Path(), err)
			return
		}
		m.logger.Debug("scratch directory ready",
			logging.String("path", m.dir),
			logging.String(logging.FieldEventType, "scratch_ready"),
		)
	})
	return m.initErr
}

// Acquire reserves a unique path for pattern inside the scratch directory.
// A "*" in pattern is replaced by a random identifier; without one the
// identifier is prefixed. The file itself is not created.
func (m *Manager) Acquire(pattern string) (*Handle, error) {
	if err := m.Init(); err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(pattern))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "*"
	}
	id := uuid.NewString()
	if strings.Contains(name, "*") {
		name = strings.Replace(name, "*", id, 1)
	} else {
		name = id + "-" + name
	}
	path := filepath.Join(m.dir, name)

	m.mu.Lock()
	m.outstanding[path] = struct{}{}
	m.acquired++
	m.mu.Unlock()

	return &Handle{path: path, manager: m}, nil
}

// Outstanding returns the number of acquired handles not yet released.
func (m *Manager) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outstanding)
}

// Stats reports lifetime acquire and release counts.
func (m *Manager) Stats() (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

// Close drops the shared directory lock. Outstanding handles may still be released.
func (m *Manager) Close() error {
	if m.lock == nil || !m.lock.Locked() && !m.lock.RLocked() {
		return nil
	}
	return m.lock.Unlock()
}

func (m *Manager) forget(path string) {
	m.mu.Lock()
	if _, ok := m.outstanding[path]; ok {
		delete(m.outstanding, path)
		m.released++
	}
	m.mu.Unlock()
}

// Handle is one reserved working path.
type Handle struct {
	path    string
	manager *Manager

	once sync.Once
	err  error
}

// Path returns the reserved location.
func (h *Handle) Path() string {
	return h.path
}

// Release deletes the reserved path and any siblings sharing its stem
// (partial or intermediate files written by external tools). Missing files
// are not an error. Subsequent calls return the first call's result.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		var errs []error
		for _, target := range h.targets() {
			if err := os.RemoveAll(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		h.err = errors.Join(errs...)
		if h.manager != nil {
			h.manager.forget(h.path)
			if h.err != nil {
				logging.WarnWithContext(h.manager.logger, "scratch release incomplete", "scratch_release_failed",
					logging.String("path", h.path),
					logging.Error(h.err),
					logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed until the next sweep"),
				)
			}
		}
	})
	return h.err
}

func (h *Handle) targets() []string {
	targets := []string{h.path}
	stem := strings.TrimSuffix(h.path, filepath.Ext(h.path))
	matches, err := filepath.Glob(globEscape(stem) + ".*")
	if err != nil {
		return targets
	}
	for _, match := range matches {
		if match != h.path {
			targets = append(targets, match)
		}
	}
	return targets
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
