package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"trackpull/internal/config"
	"trackpull/internal/ledger"
	"trackpull/internal/logging"
	"trackpull/internal/metrics"
	"trackpull/internal/model"
	"trackpull/internal/pipeline"
	"trackpull/internal/scratch"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// session bundles what a pipeline-driving command needs. close releases the
// scratch lock and the ledger.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	scratch  *scratch.Manager
	pipeline *pipeline.Pipeline
	ledger   *ledger.Store
}

func (c *commandContext) openSession(m *metrics.Metrics) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	mgr := scratch.New(cfg.Paths.ScratchDir, logger)
	p, err := pipeline.FromConfig(cfg, mgr, logger, m)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}
	sess := &session{cfg: cfg, logger: logger, scratch: mgr, pipeline: p}
	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg)
		if err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		sess.ledger = store
	}
	return sess, nil
}

func (s *session) close() {
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
	_ = s.scratch.Close()
}

// record stores o in the ledger when it is enabled. Failures are logged and
// never abort the command.
func (s *session) record(batchID string, o model.Outcome) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(context.Background(), batchID, o); err != nil {
		logging.WarnWithContext(s.logger, "ledger record failed", "ledger_write_failed",
			logging.String(logging.FieldTrackID, o.Request.ID),
			logging.String(logging.FieldImpact, "outcome missing from history"),
			logging.String(logging.FieldErrorHint, "check ledger database permissions"),
			logging.Error(err),
		)
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
