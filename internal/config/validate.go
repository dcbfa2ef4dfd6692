package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if c.Batch.Concurrency < 1 {
		return errors.New("batch.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	if len(c.Acquisition.Strategies) == 0 {
		return errors.New("acquisition.strategies must list at least one strategy")
	}
	seen := make(map[string]struct{}, len(c.Acquisition.Strategies))
	for _, name := range c.Acquisition.Strategies {
		switch name {
		case StrategyLibrary, StrategyBinary, StrategyRedirect:
		default:
			return fmt.Errorf("acquisition.strategies: unknown strategy %q (valid: library, binary, redirect)", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("acquisition.strategies: %q listed more than once", name)
		}
		seen[name] = struct{}{}
	}
	if c.Acquisition.DefaultQuality < 1 || c.Acquisition.DefaultQuality > 4 {
		return errors.New("acquisition.default_quality must be between 1 and 4")
	}
	if c.Acquisition.Attempts < 1 {
		return errors.New("acquisition.attempts must be at least 1")
	}
	switch c.Acquisition.Container {
	case "m4a", "webm", "opus", "mp3":
	default:
		return fmt.Errorf("acquisition.container: unsupported value %q", c.Acquisition.Container)
	}
	if _, ok := seen[StrategyRedirect]; ok {
		if len(c.Acquisition.RedirectServices) == 0 {
			return errors.New("acquisition.redirect_services must be set when the redirect strategy is enabled")
		}
		for _, svc := range c.Acquisition.RedirectServices {
			if !strings.Contains(svc, "{id}") {
				return fmt.Errorf("acquisition.redirect_services: %q is missing the {id} placeholder", svc)
			}
			if !strings.HasPrefix(svc, "http://") && !strings.HasPrefix(svc, "https://") {
				return fmt.Errorf("acquisition.redirect_services: %q must be an http(s) URL", svc)
			}
		}
	}
	return nil
}

func (c *Config) validateTranscode() error {
	switch c.Transcode.Format {
	case "mp3", "m4a":
	default:
		return fmt.Errorf("transcode.format: unsupported value %q (valid: mp3, m4a)", c.Transcode.Format)
	}
	if c.Transcode.Attempts < 1 {
		return errors.New("transcode.attempts must be at least 1")
	}
	return nil
}
