package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/services"
)

// Redirect delegates delivery to the first reachable hosted converter.
type Redirect struct {
	templates []string
	client    *http.Client
	timeout   time.Duration
}

// NewRedirect returns a Redirect strategy over URL templates containing "{id}".
func NewRedirect(templates []string, probeTimeout time.Duration) *Redirect {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Redirect{
		templates: append([]string(nil), templates...),
		client:    &http.Client{Timeout: probeTimeout},
		timeout:   probeTimeout,
	}
}

func (r *Redirect) Name() model.StrategyName { return model.StrategyRedirect }

// Acquire ignores the tier; converters pick their own quality.
func (r *Redirect) Acquire(ctx context.Context, req model.TrackRequest, _ quality.Tier) (Fetched, error) {
	if len(r.templates) == 0 {
		return Fetched{}, services.Wrap(services.ErrConfiguration, "redirect", "probe", "no converter services configured", nil)
	}
	var errs []error
	for _, tpl := range r.templates {
		target := strings.ReplaceAll(tpl, "{id}", url.PathEscape(strings.TrimSpace(req.ID)))
		if err := r.probe(ctx, target); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Fetched{}, ctxErr
			}
			errs = append(errs, err)
			continue
		}
		return Fetched{Redirect: &model.Redirect{URL: target, Service: serviceName(target)}}, nil
	}
	return Fetched{}, services.Wrap(services.ErrNetwork, "redirect", "probe", "no converter reachable", errors.Join(errs...))
}

// probe performs a lightweight existence check. Services that refuse HEAD
// get a GET whose body is discarded unread.
func (r *Redirect) probe(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status, err := r.do(ctx, http.MethodHead, target)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = r.do(ctx, http.MethodGet, target)
	}
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("%s: status %d", serviceName(target), status)
	}
	return nil
}

func (r *Redirect) do(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func serviceName(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return target
	}
	return parsed.Hostname()
}
