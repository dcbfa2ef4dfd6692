package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Outcome("complete", "")
	m.AcquireAttempt("library", "ok")
	m.TrackStarted()
	m.TrackFinished()
	m.TranscodeDuration(time.Second)
	m.IncRequests()
	m.IncErrors()
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Outcome("complete", "")
	m.Outcome("failed", "no_available_source")
	m.Outcome("failed", "no_available_source")
	m.AcquireAttempt("binary", "network_failure")

	if got := testutil.ToFloat64(m.outcomesTotal.WithLabelValues("complete", "none")); got != 1 {
		t.Fatalf("complete outcomes = %v", got)
	}
	if got := testutil.ToFloat64(m.outcomesTotal.WithLabelValues("failed", "no_available_source")); got != 2 {
		t.Fatalf("failed outcomes = %v", got)
	}
	if got := testutil.ToFloat64(m.acquireAttempts.WithLabelValues("binary", "network_failure")); got != 1 {
		t.Fatalf("attempts = %v", got)
	}
}

func TestInflightGauge(t *testing.T) {
	m := New()
	m.TrackStarted()
	m.TrackStarted()
	m.TrackFinished()
	if got := testutil.ToFloat64(m.inflightTracks); got != 1 {
		t.Fatalf("inflight = %v", got)
	}
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	handler := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	for _, path := range []string{"/ok", "/missing", "/ok"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	if got := testutil.ToFloat64(m.requestsTotal); got != 3 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Fatalf("errors = %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.TranscodeDuration(3 * time.Second)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "trackpull_transcode_seconds_count 1") {
		t.Fatalf("histogram missing from exposition:\n%s", rec.Body.String())
	}
}
