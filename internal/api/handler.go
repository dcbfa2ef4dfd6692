package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"trackpull/internal/deps"
	"trackpull/internal/ledger"
	"trackpull/internal/logging"
	"trackpull/internal/manifest"
	"trackpull/internal/model"
	"trackpull/internal/preflight"
	"trackpull/internal/quality"
)

const defaultHistoryLimit = 50

// Runner produces one outcome per track request.
type Runner interface {
	AcquireAndTranscode(ctx context.Context, req model.TrackRequest) model.Outcome
}

// History records and lists outcomes. *ledger.Store satisfies it.
type History interface {
	Record(ctx context.Context, batchID string, o model.Outcome) error
	Recent(ctx context.Context, limit int) ([]ledger.Entry, error)
}

// DiagnosticsFunc runs the advisory directory and tool checks.
type DiagnosticsFunc func(ctx context.Context) ([]preflight.Result, []deps.Status)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	runner      Runner
	history     History
	diagnostics DiagnosticsFunc
	log         *slog.Logger
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithHistory records every outcome and enables GET /history.
func WithHistory(h History) HandlerOption {
	return func(handler *Handler) {
		handler.history = h
	}
}

// WithDiagnostics enables GET /diagnostics/tools.
func WithDiagnostics(fn DiagnosticsFunc) HandlerOption {
	return func(handler *Handler) {
		handler.diagnostics = fn
	}
}

// NewHandler returns a Handler backed by runner.
func NewHandler(runner Runner, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{runner: runner, log: logging.NewComponentLogger(logger, "api")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetAudio handles GET /tracks/{id}/audio?title=&artist=&quality=.
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	id, err := manifest.ExtractID(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	req := model.TrackRequest{
		ID:     id,
		Title:  strings.TrimSpace(query.Get("title")),
		Artist: strings.TrimSpace(query.Get("artist")),
	}
	if raw := strings.TrimSpace(query.Get("quality")); raw != "" {
		tier, err := quality.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Quality = tier
	}

	outcome := h.runner.AcquireAndTranscode(r.Context(), req)
	h.record(r.Context(), outcome)

	switch outcome.Status {
	case model.StatusComplete:
		h.writeAudio(w, outcome)
	case model.StatusRedirected:
		http.Redirect(w, r, outcome.Redirect.URL, http.StatusFound)
	default:
		h.writeJSON(w, failureStatus(outcome.Disposition()), FromOutcome(outcome))
	}
}

// GetDiagnostics handles GET /diagnostics/tools.
func (h *Handler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	if h.diagnostics == nil {
		h.writeError(w, http.StatusNotFound, "diagnostics disabled")
		return
	}
	results, tools := h.diagnostics(r.Context())
	h.writeJSON(w, http.StatusOK, DiagnosticsResponse{
		Healthy: !preflight.Failed(results),
		Checks:  FromCheckResults(results),
		Tools:   FromToolStatuses(tools),
	})
}

// GetHistory handles GET /history?limit=.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, http.StatusOK, HistoryResponse{Entries: []HistoryEntry{}})
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, HistoryResponse{Entries: FromLedgerEntries(entries)})
}

func (h *Handler) writeAudio(w http.ResponseWriter, outcome model.Outcome) {
	result := outcome.Result
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.AudioBytes)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outcome.Filename()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.AudioBytes); err != nil {
		h.log.Debug("audio write interrupted",
			logging.String(logging.FieldRunID, outcome.RunID),
			logging.Error(err),
		)
	}
}

func (h *Handler) record(ctx context.Context, outcome model.Outcome) {
	if h.history == nil {
		return
	}
	if err := h.history.Record(context.WithoutCancel(ctx), "", outcome); err != nil {
		logging.WarnWithContext(h.log, "ledger record failed", "ledger_write_failed",
			logging.String(logging.FieldRunID, outcome.RunID),
			logging.String(logging.FieldImpact, "outcome missing from history"),
			logging.String(logging.FieldErrorHint, "check ledger database permissions"),
			logging.Error(err),
		)
	}
}

// failureStatus maps a failed disposition to an HTTP status. Cancelled
// requests get 503 because the client has usually gone away already.
func failureStatus(d model.Disposition) int {
	if d == model.DispositionUnavailable {
		return http.StatusNotFound
	}
	return http.StatusServiceUnavailable
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("failed to encode response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
