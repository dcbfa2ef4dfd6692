package api

import (
	"trackpull/internal/deps"
	"trackpull/internal/ledger"
	"trackpull/internal/model"
	"trackpull/internal/preflight"
)

// FromOutcome converts a failed outcome into its transport form. It returns
// nil for outcomes that succeeded.
func FromOutcome(o model.Outcome) *FailureResponse {
	if o.Succeeded() {
		return nil
	}
	resp := &FailureResponse{
		RunID:       o.RunID,
		TrackID:     o.Request.ID,
		Disposition: string(o.Disposition()),
		FallbackURL: model.FallbackURL(o.Request.ID),
	}
	if o.Failure != nil {
		resp.Kind = string(o.Failure.Kind)
		resp.Detail = o.Failure.Detail
		resp.LastKind = string(o.Failure.LastKind)
	}
	for _, a := range o.Attempts {
		resp.Attempts = append(resp.Attempts, AttemptSummary{
			Strategy:   string(a.Strategy),
			Tier:       int(a.Tier),
			Number:     a.Number,
			Kind:       string(a.Kind),
			Message:    a.Message,
			DurationMS: a.Duration.Milliseconds(),
		})
	}
	return resp
}

// FromToolStatuses converts dependency probes.
func FromToolStatuses(statuses []deps.Status) []ToolStatus {
	out := make([]ToolStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ToolStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Path:        s.Path,
			Version:     s.Version,
			Detail:      s.Detail,
		})
	}
	return out
}

// FromCheckResults converts preflight results.
func FromCheckResults(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromLedgerEntries converts ledger rows.
func FromLedgerEntries(entries []ledger.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		dto := HistoryEntry{
			RunID:           e.RunID,
			BatchID:         e.BatchID,
			TrackID:         e.ExternalID,
			Title:           e.Title,
			Artist:          e.Artist,
			Status:          string(e.Status),
			Disposition:     string(e.Disposition),
			ErrorKind:       e.ErrorKind,
			LastKind:        e.LastKind,
			Strategy:        e.Strategy,
			Tier:            int(e.Tier),
			Attempts:        e.Attempts,
			SizeBytes:       e.SizeBytes,
			RedirectService: e.RedirectService,
			DurationMS:      e.Duration.Milliseconds(),
		}
		if !e.FinishedAt.IsZero() {
			dto.FinishedAt = e.FinishedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}
