package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trackpull/internal/model"
	"trackpull/internal/quality"
)

// Entry is one recorded outcome.
type Entry struct {
	ID                int64
	RunID             string
	BatchID           string
	ExternalID        string
	Title             string
	Artist            string
	Status            model.Status
	Disposition       model.Disposition
	ErrorKind         string
	LastKind          string
	ErrorDetail       string
	Strategy          string
	Tier              quality.Tier
	Attempts          int
	TranscodeAttempts int
	SizeBytes         int64
	RedirectService   string
	Duration          time.Duration
	FinishedAt        time.Time
}

// timeLayout is fixed-width so finished_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = `id, run_id, batch_id, external_id, title, artist, status, disposition,
    error_kind, last_kind, error_detail, strategy, tier, attempts, transcode_attempts,
    size_bytes, redirect_service, duration_ms, finished_at`

// Record stores one outcome. batchID may be empty for single-track runs.
func (s *Store) Record(ctx context.Context, batchID string, o model.Outcome) error {
	var kind, lastKind, detail, service string
	if o.Failure != nil {
		kind = string(o.Failure.Kind)
		lastKind = string(o.Failure.LastKind)
		detail = o.Failure.Detail
	}
	if o.Redirect != nil {
		service = o.Redirect.Service
	}
	var size int64
	if o.Result != nil {
		size = o.Result.SizeBytes
	}
	var tier any
	if o.Tier.Valid() {
		tier = int(o.Tier)
	}

	err := s.exec(ctx,
		`INSERT INTO outcomes (
            run_id, batch_id, external_id, title, artist, status, disposition,
            error_kind, last_kind, error_detail, strategy, tier, attempts, transcode_attempts,
            size_bytes, redirect_service, duration_ms, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID,
		nullableString(batchID),
		o.Request.ID,
		nullableString(o.Request.Title),
		nullableString(o.Request.Artist),
		string(o.Status),
		string(o.Disposition()),
		nullableString(kind),
		nullableString(lastKind),
		nullableString(detail),
		nullableString(string(o.Strategy)),
		tier,
		len(o.Attempts),
		o.TranscodeAttempts,
		size,
		nullableString(service),
		o.Duration.Milliseconds(),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM outcomes ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ForTrack returns every entry recorded for an external id, newest first.
func (s *Store) ForTrack(ctx context.Context, externalID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM outcomes WHERE external_id = ? ORDER BY finished_at DESC, id DESC`,
		strings.TrimSpace(externalID))
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                                                     Entry
			batchID, title, artist, kind, lastKind, detail, strat sql.NullString
			service                                               sql.NullString
			tier                                                  sql.NullInt64
			status, disposition, finished                         string
			durationMS                                            int64
		)
		if err := rows.Scan(
			&e.ID, &e.RunID, &batchID, &e.ExternalID, &title, &artist, &status, &disposition,
			&kind, &lastKind, &detail, &strat, &tier, &e.Attempts, &e.TranscodeAttempts,
			&e.SizeBytes, &service, &durationMS, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.BatchID = batchID.String
		e.Title = title.String
		e.Artist = artist.String
		e.Status = model.Status(status)
		e.Disposition = model.Disposition(disposition)
		e.ErrorKind = kind.String
		e.LastKind = lastKind.String
		e.ErrorDetail = detail.String
		e.Strategy = strat.String
		e.RedirectService = service.String
		if tier.Valid {
			e.Tier = quality.Tier(tier.Int64)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(timeLayout, finished); err == nil {
			e.FinishedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return entries, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
