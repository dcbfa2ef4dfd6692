package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"trackpull/internal/ledger"
	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/services"
	"trackpull/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	complete := model.Outcome{
		RunID:             "run-1",
		Request:           model.TrackRequest{ID: "dQw4w9WgXcQ", Title: "Song", Artist: "Band"},
		Status:            model.StatusComplete,
		Result:            &model.TranscodeResult{AudioBytes: []byte("abc"), SizeBytes: 3, MimeType: "audio/mpeg"},
		Strategy:          model.StrategyBinary,
		Tier:              quality.Tier1,
		Attempts:          []model.Attempt{{Kind: services.KindNetwork}, {}},
		TranscodeAttempts: 1,
		Duration:          1500 * time.Millisecond,
	}
	failed := model.Outcome{
		RunID:   "run-2",
		Request: model.TrackRequest{ID: "9bZkp7q19f0"},
		Status:  model.StatusFailed,
		Failure: &model.Failure{Kind: services.KindNoAvailableSource, LastKind: services.KindSourceNotFound, Detail: "exhausted"},
	}
	if err := store.Record(ctx, "batch-1", complete); err != nil {
		t.Fatalf("Record complete: %v", err)
	}
	if err := store.Record(ctx, "", failed); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	newest, oldest := entries[0], entries[1]
	if newest.RunID != "run-2" || newest.Disposition != model.DispositionUnavailable || newest.ErrorKind != "no_available_source" {
		t.Fatalf("unexpected newest entry %+v", newest)
	}
	if newest.BatchID != "" || newest.Tier != 0 {
		t.Fatalf("expected empty batch and tier, got %+v", newest)
	}
	if oldest.BatchID != "batch-1" || oldest.SizeBytes != 3 || oldest.Attempts != 2 || oldest.Tier != quality.Tier1 {
		t.Fatalf("unexpected oldest entry %+v", oldest)
	}
	if oldest.Duration != 1500*time.Millisecond || oldest.FinishedAt.IsZero() {
		t.Fatalf("timing not stored: %+v", oldest)
	}

	byTrack, err := store.ForTrack(ctx, "dQw4w9WgXcQ")
	if err != nil || len(byTrack) != 1 || byTrack[0].Strategy != "binary" {
		t.Fatalf("ForTrack = %+v, %v", byTrack, err)
	}
}

func TestRecentLimit(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, "b", model.Cancelled(model.TrackRequest{ID: "x"}, "stop")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := store.Recent(ctx, 3)
	if err != nil || len(entries) != 3 {
		t.Fatalf("Recent = %d entries, %v", len(entries), err)
	}
	if entries[0].Disposition != model.DispositionCancelled {
		t.Fatalf("disposition = %s", entries[0].Disposition)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), "", model.Cancelled(model.TrackRequest{ID: "x"}, "stop")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened := testsupport.MustOpenLedger(t, cfg)
	entries, err := reopened.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Recent after reopen = %d, %v", len(entries), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.LedgerPath())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := ledger.Open(cfg); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
