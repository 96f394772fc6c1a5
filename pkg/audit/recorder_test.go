package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/telemetry/logging"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(config.AuditConfig{
		SQLitePath:   filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns: 2,
		BusyTimeout:  time.Second,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordAndRecent(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.RecordAction(ctx, "www", "root", "grant", "grace")
	r.RecordAction(ctx, "www", "anonymous", "register", "grace")

	events, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.ID == "" {
			t.Error("event has no ID")
		}
		if e.Site != "www" {
			t.Errorf("site = %q", e.Site)
		}
	}
}

func TestPrune(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.RecordAction(ctx, "www", "root", "renew", "")

	// Nothing is older than a cutoff in the past.
	deleted, err := r.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d events, want 0", deleted)
	}

	// Everything is older than a cutoff in the future.
	deleted, err = r.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d events, want 1", deleted)
	}

	events, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("%d events survive pruning", len(events))
	}
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	r := testRecorder(t)
	s := NewScheduler(r, config.AuditConfig{
		PruneSchedule: "not a schedule",
		RetentionDays: 30,
	}, logging.Discard())

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("invalid cron expression must be rejected")
	}
}
