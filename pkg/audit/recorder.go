package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/segmentio/ksuid"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/telemetry/logging"
)

// Event is one recorded audit entry.
type Event struct {
	// ID is a sortable unique identifier.
	ID string `db:"id" json:"id"`

	// At is the event time.
	At time.Time `db:"at" json:"at"`

	// Site is the site the action ran on.
	Site string `db:"site" json:"site"`

	// Actor is the authenticated username, or "anonymous".
	Actor string `db:"actor" json:"actor"`

	// Action is the action keyword (register, activate, grant, status,
	// reload, renew, scribe).
	Action string `db:"action" json:"action"`

	// Detail carries action-specific context.
	Detail string `db:"detail" json:"detail"`

	// RequestID correlates the event with request logs.
	RequestID string `db:"request_id" json:"request_id"`
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id         TEXT PRIMARY KEY,
	at         DATETIME NOT NULL,
	site       TEXT NOT NULL,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_at ON audit_events(at);
CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor);
`

// Recorder writes audit events to SQLite.
type Recorder struct {
	db     *sqlx.DB
	logger *logging.Logger
}

// NewRecorder opens (and if needed initializes) the audit database.
func NewRecorder(cfg config.AuditConfig, logger *logging.Logger) (*Recorder, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit db directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect("sqlite3", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", cfg.SQLitePath, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("audit trail opened", "path", cfg.SQLitePath)
	return &Recorder{db: db, logger: logger}, nil
}

// RecordAction stores one administrative event. Failures are logged,
// never propagated: auditing must not break the action it records.
func (r *Recorder) RecordAction(ctx context.Context, site, actor, action, detail string) {
	event := Event{
		ID:        ksuid.New().String(),
		At:        time.Now().UTC(),
		Site:      site,
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		RequestID: logging.GetRequestID(ctx),
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO audit_events (id, at, site, actor, action, detail, request_id)
		 VALUES (:id, :at, :site, :actor, :action, :detail, :request_id)`, event)
	if err != nil {
		r.logger.Error("audit record failed",
			"action", action,
			"actor", actor,
			"error", err,
		)
	}
}

// Recent returns the newest events, most recent first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []Event
	err := r.db.SelectContext(ctx, &events,
		`SELECT id, at, site, actor, action, detail, request_id
		 FROM audit_events ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than the cutoff and returns how many were
// removed.
func (r *Recorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
