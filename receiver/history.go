package receiver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/gearsync/dbopen"
	"github.com/hazyhaar/gearsync/idgen"
)

// Schema creates the sync_history table.
const Schema = `
CREATE TABLE IF NOT EXISTS sync_history (
	id               TEXT PRIMARY KEY,
	received_at      INTEGER NOT NULL,
	trace_id         TEXT NOT NULL DEFAULT '',
	entries          INTEGER NOT NULL,
	labels           TEXT NOT NULL DEFAULT '[]',
	gear_matched     INTEGER NOT NULL DEFAULT 0,
	settings_updated INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_history_received ON sync_history(received_at);
`

// Sync statuses.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// SyncRecord is one received sync.
type SyncRecord struct {
	ID              string    `json:"id"`
	ReceivedAt      time.Time `json:"received_at"`
	TraceID         string    `json:"trace_id,omitempty"`
	Entries         int       `json:"entries"`
	Labels          []string  `json:"labels"`
	GearMatched     int       `json:"gear_matched"`
	SettingsUpdated int       `json:"settings_updated"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
}

// History stores received syncs in SQLite.
type History struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewHistory wraps a database opened with Schema applied.
func NewHistory(db *sql.DB) *History {
	return &History{db: db, newID: idgen.Prefixed("syn_", idgen.Default)}
}

// Record stores rec and returns its ID. A zero ReceivedAt is set to now.
func (h *History) Record(ctx context.Context, rec SyncRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = h.newID()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	if rec.Labels == nil {
		rec.Labels = []string{}
	}
	labels, err := json.Marshal(rec.Labels)
	if err != nil {
		return "", err
	}

	_, err = dbopen.Exec(ctx, h.db, `
		INSERT INTO sync_history (
			id, received_at, trace_id, entries, labels,
			gear_matched, settings_updated, status, error
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.ReceivedAt.UnixMilli(), rec.TraceID, rec.Entries, string(labels),
		rec.GearMatched, rec.SettingsUpdated, rec.Status, rec.Error)
	if err != nil {
		return "", fmt.Errorf("receiver: record sync: %w", err)
	}
	return rec.ID, nil
}

// Recent returns up to limit records, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]SyncRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, received_at, trace_id, entries, labels,
		       gear_matched, settings_updated, status, error
		FROM sync_history
		ORDER BY received_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("receiver: query history: %w", err)
	}
	defer rows.Close()

	recs := []SyncRecord{}
	for rows.Next() {
		var r SyncRecord
		var at int64
		var labels string
		if err := rows.Scan(&r.ID, &at, &r.TraceID, &r.Entries, &labels,
			&r.GearMatched, &r.SettingsUpdated, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.ReceivedAt = time.UnixMilli(at)
		if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
			return nil, fmt.Errorf("receiver: decode labels of %s: %w", r.ID, err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
