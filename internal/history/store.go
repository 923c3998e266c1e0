// Package history keeps a local record of alerts and events received
// from the station, so the client can show recent activity without a
// round trip and across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/technosupport/svs-client/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id          INTEGER NOT NULL,
	camera_id   INTEGER NOT NULL,
	camera_name TEXT NOT NULL DEFAULT '',
	alert_type  INTEGER NOT NULL DEFAULT 0,
	ts          INTEGER NOT NULL,
	received_at INTEGER NOT NULL,
	PRIMARY KEY (id, camera_id)
);
CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts (ts DESC);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER NOT NULL,
	camera_id   INTEGER NOT NULL,
	camera_name TEXT NOT NULL DEFAULT '',
	mode        INTEGER NOT NULL DEFAULT 0,
	start_time  INTEGER NOT NULL,
	stop_time   INTEGER NOT NULL DEFAULT 0,
	received_at INTEGER NOT NULL,
	PRIMARY KEY (id, camera_id)
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_time DESC);
`

// Store is the local sqlite-backed activity record.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	// modernc sqlite is single-writer; keep the pool at one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAlerts upserts a batch of alerts. Re-polling the same window
// is the normal case, so conflicts are ignored.
func (s *Store) RecordAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO alerts
		(id, camera_id, camera_name, alert_type, ts, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, camera_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range alerts {
		if _, err := stmt.ExecContext(ctx, a.ID, a.CameraID, a.CameraName, a.AlertType, a.Timestamp, now); err != nil {
			return fmt.Errorf("record alert %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// RecordEvents upserts a batch of events.
func (s *Store) RecordEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events
		(id, camera_id, camera_name, mode, start_time, stop_time, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, camera_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.CameraID, e.CameraName, e.Mode, e.StartTime, e.StopTime, now); err != nil {
			return fmt.Errorf("record event %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// RecentAlerts returns the newest alerts, most recent first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, camera_id, camera_name, alert_type, ts
		FROM alerts ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.CameraID, &a.CameraName, &a.AlertType, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune removes records older than keepDays.
func (s *Store) Prune(ctx context.Context, keepDays int) error {
	if keepDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE ts < ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE start_time < ?`, cutoff)
	return err
}
