// Package storage provides SQLite-backed recording of events, state
// history, and notifications. The detection pipeline itself holds no
// persistence; this is the audit log owned by the driving loop.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quantpulse/marketpulse/internal/models"
)

// Storage wraps a SQLite database for all recording operations.
type Storage struct {
	db        *sql.DB
	maxEvents int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/marketpulse/data.db.
func New(maxEvents int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "marketpulse", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxEvents: maxEvents}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			type        TEXT NOT NULL,
			subtype     TEXT NOT NULL,
			level       TEXT NOT NULL,
			data        TEXT NOT NULL DEFAULT '{}',
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS state_history (
			timestamp       INTEGER PRIMARY KEY,
			status          TEXT NOT NULL,
			sentiment_score REAL NOT NULL,
			main_driver     TEXT,
			summary         TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			format         TEXT NOT NULL,
			title          TEXT NOT NULL,
			lines          TEXT NOT NULL DEFAULT '[]',
			related_events TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddEvent records a detected event and rotates the table down to
// maxEvents newest entries.
func (s *Storage) AddEvent(event *models.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO events (id, timestamp, type, subtype, level, data, description)
		VALUES (?,?,?,?,?,?,?)`,
		event.ID, event.Timestamp.UnixNano(), string(event.Type), string(event.Subtype),
		string(event.Level), string(dataJSON), event.Description,
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM events WHERE id NOT IN (
			SELECT id FROM events ORDER BY timestamp DESC LIMIT ?
		)`, s.maxEvents); err != nil {
		return fmt.Errorf("failed to enforce event cap: %w", err)
	}

	return tx.Commit()
}

// RecentEvents returns up to limit events, newest first.
func (s *Storage) RecentEvents(limit int) ([]models.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, type, subtype, level, data, description
		FROM events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var ts int64
		var dataJSON string
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.Subtype, &e.Level, &dataJSON, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &e.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveState appends a state to the history.
func (s *Storage) SaveState(state models.MarketState) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO state_history (timestamp, status, sentiment_score, main_driver, summary)
		VALUES (?,?,?,?,?)`,
		state.Timestamp.UnixNano(), string(state.Status), state.SentimentScore,
		state.MainDriver, state.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// LatestState returns the most recently saved state, or nil if none
// exists yet.
func (s *Storage) LatestState() (*models.MarketState, error) {
	row := s.db.QueryRow(`
		SELECT timestamp, status, sentiment_score, main_driver, summary
		FROM state_history ORDER BY timestamp DESC LIMIT 1`)

	var state models.MarketState
	var ts int64
	err := row.Scan(&ts, &state.Status, &state.SentimentScore, &state.MainDriver, &state.Summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	state.Timestamp = time.Unix(0, ts)
	return &state, nil
}

// AddNotification records an emitted notification.
func (s *Storage) AddNotification(n *models.Notification) error {
	linesJSON, err := json.Marshal(n.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal lines: %w", err)
	}
	relatedJSON, err := json.Marshal(n.RelatedEvents)
	if err != nil {
		return fmt.Errorf("failed to marshal related events: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO notifications (id, timestamp, format, title, lines, related_events)
		VALUES (?,?,?,?,?,?)`,
		n.ID, n.Timestamp.UnixNano(), string(n.Format), n.Title,
		string(linesJSON), string(relatedJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Notifications returns up to limit notifications, newest first.
func (s *Storage) Notifications(limit int) ([]models.Notification, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, format, title, lines, related_events
		FROM notifications ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var ts int64
		var linesJSON, relatedJSON string
		if err := rows.Scan(&n.ID, &ts, &n.Format, &n.Title, &linesJSON, &relatedJSON); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(linesJSON), &n.Lines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lines: %w", err)
		}
		if err := json.Unmarshal([]byte(relatedJSON), &n.RelatedEvents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal related events: %w", err)
		}
		n.Timestamp = time.Unix(0, ts)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
