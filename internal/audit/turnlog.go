// Package audit records completed conversation turns for offline
// inspection. The log is observability only: it is never read back to
// serve conversation state.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// TurnRecord is one completed (or failed) conversational turn.
type TurnRecord struct {
	SessionID   string
	Channel     string
	Transcript  string
	ReplyText   string
	FailedStage string
	Error       string
	AudioBytes  int
	DurationMs  int64
}

// TurnLogger writes TurnRecords to SQLite off the request path. Records are
// queued and flushed by a single writer goroutine; when the queue is full
// the record is dropped rather than blocking a turn.
type TurnLogger struct {
	db        *sql.DB
	queue     chan TurnRecord
	done      chan struct{}
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewTurnLogger opens (or creates) the turn log database at dbPath.
func NewTurnLogger(dbPath string, queueSize int, logger *slog.Logger) (*TurnLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create turn log directory: %w", err)
	}

	// WAL mode keeps the single writer from blocking concurrent readers.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open turn log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping turn log database: %w", err)
	}

	l := &TurnLogger{
		db:     db,
		queue:  make(chan TurnRecord, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize turn log schema: %w", err)
	}

	go l.run()
	return l, nil
}

func (l *TurnLogger) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		reply_text TEXT NOT NULL DEFAULT '',
		failed_stage TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		audio_bytes INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record queues one turn for writing. Safe to call from any goroutine.
func (l *TurnLogger) Record(rec TurnRecord) {
	select {
	case l.queue <- rec:
	default:
		l.logger.Warn("Turn log queue full, dropping record", "session_id", rec.SessionID)
	}
}

func (l *TurnLogger) run() {
	defer close(l.done)
	for rec := range l.queue {
		if err := l.insert(rec); err != nil {
			l.logger.Warn("Failed to write turn record", "session_id", rec.SessionID, "error", err)
		}
	}
}

func (l *TurnLogger) insert(rec TurnRecord) error {
	query := `
		INSERT INTO turns (session_id, channel, transcript, reply_text,
		                   failed_stage, error, audio_bytes, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := []any{
		rec.SessionID, rec.Channel, rec.Transcript, rec.ReplyText,
		rec.FailedStage, rec.Error, rec.AudioBytes, rec.DurationMs,
		time.Now().Unix(),
	}

	_, err := l.db.Exec(query, args...)
	if err != nil && isSQLiteConflict(err) {
		// One retry on SQLITE_BUSY; the busy_timeout pragma handles the rest.
		_, err = l.db.Exec(query, args...)
	}
	return err
}

// RecentTurns returns up to limit records for a session, newest first.
func (l *TurnLogger) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT session_id, channel, transcript, reply_text,
		       failed_stage, error, audio_bytes, duration_ms
		FROM turns WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := l.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.SessionID, &rec.Channel, &rec.Transcript, &rec.ReplyText,
			&rec.FailedStage, &rec.Error, &rec.AudioBytes, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close drains the queue, stops the writer and closes the database.
func (l *TurnLogger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.queue)
		<-l.done
		err = l.db.Close()
	})
	return err
}

// isSQLiteConflict reports a SQLITE_BUSY / database-locked error, the two
// concurrency errors that warrant a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
