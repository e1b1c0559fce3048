package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/loopworks/dealbot/internal/board"
)

// Log records every board mutation for after-the-fact diagnosis. This
// is an observability concern: a failed insert is logged, never allowed
// to fail the mutation itself.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Entry is one recorded mutation.
type Entry struct {
	ID        string
	Operation string
	RecordID  string
	Payload   string
	Response  string
	Err       string
	CreatedAt time.Time
}

func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS board_writes (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		record_id TEXT,
		payload TEXT,
		response TEXT,
		error TEXT,
		created_at_unix INTEGER NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create board_writes table: %w", err)
	}
	return &Log{db: db, logger: logger}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// RecordWrite implements board.Auditor.
func (l *Log) RecordWrite(ctx context.Context, entry board.WriteEntry) {
	_, err := l.db.ExecContext(
		ctx,
		`INSERT INTO board_writes (id, operation, record_id, payload, response, error, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"wr-"+uuid.NewString(),
		entry.Operation,
		entry.RecordID,
		entry.Payload,
		entry.Response,
		entry.Err,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		l.logger.Error("audit insert failed", "operation", entry.Operation, "error", err)
	}
}

// Recent returns the newest write entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := l.db.QueryContext(
		ctx,
		`SELECT id, operation, record_id, payload, response, error, created_at_unix
		 FROM board_writes ORDER BY created_at_unix DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query board_writes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.Operation, &entry.RecordID, &entry.Payload, &entry.Response, &entry.Err, &createdAt); err != nil {
			return nil, fmt.Errorf("scan board_writes row: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
