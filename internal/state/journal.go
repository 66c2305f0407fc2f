// Package state persists a journal of lifecycle operations in a local
// sqlite database. Implements runtime.Journal.
package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fabenv"

	_ "modernc.org/sqlite"
)

// Operation is one recorded lifecycle operation.
type Operation struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Result   fabenv.State `json:"result"`
	Error    string       `json:"error,omitempty"`
}

// Journal stores completed operations. Recording never fails the
// operation being recorded: write errors are logged and dropped.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	result TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize operations schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record writes one completed operation. Implements runtime.Journal.
func (j *Journal) Record(op string, started, finished time.Time, result fabenv.State, opErr error) {
	errText := ""
	if opErr != nil {
		errText = opErr.Error()
	}
	_, err := j.db.Exec(
		`INSERT INTO operations (name, started_at, finished_at, result, error) VALUES (?, ?, ?, ?, ?)`,
		op,
		started.UTC().Format(time.RFC3339Nano),
		finished.UTC().Format(time.RFC3339Nano),
		result.String(),
		errText,
	)
	if err != nil {
		slog.Warn("Failed to record operation in journal.", "op", op, "err", err)
	}
}

// Recent returns the newest limit operations, most recent first.
func (j *Journal) Recent(limit int) ([]Operation, error) {
	rows, err := j.db.Query(
		`SELECT id, name, started_at, finished_at, result, error FROM operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		var op Operation
		var started, finished, result string
		if err := rows.Scan(&op.ID, &op.Name, &started, &finished, &result, &op.Error); err != nil {
			return nil, fmt.Errorf("scan operation row: %w", err)
		}
		op.Started, _ = time.Parse(time.RFC3339Nano, started)
		op.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		op.Result = parseState(result)
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation rows: %w", err)
	}
	return out, nil
}

func parseState(s string) fabenv.State {
	for _, state := range []fabenv.State{
		fabenv.StateStopped,
		fabenv.StateStarting,
		fabenv.StateStarted,
		fabenv.StateStopping,
		fabenv.StateRestarting,
	} {
		if state.String() == s {
			return state
		}
	}
	return fabenv.StateStopped
}
