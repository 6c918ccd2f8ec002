// ABOUTME: SQLite-backed run store: run snapshots in a runs table, events in an append-only events table.
// ABOUTME: List queries read indexed metadata columns without deserializing snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/2389-research/inkwell/loom"
)

const sqliteTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Compile-time check that SQLiteStore implements loom.RunStore.
var _ loom.RunStore = (*SQLiteStore)(nil)

// SQLiteStore is a SQLite-backed run store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the run database at the given path and runs
// the schema migration.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			phase TEXT NOT NULL,
			awaiting TEXT NOT NULL DEFAULT '',
			snapshot TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new run row.
func (s *SQLiteStore) Create(run *loom.Run) error {
	snapshot, err := marshalSnapshot(run)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (id, status, phase, awaiting, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Status),
		string(run.State.Phase),
		string(run.State.AwaitingApproval),
		snapshot,
		run.CreatedAt.Format(sqliteTimeFormat),
		run.UpdatedAt.Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get loads a run and its event log by ID.
func (s *SQLiteStore) Get(id string) (*loom.Run, error) {
	var snapshot string
	err := s.db.QueryRow(`SELECT snapshot FROM runs WHERE id = ?`, id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", loom.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var run loom.Run
	if err := json.Unmarshal([]byte(snapshot), &run); err != nil {
		return nil, fmt.Errorf("parse snapshot for %s: %w", id, err)
	}

	rows, err := s.db.Query(`SELECT payload FROM events WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	run.Events = []loom.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev loom.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("parse event: %w", err)
		}
		run.Events = append(run.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return &run, nil
}

// Update rewrites the snapshot and metadata columns for an existing run.
func (s *SQLiteStore) Update(run *loom.Run) error {
	snapshot, err := marshalSnapshot(run)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, phase = ?, awaiting = ?, snapshot = ?, updated_at = ?
		 WHERE id = ?`,
		string(run.Status),
		string(run.State.Phase),
		string(run.State.AwaitingApproval),
		snapshot,
		run.UpdatedAt.Format(sqliteTimeFormat),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", loom.ErrRunNotFound, run.ID)
	}
	return nil
}

// List returns metadata for every run, newest first, from the indexed
// columns plus the revision counters out of the snapshot.
func (s *SQLiteStore) List() ([]loom.Meta, error) {
	rows, err := s.db.Query(
		`SELECT id, status, phase, awaiting, snapshot, updated_at FROM runs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	metas := []loom.Meta{}
	for rows.Next() {
		var id, status, phase, awaiting, snapshot, updatedAt string
		if err := rows.Scan(&id, &status, &phase, &awaiting, &snapshot, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		var run loom.Run
		if err := json.Unmarshal([]byte(snapshot), &run); err != nil {
			return nil, fmt.Errorf("parse snapshot for %s: %w", id, err)
		}

		ts, err := time.Parse(sqliteTimeFormat, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp for %s: %w", id, err)
		}

		metas = append(metas, loom.Meta{
			ID:        id,
			Status:    loom.RunStatus(status),
			Phase:     loom.Phase(phase),
			Awaiting:  loom.ApprovalType(awaiting),
			Revisions: run.State.Revisions,
			UpdatedAt: ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return metas, nil
}

// AppendEvent appends one event to the run's log.
func (s *SQLiteStore) AppendEvent(id string, event loom.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events (run_id, type, payload, created_at) VALUES (?, ?, ?, ?)`,
		id,
		string(event.Type),
		string(payload),
		event.Timestamp.Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// marshalSnapshot serializes a run without its event log.
func marshalSnapshot(run *loom.Run) (string, error) {
	snapshot := *run
	snapshot.Events = nil
	data, err := json.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}
