package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heygen-community/heygen-streaming/internal/session"

	_ "modernc.org/sqlite" // Pure Go driver
)

const sqliteSchemaVersion = 1

// SQLiteStore persists session records in a local SQLite database.
// The full record is stored as a JSON payload; state and updated_at
// are kept as columns for inspection and ordering.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies
// the schema. WAL mode and busy_timeout are set via DSN pragmas so
// they apply to every connection in the pool.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Put(ctx context.Context, rec *session.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, state, payload, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			payload = excluded.payload,
			updated_at_ms = excluded.updated_at_ms`,
		rec.SessionID, string(rec.State), string(payload), rec.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite store: put %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*session.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM sessions WHERE session_id = ?", sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get %s: %w", sessionID, err)
	}
	var rec session.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("sqlite store: decode %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*session.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM sessions ORDER BY updated_at_ms DESC")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*session.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		var rec session.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("sqlite store: decode: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("sqlite store: delete %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
