// Package store is the embedded, single-writer persistence layer:
// cleanup_plans, cleanup_items, cleanup_reasons (interned),
// cleanup_executions, recovery_log, and cleanup_reports, backed by
// modernc.org/sqlite (pure-Go, cgo-free).
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store owns the single database/sql pool for the persistence layer.
// Writes are serialized through a single connection (single-writer
// enforced with db.SetMaxOpenConns(1) for writes); reads may use the
// shared pool concurrently.
type Store struct {
	writeDB *sql.DB // SetMaxOpenConns(1): every write goes through here
	readDB  *sql.DB

	once sync.Once
}

// Open opens (or creates) the database at path and runs the idempotent
// schema DDL. The guard is the returned Store's own sync.Once, so the DDL
// runs once per Open call, not once per process.
func Open(path string) (*Store, error) {
	writeDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", path)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}

	s := &Store{writeDB: writeDB, readDB: readDB}
	if err := s.ensureSchema(); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, err
	}
	return s, nil
}

// Close releases both pools.
func (s *Store) Close() error {
	err1 := s.writeDB.Close()
	err2 := s.readDB.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

const schema = `
CREATE TABLE IF NOT EXISTS cleanup_plans (
	plan_id     TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	sealed      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'pending',
	total_items INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cleanup_reasons (
	reason_id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash      TEXT NOT NULL UNIQUE,
	body      TEXT NOT NULL,
	refcount  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cleanup_items (
	item_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id     TEXT NOT NULL REFERENCES cleanup_plans(plan_id),
	path        TEXT NOT NULL,
	size        INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	final_label TEXT NOT NULL,
	reason_id   INTEGER REFERENCES cleanup_reasons(reason_id),
	status      TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS cleanup_executions (
	execution_id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id      TEXT NOT NULL REFERENCES cleanup_plans(plan_id),
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	total_items  INTEGER NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	freed_bytes  INTEGER NOT NULL DEFAULT 0,
	failed_bytes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recovery_log (
	recovery_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id        TEXT NOT NULL REFERENCES cleanup_plans(plan_id),
	item_id        INTEGER NOT NULL,
	original_path  TEXT NOT NULL,
	backup_id      TEXT,
	backup_path    TEXT,
	backup_kind    TEXT NOT NULL,
	restored       INTEGER NOT NULL DEFAULT 0,
	restored_at    TEXT,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cleanup_reports (
	plan_id    TEXT PRIMARY KEY REFERENCES cleanup_plans(plan_id),
	summary    TEXT NOT NULL,
	statistics TEXT NOT NULL,
	failures   TEXT NOT NULL
);
`

func (s *Store) ensureSchema() error {
	var err error
	s.once.Do(func() {
		_, err = s.writeDB.Exec(schema)
	})
	return err
}

// hashReason is the interning key: sha256 of the rationale body.
func hashReason(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Intern implements the interned-reason upsert:
// INSERT ... ON CONFLICT DO UPDATE SET refcount = refcount + 1.
// It satisfies internal/arbiter.Interner.
func (s *Store) Intern(body string) (int64, error) {
	hash := hashReason(body)
	_, err := s.writeDB.Exec(
		`INSERT INTO cleanup_reasons (hash, body, refcount) VALUES (?, ?, 1)
		 ON CONFLICT(hash) DO UPDATE SET refcount = refcount + 1`,
		hash, body,
	)
	if err != nil {
		return 0, fmt.Errorf("intern reason: %w", err)
	}

	var id int64
	if err := s.readDB.QueryRow(`SELECT reason_id FROM cleanup_reasons WHERE hash = ?`, hash).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup interned reason: %w", err)
	}
	return id, nil
}
