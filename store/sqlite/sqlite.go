/*
Package sqlite provides a SQLite-backed implementation of provision.Store.

PURPOSE:
  Persists every engine record as a JSON document addressed by a
  slash-delimited path, and applies each batch inside one SQL transaction.
  In production, the same pattern applies to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLE:
  documents: path PRIMARY KEY, collection (first path segment, for listing
  and reporting queries), value_json, updated_at.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/provision.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  engine := provision.NewEngine(st, benefits.DefaultRules())

SEE ALSO:
  - provision/store.go: the Store interface and batch semantics
  - provision/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/austral/provision-engine/provision"
)

// Store implements provision.Store on a SQLite documents table.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path       TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		value_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value_json FROM documents WHERE path = ?`, path).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(value), nil
}

func (s *Store) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value_json FROM documents WHERE path = ? OR path LIKE ?`,
		prefix, prefix+"/%")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out[path] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Apply commits the batch inside one SQL transaction. Values are marshaled
// before the transaction opens, so a marshal failure writes nothing.
func (s *Store) Apply(ctx context.Context, batch provision.Batch) error {
	type write struct {
		path       string
		collection string
		value      string
	}
	writes := make([]write, 0, len(batch))
	deletes := make([]string, 0)
	for path, v := range batch {
		if v == nil {
			deletes = append(deletes, path)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		writes = append(writes, write{path: path, collection: collectionOf(path), value: string(raw)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, path := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	for _, w := range writes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (path, collection, value_json, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				value_json = excluded.value_json,
				updated_at = excluded.updated_at`,
			w.path, w.collection, w.value, now)
		if err != nil {
			return fmt.Errorf("put %s: %w", w.path, err)
		}
	}
	return tx.Commit()
}

func (s *Store) NewKey() string { return uuid.NewString() }

// collectionOf returns the first path segment.
func collectionOf(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}
