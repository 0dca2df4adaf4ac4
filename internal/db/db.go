package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const dbFile = "notes.db"

// Sentinel errors for the cache store.
var (
	// ErrNotFound means the note does not exist in the cache (or is tombstoned).
	ErrNotFound = errors.New("note not found")
	// ErrStorage wraps local durable-storage faults. Callers must not retry
	// these; retry policy for remote operations lives in the sync engine.
	ErrStorage = errors.New("storage failure")
)

// storageErr tags a low-level database error with the ErrStorage sentinel.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// DB wraps the local cache and outbox database.
// All reads are served from here regardless of connectivity.
type DB struct {
	conn    *sql.DB
	baseDir string

	watchMu   sync.Mutex
	watchers  map[int]watcher
	nextWatch int
}

// Open opens an existing notes database.
func Open(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'nt init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}
	if err := checkSchemaVersion(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return newDB(conn, baseDir), nil
}

// Initialize creates the database directory, schema and pragmas.
// Safe to call on an existing database.
func Initialize(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := conn.Exec(`
		INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?)`,
		schemaVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}
	return newDB(conn, baseDir), nil
}

func checkSchemaVersion(conn *sql.DB) error {
	var v string
	err := conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&v)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("database schema version %s is not supported (want %s)", v, schemaVersion)
	}
	return nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout as fallback protection (matches write lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

func newDB(conn *sql.DB, baseDir string) *DB {
	return &DB{conn: conn, baseDir: baseDir, watchers: map[int]watcher{}}
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.closeWatchers()
	return db.conn.Close()
}

// BaseDir returns the data directory backing this database.
func (db *DB) BaseDir() string {
	return db.baseDir
}

// AcquireDrainLock takes the cross-process drain lock for this data dir.
// Watch mode and the autosync of a one-shot command can target the same
// store from different processes; whoever holds this lock owns the drain.
// Does not wait: ok is false when another drain is already running, and
// release must be called once when ok is true.
func (db *DB) AcquireDrainLock() (release func(), ok bool) {
	l := newDrainLocker(db.baseDir)
	if err := l.acquire(0); err != nil {
		return nil, false
	}
	return func() { l.release() }, true
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (db *DB) withWriteLock(fn func() error) error {
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}
