// Package sqlite implements the relational store for ccm on modernc.org/sqlite.
// The backend owns one shared connection; every exported method serializes
// behind the backend mutex, and multi-statement cascades run in a single
// transaction.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// dsnPragmas enables foreign keys so association rows cascade, and waits on
// a second process holding the file lock instead of failing at once.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Backend implements types.Store using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	path     string
	db       *sql.DB
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for migrations and cascades.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) {
		b.log = l.With().Str("component", "store").Logger()
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the database file path, or "" when detached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Attach opens claude_config.db under config.DataDir, creating the directory
// and schema when needed, then runs column migrations and first-run seeding.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.E(types.KindStore, "attach", types.ErrAlreadyAttached)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return types.E(types.KindConfiguration, "attach", fmt.Errorf("creating data dir: %w", err))
	}

	dbPath := filepath.Join(dataDir, types.DatabaseFileName)
	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return types.E(types.KindStore, "attach", fmt.Errorf("opening %s: %w", dbPath, err))
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return types.E(types.KindStore, "attach", fmt.Errorf("connecting to %s: %w", dbPath, err))
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return types.E(types.KindStore, "attach", err)
	}
	if err := migrate(db, b.log); err != nil {
		db.Close()
		return types.E(types.KindStore, "attach", err)
	}
	if err := seedDefaultBaseURL(db, b.timestamp()); err != nil {
		db.Close()
		return types.E(types.KindStore, "attach", err)
	}

	b.db = db
	b.config = config
	b.path = dbPath
	b.attached = true

	b.log.Debug().Str("path", dbPath).Msg("store attached")
	return nil
}

// Detach closes the connection. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return types.E(types.KindStore, "detach", err)
		}
		b.db = nil
	}

	b.attached = false
	b.path = ""
	return nil
}

// checkAttached returns ErrStoreDetached when the backend is not attached.
// The caller must hold b.mu.
func (b *Backend) checkAttached(op string) error {
	if !b.attached {
		return types.E(types.KindStore, op, types.ErrStoreDetached)
	}
	return nil
}

// timestamp returns the current time in the stored text format.
func (b *Backend) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

// withTx runs fn inside a transaction and commits when fn returns nil.
// The caller must hold b.mu. fn must use tx only; the pool has one
// connection and a query on b.db would block behind the transaction.
func (b *Backend) withTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return types.E(types.KindStore, op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return types.E(types.KindStore, op, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// storeErr classifies a database error: missing rows become ErrNotFound,
// unique violations become ErrDuplicate, everything else keeps its text.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return types.E(types.KindStore, op, types.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return types.E(types.KindStore, op, fmt.Errorf("%w: %v", types.ErrDuplicate, err))
	}
	return types.E(types.KindStore, op, err)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

// notFound returns a store error wrapping ErrNotFound.
func notFound(op string) error {
	return types.E(types.KindStore, op, types.ErrNotFound)
}

// expectOne converts a zero-row result into ErrNotFound.
func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}

// newRunID generates a UUID v7 for correlating a sync run.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// parseTimestamp accepts RFC 3339 text and the CURRENT_TIMESTAMP layout
// written by column defaults.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
