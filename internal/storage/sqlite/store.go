// Package sqlite implements the local note store on an embedded SQLite
// database. One store owns one database connection; callers (normally the
// async worker) must serialize access.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/notefold/notefold/internal/storage"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DatabaseFileName is the database file within the per-account directory.
// The name carries no semantics; it only needs to stay stable.
const DatabaseFileName = "notefold.storage.sqlite"

const lockFileName = "notefold.lock"

const busyTimeoutMillis = 10000

// LocalStorage is the sqlite-backed implementation of storage.LocalStorage.
// It pins a single connection out of the pool so that transaction brackets
// and foreign-key pragmas apply to every statement.
type LocalStorage struct {
	root string // application data root; one subdirectory per account

	db   *sql.DB
	conn *sql.Conn
	path string
	lock *flock.Flock

	log *slog.Logger
}

var _ storage.LocalStorage = (*LocalStorage)(nil)

// New creates a store rooted at dir. No database is opened until SwitchUser.
func New(dir string, log *slog.Logger) *LocalStorage {
	if log == nil {
		log = slog.Default()
	}
	return &LocalStorage{root: dir, log: log}
}

// accountDir returns the directory for (username, userID).
func (s *LocalStorage) accountDir(username string, userID int32) string {
	return filepath.Join(s.root, fmt.Sprintf("%s-%d", username, userID))
}

// SwitchUser closes the current database, if any, and opens the one for the
// given account, creating the directory and schema as needed. When
// startFromScratch is set an existing database file is removed first.
func (s *LocalStorage) SwitchUser(ctx context.Context, username string, userID int32, startFromScratch bool) error {
	if username == "" || userID <= 0 {
		return &storage.OpenError{Path: s.root, Err: fmt.Errorf("invalid account %q/%d", username, userID)}
	}
	if err := s.Close(); err != nil {
		return err
	}

	dir := s.accountDir(username, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &storage.OpenError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, DatabaseFileName)

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return &storage.OpenError{Path: path, Err: err}
	}
	if !locked {
		return &storage.OpenError{Path: path, Err: fmt.Errorf("database is locked by another process")}
	}

	if startFromScratch {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			_ = lock.Unlock()
			return &storage.OpenError{Path: path, Err: err}
		}
	}

	connStr := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(wal)",
		path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		_ = lock.Unlock()
		return &storage.OpenError{Path: path, Err: err}
	}
	// One writer, one connection. The pinned conn below is the only one used.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return &storage.OpenError{Path: path, Err: err}
	}
	if err := initSchema(ctx, conn); err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = lock.Unlock()
		return err
	}

	s.db = db
	s.conn = conn
	s.path = path
	s.lock = lock
	s.log.Info("local storage opened", "path", path, "user", username, "user_id", userID, "fresh", startFromScratch)
	return nil
}

// Path returns the open database file path, or "" before SwitchUser.
func (s *LocalStorage) Path() string { return s.path }

// Close releases the connection and the lock file. Safe to call repeatedly.
func (s *LocalStorage) Close() error {
	var firstErr error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.db = nil
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.lock = nil
	}
	if s.path != "" {
		s.log.Debug("local storage closed", "path", s.path)
		s.path = ""
	}
	return firstErr
}

// ready returns the pinned connection or ErrNotInitialized.
func (s *LocalStorage) ready() (*sql.Conn, error) {
	if s.conn == nil {
		return nil, storage.ErrNotInitialized
	}
	return s.conn, nil
}
