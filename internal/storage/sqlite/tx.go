package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
)

// txMode selects the transaction bracket. Selection is read-only: it takes a
// shared lock for a consistent multi-statement read and is released with END
// instead of COMMIT/ROLLBACK.
type txMode int

const (
	txDefault txMode = iota
	txImmediate
	txExclusive
	txSelection
)

func (m txMode) beginStmt() string {
	switch m {
	case txImmediate:
		return "BEGIN IMMEDIATE"
	case txExclusive:
		return "BEGIN EXCLUSIVE"
	default:
		return "BEGIN"
	}
}

// inTransaction runs fn inside a transaction bracket on the pinned
// connection. If fn returns nil the transaction is committed (ended, for
// selection mode); otherwise it is rolled back. A panic inside fn rolls back
// and re-raises. Failures of the bracket statements themselves come back as
// *storage.TxError; they are fatal to the current request. Nested
// transactions are not supported — the single-threaded worker is the
// serialization point.
func (s *LocalStorage) inTransaction(ctx context.Context, mode txMode, fn func(conn *sql.Conn) error) error {
	conn, err := s.ready()
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, mode.beginStmt()); err != nil {
		return &storage.TxError{Op: "begin", Err: err}
	}

	done := false
	defer func() {
		if done {
			return
		}
		// Release on the error and panic paths. Selection scopes have
		// nothing to undo; write scopes roll back.
		stmt := "ROLLBACK"
		if mode == txSelection {
			stmt = "END"
		}
		_, _ = conn.ExecContext(ctx, stmt)
	}()

	if err := fn(conn); err != nil {
		return err
	}

	endStmt := "COMMIT"
	if mode == txSelection {
		endStmt = "END"
	}
	if _, err := conn.ExecContext(ctx, endStmt); err != nil {
		return &storage.TxError{Op: "commit", Err: err}
	}
	done = true
	return nil
}
