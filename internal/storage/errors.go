package storage

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match with errors.Is; the concrete messages
// wrap these with context.
var (
	// ErrNotFound means an expected row was absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an add would duplicate an existing row by guid or
	// unique name, or a rename targets a name already in use.
	ErrConflict = errors.New("already exists")

	// ErrRestriction means notebook restrictions forbid the requested
	// operation.
	ErrRestriction = errors.New("forbidden by notebook restrictions")

	// ErrExpungePolicy means an attempt to expunge a non-local entity, or to
	// delete an entity with no deletion timestamp set.
	ErrExpungePolicy = errors.New("expunge policy violation")

	// ErrNotInitialized means the storage has no open database; SwitchUser
	// must run first.
	ErrNotInitialized = errors.New("local storage not initialized")
)

// InvalidEntityError reports that an entity failed its parameter check
// before any database statement ran.
type InvalidEntityError struct {
	Entity string
	Err    error
}

func (e *InvalidEntityError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Entity, e.Err)
}

func (e *InvalidEntityError) Unwrap() error { return e.Err }

// SQLError reports a failed SQL statement together with the driver message.
type SQLError struct {
	Stmt string
	Err  error
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("sql statement failed: %v (statement: %s)", e.Err, e.Stmt)
}

func (e *SQLError) Unwrap() error { return e.Err }

// OpenError reports that the database file or its directory could not be
// created, locked or opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open local storage at %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// TxError reports a failed transaction-control statement (begin, commit,
// rollback, end). It is fatal to the current request: the transaction is
// rolled back implicitly and the request must not proceed.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// InvariantError reports an internal inconsistency, e.g. a column missing
// from a row the schema guarantees. It indicates a bug, not caller error.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("local storage invariant violated: %s", e.Msg)
}
