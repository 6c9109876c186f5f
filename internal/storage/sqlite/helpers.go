package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// isUniqueConstraintError checks if err is a UNIQUE constraint violation.
// Used to map duplicate guids and duplicate case-insensitive names to
// storage.ErrConflict.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// exec wraps ExecContext so every failure carries the statement text.
func exec(ctx context.Context, conn *sql.Conn, stmt string, args ...any) error {
	if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
		return &storage.SQLError{Stmt: stmt, Err: err}
	}
	return nil
}

// Null-mapping helpers. Optional entity fields are pointers; absent maps to
// SQL NULL and back, never to a zero value.

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt32(p *int32) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int32Ptr(v sql.NullInt64) *int32 {
	if !v.Valid {
		return nil
	}
	n := int32(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// upperName mirrors the case-insensitive uniqueness column.
func upperName(name string) string { return strings.ToUpper(name) }

// rowExists reports whether the query returns at least one row.
func rowExists(ctx context.Context, conn *sql.Conn, query string, args ...any) (bool, error) {
	var one int
	err := conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &storage.SQLError{Stmt: query, Err: err}
	}
	return true, nil
}

// checkUniqueAgainstOthers fails with ErrConflict when a row OTHER than
// uid already holds value in the given unique column. INSERT OR REPLACE
// would otherwise silently delete that row (and cascade its dependents)
// instead of surfacing the constraint, so every insert-or-replace runs this
// for its unique columns first; REPLACE is then only ever superseding the
// entity's own row.
func checkUniqueAgainstOthers(ctx context.Context, conn *sql.Conn, table, uidColumn, uid, column string, value any) error {
	query := `SELECT 1 FROM ` + table + ` WHERE ` + column + ` = ? AND ` + uidColumn + ` != ?`
	held, err := rowExists(ctx, conn, query, value, uid)
	if err != nil {
		return err
	}
	if held {
		return storage.ErrConflict
	}
	return nil
}

// resolveIdentity implements the shared add/update identity rules for
// entities with a (local_uid, guid) pair stored in the given table.
//
// On add (mustExist=false): a guid with no local uid probes for an existing
// row by guid — finding one is a conflict (the caller should update); a
// fresh local uid is assigned otherwise. With a local uid present the row
// must not exist yet.
//
// On update (mustExist=true): a guid with no local uid resolves the local
// uid from the existing row and assigns it to the entity; otherwise the row
// must already exist on the chosen key.
func (s *LocalStorage) resolveIdentity(ctx context.Context, table string, localUID *string, guid *string, mustExist bool) error {
	conn, err := s.ready()
	if err != nil {
		return err
	}

	if guid != nil && *localUID == "" {
		query := `SELECT local_uid FROM ` + table + ` WHERE guid = ?`
		var existing string
		err := conn.QueryRowContext(ctx, query, *guid).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			if mustExist {
				return storage.ErrNotFound
			}
			*localUID = types.NewLocalUID()
			return nil
		case err != nil:
			return &storage.SQLError{Stmt: query, Err: err}
		case mustExist:
			*localUID = existing
			return nil
		default:
			return storage.ErrConflict
		}
	}

	query := `SELECT 1 FROM ` + table + ` WHERE local_uid = ?`
	exists, err := rowExists(ctx, conn, query, *localUID)
	if err != nil {
		return err
	}
	if mustExist && !exists {
		return storage.ErrNotFound
	}
	if !mustExist && exists {
		return storage.ErrConflict
	}
	return nil
}
