package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/notefold/notefold/internal/storage"
)

// Listing helpers shared by the per-family List and Count implementations.

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// orderClause maps the requested order onto a column; orders the family does
// not support fall back to the given natural column.
func orderClause(page storage.Page, columns map[storage.Order]string, natural string) string {
	col, ok := columns[page.Order]
	if !ok {
		col = natural
	}
	dir := "ASC"
	if page.Direction == storage.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func limitClause(page storage.Page) string {
	if page.Limit <= 0 && page.Offset <= 0 {
		return ""
	}
	limit := page.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit, offset still applies
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, page.Offset)
}

func queryStrings(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, &storage.SQLError{Stmt: query, Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	return out, nil
}

func (s *LocalStorage) countRows(ctx context.Context, query string, args ...any) (int, error) {
	conn, err := s.ready()
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &storage.SQLError{Stmt: query, Err: err}
	}
	return n, nil
}
