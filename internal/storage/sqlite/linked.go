package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddLinkedNotebook validates and inserts a linked notebook.
func (s *LocalStorage) AddLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error {
	if err := ln.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "linked notebook", Err: err}
	}
	conn, err := s.ready()
	if err != nil {
		return err
	}
	exists, err := rowExists(ctx, conn, `SELECT 1 FROM linked_notebooks WHERE guid = ?`, ln.GUID)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrConflict
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceLinkedNotebook(ctx, conn, ln)
	})
}

// UpdateLinkedNotebook validates and replaces an existing linked notebook.
func (s *LocalStorage) UpdateLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error {
	if err := ln.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "linked notebook", Err: err}
	}
	conn, err := s.ready()
	if err != nil {
		return err
	}
	exists, err := rowExists(ctx, conn, `SELECT 1 FROM linked_notebooks WHERE guid = ?`, ln.GUID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceLinkedNotebook(ctx, conn, ln)
	})
}

// FindLinkedNotebook loads a linked notebook by guid.
func (s *LocalStorage) FindLinkedNotebook(ctx context.Context, guid string) (*types.LinkedNotebook, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	query := `
		SELECT guid, update_sequence_number, share_name, username, shard_id,
		       share_key, uri, note_store_url, web_api_url_prefix, stack,
		       business_id, is_dirty
		FROM linked_notebooks WHERE guid = ?`
	return scanLinkedNotebook(conn.QueryRowContext(ctx, query, guid), query)
}

// ListLinkedNotebooks returns linked notebooks in share-name order.
func (s *LocalStorage) ListLinkedNotebooks(ctx context.Context, page storage.Page) ([]*types.LinkedNotebook, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	query := `SELECT guid FROM linked_notebooks` + orderClause(page, map[storage.Order]string{
		storage.OrderNatural:             "share_name",
		storage.OrderByName:              "share_name",
		storage.OrderByUpdateSequenceNum: "update_sequence_number",
	}, "share_name") + limitClause(page)

	guids, err := queryStrings(ctx, conn, query)
	if err != nil {
		return nil, err
	}
	out := make([]*types.LinkedNotebook, 0, len(guids))
	for _, guid := range guids {
		ln, err := s.FindLinkedNotebook(ctx, guid)
		if err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, nil
}

// ExpungeLinkedNotebook permanently removes a linked notebook. Linked
// notebooks are never created locally, so no is_local gate applies; the
// remote side drives their lifecycle.
func (s *LocalStorage) ExpungeLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error {
	conn, err := s.ready()
	if err != nil {
		return err
	}
	exists, err := rowExists(ctx, conn, `SELECT 1 FROM linked_notebooks WHERE guid = ?`, ln.GUID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM linked_notebooks WHERE guid = ?`, ln.GUID)
	})
}

// CountLinkedNotebooks returns the number of linked notebooks.
func (s *LocalStorage) CountLinkedNotebooks(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM linked_notebooks`)
}

func (s *LocalStorage) insertOrReplaceLinkedNotebook(ctx context.Context, conn *sql.Conn, ln *types.LinkedNotebook) error {
	stmt := `
		INSERT OR REPLACE INTO linked_notebooks (
			guid, update_sequence_number, share_name, username, shard_id,
			share_key, uri, note_store_url, web_api_url_prefix, stack,
			business_id, is_dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt,
		ln.GUID, nullInt32(ln.UpdateSequenceNum),
		nullString(ln.ShareName), nullString(ln.Username), nullString(ln.ShardID),
		nullString(ln.ShareKey), nullString(ln.URI),
		nullString(ln.NoteStoreURL), nullString(ln.WebAPIURLPrefix), nullString(ln.Stack),
		nullInt32(ln.BusinessID), boolToInt(ln.Dirty),
	); err != nil {
		return &storage.SQLError{Stmt: stmt, Err: err}
	}
	return nil
}

func scanLinkedNotebook(row *sql.Row, query string) (*types.LinkedNotebook, error) {
	ln := &types.LinkedNotebook{}
	var (
		usn                     sql.NullInt64
		shareName, username     sql.NullString
		shardID, shareKey, uri  sql.NullString
		noteStoreURL, webPrefix sql.NullString
		stack                   sql.NullString
		businessID              sql.NullInt64
		dirty                   int
	)
	err := row.Scan(&ln.GUID, &usn, &shareName, &username, &shardID,
		&shareKey, &uri, &noteStoreURL, &webPrefix, &stack, &businessID, &dirty)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	ln.UpdateSequenceNum = int32Ptr(usn)
	ln.ShareName = strPtr(shareName)
	ln.Username = strPtr(username)
	ln.ShardID = strPtr(shardID)
	ln.ShareKey = strPtr(shareKey)
	ln.URI = strPtr(uri)
	ln.NoteStoreURL = strPtr(noteStoreURL)
	ln.WebAPIURLPrefix = strPtr(webPrefix)
	ln.Stack = strPtr(stack)
	ln.BusinessID = int32Ptr(businessID)
	ln.Dirty = dirty != 0
	return ln, nil
}
