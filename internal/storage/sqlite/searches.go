package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddSavedSearch validates and inserts a saved search.
func (s *LocalStorage) AddSavedSearch(ctx context.Context, search *types.SavedSearch) error {
	if err := search.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "saved search", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "saved_searches", &search.LocalUID, search.GUID, false); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceSavedSearch(ctx, conn, search)
	})
}

// UpdateSavedSearch validates and replaces an existing saved search.
func (s *LocalStorage) UpdateSavedSearch(ctx context.Context, search *types.SavedSearch) error {
	if err := search.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "saved search", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "saved_searches", &search.LocalUID, search.GUID, true); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceSavedSearch(ctx, conn, search)
	})
}

// FindSavedSearch loads a saved search by either identity.
func (s *LocalStorage) FindSavedSearch(ctx context.Context, key storage.Key) (*types.SavedSearch, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	column := "local_uid"
	if key.By == types.ByGUID {
		column = "guid"
	}
	return s.findSavedSearchWhere(ctx, conn, column+" = ?", key.Value)
}

// ListSavedSearches returns saved searches matching the filter,
// alphabetically by name.
func (s *LocalStorage) ListSavedSearches(ctx context.Context, f storage.SavedSearchFilter, page storage.Page) ([]*types.SavedSearch, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	query := `SELECT local_uid FROM saved_searches`
	var where []string
	if f.FavoritedOnly {
		where = append(where, "is_favorited = 1")
	}
	if f.DirtyOnly {
		where = append(where, "is_dirty = 1")
	}
	query += whereClause(where) + orderClause(page, map[storage.Order]string{
		storage.OrderNatural:             "name_upper",
		storage.OrderByName:              "name_upper",
		storage.OrderByUpdateSequenceNum: "update_sequence_number",
	}, "name_upper") + limitClause(page)

	uids, err := queryStrings(ctx, conn, query)
	if err != nil {
		return nil, err
	}
	searches := make([]*types.SavedSearch, 0, len(uids))
	for _, uid := range uids {
		search, err := s.findSavedSearchWhere(ctx, conn, "local_uid = ?", uid)
		if err != nil {
			return nil, err
		}
		searches = append(searches, search)
	}
	return searches, nil
}

// ExpungeSavedSearch permanently removes a local saved search.
func (s *LocalStorage) ExpungeSavedSearch(ctx context.Context, search *types.SavedSearch) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindSavedSearch(ctx, savedSearchKey(search))
	if err != nil {
		return err
	}
	if !stored.Local {
		return storage.ErrExpungePolicy
	}
	search.LocalUID = stored.LocalUID
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM saved_searches WHERE local_uid = ?`, stored.LocalUID)
	})
}

// CountSavedSearches returns the number of saved searches.
func (s *LocalStorage) CountSavedSearches(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM saved_searches`)
}

func savedSearchKey(search *types.SavedSearch) storage.Key {
	if search.LocalUID != "" {
		return storage.LocalKey(search.LocalUID)
	}
	if search.GUID != nil {
		return storage.GUIDKey(*search.GUID)
	}
	return storage.LocalKey("")
}

// insertOrReplaceSavedSearch writes the search row inside an open
// transaction. Name and guid collisions with a different search are
// conflicts; the REPLACE below must only ever supersede this search's own
// row.
func (s *LocalStorage) insertOrReplaceSavedSearch(ctx context.Context, conn *sql.Conn, search *types.SavedSearch) error {
	if err := checkUniqueAgainstOthers(ctx, conn, "saved_searches", "local_uid", search.LocalUID, "name_upper", upperName(search.Name)); err != nil {
		return err
	}
	if search.GUID != nil {
		if err := checkUniqueAgainstOthers(ctx, conn, "saved_searches", "local_uid", search.LocalUID, "guid", *search.GUID); err != nil {
			return err
		}
	}
	stmt := `
		INSERT OR REPLACE INTO saved_searches (
			local_uid, guid, update_sequence_number, name, name_upper,
			query, format,
			include_account, include_personal_linked_notebooks, include_business_linked_notebooks,
			is_dirty, is_local, is_favorited
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt,
		search.LocalUID, nullString(search.GUID), nullInt32(search.UpdateSequenceNum),
		search.Name, upperName(search.Name), search.Query, nullInt32(search.Format),
		boolToInt(search.IncludeAccount),
		boolToInt(search.IncludePersonalLinkedNotebooks),
		boolToInt(search.IncludeBusinessLinkedNotebooks),
		boolToInt(search.Dirty), boolToInt(search.Local), boolToInt(search.Favorited),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return &storage.SQLError{Stmt: stmt, Err: err}
	}
	return nil
}

func (s *LocalStorage) findSavedSearchWhere(ctx context.Context, conn *sql.Conn, cond string, args ...any) (*types.SavedSearch, error) {
	query := `
		SELECT local_uid, guid, update_sequence_number, name, query, format,
		       include_account, include_personal_linked_notebooks, include_business_linked_notebooks,
		       is_dirty, is_local, is_favorited
		FROM saved_searches WHERE ` + cond

	search := &types.SavedSearch{}
	var (
		guid           sql.NullString
		usn, format    sql.NullInt64
		incAcc, incPer int
		incBus         int
		dirty, local   int
		fav            int
	)
	err := conn.QueryRowContext(ctx, query, args...).Scan(
		&search.LocalUID, &guid, &usn, &search.Name, &search.Query, &format,
		&incAcc, &incPer, &incBus, &dirty, &local, &fav,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	search.GUID = strPtr(guid)
	search.UpdateSequenceNum = int32Ptr(usn)
	search.Format = int32Ptr(format)
	search.IncludeAccount = incAcc != 0
	search.IncludePersonalLinkedNotebooks = incPer != 0
	search.IncludeBusinessLinkedNotebooks = incBus != 0
	search.Dirty = dirty != 0
	search.Local = local != 0
	search.Favorited = fav != 0
	return search, nil
}
