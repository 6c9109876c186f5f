package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddNotebook validates and inserts a notebook. A notebook carrying a guid
// that is already present is a conflict; use UpdateNotebook instead.
func (s *LocalStorage) AddNotebook(ctx context.Context, nb *types.Notebook) error {
	if err := nb.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "notebook", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "notebooks", &nb.LocalUID, nb.GUID, false); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceNotebook(ctx, conn, nb)
	})
}

// UpdateNotebook validates and replaces an existing notebook. When the
// entity carries only a guid, the stored local uid is resolved and assigned
// to it. Updating a notebook whose stored restrictions forbid notebook
// updates fails with ErrRestriction.
func (s *LocalStorage) UpdateNotebook(ctx context.Context, nb *types.Notebook) error {
	if err := nb.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "notebook", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "notebooks", &nb.LocalUID, nb.GUID, true); err != nil {
		return err
	}
	restrictions, err := s.loadNotebookRestrictions(ctx, nb.LocalUID)
	if err != nil {
		return err
	}
	if restrictions.ForbidsNotebookUpdate() {
		return storage.ErrRestriction
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceNotebook(ctx, conn, nb)
	})
}

// FindNotebook loads a notebook with all side records by either identity.
// The multi-table read runs under a selection scope so the row and its side
// records come from one consistent snapshot.
func (s *LocalStorage) FindNotebook(ctx context.Context, key storage.Key) (*types.Notebook, error) {
	column := "local_uid"
	if key.By == types.ByGUID {
		column = "guid"
	}
	var nb *types.Notebook
	err := s.inTransaction(ctx, txSelection, func(conn *sql.Conn) error {
		var err error
		nb, err = s.findNotebookWhere(ctx, conn, column+" = ?", key.Value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nb, nil
}

// FindDefaultNotebook returns the notebook flagged as default.
func (s *LocalStorage) FindDefaultNotebook(ctx context.Context) (*types.Notebook, error) {
	var nb *types.Notebook
	err := s.inTransaction(ctx, txSelection, func(conn *sql.Conn) error {
		var err error
		nb, err = s.findNotebookWhere(ctx, conn, "is_default = 1")
		return err
	})
	if err != nil {
		return nil, err
	}
	return nb, nil
}

// FindLastUsedNotebook returns the notebook flagged as most recently used.
func (s *LocalStorage) FindLastUsedNotebook(ctx context.Context) (*types.Notebook, error) {
	var nb *types.Notebook
	err := s.inTransaction(ctx, txSelection, func(conn *sql.Conn) error {
		var err error
		nb, err = s.findNotebookWhere(ctx, conn, "is_last_used = 1")
		return err
	})
	if err != nil {
		return nil, err
	}
	return nb, nil
}

// FindDefaultOrLastUsedNotebook prefers the default notebook and falls back
// to the last-used one.
func (s *LocalStorage) FindDefaultOrLastUsedNotebook(ctx context.Context) (*types.Notebook, error) {
	nb, err := s.FindDefaultNotebook(ctx)
	if err == nil {
		return nb, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}
	return s.FindLastUsedNotebook(ctx)
}

// ListNotebooks returns notebooks matching the filter. Natural ordering is
// insertion order.
func (s *LocalStorage) ListNotebooks(ctx context.Context, f storage.NotebookFilter, page storage.Page) ([]*types.Notebook, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}

	query := `SELECT local_uid FROM notebooks`
	var where []string
	var args []any
	if f.Stack != "" {
		where = append(where, "stack = ?")
		args = append(args, f.Stack)
	}
	if f.FavoritedOnly {
		where = append(where, "is_favorited = 1")
	}
	if f.DirtyOnly {
		where = append(where, "is_dirty = 1")
	}
	query += whereClause(where) + orderClause(page, map[storage.Order]string{
		storage.OrderNatural:             "rowid",
		storage.OrderByName:              "name_upper",
		storage.OrderByCreated:           "creation_timestamp",
		storage.OrderByModified:          "modification_timestamp",
		storage.OrderByUpdateSequenceNum: "update_sequence_number",
	}, "rowid") + limitClause(page)

	uids, err := queryStrings(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	notebooks := make([]*types.Notebook, 0, len(uids))
	for _, uid := range uids {
		nb, err := s.findNotebookWhere(ctx, conn, "local_uid = ?", uid)
		if err != nil {
			return nil, err
		}
		notebooks = append(notebooks, nb)
	}
	return notebooks, nil
}

// ExpungeNotebook permanently removes a local notebook; cascades remove its
// notes, their resources and the side records.
func (s *LocalStorage) ExpungeNotebook(ctx context.Context, nb *types.Notebook) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindNotebook(ctx, notebookKey(nb))
	if err != nil {
		return err
	}
	if !stored.Local {
		return storage.ErrExpungePolicy
	}
	if stored.Restrictions.ForbidsNotebookExpunge() {
		return storage.ErrRestriction
	}
	nb.LocalUID = stored.LocalUID
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM notebooks WHERE local_uid = ?`, stored.LocalUID)
	})
}

// CountNotebooks returns the number of notebooks.
func (s *LocalStorage) CountNotebooks(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM notebooks`)
}

// ListSharedNotebooksPerNotebookGUID returns the shares of a notebook in
// ascending index order.
func (s *LocalStorage) ListSharedNotebooksPerNotebookGUID(ctx context.Context, notebookGUID string) ([]types.SharedNotebook, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	return s.loadSharedNotebooks(ctx, conn, notebookGUID)
}

func notebookKey(nb *types.Notebook) storage.Key {
	if nb.LocalUID != "" {
		return storage.LocalKey(nb.LocalUID)
	}
	if nb.GUID != nil {
		return storage.GUIDKey(*nb.GUID)
	}
	return storage.LocalKey("")
}

// insertOrReplaceNotebook writes the parent row and every present side
// record; absent side records supersede (remove) prior ones. Runs inside an
// open transaction. Name and guid collisions with a different notebook are
// conflicts; the REPLACE below must only ever supersede this notebook's own
// row.
func (s *LocalStorage) insertOrReplaceNotebook(ctx context.Context, conn *sql.Conn, nb *types.Notebook) error {
	if err := checkUniqueAgainstOthers(ctx, conn, "notebooks", "local_uid", nb.LocalUID, "name_upper", upperName(nb.Name)); err != nil {
		return err
	}
	if nb.GUID != nil {
		if err := checkUniqueAgainstOthers(ctx, conn, "notebooks", "local_uid", nb.LocalUID, "guid", *nb.GUID); err != nil {
			return err
		}
	}
	// A newly flagged default or last-used notebook displaces the previous
	// holder of the flag.
	if nb.IsDefault {
		if err := exec(ctx, conn, `UPDATE notebooks SET is_default = 0 WHERE local_uid != ?`, nb.LocalUID); err != nil {
			return err
		}
	}
	if nb.IsLastUsed {
		if err := exec(ctx, conn, `UPDATE notebooks SET is_last_used = 0 WHERE local_uid != ?`, nb.LocalUID); err != nil {
			return err
		}
	}

	stmt := `
		INSERT OR REPLACE INTO notebooks (
			local_uid, guid, update_sequence_number, name, name_upper,
			creation_timestamp, modification_timestamp,
			is_default, is_last_used, stack, contact_user_id,
			is_dirty, is_local, is_favorited
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := conn.ExecContext(ctx, stmt,
		nb.LocalUID, nullString(nb.GUID), nullInt32(nb.UpdateSequenceNum),
		nb.Name, upperName(nb.Name),
		nullInt64(nb.CreationTimestamp), nullInt64(nb.ModificationTimestamp),
		boolToInt(nb.IsDefault), boolToInt(nb.IsLastUsed),
		nullString(nb.Stack), nullInt32(nb.ContactUserID),
		boolToInt(nb.Dirty), boolToInt(nb.Local), boolToInt(nb.Favorited),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	// INSERT OR REPLACE re-creates the parent row, so cascades have wiped
	// the side records already; rewriting the present ones is enough.
	if nb.Restrictions != nil {
		r := nb.Restrictions
		stmt := `
			INSERT OR REPLACE INTO notebook_restrictions (
				local_uid,
				no_read_notes, no_create_notes, no_update_notes, no_expunge_notes,
				no_share_notes, no_email_notes, no_send_message_to_recipients,
				no_update_notebook, no_expunge_notebook, no_set_default_notebook,
				no_set_notebook_stack, no_publish_to_public, no_publish_to_business_library,
				no_create_tags, no_update_tags, no_expunge_tags, no_set_parent_tag,
				no_create_shared_notebooks, no_share_notes_with_business, no_rename_notebook
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, nb.LocalUID,
			nullBool(r.NoReadNotes), nullBool(r.NoCreateNotes), nullBool(r.NoUpdateNotes), nullBool(r.NoExpungeNotes),
			nullBool(r.NoShareNotes), nullBool(r.NoEmailNotes), nullBool(r.NoSendMessageToRecipients),
			nullBool(r.NoUpdateNotebook), nullBool(r.NoExpungeNotebook), nullBool(r.NoSetDefaultNotebook),
			nullBool(r.NoSetNotebookStack), nullBool(r.NoPublishToPublic), nullBool(r.NoPublishToBusinessLibrary),
			nullBool(r.NoCreateTags), nullBool(r.NoUpdateTags), nullBool(r.NoExpungeTags), nullBool(r.NoSetParentTag),
			nullBool(r.NoCreateSharedNotebooks), nullBool(r.NoShareNotesWithBusiness), nullBool(r.NoRenameNotebook),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if nb.Publishing != nil {
		p := nb.Publishing
		stmt := `
			INSERT OR REPLACE INTO notebook_publishing
				(local_uid, uri, publishing_order, ascending, public_description)
			VALUES (?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, nb.LocalUID,
			nullString(p.URI), nullInt32(p.Order), nullBool(p.Ascending), nullString(p.PublicDescription),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if nb.Business != nil {
		b := nb.Business
		stmt := `
			INSERT OR REPLACE INTO notebook_business
				(local_uid, description, privilege, recommended)
			VALUES (?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, nb.LocalUID,
			nullString(b.Description), nullInt32(b.Privilege), nullBool(b.Recommended),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if nb.GUID != nil {
		// Shares depend on the notebook guid; rewrite preserving the
		// server-reported ordering.
		if err := exec(ctx, conn, `DELETE FROM shared_notebooks WHERE notebook_guid = ?`, *nb.GUID); err != nil {
			return err
		}
		for i := range nb.SharedNotebooks {
			sn := &nb.SharedNotebooks[i]
			stmt := `
				INSERT OR REPLACE INTO shared_notebooks (
					share_id, user_id, notebook_guid, email,
					creation_timestamp, modification_timestamp,
					share_key, username, privilege,
					allow_preview, reminder_notify_email, reminder_notify_app,
					index_in_notebook
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
			if _, err := conn.ExecContext(ctx, stmt,
				sn.ShareID, nullInt32(sn.UserID), sn.NotebookGUID, nullString(sn.Email),
				nullInt64(sn.CreationTimestamp), nullInt64(sn.ModificationTimestamp),
				nullString(sn.ShareKey), nullString(sn.Username), nullInt32(sn.PrivilegeLevel),
				nullBool(sn.AllowPreview), nullBool(sn.ReminderNotifyEmail), nullBool(sn.ReminderNotifyApp),
				sn.IndexInNotebook,
			); err != nil {
				return &storage.SQLError{Stmt: stmt, Err: err}
			}
		}
	}

	return nil
}

func (s *LocalStorage) findNotebookWhere(ctx context.Context, conn *sql.Conn, cond string, args ...any) (*types.Notebook, error) {
	query := `
		SELECT local_uid, guid, update_sequence_number, name,
		       creation_timestamp, modification_timestamp,
		       is_default, is_last_used, stack, contact_user_id,
		       is_dirty, is_local, is_favorited
		FROM notebooks WHERE ` + cond

	nb := &types.Notebook{}
	var (
		guid         sql.NullString
		usn          sql.NullInt64
		created, mod sql.NullInt64
		isDefault    int
		isLastUsed   int
		stack        sql.NullString
		contact      sql.NullInt64
		dirty        int
		local        int
		favorited    int
	)
	err := conn.QueryRowContext(ctx, query, args...).Scan(
		&nb.LocalUID, &guid, &usn, &nb.Name, &created, &mod,
		&isDefault, &isLastUsed, &stack, &contact, &dirty, &local, &favorited,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	nb.GUID = strPtr(guid)
	nb.UpdateSequenceNum = int32Ptr(usn)
	nb.CreationTimestamp = int64Ptr(created)
	nb.ModificationTimestamp = int64Ptr(mod)
	nb.IsDefault = isDefault != 0
	nb.IsLastUsed = isLastUsed != 0
	nb.Stack = strPtr(stack)
	nb.ContactUserID = int32Ptr(contact)
	nb.Dirty = dirty != 0
	nb.Local = local != 0
	nb.Favorited = favorited != 0

	restrictions, err := s.loadNotebookRestrictions(ctx, nb.LocalUID)
	if err != nil {
		return nil, err
	}
	nb.Restrictions = restrictions

	if err := s.loadNotebookPublishing(ctx, conn, nb); err != nil {
		return nil, err
	}
	if err := s.loadNotebookBusiness(ctx, conn, nb); err != nil {
		return nil, err
	}
	if nb.GUID != nil {
		shares, err := s.loadSharedNotebooks(ctx, conn, *nb.GUID)
		if err != nil {
			return nil, err
		}
		nb.SharedNotebooks = shares
	}
	return nb, nil
}

func (s *LocalStorage) loadNotebookRestrictions(ctx context.Context, localUID string) (*types.NotebookRestrictions, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	query := `
		SELECT no_read_notes, no_create_notes, no_update_notes, no_expunge_notes,
		       no_share_notes, no_email_notes, no_send_message_to_recipients,
		       no_update_notebook, no_expunge_notebook, no_set_default_notebook,
		       no_set_notebook_stack, no_publish_to_public, no_publish_to_business_library,
		       no_create_tags, no_update_tags, no_expunge_tags, no_set_parent_tag,
		       no_create_shared_notebooks, no_share_notes_with_business, no_rename_notebook
		FROM notebook_restrictions WHERE local_uid = ?`
	var v [20]sql.NullBool
	err = conn.QueryRowContext(ctx, query, localUID).Scan(
		&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6], &v[7], &v[8], &v[9],
		&v[10], &v[11], &v[12], &v[13], &v[14], &v[15], &v[16], &v[17], &v[18], &v[19],
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	return &types.NotebookRestrictions{
		NoReadNotes: boolPtr(v[0]), NoCreateNotes: boolPtr(v[1]), NoUpdateNotes: boolPtr(v[2]),
		NoExpungeNotes: boolPtr(v[3]), NoShareNotes: boolPtr(v[4]), NoEmailNotes: boolPtr(v[5]),
		NoSendMessageToRecipients: boolPtr(v[6]), NoUpdateNotebook: boolPtr(v[7]),
		NoExpungeNotebook: boolPtr(v[8]), NoSetDefaultNotebook: boolPtr(v[9]),
		NoSetNotebookStack: boolPtr(v[10]), NoPublishToPublic: boolPtr(v[11]),
		NoPublishToBusinessLibrary: boolPtr(v[12]), NoCreateTags: boolPtr(v[13]),
		NoUpdateTags: boolPtr(v[14]), NoExpungeTags: boolPtr(v[15]),
		NoSetParentTag: boolPtr(v[16]), NoCreateSharedNotebooks: boolPtr(v[17]),
		NoShareNotesWithBusiness: boolPtr(v[18]), NoRenameNotebook: boolPtr(v[19]),
	}, nil
}

func (s *LocalStorage) loadNotebookPublishing(ctx context.Context, conn *sql.Conn, nb *types.Notebook) error {
	query := `
		SELECT uri, publishing_order, ascending, public_description
		FROM notebook_publishing WHERE local_uid = ?`
	var (
		uri, desc sql.NullString
		order     sql.NullInt64
		asc       sql.NullBool
	)
	err := conn.QueryRowContext(ctx, query, nb.LocalUID).Scan(&uri, &order, &asc, &desc)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	nb.Publishing = &types.NotebookPublishing{
		URI:               strPtr(uri),
		Order:             int32Ptr(order),
		Ascending:         boolPtr(asc),
		PublicDescription: strPtr(desc),
	}
	return nil
}

func (s *LocalStorage) loadNotebookBusiness(ctx context.Context, conn *sql.Conn, nb *types.Notebook) error {
	query := `
		SELECT description, privilege, recommended
		FROM notebook_business WHERE local_uid = ?`
	var (
		desc      sql.NullString
		privilege sql.NullInt64
		rec       sql.NullBool
	)
	err := conn.QueryRowContext(ctx, query, nb.LocalUID).Scan(&desc, &privilege, &rec)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	nb.Business = &types.BusinessNotebook{
		Description: strPtr(desc),
		Privilege:   int32Ptr(privilege),
		Recommended: boolPtr(rec),
	}
	return nil
}

func (s *LocalStorage) loadSharedNotebooks(ctx context.Context, conn *sql.Conn, notebookGUID string) ([]types.SharedNotebook, error) {
	query := `
		SELECT share_id, user_id, notebook_guid, email,
		       creation_timestamp, modification_timestamp,
		       share_key, username, privilege,
		       allow_preview, reminder_notify_email, reminder_notify_app,
		       index_in_notebook
		FROM shared_notebooks
		WHERE notebook_guid = ?
		ORDER BY index_in_notebook ASC`
	rows, err := conn.QueryContext(ctx, query, notebookGUID)
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var shares []types.SharedNotebook
	for rows.Next() {
		var (
			sn           types.SharedNotebook
			userID       sql.NullInt64
			email        sql.NullString
			created, mod sql.NullInt64
			shareKey     sql.NullString
			username     sql.NullString
			privilege    sql.NullInt64
			preview      sql.NullBool
			remindEmail  sql.NullBool
			remindApp    sql.NullBool
		)
		if err := rows.Scan(&sn.ShareID, &userID, &sn.NotebookGUID, &email,
			&created, &mod, &shareKey, &username, &privilege,
			&preview, &remindEmail, &remindApp, &sn.IndexInNotebook); err != nil {
			return nil, &storage.SQLError{Stmt: query, Err: err}
		}
		sn.UserID = int32Ptr(userID)
		sn.Email = strPtr(email)
		sn.CreationTimestamp = int64Ptr(created)
		sn.ModificationTimestamp = int64Ptr(mod)
		sn.ShareKey = strPtr(shareKey)
		sn.Username = strPtr(username)
		sn.PrivilegeLevel = int32Ptr(privilege)
		sn.AllowPreview = boolPtr(preview)
		sn.ReminderNotifyEmail = boolPtr(remindEmail)
		sn.ReminderNotifyApp = boolPtr(remindApp)
		shares = append(shares, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	return shares, nil
}
