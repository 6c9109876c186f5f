package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddNote validates the note, checks the target notebook's restrictions and
// inserts. Tags referenced by the note must already exist.
func (s *LocalStorage) AddNote(ctx context.Context, n *types.Note) error {
	normalizeNoteResources(n)
	if err := n.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "note", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	nb, err := s.resolveNoteNotebook(ctx, n)
	if err != nil {
		return err
	}
	if nb.Restrictions.ForbidsNoteCreation() {
		return storage.ErrRestriction
	}
	if err := s.resolveIdentity(ctx, "notes", &n.LocalUID, n.GUID, false); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceNote(ctx, conn, n, storage.UpdateNoteOptions{UpdateResources: true, UpdateTags: true})
	})
}

// UpdateNote validates and replaces an existing note. Collections excluded
// by opts are preserved from the stored row. Updating a note in a notebook
// whose restrictions forbid note updates fails with ErrRestriction.
func (s *LocalStorage) UpdateNote(ctx context.Context, n *types.Note, opts storage.UpdateNoteOptions) error {
	normalizeNoteResources(n)
	if err := n.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "note", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	nb, err := s.resolveNoteNotebook(ctx, n)
	if err != nil {
		return err
	}
	if nb.Restrictions.ForbidsNoteUpdate() {
		return storage.ErrRestriction
	}
	if err := s.resolveIdentity(ctx, "notes", &n.LocalUID, n.GUID, true); err != nil {
		return err
	}

	// Preserve stored collections the caller did not ask to rewrite.
	if !opts.UpdateTags || !opts.UpdateResources {
		stored, err := s.FindNote(ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{
			WithResourceBinaryData: true,
		})
		if err != nil {
			return err
		}
		if !opts.UpdateTags {
			n.TagLocalUIDs = stored.TagLocalUIDs
			n.TagGUIDs = stored.TagGUIDs
		}
		if !opts.UpdateResources {
			n.Resources = stored.Resources
		}
	}

	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceNote(ctx, conn, n, storage.UpdateNoteOptions{UpdateResources: true, UpdateTags: true})
	})
}

// FindNote loads a note by either identity, including tags in index order
// and resources in index order. Resource bodies are loaded only on request.
// The multi-table read runs under a selection scope.
func (s *LocalStorage) FindNote(ctx context.Context, key storage.Key, opts storage.FindNoteOptions) (*types.Note, error) {
	column := "local_uid"
	if key.By == types.ByGUID {
		column = "guid"
	}
	var n *types.Note
	err := s.inTransaction(ctx, txSelection, func(conn *sql.Conn) error {
		var err error
		n, err = s.findNoteWhere(ctx, conn, column+" = ?", opts, key.Value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotes returns notes matching the filter. Deleted notes are hidden
// unless the filter includes them.
func (s *LocalStorage) ListNotes(ctx context.Context, f storage.NoteFilter, opts storage.FindNoteOptions, page storage.Page) ([]*types.Note, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}

	query := `SELECT local_uid FROM notes`
	var where []string
	var args []any
	if f.NotebookLocalUID != "" {
		where = append(where, "notebook_local_uid = ?")
		args = append(args, f.NotebookLocalUID)
	}
	if f.TagLocalUID != "" {
		where = append(where, "local_uid IN (SELECT note_local_uid FROM note_tags WHERE tag_local_uid = ?)")
		args = append(args, f.TagLocalUID)
	}
	if !f.IncludeDeleted {
		where = append(where, "deletion_timestamp IS NULL")
	}
	if f.FavoritedOnly {
		where = append(where, "is_favorited = 1")
	}
	if f.DirtyOnly {
		where = append(where, "is_dirty = 1")
	}
	query += whereClause(where) + orderClause(page, map[storage.Order]string{
		storage.OrderNatural:             "rowid",
		storage.OrderByTitle:             "title",
		storage.OrderByCreated:           "creation_timestamp",
		storage.OrderByModified:          "modification_timestamp",
		storage.OrderByUpdateSequenceNum: "update_sequence_number",
	}, "rowid") + limitClause(page)

	uids, err := queryStrings(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	notes := make([]*types.Note, 0, len(uids))
	for _, uid := range uids {
		n, err := s.findNoteWhere(ctx, conn, "local_uid = ?", opts, uid)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// DeleteNote soft-deletes a synchronized note: the entity must carry a
// deletion timestamp, which is persisted along with the dirty flag. A local
// note is expunged instead.
func (s *LocalStorage) DeleteNote(ctx context.Context, n *types.Note) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindNote(ctx, noteKey(n), storage.FindNoteOptions{})
	if err != nil {
		return err
	}
	if stored.Local {
		n.LocalUID = stored.LocalUID
		return s.ExpungeNote(ctx, n)
	}
	if n.DeletionTimestamp == nil {
		return storage.ErrExpungePolicy
	}
	n.LocalUID = stored.LocalUID
	n.Dirty = true
	n.IsActive = false
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `
			UPDATE notes
			SET deletion_timestamp = ?, is_active = 0, is_dirty = 1
			WHERE local_uid = ?`,
			*n.DeletionTimestamp, stored.LocalUID)
	})
}

// ExpungeNote permanently removes a local note; cascades remove its
// resources, attribute rows and join entries.
func (s *LocalStorage) ExpungeNote(ctx context.Context, n *types.Note) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindNote(ctx, noteKey(n), storage.FindNoteOptions{})
	if err != nil {
		return err
	}
	if !stored.Local {
		return storage.ErrExpungePolicy
	}
	n.LocalUID = stored.LocalUID
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM notes WHERE local_uid = ?`, stored.LocalUID)
	})
}

// CountNotes returns the number of non-deleted notes.
func (s *LocalStorage) CountNotes(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM notes WHERE deletion_timestamp IS NULL`)
}

// CountNotesPerNotebook returns the number of non-deleted notes in a notebook.
func (s *LocalStorage) CountNotesPerNotebook(ctx context.Context, notebookLocalUID string) (int, error) {
	return s.countRows(ctx, `
		SELECT COUNT(*) FROM notes
		WHERE notebook_local_uid = ? AND deletion_timestamp IS NULL`, notebookLocalUID)
}

// CountNotesPerTag returns the number of non-deleted notes carrying a tag.
func (s *LocalStorage) CountNotesPerTag(ctx context.Context, tagLocalUID string) (int, error) {
	return s.countRows(ctx, `
		SELECT COUNT(*) FROM notes
		WHERE deletion_timestamp IS NULL
		  AND local_uid IN (SELECT note_local_uid FROM note_tags WHERE tag_local_uid = ?)`, tagLocalUID)
}

// normalizeNoteResources assigns local uids and the owning-note reference to
// embedded resources so a caller can attach fresh resources without minting
// identifiers itself.
func normalizeNoteResources(n *types.Note) {
	for i := range n.Resources {
		r := &n.Resources[i]
		if r.LocalUID == "" && r.GUID == nil {
			r.LocalUID = types.NewLocalUID()
		}
		if r.NoteLocalUID == "" {
			r.NoteLocalUID = n.LocalUID
		}
	}
}

func noteKey(n *types.Note) storage.Key {
	if n.LocalUID != "" {
		return storage.LocalKey(n.LocalUID)
	}
	if n.GUID != nil {
		return storage.GUIDKey(*n.GUID)
	}
	return storage.LocalKey("")
}

// resolveNoteNotebook finds the note's notebook by local uid or guid,
// assigns both references onto the note and returns the notebook.
func (s *LocalStorage) resolveNoteNotebook(ctx context.Context, n *types.Note) (*types.Notebook, error) {
	var key storage.Key
	switch {
	case n.NotebookLocalUID != "":
		key = storage.LocalKey(n.NotebookLocalUID)
	case n.NotebookGUID != nil:
		key = storage.GUIDKey(*n.NotebookGUID)
	default:
		return nil, &storage.InvalidEntityError{Entity: "note", Err: storage.ErrNotFound}
	}
	nb, err := s.FindNotebook(ctx, key)
	if err != nil {
		return nil, err
	}
	n.NotebookLocalUID = nb.LocalUID
	if n.NotebookGUID == nil && nb.GUID != nil {
		n.NotebookGUID = nb.GUID
	}
	return nb, nil
}

// insertOrReplaceNote writes the parent row, the attribute records, the tag
// join and the attached resources, bounded to the note's local uid. Runs
// inside an open transaction. Tag guids are resolved to existing tags; a
// missing tag fails the whole operation.
func (s *LocalStorage) insertOrReplaceNote(ctx context.Context, conn *sql.Conn, n *types.Note, opts storage.UpdateNoteOptions) error {
	// A guid held by a different note is a conflict; the REPLACE below must
	// only ever supersede this note's own row, never delete another note
	// and cascade away its resources and tag joins.
	if n.GUID != nil {
		if err := checkUniqueAgainstOthers(ctx, conn, "notes", "local_uid", n.LocalUID, "guid", *n.GUID); err != nil {
			return err
		}
	}

	// Resolve the tag projections before touching the note row so a failure
	// leaves the store unchanged.
	type tagRef struct {
		localUID string
		guid     sql.NullString
	}
	var tagRefs []tagRef
	if opts.UpdateTags {
		switch {
		case len(n.TagLocalUIDs) != 0:
			for _, uid := range n.TagLocalUIDs {
				var guid sql.NullString
				query := `SELECT guid FROM tags WHERE local_uid = ?`
				err := conn.QueryRowContext(ctx, query, uid).Scan(&guid)
				if err == sql.ErrNoRows {
					return storage.ErrNotFound
				}
				if err != nil {
					return &storage.SQLError{Stmt: query, Err: err}
				}
				tagRefs = append(tagRefs, tagRef{localUID: uid, guid: guid})
			}
			n.TagGUIDs = make([]string, len(tagRefs))
			for i, r := range tagRefs {
				n.TagGUIDs[i] = r.guid.String
			}
		case len(n.TagGUIDs) != 0:
			for _, g := range n.TagGUIDs {
				var uid string
				query := `SELECT local_uid FROM tags WHERE guid = ?`
				err := conn.QueryRowContext(ctx, query, g).Scan(&uid)
				if err == sql.ErrNoRows {
					return storage.ErrNotFound
				}
				if err != nil {
					return &storage.SQLError{Stmt: query, Err: err}
				}
				tagRefs = append(tagRefs, tagRef{localUID: uid, guid: sql.NullString{String: g, Valid: true}})
			}
			n.TagLocalUIDs = make([]string, len(tagRefs))
			for i, r := range tagRefs {
				n.TagLocalUIDs[i] = r.localUID
			}
		}
	}

	stmt := `
		INSERT OR REPLACE INTO notes (
			local_uid, guid, update_sequence_number,
			notebook_local_uid, notebook_guid,
			title, content,
			creation_timestamp, modification_timestamp, deletion_timestamp,
			is_active, thumbnail, is_dirty, is_local, is_favorited
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := conn.ExecContext(ctx, stmt,
		n.LocalUID, nullString(n.GUID), nullInt32(n.UpdateSequenceNum),
		n.NotebookLocalUID, nullString(n.NotebookGUID),
		n.Title, n.Content,
		nullInt64(n.CreationTimestamp), nullInt64(n.ModificationTimestamp), nullInt64(n.DeletionTimestamp),
		boolToInt(n.IsActive), n.Thumbnail,
		boolToInt(n.Dirty), boolToInt(n.Local), boolToInt(n.Favorited),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	if n.Attributes != nil {
		if err := s.insertNoteAttributes(ctx, conn, n.LocalUID, n.Attributes); err != nil {
			return err
		}
	}

	// The REPLACE above re-created the parent row, so the cascade already
	// wiped join entries and resources; rewrite from the entity.
	for i, ref := range tagRefs {
		stmt := `
			INSERT INTO note_tags (note_local_uid, tag_local_uid, tag_guid, index_in_note)
			VALUES (?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, n.LocalUID, ref.localUID, ref.guid, i); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	for i := range n.Resources {
		r := &n.Resources[i]
		r.NoteLocalUID = n.LocalUID
		if r.NoteGUID == nil {
			r.NoteGUID = n.GUID
		}
		if r.LocalUID == "" {
			r.LocalUID = types.NewLocalUID()
		}
		r.IndexInNote = i
		if err := s.insertOrReplaceResource(ctx, conn, r); err != nil {
			return err
		}
	}

	return nil
}

func (s *LocalStorage) insertNoteAttributes(ctx context.Context, conn *sql.Conn, localUID string, a *types.NoteAttributes) error {
	stmt := `
		INSERT OR REPLACE INTO note_attributes (
			local_uid, subject_date, latitude, longitude, altitude,
			author, source, source_url, source_application,
			reminder_order, reminder_done_time, reminder_time,
			place_name, content_class, last_edited_by, last_editor_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt, localUID,
		nullInt64(a.SubjectDate), nullFloat(a.Latitude), nullFloat(a.Longitude), nullFloat(a.Altitude),
		nullString(a.Author), nullString(a.Source), nullString(a.SourceURL), nullString(a.SourceApplication),
		nullInt64(a.ReminderOrder), nullInt64(a.ReminderDoneTime), nullInt64(a.ReminderTime),
		nullString(a.PlaceName), nullString(a.ContentClass), nullString(a.LastEditedBy), nullInt32(a.LastEditorID),
	); err != nil {
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	for _, key := range a.ApplicationDataKeysOnly {
		if err := exec(ctx, conn, `
			INSERT OR REPLACE INTO note_application_data_keys (local_uid, key)
			VALUES (?, ?)`, localUID, key); err != nil {
			return err
		}
	}
	for key, value := range a.ApplicationDataFullMap {
		if err := exec(ctx, conn, `
			INSERT OR REPLACE INTO note_application_data_entries (local_uid, key, value)
			VALUES (?, ?, ?)`, localUID, key, value); err != nil {
			return err
		}
	}
	for key, value := range a.Classifications {
		if err := exec(ctx, conn, `
			INSERT OR REPLACE INTO note_classifications (local_uid, key, value)
			VALUES (?, ?, ?)`, localUID, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalStorage) findNoteWhere(ctx context.Context, conn *sql.Conn, cond string, opts storage.FindNoteOptions, args ...any) (*types.Note, error) {
	query := `
		SELECT local_uid, guid, update_sequence_number,
		       notebook_local_uid, notebook_guid,
		       title, content,
		       creation_timestamp, modification_timestamp, deletion_timestamp,
		       is_active, thumbnail, is_dirty, is_local, is_favorited
		FROM notes WHERE ` + cond

	n := &types.Note{}
	var (
		guid, nbGUID          sql.NullString
		usn                   sql.NullInt64
		created, mod, deleted sql.NullInt64
		title, content        sql.NullString
		active                int
		dirty, local, fav     int
	)
	err := conn.QueryRowContext(ctx, query, args...).Scan(
		&n.LocalUID, &guid, &usn, &n.NotebookLocalUID, &nbGUID,
		&title, &content, &created, &mod, &deleted,
		&active, &n.Thumbnail, &dirty, &local, &fav,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	n.GUID = strPtr(guid)
	n.UpdateSequenceNum = int32Ptr(usn)
	n.NotebookGUID = strPtr(nbGUID)
	n.Title = title.String
	n.Content = content.String
	n.CreationTimestamp = int64Ptr(created)
	n.ModificationTimestamp = int64Ptr(mod)
	n.DeletionTimestamp = int64Ptr(deleted)
	n.IsActive = active != 0
	n.Dirty = dirty != 0
	n.Local = local != 0
	n.Favorited = fav != 0

	if err := s.loadNoteAttributes(ctx, conn, n); err != nil {
		return nil, err
	}
	if err := s.loadNoteTags(ctx, conn, n); err != nil {
		return nil, err
	}
	resources, err := s.loadResourcesForNote(ctx, conn, n.LocalUID, opts.WithResourceBinaryData)
	if err != nil {
		return nil, err
	}
	n.Resources = resources
	return n, nil
}

func (s *LocalStorage) loadNoteAttributes(ctx context.Context, conn *sql.Conn, n *types.Note) error {
	query := `
		SELECT subject_date, latitude, longitude, altitude,
		       author, source, source_url, source_application,
		       reminder_order, reminder_done_time, reminder_time,
		       place_name, content_class, last_edited_by, last_editor_id
		FROM note_attributes WHERE local_uid = ?`
	var (
		subject              sql.NullInt64
		lat, lon, alt        sql.NullFloat64
		author, source       sql.NullString
		srcURL, srcApp       sql.NullString
		remOrder             sql.NullInt64
		remDone, remTime     sql.NullInt64
		place, class, editor sql.NullString
		editorID             sql.NullInt64
	)
	err := conn.QueryRowContext(ctx, query, n.LocalUID).Scan(
		&subject, &lat, &lon, &alt, &author, &source, &srcURL, &srcApp,
		&remOrder, &remDone, &remTime, &place, &class, &editor, &editorID,
	)
	attrs := &types.NoteAttributes{}
	haveRow := true
	if err == sql.ErrNoRows {
		haveRow = false
	} else if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	if haveRow {
		attrs.SubjectDate = int64Ptr(subject)
		attrs.Latitude = floatPtr(lat)
		attrs.Longitude = floatPtr(lon)
		attrs.Altitude = floatPtr(alt)
		attrs.Author = strPtr(author)
		attrs.Source = strPtr(source)
		attrs.SourceURL = strPtr(srcURL)
		attrs.SourceApplication = strPtr(srcApp)
		attrs.ReminderOrder = int64Ptr(remOrder)
		attrs.ReminderDoneTime = int64Ptr(remDone)
		attrs.ReminderTime = int64Ptr(remTime)
		attrs.PlaceName = strPtr(place)
		attrs.ContentClass = strPtr(class)
		attrs.LastEditedBy = strPtr(editor)
		attrs.LastEditorID = int32Ptr(editorID)
	}

	keys, err := queryStrings(ctx, conn, `
		SELECT key FROM note_application_data_keys WHERE local_uid = ? ORDER BY key`, n.LocalUID)
	if err != nil {
		return err
	}
	attrs.ApplicationDataKeysOnly = keys

	entries, err := queryKeyValues(ctx, conn, `
		SELECT key, value FROM note_application_data_entries WHERE local_uid = ?`, n.LocalUID)
	if err != nil {
		return err
	}
	attrs.ApplicationDataFullMap = entries

	classifications, err := queryKeyValues(ctx, conn, `
		SELECT key, value FROM note_classifications WHERE local_uid = ?`, n.LocalUID)
	if err != nil {
		return err
	}
	attrs.Classifications = classifications

	if haveRow || len(keys) != 0 || len(entries) != 0 || len(classifications) != 0 {
		n.Attributes = attrs
	}
	return nil
}

func (s *LocalStorage) loadNoteTags(ctx context.Context, conn *sql.Conn, n *types.Note) error {
	query := `
		SELECT tag_local_uid, tag_guid FROM note_tags
		WHERE note_local_uid = ?
		ORDER BY index_in_note ASC`
	rows, err := conn.QueryContext(ctx, query, n.LocalUID)
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	n.TagLocalUIDs = nil
	n.TagGUIDs = nil
	for rows.Next() {
		var uid string
		var guid sql.NullString
		if err := rows.Scan(&uid, &guid); err != nil {
			return &storage.SQLError{Stmt: query, Err: err}
		}
		n.TagLocalUIDs = append(n.TagLocalUIDs, uid)
		n.TagGUIDs = append(n.TagGUIDs, guid.String)
	}
	if err := rows.Err(); err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	return nil
}

func queryKeyValues(ctx context.Context, conn *sql.Conn, query string, args ...any) (map[string]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out map[string]string
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, &storage.SQLError{Stmt: query, Err: err}
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	return out, nil
}
