package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddTag validates and inserts a tag.
func (s *LocalStorage) AddTag(ctx context.Context, t *types.Tag) error {
	if err := t.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "tag", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "tags", &t.LocalUID, t.GUID, false); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceTag(ctx, conn, t)
	})
}

// UpdateTag validates and replaces an existing tag.
func (s *LocalStorage) UpdateTag(ctx context.Context, t *types.Tag) error {
	if err := t.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "tag", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveIdentity(ctx, "tags", &t.LocalUID, t.GUID, true); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceTag(ctx, conn, t)
	})
}

// FindTag loads a tag by either identity.
func (s *LocalStorage) FindTag(ctx context.Context, key storage.Key) (*types.Tag, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	column := "local_uid"
	if key.By == types.ByGUID {
		column = "guid"
	}
	return s.findTagWhere(ctx, conn, column+" = ?", key.Value)
}

// ListTags returns tags matching the filter. Natural ordering is alphabetical
// by the upper-cased name.
func (s *LocalStorage) ListTags(ctx context.Context, f storage.TagFilter, page storage.Page) ([]*types.Tag, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}

	query := `SELECT local_uid FROM tags`
	var where []string
	var args []any
	if f.NoteLocalUID != "" {
		where = append(where, "local_uid IN (SELECT tag_local_uid FROM note_tags WHERE note_local_uid = ?)")
		args = append(args, f.NoteLocalUID)
	}
	if f.ParentGUID != "" {
		where = append(where, "parent_guid = ?")
		args = append(args, f.ParentGUID)
	}
	if !f.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
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

	uids, err := queryStrings(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	tags := make([]*types.Tag, 0, len(uids))
	for _, uid := range uids {
		t, err := s.findTagWhere(ctx, conn, "local_uid = ?", uid)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// DeleteTag marks a tag as deleted. Third-party clients have no remote tag
// deletion privilege, so a synchronized tag is only ever marked; a local tag
// is expunged.
func (s *LocalStorage) DeleteTag(ctx context.Context, t *types.Tag) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindTag(ctx, tagKey(t))
	if err != nil {
		return err
	}
	if stored.Local {
		t.LocalUID = stored.LocalUID
		return s.ExpungeTag(ctx, t)
	}
	t.LocalUID = stored.LocalUID
	t.Deleted = true
	t.Dirty = true
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `
			UPDATE tags SET is_deleted = 1, is_dirty = 1 WHERE local_uid = ?`, stored.LocalUID)
	})
}

// ExpungeTag permanently removes a local tag; the cascade removes its join
// entries.
func (s *LocalStorage) ExpungeTag(ctx context.Context, t *types.Tag) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindTag(ctx, tagKey(t))
	if err != nil {
		return err
	}
	if !stored.Local {
		return storage.ErrExpungePolicy
	}
	t.LocalUID = stored.LocalUID
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM tags WHERE local_uid = ?`, stored.LocalUID)
	})
}

// CountTags returns the number of tags not marked as deleted.
func (s *LocalStorage) CountTags(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM tags WHERE is_deleted = 0`)
}

func tagKey(t *types.Tag) storage.Key {
	if t.LocalUID != "" {
		return storage.LocalKey(t.LocalUID)
	}
	if t.GUID != nil {
		return storage.GUIDKey(*t.GUID)
	}
	return storage.LocalKey("")
}

// insertOrReplaceTag writes the tag row inside an open transaction. Name
// and guid collisions with a different tag are conflicts; the REPLACE below
// must only ever supersede this tag's own row.
func (s *LocalStorage) insertOrReplaceTag(ctx context.Context, conn *sql.Conn, t *types.Tag) error {
	if err := checkUniqueAgainstOthers(ctx, conn, "tags", "local_uid", t.LocalUID, "name_upper", upperName(t.Name)); err != nil {
		return err
	}
	if t.GUID != nil {
		if err := checkUniqueAgainstOthers(ctx, conn, "tags", "local_uid", t.LocalUID, "guid", *t.GUID); err != nil {
			return err
		}
	}
	stmt := `
		INSERT OR REPLACE INTO tags (
			local_uid, guid, update_sequence_number, name, name_upper,
			parent_guid, is_dirty, is_local, is_deleted, is_favorited
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt,
		t.LocalUID, nullString(t.GUID), nullInt32(t.UpdateSequenceNum),
		t.Name, upperName(t.Name), nullString(t.ParentGUID),
		boolToInt(t.Dirty), boolToInt(t.Local), boolToInt(t.Deleted), boolToInt(t.Favorited),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return &storage.SQLError{Stmt: stmt, Err: err}
	}
	return nil
}

func (s *LocalStorage) findTagWhere(ctx context.Context, conn *sql.Conn, cond string, args ...any) (*types.Tag, error) {
	query := `
		SELECT local_uid, guid, update_sequence_number, name, parent_guid,
		       is_dirty, is_local, is_deleted, is_favorited
		FROM tags WHERE ` + cond

	t := &types.Tag{}
	var (
		guid, parent sql.NullString
		usn          sql.NullInt64
		dirty, local int
		deleted, fav int
	)
	err := conn.QueryRowContext(ctx, query, args...).Scan(
		&t.LocalUID, &guid, &usn, &t.Name, &parent, &dirty, &local, &deleted, &fav,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	t.GUID = strPtr(guid)
	t.UpdateSequenceNum = int32Ptr(usn)
	t.ParentGUID = strPtr(parent)
	t.Dirty = dirty != 0
	t.Local = local != 0
	t.Deleted = deleted != 0
	t.Favorited = fav != 0
	return t, nil
}
