package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddResource validates and inserts a resource. The owning note must exist.
func (s *LocalStorage) AddResource(ctx context.Context, r *types.Resource) error {
	if err := r.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "resource", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveResourceNote(ctx, r); err != nil {
		return err
	}
	if err := s.resolveResourceIdentity(ctx, r, false); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceResource(ctx, conn, r)
	})
}

// UpdateResource validates and replaces an existing resource.
func (s *LocalStorage) UpdateResource(ctx context.Context, r *types.Resource) error {
	if err := r.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "resource", Err: err}
	}
	if _, err := s.ready(); err != nil {
		return err
	}
	if err := s.resolveResourceNote(ctx, r); err != nil {
		return err
	}
	if err := s.resolveResourceIdentity(ctx, r, true); err != nil {
		return err
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceResource(ctx, conn, r)
	})
}

// FindResource loads a resource by either identity. The binary bodies are
// loaded only on request; sizes and hashes always are.
func (s *LocalStorage) FindResource(ctx context.Context, key storage.Key, withBinaryData bool) (*types.Resource, error) {
	conn, err := s.ready()
	if err != nil {
		return nil, err
	}
	column := "resource_local_uid"
	if key.By == types.ByGUID {
		column = "resource_guid"
	}
	return s.findResourceWhere(ctx, conn, column+" = ?", withBinaryData, key.Value)
}

// ExpungeResource permanently removes a resource. Resources follow their
// note's lifecycle, so no is_local gate applies beyond the note's own.
func (s *LocalStorage) ExpungeResource(ctx context.Context, r *types.Resource) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindResource(ctx, resourceKey(r), false)
	if err != nil {
		return err
	}
	r.LocalUID = stored.LocalUID
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM resources WHERE resource_local_uid = ?`, stored.LocalUID)
	})
}

// CountResources returns the number of resources.
func (s *LocalStorage) CountResources(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM resources`)
}

func resourceKey(r *types.Resource) storage.Key {
	if r.LocalUID != "" {
		return storage.LocalKey(r.LocalUID)
	}
	if r.GUID != nil {
		return storage.GUIDKey(*r.GUID)
	}
	return storage.LocalKey("")
}

func (s *LocalStorage) resolveResourceNote(ctx context.Context, r *types.Resource) error {
	var key storage.Key
	switch {
	case r.NoteLocalUID != "":
		key = storage.LocalKey(r.NoteLocalUID)
	case r.NoteGUID != nil:
		key = storage.GUIDKey(*r.NoteGUID)
	default:
		return &storage.InvalidEntityError{Entity: "resource", Err: storage.ErrNotFound}
	}
	n, err := s.FindNote(ctx, key, storage.FindNoteOptions{})
	if err != nil {
		return err
	}
	r.NoteLocalUID = n.LocalUID
	if r.NoteGUID == nil && n.GUID != nil {
		r.NoteGUID = n.GUID
	}
	return nil
}

// resolveResourceIdentity mirrors resolveIdentity for the resources table's
// prefixed column names.
func (s *LocalStorage) resolveResourceIdentity(ctx context.Context, r *types.Resource, mustExist bool) error {
	conn, err := s.ready()
	if err != nil {
		return err
	}
	if r.GUID != nil && r.LocalUID == "" {
		query := `SELECT resource_local_uid FROM resources WHERE resource_guid = ?`
		var existing string
		err := conn.QueryRowContext(ctx, query, *r.GUID).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			if mustExist {
				return storage.ErrNotFound
			}
			r.LocalUID = types.NewLocalUID()
			return nil
		case err != nil:
			return &storage.SQLError{Stmt: query, Err: err}
		case mustExist:
			r.LocalUID = existing
			return nil
		default:
			return storage.ErrConflict
		}
	}
	query := `SELECT 1 FROM resources WHERE resource_local_uid = ?`
	exists, err := rowExists(ctx, conn, query, r.LocalUID)
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

// insertOrReplaceResource writes the parent row and attribute records. Runs
// inside an open transaction.
func (s *LocalStorage) insertOrReplaceResource(ctx context.Context, conn *sql.Conn, r *types.Resource) error {
	// A guid held by a different resource is a conflict; REPLACE must only
	// ever supersede this resource's own row.
	if r.GUID != nil {
		if err := checkUniqueAgainstOthers(ctx, conn, "resources", "resource_local_uid", r.LocalUID, "resource_guid", *r.GUID); err != nil {
			return err
		}
	}

	var dataBody, dataHash, recoBody, recoHash []byte
	var dataSize, recoSize sql.NullInt64
	if r.Data != nil {
		dataBody = r.Data.Body
		dataHash = r.Data.Hash
		dataSize = sql.NullInt64{Int64: int64(r.Data.Size), Valid: true}
	}
	if r.Recognition != nil {
		recoBody = r.Recognition.Body
		recoHash = r.Recognition.Hash
		recoSize = sql.NullInt64{Int64: int64(r.Recognition.Size), Valid: true}
	}

	stmt := `
		INSERT OR REPLACE INTO resources (
			resource_local_uid, resource_guid, note_local_uid, note_guid,
			update_sequence_number,
			data_body, data_size, data_hash,
			recognition_data_body, recognition_data_size, recognition_data_hash,
			mime, width, height, index_in_note, is_dirty, is_local
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt,
		r.LocalUID, nullString(r.GUID), r.NoteLocalUID, nullString(r.NoteGUID),
		nullInt32(r.UpdateSequenceNum),
		dataBody, dataSize, dataHash,
		recoBody, recoSize, recoHash,
		r.Mime, nullInt32(r.Width), nullInt32(r.Height), r.IndexInNote,
		boolToInt(r.Dirty), boolToInt(r.Local),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	if r.Attributes == nil {
		return nil
	}
	a := r.Attributes
	stmt = `
		INSERT OR REPLACE INTO resource_attributes (
			resource_local_uid, source_url, timestamp,
			latitude, longitude, altitude,
			camera_make, camera_model, reco_type, file_name, attachment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt, r.LocalUID,
		nullString(a.SourceURL), nullInt64(a.Timestamp),
		nullFloat(a.Latitude), nullFloat(a.Longitude), nullFloat(a.Altitude),
		nullString(a.CameraMake), nullString(a.CameraModel),
		nullString(a.RecoType), nullString(a.FileName), nullBool(a.Attachment),
	); err != nil {
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	for _, key := range a.ApplicationDataKeysOnly {
		if err := exec(ctx, conn, `
			INSERT OR REPLACE INTO resource_application_data_keys (resource_local_uid, key)
			VALUES (?, ?)`, r.LocalUID, key); err != nil {
			return err
		}
	}
	for key, value := range a.ApplicationDataFullMap {
		if err := exec(ctx, conn, `
			INSERT OR REPLACE INTO resource_application_data_entries (resource_local_uid, key, value)
			VALUES (?, ?, ?)`, r.LocalUID, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalStorage) loadResourcesForNote(ctx context.Context, conn *sql.Conn, noteLocalUID string, withBinaryData bool) ([]types.Resource, error) {
	uids, err := queryStrings(ctx, conn, `
		SELECT resource_local_uid FROM resources
		WHERE note_local_uid = ?
		ORDER BY index_in_note ASC`, noteLocalUID)
	if err != nil {
		return nil, err
	}
	var resources []types.Resource
	for _, uid := range uids {
		r, err := s.findResourceWhere(ctx, conn, "resource_local_uid = ?", withBinaryData, uid)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *r)
	}
	return resources, nil
}

func (s *LocalStorage) findResourceWhere(ctx context.Context, conn *sql.Conn, cond string, withBinaryData bool, args ...any) (*types.Resource, error) {
	bodyCols := "NULL, NULL"
	if withBinaryData {
		bodyCols = "data_body, recognition_data_body"
	}
	query := `
		SELECT resource_local_uid, resource_guid, note_local_uid, note_guid,
		       update_sequence_number,
		       ` + bodyCols + `,
		       data_size, data_hash, recognition_data_size, recognition_data_hash,
		       mime, width, height, index_in_note, is_dirty, is_local
		FROM resources WHERE ` + cond

	r := &types.Resource{}
	var (
		guid, noteGUID     sql.NullString
		usn                sql.NullInt64
		dataBody, recoBody []byte
		dataSize, recoSize sql.NullInt64
		dataHash, recoHash []byte
		mime               sql.NullString
		width, height      sql.NullInt64
		dirty, local       int
	)
	err := conn.QueryRowContext(ctx, query, args...).Scan(
		&r.LocalUID, &guid, &r.NoteLocalUID, &noteGUID, &usn,
		&dataBody, &recoBody,
		&dataSize, &dataHash, &recoSize, &recoHash,
		&mime, &width, &height, &r.IndexInNote, &dirty, &local,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	r.GUID = strPtr(guid)
	r.NoteGUID = strPtr(noteGUID)
	r.UpdateSequenceNum = int32Ptr(usn)
	if dataSize.Valid || len(dataHash) != 0 {
		r.Data = &types.ResourceData{Body: dataBody, Size: int32(dataSize.Int64), Hash: dataHash}
	}
	if recoSize.Valid || len(recoHash) != 0 {
		r.Recognition = &types.ResourceData{Body: recoBody, Size: int32(recoSize.Int64), Hash: recoHash}
	}
	r.Mime = mime.String
	r.Width = int32Ptr(width)
	r.Height = int32Ptr(height)
	r.Dirty = dirty != 0
	r.Local = local != 0

	if err := s.loadResourceAttributes(ctx, conn, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *LocalStorage) loadResourceAttributes(ctx context.Context, conn *sql.Conn, r *types.Resource) error {
	query := `
		SELECT source_url, timestamp, latitude, longitude, altitude,
		       camera_make, camera_model, reco_type, file_name, attachment
		FROM resource_attributes WHERE resource_local_uid = ?`
	var (
		srcURL            sql.NullString
		ts                sql.NullInt64
		lat, lon, alt     sql.NullFloat64
		camMake, camModel sql.NullString
		recoType, file    sql.NullString
		attach            sql.NullBool
	)
	err := conn.QueryRowContext(ctx, query, r.LocalUID).Scan(
		&srcURL, &ts, &lat, &lon, &alt, &camMake, &camModel, &recoType, &file, &attach,
	)
	attrs := &types.ResourceAttributes{}
	haveRow := true
	if err == sql.ErrNoRows {
		haveRow = false
	} else if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	if haveRow {
		attrs.SourceURL = strPtr(srcURL)
		attrs.Timestamp = int64Ptr(ts)
		attrs.Latitude = floatPtr(lat)
		attrs.Longitude = floatPtr(lon)
		attrs.Altitude = floatPtr(alt)
		attrs.CameraMake = strPtr(camMake)
		attrs.CameraModel = strPtr(camModel)
		attrs.RecoType = strPtr(recoType)
		attrs.FileName = strPtr(file)
		attrs.Attachment = boolPtr(attach)
	}

	keys, err := queryStrings(ctx, conn, `
		SELECT key FROM resource_application_data_keys WHERE resource_local_uid = ? ORDER BY key`, r.LocalUID)
	if err != nil {
		return err
	}
	attrs.ApplicationDataKeysOnly = keys

	entries, err := queryKeyValues(ctx, conn, `
		SELECT key, value FROM resource_application_data_entries WHERE resource_local_uid = ?`, r.LocalUID)
	if err != nil {
		return err
	}
	attrs.ApplicationDataFullMap = entries

	if haveRow || len(keys) != 0 || len(entries) != 0 {
		r.Attributes = attrs
	}
	return nil
}
