package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
)

// The schema is created if missing on every open. Foreign keys are enforced
// through the connection pragma; all dependent rows cascade from their
// owning row. Name uniqueness is case-insensitive through mirrored
// upper-cased columns.
const schema = `
-- Users. Primary key is the remote-assigned integer id.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY NOT NULL,
    username TEXT NOT NULL,
    email TEXT,
    name TEXT,
    timezone TEXT,
    privilege INTEGER,
    creation_timestamp INTEGER,
    modification_timestamp INTEGER,
    deletion_timestamp INTEGER,
    is_active INTEGER NOT NULL DEFAULT 1,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_attributes (
    user_id INTEGER PRIMARY KEY NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    default_location_name TEXT,
    default_latitude REAL,
    default_longitude REAL,
    preactivation INTEGER,
    incoming_email_address TEXT,
    comments TEXT,
    date_agreed_to_terms_of_service INTEGER,
    max_referrals INTEGER,
    referral_count INTEGER,
    referer_code TEXT,
    sent_email_date INTEGER
);

CREATE TABLE IF NOT EXISTS user_accounting (
    user_id INTEGER PRIMARY KEY NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    upload_limit INTEGER,
    upload_limit_end INTEGER,
    upload_limit_next_month INTEGER,
    premium_service_status INTEGER,
    premium_order_number TEXT,
    premium_service_start INTEGER,
    premium_service_sku TEXT,
    last_successful_charge INTEGER,
    last_failed_charge INTEGER,
    last_failed_charge_reason TEXT,
    next_payment_due INTEGER,
    premium_lock_until INTEGER,
    updated INTEGER
);

CREATE TABLE IF NOT EXISTS user_premium_info (
    user_id INTEGER PRIMARY KEY NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    current_time_ INTEGER,
    premium INTEGER,
    premium_recurring INTEGER,
    premium_expiration_date INTEGER,
    premium_extendable INTEGER,
    premium_pending INTEGER,
    premium_cancellation_pending INTEGER,
    can_purchase_upload_allowance INTEGER,
    sponsored_group_name TEXT
);

CREATE TABLE IF NOT EXISTS user_business_info (
    user_id INTEGER PRIMARY KEY NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    business_id INTEGER,
    business_name TEXT,
    role INTEGER,
    email TEXT
);

-- Notebooks.
CREATE TABLE IF NOT EXISTS notebooks (
    local_uid TEXT PRIMARY KEY NOT NULL,
    guid TEXT UNIQUE,
    update_sequence_number INTEGER,
    name TEXT NOT NULL CHECK(length(name) <= 100),
    name_upper TEXT NOT NULL UNIQUE,
    creation_timestamp INTEGER,
    modification_timestamp INTEGER,
    is_default INTEGER NOT NULL DEFAULT 0,
    is_last_used INTEGER NOT NULL DEFAULT 0,
    stack TEXT,
    contact_user_id INTEGER,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0,
    is_favorited INTEGER NOT NULL DEFAULT 0
);

-- At most one default and one last-used notebook.
CREATE UNIQUE INDEX IF NOT EXISTS idx_notebooks_default
    ON notebooks(is_default) WHERE is_default = 1;
CREATE UNIQUE INDEX IF NOT EXISTS idx_notebooks_last_used
    ON notebooks(is_last_used) WHERE is_last_used = 1;

CREATE TABLE IF NOT EXISTS notebook_restrictions (
    local_uid TEXT PRIMARY KEY NOT NULL REFERENCES notebooks(local_uid) ON DELETE CASCADE,
    no_read_notes INTEGER,
    no_create_notes INTEGER,
    no_update_notes INTEGER,
    no_expunge_notes INTEGER,
    no_share_notes INTEGER,
    no_email_notes INTEGER,
    no_send_message_to_recipients INTEGER,
    no_update_notebook INTEGER,
    no_expunge_notebook INTEGER,
    no_set_default_notebook INTEGER,
    no_set_notebook_stack INTEGER,
    no_publish_to_public INTEGER,
    no_publish_to_business_library INTEGER,
    no_create_tags INTEGER,
    no_update_tags INTEGER,
    no_expunge_tags INTEGER,
    no_set_parent_tag INTEGER,
    no_create_shared_notebooks INTEGER,
    no_share_notes_with_business INTEGER,
    no_rename_notebook INTEGER
);

CREATE TABLE IF NOT EXISTS notebook_publishing (
    local_uid TEXT PRIMARY KEY NOT NULL REFERENCES notebooks(local_uid) ON DELETE CASCADE,
    uri TEXT,
    publishing_order INTEGER,
    ascending INTEGER,
    public_description TEXT
);

CREATE TABLE IF NOT EXISTS notebook_business (
    local_uid TEXT PRIMARY KEY NOT NULL REFERENCES notebooks(local_uid) ON DELETE CASCADE,
    description TEXT,
    privilege INTEGER,
    recommended INTEGER
);

CREATE TABLE IF NOT EXISTS shared_notebooks (
    share_id INTEGER PRIMARY KEY NOT NULL,
    user_id INTEGER,
    notebook_guid TEXT NOT NULL REFERENCES notebooks(guid) ON DELETE CASCADE,
    email TEXT,
    creation_timestamp INTEGER,
    modification_timestamp INTEGER,
    share_key TEXT,
    username TEXT,
    privilege INTEGER,
    allow_preview INTEGER,
    reminder_notify_email INTEGER,
    reminder_notify_app INTEGER,
    index_in_notebook INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_shared_notebooks_guid
    ON shared_notebooks(notebook_guid, index_in_notebook);

-- Linked notebooks. Identified by guid alone; never created locally.
CREATE TABLE IF NOT EXISTS linked_notebooks (
    guid TEXT PRIMARY KEY NOT NULL,
    update_sequence_number INTEGER,
    share_name TEXT,
    username TEXT,
    shard_id TEXT,
    share_key TEXT,
    uri TEXT,
    note_store_url TEXT,
    web_api_url_prefix TEXT,
    stack TEXT,
    business_id INTEGER,
    is_dirty INTEGER NOT NULL DEFAULT 0
);

-- Tags.
CREATE TABLE IF NOT EXISTS tags (
    local_uid TEXT PRIMARY KEY NOT NULL,
    guid TEXT UNIQUE,
    update_sequence_number INTEGER,
    name TEXT NOT NULL CHECK(length(name) <= 100),
    name_upper TEXT NOT NULL UNIQUE,
    parent_guid TEXT,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0,
    is_deleted INTEGER NOT NULL DEFAULT 0,
    is_favorited INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tags_name_upper ON tags(name_upper);

-- Notes.
CREATE TABLE IF NOT EXISTS notes (
    local_uid TEXT PRIMARY KEY NOT NULL,
    guid TEXT UNIQUE,
    update_sequence_number INTEGER,
    notebook_local_uid TEXT NOT NULL REFERENCES notebooks(local_uid) ON DELETE CASCADE,
    notebook_guid TEXT,
    title TEXT,
    content TEXT,
    creation_timestamp INTEGER,
    modification_timestamp INTEGER,
    deletion_timestamp INTEGER,
    is_active INTEGER NOT NULL DEFAULT 1,
    thumbnail BLOB,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0,
    is_favorited INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notes_notebook ON notes(notebook_local_uid);
CREATE INDEX IF NOT EXISTS idx_notes_deletion ON notes(deletion_timestamp);

CREATE TABLE IF NOT EXISTS note_attributes (
    local_uid TEXT PRIMARY KEY NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    subject_date INTEGER,
    latitude REAL,
    longitude REAL,
    altitude REAL,
    author TEXT,
    source TEXT,
    source_url TEXT,
    source_application TEXT,
    reminder_order INTEGER,
    reminder_done_time INTEGER,
    reminder_time INTEGER,
    place_name TEXT,
    content_class TEXT,
    last_edited_by TEXT,
    last_editor_id INTEGER
);

CREATE TABLE IF NOT EXISTS note_application_data_keys (
    local_uid TEXT NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    key TEXT NOT NULL,
    PRIMARY KEY (local_uid, key)
);

CREATE TABLE IF NOT EXISTS note_application_data_entries (
    local_uid TEXT NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (local_uid, key)
);

CREATE TABLE IF NOT EXISTS note_classifications (
    local_uid TEXT NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (local_uid, key)
);

-- Note/tag join. index_in_note preserves the caller's tag ordering.
CREATE TABLE IF NOT EXISTS note_tags (
    note_local_uid TEXT NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    tag_local_uid TEXT NOT NULL REFERENCES tags(local_uid) ON DELETE CASCADE,
    tag_guid TEXT,
    index_in_note INTEGER NOT NULL,
    PRIMARY KEY (note_local_uid, tag_local_uid)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_local_uid);

-- Resources. The recognition triple is separate from the data triple.
CREATE TABLE IF NOT EXISTS resources (
    resource_local_uid TEXT PRIMARY KEY NOT NULL,
    resource_guid TEXT UNIQUE,
    note_local_uid TEXT NOT NULL REFERENCES notes(local_uid) ON DELETE CASCADE,
    note_guid TEXT,
    update_sequence_number INTEGER,
    data_body BLOB,
    data_size INTEGER,
    data_hash BLOB,
    recognition_data_body BLOB,
    recognition_data_size INTEGER,
    recognition_data_hash BLOB,
    mime TEXT,
    width INTEGER,
    height INTEGER,
    index_in_note INTEGER NOT NULL DEFAULT 0,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_resources_note ON resources(note_local_uid, index_in_note);

CREATE TABLE IF NOT EXISTS resource_attributes (
    resource_local_uid TEXT PRIMARY KEY NOT NULL REFERENCES resources(resource_local_uid) ON DELETE CASCADE,
    source_url TEXT,
    timestamp INTEGER,
    latitude REAL,
    longitude REAL,
    altitude REAL,
    camera_make TEXT,
    camera_model TEXT,
    reco_type TEXT,
    file_name TEXT,
    attachment INTEGER
);

CREATE TABLE IF NOT EXISTS resource_application_data_keys (
    resource_local_uid TEXT NOT NULL REFERENCES resources(resource_local_uid) ON DELETE CASCADE,
    key TEXT NOT NULL,
    PRIMARY KEY (resource_local_uid, key)
);

CREATE TABLE IF NOT EXISTS resource_application_data_entries (
    resource_local_uid TEXT NOT NULL REFERENCES resources(resource_local_uid) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (resource_local_uid, key)
);

-- Saved searches.
CREATE TABLE IF NOT EXISTS saved_searches (
    local_uid TEXT PRIMARY KEY NOT NULL,
    guid TEXT UNIQUE,
    update_sequence_number INTEGER,
    name TEXT NOT NULL CHECK(length(name) <= 100),
    name_upper TEXT NOT NULL UNIQUE,
    query TEXT NOT NULL DEFAULT '',
    format INTEGER,
    include_account INTEGER NOT NULL DEFAULT 0,
    include_personal_linked_notebooks INTEGER NOT NULL DEFAULT 0,
    include_business_linked_notebooks INTEGER NOT NULL DEFAULT 0,
    is_dirty INTEGER NOT NULL DEFAULT 0,
    is_local INTEGER NOT NULL DEFAULT 0,
    is_favorited INTEGER NOT NULL DEFAULT 0
);
`

// schemaVersion is stamped with PRAGMA user_version so a future build can
// refuse to open a newer database than it understands.
const schemaVersion = 1

func initSchema(ctx context.Context, conn *sql.Conn) error {
	var version int
	if err := conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return &storage.SQLError{Stmt: "PRAGMA user_version", Err: err}
	}
	if version > schemaVersion {
		return &storage.OpenError{Err: &storage.InvariantError{
			Msg: "database schema is newer than this build understands",
		}}
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return &storage.SQLError{Stmt: "create schema", Err: err}
	}
	if version < schemaVersion {
		if _, err := conn.ExecContext(ctx, `PRAGMA user_version = 1`); err != nil {
			return &storage.SQLError{Stmt: "PRAGMA user_version = 1", Err: err}
		}
	}
	return nil
}
