package types

import "fmt"

// Note is the central entity: an ENML document living in exactly one
// notebook, optionally carrying tags, resources and a thumbnail. Content is
// treated as an opaque string; parsing and rendering happen elsewhere.
type Note struct {
	LocalUID          string  `json:"local_uid"`
	GUID              *string `json:"guid,omitempty"`
	UpdateSequenceNum *int32  `json:"update_sequence_num,omitempty"`

	NotebookLocalUID string  `json:"notebook_local_uid"`
	NotebookGUID     *string `json:"notebook_guid,omitempty"`

	Title   string `json:"title"`
	Content string `json:"content"`

	CreationTimestamp     *Timestamp `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp `json:"modification_timestamp,omitempty"`
	DeletionTimestamp     *Timestamp `json:"deletion_timestamp,omitempty"`

	IsActive bool `json:"is_active"`

	// Thumbnail is an opaque blob produced by the thumbnailer, if any.
	Thumbnail []byte `json:"thumbnail,omitempty"`

	// TagLocalUIDs and TagGUIDs are parallel projections of the note's tag
	// list, ordered by the tag's index within the note. TagGUIDs holds an
	// empty string at positions where the tag has not been synchronized.
	TagLocalUIDs []string `json:"tag_local_uids,omitempty"`
	TagGUIDs     []string `json:"tag_guids,omitempty"`

	// Resources are the attachments bound to this note, ordered by their
	// index within the note.
	Resources []Resource `json:"resources,omitempty"`

	Attributes *NoteAttributes `json:"attributes,omitempty"`

	Dirty     bool `json:"dirty,omitempty"`
	Local     bool `json:"local,omitempty"`
	Favorited bool `json:"favorited,omitempty"`
}

// NoteAttributes is the optional attribute record of a note. Application
// data distinguishes a keys-only set from the full key/value map; both are
// persisted.
type NoteAttributes struct {
	SubjectDate *Timestamp `json:"subject_date,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	Author            *string `json:"author,omitempty"`
	Source            *string `json:"source,omitempty"`
	SourceURL         *string `json:"source_url,omitempty"`
	SourceApplication *string `json:"source_application,omitempty"`

	ReminderOrder    *int64     `json:"reminder_order,omitempty"`
	ReminderDoneTime *Timestamp `json:"reminder_done_time,omitempty"`
	ReminderTime     *Timestamp `json:"reminder_time,omitempty"`

	PlaceName    *string `json:"place_name,omitempty"`
	ContentClass *string `json:"content_class,omitempty"`

	LastEditedBy *string `json:"last_edited_by,omitempty"`
	LastEditorID *int32  `json:"last_editor_id,omitempty"`

	ApplicationDataKeysOnly []string          `json:"application_data_keys_only,omitempty"`
	ApplicationDataFullMap  map[string]string `json:"application_data_full_map,omitempty"`
	Classifications         map[string]string `json:"classifications,omitempty"`
}

const (
	maxTitleLen   = 255
	maxContentLen = 5 * 1024 * 1024
)

// CheckParameters validates the note before persistence. The notebook
// reference is checked for presence only; its existence and restrictions are
// the storage engine's concern.
func (n *Note) CheckParameters() error {
	if n.GUID != nil {
		if err := CheckGUID(*n.GUID); err != nil {
			return fmt.Errorf("note: %w", err)
		}
	}
	if n.LocalUID == "" && n.GUID == nil {
		return fmt.Errorf("note: neither local uid nor guid is set")
	}
	if n.NotebookLocalUID == "" && n.NotebookGUID == nil {
		return fmt.Errorf("note: notebook reference is required")
	}
	if n.NotebookGUID != nil {
		if err := CheckGUID(*n.NotebookGUID); err != nil {
			return fmt.Errorf("note: notebook %w", err)
		}
	}
	if len(n.Title) > maxTitleLen {
		return fmt.Errorf("note: title must be %d characters or less", maxTitleLen)
	}
	if len(n.Content) > maxContentLen {
		return fmt.Errorf("note: content exceeds %d bytes", maxContentLen)
	}
	if len(n.TagGUIDs) != 0 && len(n.TagLocalUIDs) != 0 && len(n.TagGUIDs) != len(n.TagLocalUIDs) {
		return fmt.Errorf("note: tag guid and tag local uid projections disagree in length")
	}
	for i, g := range n.TagGUIDs {
		if g == "" {
			continue
		}
		if err := CheckGUID(g); err != nil {
			return fmt.Errorf("note: tag %d: %w", i, err)
		}
	}
	for i := range n.Resources {
		if err := n.Resources[i].CheckParameters(); err != nil {
			return fmt.Errorf("note: resource %d: %w", i, err)
		}
	}
	return nil
}
