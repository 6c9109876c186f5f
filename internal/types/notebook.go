package types

import "fmt"

// Notebook is a container of notes. Name uniqueness is case-insensitive
// within the account. At most one notebook is the default and at most one is
// the last-used one.
type Notebook struct {
	LocalUID          string  `json:"local_uid"`
	GUID              *string `json:"guid,omitempty"`
	UpdateSequenceNum *int32  `json:"update_sequence_num,omitempty"`

	Name                  string     `json:"name"`
	CreationTimestamp     *Timestamp `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp `json:"modification_timestamp,omitempty"`

	IsDefault  bool `json:"is_default,omitempty"`
	IsLastUsed bool `json:"is_last_used,omitempty"`

	Stack         *string `json:"stack,omitempty"`
	ContactUserID *int32  `json:"contact_user_id,omitempty"`

	Publishing   *NotebookPublishing   `json:"publishing,omitempty"`
	Business     *BusinessNotebook     `json:"business,omitempty"`
	Restrictions *NotebookRestrictions `json:"restrictions,omitempty"`

	// SharedNotebooks mirrors the server-reported shares for this notebook,
	// ordered by IndexInNotebook.
	SharedNotebooks []SharedNotebook `json:"shared_notebooks,omitempty"`

	Dirty     bool `json:"dirty,omitempty"`
	Local     bool `json:"local,omitempty"`
	Favorited bool `json:"favorited,omitempty"`
}

// NotebookPublishing holds the public-publishing settings of a notebook.
type NotebookPublishing struct {
	URI               *string `json:"uri,omitempty"`
	Order             *int32  `json:"order,omitempty"`
	Ascending         *bool   `json:"ascending,omitempty"`
	PublicDescription *string `json:"public_description,omitempty"`
}

// BusinessNotebook holds the business-library settings of a notebook.
type BusinessNotebook struct {
	Description *string `json:"description,omitempty"`
	Privilege   *int32  `json:"privilege,omitempty"`
	Recommended *bool   `json:"recommended,omitempty"`
}

// NotebookRestrictions is the server-supplied boolean matrix limiting what
// the current user may do with a notebook and its contents. A nil pointer in
// a Notebook means the server reported no restrictions; a nil leaf means the
// bit was not reported.
type NotebookRestrictions struct {
	NoReadNotes                *bool `json:"no_read_notes,omitempty"`
	NoCreateNotes              *bool `json:"no_create_notes,omitempty"`
	NoUpdateNotes              *bool `json:"no_update_notes,omitempty"`
	NoExpungeNotes             *bool `json:"no_expunge_notes,omitempty"`
	NoShareNotes               *bool `json:"no_share_notes,omitempty"`
	NoEmailNotes               *bool `json:"no_email_notes,omitempty"`
	NoSendMessageToRecipients  *bool `json:"no_send_message_to_recipients,omitempty"`
	NoUpdateNotebook           *bool `json:"no_update_notebook,omitempty"`
	NoExpungeNotebook          *bool `json:"no_expunge_notebook,omitempty"`
	NoSetDefaultNotebook       *bool `json:"no_set_default_notebook,omitempty"`
	NoSetNotebookStack         *bool `json:"no_set_notebook_stack,omitempty"`
	NoPublishToPublic          *bool `json:"no_publish_to_public,omitempty"`
	NoPublishToBusinessLibrary *bool `json:"no_publish_to_business_library,omitempty"`
	NoCreateTags               *bool `json:"no_create_tags,omitempty"`
	NoUpdateTags               *bool `json:"no_update_tags,omitempty"`
	NoExpungeTags              *bool `json:"no_expunge_tags,omitempty"`
	NoSetParentTag             *bool `json:"no_set_parent_tag,omitempty"`
	NoCreateSharedNotebooks    *bool `json:"no_create_shared_notebooks,omitempty"`
	NoShareNotesWithBusiness   *bool `json:"no_share_notes_with_business,omitempty"`
	NoRenameNotebook           *bool `json:"no_rename_notebook,omitempty"`
}

func restrictionSet(b *bool) bool { return b != nil && *b }

// ForbidsNoteCreation reports whether notes may not be added to the notebook.
func (r *NotebookRestrictions) ForbidsNoteCreation() bool {
	return r != nil && restrictionSet(r.NoCreateNotes)
}

// ForbidsNoteUpdate reports whether notes in the notebook may not be updated.
func (r *NotebookRestrictions) ForbidsNoteUpdate() bool {
	return r != nil && restrictionSet(r.NoUpdateNotes)
}

// ForbidsNotebookUpdate reports whether the notebook itself may not be updated.
func (r *NotebookRestrictions) ForbidsNotebookUpdate() bool {
	return r != nil && restrictionSet(r.NoUpdateNotebook)
}

// ForbidsNotebookExpunge reports whether the notebook may not be expunged.
func (r *NotebookRestrictions) ForbidsNotebookExpunge() bool {
	return r != nil && restrictionSet(r.NoExpungeNotebook)
}

// ForbidsTagUpdate reports whether tags scoped to the notebook may not be
// updated.
func (r *NotebookRestrictions) ForbidsTagUpdate() bool {
	return r != nil && restrictionSet(r.NoUpdateTags)
}

// SharedNotebook records one share of a notebook as reported by the server.
// Ordering returned to callers is ascending by IndexInNotebook.
type SharedNotebook struct {
	ShareID               int64      `json:"share_id"`
	UserID                *int32     `json:"user_id,omitempty"`
	NotebookGUID          string     `json:"notebook_guid"`
	Email                 *string    `json:"email,omitempty"`
	CreationTimestamp     *Timestamp `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp `json:"modification_timestamp,omitempty"`
	ShareKey              *string    `json:"share_key,omitempty"`
	Username              *string    `json:"username,omitempty"`
	PrivilegeLevel        *int32     `json:"privilege_level,omitempty"`
	AllowPreview          *bool      `json:"allow_preview,omitempty"`
	ReminderNotifyEmail   *bool      `json:"reminder_notify_email,omitempty"`
	ReminderNotifyApp     *bool      `json:"reminder_notify_app,omitempty"`
	// IndexInNotebook preserves the server-reported ordering of shares.
	IndexInNotebook int `json:"index_in_notebook"`
}

const maxNameLen = 100

// CheckParameters validates the notebook before persistence.
func (n *Notebook) CheckParameters() error {
	if n.GUID != nil {
		if err := CheckGUID(*n.GUID); err != nil {
			return fmt.Errorf("notebook: %w", err)
		}
	}
	if n.LocalUID == "" && n.GUID == nil {
		return fmt.Errorf("notebook: neither local uid nor guid is set")
	}
	if n.Name == "" {
		return fmt.Errorf("notebook: name is required")
	}
	if len(n.Name) > maxNameLen {
		return fmt.Errorf("notebook: name must be %d characters or less", maxNameLen)
	}
	for i := range n.SharedNotebooks {
		sn := &n.SharedNotebooks[i]
		if sn.NotebookGUID == "" {
			return fmt.Errorf("notebook: shared notebook %d has no notebook guid", i)
		}
		if err := CheckGUID(sn.NotebookGUID); err != nil {
			return fmt.Errorf("notebook: shared notebook %d: %w", i, err)
		}
	}
	return nil
}

// CheckParameters validates a shared notebook row.
func (s *SharedNotebook) CheckParameters() error {
	if s.NotebookGUID == "" {
		return fmt.Errorf("shared notebook: notebook guid is required")
	}
	if err := CheckGUID(s.NotebookGUID); err != nil {
		return fmt.Errorf("shared notebook: %w", err)
	}
	return nil
}
