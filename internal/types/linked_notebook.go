package types

import "fmt"

// LinkedNotebook is a reference to a notebook shared from another account.
// Unlike the other entities it is identified by guid alone: linked notebooks
// are never created locally, so no local uid is assigned.
type LinkedNotebook struct {
	GUID              string `json:"guid"`
	UpdateSequenceNum *int32 `json:"update_sequence_num,omitempty"`

	ShareName *string `json:"share_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	ShardID   *string `json:"shard_id,omitempty"`
	ShareKey  *string `json:"share_key,omitempty"`
	URI       *string `json:"uri,omitempty"`

	NoteStoreURL    *string `json:"note_store_url,omitempty"`
	WebAPIURLPrefix *string `json:"web_api_url_prefix,omitempty"`

	Stack      *string `json:"stack,omitempty"`
	BusinessID *int32  `json:"business_id,omitempty"`

	Dirty bool `json:"dirty,omitempty"`
}

// CheckParameters validates the linked notebook before persistence.
func (l *LinkedNotebook) CheckParameters() error {
	if err := CheckGUID(l.GUID); err != nil {
		return fmt.Errorf("linked notebook: %w", err)
	}
	if l.ShareName != nil && *l.ShareName == "" {
		return fmt.Errorf("linked notebook: share name is set but empty")
	}
	return nil
}
