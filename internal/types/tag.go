package types

import "fmt"

// Tag is a label applied to notes. Names are unique case-insensitively
// within the account. Tags form a hierarchy through ParentGUID.
type Tag struct {
	LocalUID          string  `json:"local_uid"`
	GUID              *string `json:"guid,omitempty"`
	UpdateSequenceNum *int32  `json:"update_sequence_num,omitempty"`

	Name       string  `json:"name"`
	ParentGUID *string `json:"parent_guid,omitempty"`

	Dirty     bool `json:"dirty,omitempty"`
	Local     bool `json:"local,omitempty"`
	Deleted   bool `json:"deleted,omitempty"`
	Favorited bool `json:"favorited,omitempty"`
}

// CheckParameters validates the tag before persistence.
func (t *Tag) CheckParameters() error {
	if t.GUID != nil {
		if err := CheckGUID(*t.GUID); err != nil {
			return fmt.Errorf("tag: %w", err)
		}
	}
	if t.LocalUID == "" && t.GUID == nil {
		return fmt.Errorf("tag: neither local uid nor guid is set")
	}
	if t.Name == "" {
		return fmt.Errorf("tag: name is required")
	}
	if len(t.Name) > maxNameLen {
		return fmt.Errorf("tag: name must be %d characters or less", maxNameLen)
	}
	if t.ParentGUID != nil {
		if err := CheckGUID(*t.ParentGUID); err != nil {
			return fmt.Errorf("tag: parent %w", err)
		}
	}
	return nil
}
