package types

import "fmt"

// Resource is an attachment bound to exactly one note. The primary data
// body and the recognition data are distinct triples and are never
// conflated.
type Resource struct {
	LocalUID          string  `json:"local_uid"`
	GUID              *string `json:"guid,omitempty"`
	UpdateSequenceNum *int32  `json:"update_sequence_num,omitempty"`

	NoteLocalUID string  `json:"note_local_uid"`
	NoteGUID     *string `json:"note_guid,omitempty"`

	Data        *ResourceData `json:"data,omitempty"`
	Recognition *ResourceData `json:"recognition,omitempty"`

	Mime   string `json:"mime"`
	Width  *int32 `json:"width,omitempty"`
	Height *int32 `json:"height,omitempty"`

	// IndexInNote preserves the resource's position within its note.
	IndexInNote int `json:"index_in_note"`

	Attributes *ResourceAttributes `json:"attributes,omitempty"`

	Dirty bool `json:"dirty,omitempty"`
	Local bool `json:"local,omitempty"`
}

// ResourceData is a body+size+hash triple. Body may be omitted on reads that
// did not request binary data; Size and Hash are always populated for a
// stored triple.
type ResourceData struct {
	Body []byte `json:"body,omitempty"`
	Size int32  `json:"size"`
	Hash []byte `json:"hash,omitempty"`
}

// ResourceAttributes is the optional attribute record of a resource.
type ResourceAttributes struct {
	SourceURL *string    `json:"source_url,omitempty"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	CameraMake  *string `json:"camera_make,omitempty"`
	CameraModel *string `json:"camera_model,omitempty"`

	RecoType   *string `json:"reco_type,omitempty"`
	FileName   *string `json:"file_name,omitempty"`
	Attachment *bool   `json:"attachment,omitempty"`

	ApplicationDataKeysOnly []string          `json:"application_data_keys_only,omitempty"`
	ApplicationDataFullMap  map[string]string `json:"application_data_full_map,omitempty"`
}

// CheckParameters validates the resource before persistence.
func (r *Resource) CheckParameters() error {
	if r.GUID != nil {
		if err := CheckGUID(*r.GUID); err != nil {
			return fmt.Errorf("resource: %w", err)
		}
	}
	if r.LocalUID == "" && r.GUID == nil {
		return fmt.Errorf("resource: neither local uid nor guid is set")
	}
	if r.NoteGUID != nil {
		if err := CheckGUID(*r.NoteGUID); err != nil {
			return fmt.Errorf("resource: note %w", err)
		}
	}
	if r.Data != nil && len(r.Data.Body) != 0 && int32(len(r.Data.Body)) != r.Data.Size {
		return fmt.Errorf("resource: data size %d disagrees with body length %d", r.Data.Size, len(r.Data.Body))
	}
	if r.Recognition != nil && len(r.Recognition.Body) != 0 && int32(len(r.Recognition.Body)) != r.Recognition.Size {
		return fmt.Errorf("resource: recognition size %d disagrees with body length %d", r.Recognition.Size, len(r.Recognition.Body))
	}
	return nil
}
