package types

// Clone helpers. Entities are plain data; a clone shares nothing with its
// source, so a caller may mutate its copy without disturbing cached state.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the notebook.
func (n *Notebook) Clone() *Notebook {
	if n == nil {
		return nil
	}
	out := *n
	out.GUID = clonePtr(n.GUID)
	out.UpdateSequenceNum = clonePtr(n.UpdateSequenceNum)
	out.CreationTimestamp = clonePtr(n.CreationTimestamp)
	out.ModificationTimestamp = clonePtr(n.ModificationTimestamp)
	out.Stack = clonePtr(n.Stack)
	out.ContactUserID = clonePtr(n.ContactUserID)
	if n.Publishing != nil {
		p := *n.Publishing
		p.URI = clonePtr(n.Publishing.URI)
		p.Order = clonePtr(n.Publishing.Order)
		p.Ascending = clonePtr(n.Publishing.Ascending)
		p.PublicDescription = clonePtr(n.Publishing.PublicDescription)
		out.Publishing = &p
	}
	if n.Business != nil {
		b := *n.Business
		b.Description = clonePtr(n.Business.Description)
		b.Privilege = clonePtr(n.Business.Privilege)
		b.Recommended = clonePtr(n.Business.Recommended)
		out.Business = &b
	}
	out.Restrictions = n.Restrictions.Clone()
	if n.SharedNotebooks != nil {
		out.SharedNotebooks = make([]SharedNotebook, len(n.SharedNotebooks))
		for i := range n.SharedNotebooks {
			out.SharedNotebooks[i] = *n.SharedNotebooks[i].Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the restriction matrix.
func (r *NotebookRestrictions) Clone() *NotebookRestrictions {
	if r == nil {
		return nil
	}
	out := NotebookRestrictions{
		NoReadNotes:                clonePtr(r.NoReadNotes),
		NoCreateNotes:              clonePtr(r.NoCreateNotes),
		NoUpdateNotes:              clonePtr(r.NoUpdateNotes),
		NoExpungeNotes:             clonePtr(r.NoExpungeNotes),
		NoShareNotes:               clonePtr(r.NoShareNotes),
		NoEmailNotes:               clonePtr(r.NoEmailNotes),
		NoSendMessageToRecipients:  clonePtr(r.NoSendMessageToRecipients),
		NoUpdateNotebook:           clonePtr(r.NoUpdateNotebook),
		NoExpungeNotebook:          clonePtr(r.NoExpungeNotebook),
		NoSetDefaultNotebook:       clonePtr(r.NoSetDefaultNotebook),
		NoSetNotebookStack:         clonePtr(r.NoSetNotebookStack),
		NoPublishToPublic:          clonePtr(r.NoPublishToPublic),
		NoPublishToBusinessLibrary: clonePtr(r.NoPublishToBusinessLibrary),
		NoCreateTags:               clonePtr(r.NoCreateTags),
		NoUpdateTags:               clonePtr(r.NoUpdateTags),
		NoExpungeTags:              clonePtr(r.NoExpungeTags),
		NoSetParentTag:             clonePtr(r.NoSetParentTag),
		NoCreateSharedNotebooks:    clonePtr(r.NoCreateSharedNotebooks),
		NoShareNotesWithBusiness:   clonePtr(r.NoShareNotesWithBusiness),
		NoRenameNotebook:           clonePtr(r.NoRenameNotebook),
	}
	return &out
}

// Clone returns a deep copy of the shared-notebook record.
func (s *SharedNotebook) Clone() *SharedNotebook {
	if s == nil {
		return nil
	}
	out := *s
	out.UserID = clonePtr(s.UserID)
	out.Email = clonePtr(s.Email)
	out.CreationTimestamp = clonePtr(s.CreationTimestamp)
	out.ModificationTimestamp = clonePtr(s.ModificationTimestamp)
	out.ShareKey = clonePtr(s.ShareKey)
	out.Username = clonePtr(s.Username)
	out.PrivilegeLevel = clonePtr(s.PrivilegeLevel)
	out.AllowPreview = clonePtr(s.AllowPreview)
	out.ReminderNotifyEmail = clonePtr(s.ReminderNotifyEmail)
	out.ReminderNotifyApp = clonePtr(s.ReminderNotifyApp)
	return &out
}

// Clone returns a deep copy of the note, including its resources.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	out := *n
	out.GUID = clonePtr(n.GUID)
	out.UpdateSequenceNum = clonePtr(n.UpdateSequenceNum)
	out.NotebookGUID = clonePtr(n.NotebookGUID)
	out.CreationTimestamp = clonePtr(n.CreationTimestamp)
	out.ModificationTimestamp = clonePtr(n.ModificationTimestamp)
	out.DeletionTimestamp = clonePtr(n.DeletionTimestamp)
	out.Thumbnail = cloneSlice(n.Thumbnail)
	out.TagLocalUIDs = cloneSlice(n.TagLocalUIDs)
	out.TagGUIDs = cloneSlice(n.TagGUIDs)
	if n.Resources != nil {
		out.Resources = make([]Resource, len(n.Resources))
		for i := range n.Resources {
			out.Resources[i] = *n.Resources[i].Clone()
		}
	}
	out.Attributes = n.Attributes.Clone()
	return &out
}

// Clone returns a deep copy of the note attributes.
func (a *NoteAttributes) Clone() *NoteAttributes {
	if a == nil {
		return nil
	}
	out := *a
	out.SubjectDate = clonePtr(a.SubjectDate)
	out.Latitude = clonePtr(a.Latitude)
	out.Longitude = clonePtr(a.Longitude)
	out.Altitude = clonePtr(a.Altitude)
	out.Author = clonePtr(a.Author)
	out.Source = clonePtr(a.Source)
	out.SourceURL = clonePtr(a.SourceURL)
	out.SourceApplication = clonePtr(a.SourceApplication)
	out.ReminderOrder = clonePtr(a.ReminderOrder)
	out.ReminderDoneTime = clonePtr(a.ReminderDoneTime)
	out.ReminderTime = clonePtr(a.ReminderTime)
	out.PlaceName = clonePtr(a.PlaceName)
	out.ContentClass = clonePtr(a.ContentClass)
	out.LastEditedBy = clonePtr(a.LastEditedBy)
	out.LastEditorID = clonePtr(a.LastEditorID)
	out.ApplicationDataKeysOnly = cloneSlice(a.ApplicationDataKeysOnly)
	out.ApplicationDataFullMap = cloneMap(a.ApplicationDataFullMap)
	out.Classifications = cloneMap(a.Classifications)
	return &out
}

// Clone returns a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	out.GUID = clonePtr(r.GUID)
	out.UpdateSequenceNum = clonePtr(r.UpdateSequenceNum)
	out.NoteGUID = clonePtr(r.NoteGUID)
	out.Width = clonePtr(r.Width)
	out.Height = clonePtr(r.Height)
	if r.Data != nil {
		d := *r.Data
		d.Body = cloneSlice(r.Data.Body)
		d.Hash = cloneSlice(r.Data.Hash)
		out.Data = &d
	}
	if r.Recognition != nil {
		d := *r.Recognition
		d.Body = cloneSlice(r.Recognition.Body)
		d.Hash = cloneSlice(r.Recognition.Hash)
		out.Recognition = &d
	}
	if r.Attributes != nil {
		a := *r.Attributes
		a.SourceURL = clonePtr(r.Attributes.SourceURL)
		a.Timestamp = clonePtr(r.Attributes.Timestamp)
		a.Latitude = clonePtr(r.Attributes.Latitude)
		a.Longitude = clonePtr(r.Attributes.Longitude)
		a.Altitude = clonePtr(r.Attributes.Altitude)
		a.CameraMake = clonePtr(r.Attributes.CameraMake)
		a.CameraModel = clonePtr(r.Attributes.CameraModel)
		a.RecoType = clonePtr(r.Attributes.RecoType)
		a.FileName = clonePtr(r.Attributes.FileName)
		a.Attachment = clonePtr(r.Attributes.Attachment)
		a.ApplicationDataKeysOnly = cloneSlice(r.Attributes.ApplicationDataKeysOnly)
		a.ApplicationDataFullMap = cloneMap(r.Attributes.ApplicationDataFullMap)
		out.Attributes = &a
	}
	return &out
}

// Clone returns a deep copy of the tag.
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	out := *t
	out.GUID = clonePtr(t.GUID)
	out.UpdateSequenceNum = clonePtr(t.UpdateSequenceNum)
	out.ParentGUID = clonePtr(t.ParentGUID)
	return &out
}

// Clone returns a deep copy of the saved search.
func (s *SavedSearch) Clone() *SavedSearch {
	if s == nil {
		return nil
	}
	out := *s
	out.GUID = clonePtr(s.GUID)
	out.UpdateSequenceNum = clonePtr(s.UpdateSequenceNum)
	out.Format = clonePtr(s.Format)
	return &out
}
