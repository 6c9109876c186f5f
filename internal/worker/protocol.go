// Package worker hosts the asynchronous local-storage worker and the
// session façade callers hold. The worker is a single goroutine owning one
// storage engine and one cache set; producers submit typed requests tagged
// with correlation ids and observe typed responses echoing them. No caller
// ever touches the engine or the caches directly.
package worker

import (
	"github.com/google/uuid"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// ProtocolVersion is the request/response contract version. Sessions check
// it against their compiled version before attaching; a major mismatch is
// refused.
const ProtocolVersion = "v1.0.0"

// Op identifies a request kind.
type Op string

// Operation constants for every request the worker serves.
const (
	OpSwitchUser  Op = "switch_user"
	OpSetUseCache Op = "set_use_cache"

	OpAddNote     Op = "add_note"
	OpUpdateNote  Op = "update_note"
	OpFindNote    Op = "find_note"
	OpListNotes   Op = "list_notes"
	OpDeleteNote  Op = "delete_note"
	OpExpungeNote Op = "expunge_note"
	OpCountNotes  Op = "count_notes"

	OpCountNotesPerNotebook Op = "count_notes_per_notebook"
	OpCountNotesPerTag      Op = "count_notes_per_tag"

	OpAddNotebook         Op = "add_notebook"
	OpUpdateNotebook      Op = "update_notebook"
	OpFindNotebook        Op = "find_notebook"
	OpFindDefaultNotebook Op = "find_default_notebook"
	OpListNotebooks       Op = "list_notebooks"
	OpExpungeNotebook     Op = "expunge_notebook"
	OpCountNotebooks      Op = "count_notebooks"

	OpAddTag     Op = "add_tag"
	OpUpdateTag  Op = "update_tag"
	OpFindTag    Op = "find_tag"
	OpListTags   Op = "list_tags"
	OpDeleteTag  Op = "delete_tag"
	OpExpungeTag Op = "expunge_tag"
	OpCountTags  Op = "count_tags"

	OpAddSavedSearch     Op = "add_saved_search"
	OpUpdateSavedSearch  Op = "update_saved_search"
	OpFindSavedSearch    Op = "find_saved_search"
	OpListSavedSearches  Op = "list_saved_searches"
	OpExpungeSavedSearch Op = "expunge_saved_search"
	OpCountSavedSearches Op = "count_saved_searches"

	OpAddLinkedNotebook     Op = "add_linked_notebook"
	OpUpdateLinkedNotebook  Op = "update_linked_notebook"
	OpFindLinkedNotebook    Op = "find_linked_notebook"
	OpListLinkedNotebooks   Op = "list_linked_notebooks"
	OpExpungeLinkedNotebook Op = "expunge_linked_notebook"
	OpCountLinkedNotebooks  Op = "count_linked_notebooks"

	OpAddResource     Op = "add_resource"
	OpUpdateResource  Op = "update_resource"
	OpFindResource    Op = "find_resource"
	OpExpungeResource Op = "expunge_resource"
	OpCountResources  Op = "count_resources"

	OpAddUser     Op = "add_user"
	OpUpdateUser  Op = "update_user"
	OpFindUser    Op = "find_user"
	OpDeleteUser  Op = "delete_user"
	OpExpungeUser Op = "expunge_user"
	OpCountUsers  Op = "count_users"

	// OpInvalidateCaches clears every cache family; emitted by the external
	// change watcher.
	OpInvalidateCaches Op = "invalidate_caches"
)

// Request is the envelope producers submit. Args holds the op-specific
// argument struct below.
type Request struct {
	ID   uuid.UUID
	Op   Op
	Args any
}

// Response echoes the request's correlation id and op. Err is nil on the
// completed variant; on failure Err carries the reason and Args the original
// request arguments so the caller can reconcile.
type Response struct {
	ID      uuid.UUID
	Op      Op
	Err     error
	Args    any
	Payload any
}

// SwitchUserArgs switches the worker's storage to another account.
type SwitchUserArgs struct {
	Username         string
	UserID           int32
	StartFromScratch bool
}

// SwitchUserResult reports the account now open.
type SwitchUserResult struct {
	UserID int32
}

// SetUseCacheArgs toggles the read-through caches. Disabling clears them.
type SetUseCacheArgs struct {
	UseCache bool
}

// NoteArgs carries a note mutation.
type NoteArgs struct {
	Note    *types.Note
	Options storage.UpdateNoteOptions // update only
}

// FindNoteArgs identifies a note to load.
type FindNoteArgs struct {
	Key     storage.Key
	Options storage.FindNoteOptions
}

// ListNotesArgs scopes a note listing.
type ListNotesArgs struct {
	Filter  storage.NoteFilter
	Options storage.FindNoteOptions
	Page    storage.Page
}

// ListNotesResult echoes the listing scope with the loaded notes.
type ListNotesResult struct {
	Notes  []*types.Note
	Filter storage.NoteFilter
	Page   storage.Page
}

// NotebookArgs carries a notebook mutation.
type NotebookArgs struct {
	Notebook *types.Notebook
}

// FindArgs identifies an entity by key; shared by the families with a plain
// dual-identity lookup.
type FindArgs struct {
	Key storage.Key
}

// ListNotebooksArgs scopes a notebook listing.
type ListNotebooksArgs struct {
	Filter storage.NotebookFilter
	Page   storage.Page
}

// ListNotebooksResult echoes the listing scope with the loaded notebooks.
type ListNotebooksResult struct {
	Notebooks []*types.Notebook
	Filter    storage.NotebookFilter
	Page      storage.Page
}

// TagArgs carries a tag mutation.
type TagArgs struct {
	Tag *types.Tag
}

// ListTagsArgs scopes a tag listing.
type ListTagsArgs struct {
	Filter storage.TagFilter
	Page   storage.Page
}

// ListTagsResult echoes the listing scope with the loaded tags.
type ListTagsResult struct {
	Tags   []*types.Tag
	Filter storage.TagFilter
	Page   storage.Page
}

// SavedSearchArgs carries a saved-search mutation.
type SavedSearchArgs struct {
	Search *types.SavedSearch
}

// ListSavedSearchesArgs scopes a saved-search listing.
type ListSavedSearchesArgs struct {
	Filter storage.SavedSearchFilter
	Page   storage.Page
}

// ListSavedSearchesResult echoes the listing scope with the loaded searches.
type ListSavedSearchesResult struct {
	Searches []*types.SavedSearch
	Filter   storage.SavedSearchFilter
	Page     storage.Page
}

// LinkedNotebookArgs carries a linked-notebook mutation.
type LinkedNotebookArgs struct {
	LinkedNotebook *types.LinkedNotebook
}

// FindLinkedNotebookArgs identifies a linked notebook by guid.
type FindLinkedNotebookArgs struct {
	GUID string
}

// ListLinkedNotebooksArgs scopes a linked-notebook listing.
type ListLinkedNotebooksArgs struct {
	Page storage.Page
}

// ResourceArgs carries a resource mutation.
type ResourceArgs struct {
	Resource *types.Resource
}

// FindResourceArgs identifies a resource to load.
type FindResourceArgs struct {
	Key            storage.Key
	WithBinaryData bool
}

// UserArgs carries a user mutation.
type UserArgs struct {
	User *types.User
}

// FindUserArgs identifies a user by id.
type FindUserArgs struct {
	UserID int32
}

// CountArgs identifies a per-scope counter; LocalUID scopes the per-notebook
// and per-tag note counters.
type CountArgs struct {
	LocalUID string
}

// CountResult carries a counter value.
type CountResult struct {
	Count int
}
