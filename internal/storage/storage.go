// Package storage defines the interface of the local note store and its
// shared option types. The sqlite subpackage is the embedded implementation;
// the async worker is the only intended long-lived caller.
package storage

import (
	"context"

	"github.com/notefold/notefold/internal/types"
)

// Key identifies an entity for a find operation: by local uid or by guid,
// chosen explicitly by the caller.
type Key struct {
	By    types.LookupBy
	Value string
}

// LocalKey is shorthand for a lookup by local uid.
func LocalKey(uid string) Key { return Key{By: types.ByLocalUID, Value: uid} }

// GUIDKey is shorthand for a lookup by guid.
func GUIDKey(guid string) Key { return Key{By: types.ByGUID, Value: guid} }

// Order selects the sort column for paginated listings. Not every order
// applies to every entity family; inapplicable orders fall back to the
// family's natural ordering (insertion for notebooks, alphabetical for tags).
type Order int

const (
	OrderNatural Order = iota
	OrderByName
	OrderByTitle
	OrderByCreated
	OrderByModified
	OrderByUpdateSequenceNum
)

// Direction selects ascending or descending listing order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Page bounds a listing. A zero Limit means no limit.
type Page struct {
	Order     Order
	Direction Direction
	Limit     int
	Offset    int
}

// NoteFilter scopes a note listing. Zero value lists all non-deleted notes.
type NoteFilter struct {
	NotebookLocalUID string
	TagLocalUID      string
	IncludeDeleted   bool
	FavoritedOnly    bool
	DirtyOnly        bool
}

// NotebookFilter scopes a notebook listing.
type NotebookFilter struct {
	Stack         string
	FavoritedOnly bool
	DirtyOnly     bool
}

// TagFilter scopes a tag listing.
type TagFilter struct {
	NoteLocalUID   string
	ParentGUID     string
	IncludeDeleted bool
	FavoritedOnly  bool
	DirtyOnly      bool
}

// SavedSearchFilter scopes a saved-search listing.
type SavedSearchFilter struct {
	FavoritedOnly bool
	DirtyOnly     bool
}

// FindNoteOptions controls how much of a note a find loads. Resource rows
// (metadata, sizes, hashes) are always loaded; bodies only on request.
type FindNoteOptions struct {
	WithResourceBinaryData bool
}

// UpdateNoteOptions controls which dependent collections an update rewrites.
// When a flag is false the stored collection is preserved as-is.
type UpdateNoteOptions struct {
	UpdateResources bool
	UpdateTags      bool
}

// LocalStorage is the synchronous CRUD surface over the embedded database.
// Implementations are not internally synchronized; the async worker owns one
// instance and serializes access to it.
type LocalStorage interface {
	// SwitchUser closes any open database and opens (creating if missing)
	// the one belonging to (username, userID). When startFromScratch is set
	// an existing database file is truncated first.
	SwitchUser(ctx context.Context, username string, userID int32, startFromScratch bool) error
	// Path returns the open database file path, or "" before SwitchUser.
	Path() string
	Close() error

	// Users.
	AddUser(ctx context.Context, u *types.User) error
	UpdateUser(ctx context.Context, u *types.User) error
	FindUser(ctx context.Context, id int32) (*types.User, error)
	DeleteUser(ctx context.Context, u *types.User) error
	ExpungeUser(ctx context.Context, u *types.User) error
	CountUsers(ctx context.Context) (int, error)

	// Notebooks.
	AddNotebook(ctx context.Context, nb *types.Notebook) error
	UpdateNotebook(ctx context.Context, nb *types.Notebook) error
	FindNotebook(ctx context.Context, key Key) (*types.Notebook, error)
	FindDefaultNotebook(ctx context.Context) (*types.Notebook, error)
	FindLastUsedNotebook(ctx context.Context) (*types.Notebook, error)
	FindDefaultOrLastUsedNotebook(ctx context.Context) (*types.Notebook, error)
	ListNotebooks(ctx context.Context, f NotebookFilter, page Page) ([]*types.Notebook, error)
	ExpungeNotebook(ctx context.Context, nb *types.Notebook) error
	CountNotebooks(ctx context.Context) (int, error)
	ListSharedNotebooksPerNotebookGUID(ctx context.Context, notebookGUID string) ([]types.SharedNotebook, error)

	// Linked notebooks.
	AddLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error
	UpdateLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error
	FindLinkedNotebook(ctx context.Context, guid string) (*types.LinkedNotebook, error)
	ListLinkedNotebooks(ctx context.Context, page Page) ([]*types.LinkedNotebook, error)
	ExpungeLinkedNotebook(ctx context.Context, ln *types.LinkedNotebook) error
	CountLinkedNotebooks(ctx context.Context) (int, error)

	// Notes.
	AddNote(ctx context.Context, n *types.Note) error
	UpdateNote(ctx context.Context, n *types.Note, opts UpdateNoteOptions) error
	FindNote(ctx context.Context, key Key, opts FindNoteOptions) (*types.Note, error)
	ListNotes(ctx context.Context, f NoteFilter, opts FindNoteOptions, page Page) ([]*types.Note, error)
	DeleteNote(ctx context.Context, n *types.Note) error
	ExpungeNote(ctx context.Context, n *types.Note) error
	CountNotes(ctx context.Context) (int, error)
	CountNotesPerNotebook(ctx context.Context, notebookLocalUID string) (int, error)
	CountNotesPerTag(ctx context.Context, tagLocalUID string) (int, error)

	// Tags.
	AddTag(ctx context.Context, t *types.Tag) error
	UpdateTag(ctx context.Context, t *types.Tag) error
	FindTag(ctx context.Context, key Key) (*types.Tag, error)
	ListTags(ctx context.Context, f TagFilter, page Page) ([]*types.Tag, error)
	DeleteTag(ctx context.Context, t *types.Tag) error
	ExpungeTag(ctx context.Context, t *types.Tag) error
	CountTags(ctx context.Context) (int, error)

	// Resources.
	AddResource(ctx context.Context, r *types.Resource) error
	UpdateResource(ctx context.Context, r *types.Resource) error
	FindResource(ctx context.Context, key Key, withBinaryData bool) (*types.Resource, error)
	ExpungeResource(ctx context.Context, r *types.Resource) error
	CountResources(ctx context.Context) (int, error)

	// Saved searches.
	AddSavedSearch(ctx context.Context, s *types.SavedSearch) error
	UpdateSavedSearch(ctx context.Context, s *types.SavedSearch) error
	FindSavedSearch(ctx context.Context, key Key) (*types.SavedSearch, error)
	ListSavedSearches(ctx context.Context, f SavedSearchFilter, page Page) ([]*types.SavedSearch, error)
	ExpungeSavedSearch(ctx context.Context, s *types.SavedSearch) error
	CountSavedSearches(ctx context.Context) (int, error)
}
