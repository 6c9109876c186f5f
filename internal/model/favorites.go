// Package model contains the view models that project the storage worker's
// cached entities into ordered, sortable row sets for a UI table. Models
// hold no database handles; every read and edit flows through a worker
// session, and completion/failure responses are reconciled back into the
// rows via HandleResponse.
package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
	"github.com/notefold/notefold/internal/worker"
)

// ItemType tags the entity family of a favorites row. The numeric order is
// the sort order for the Type column.
type ItemType int

const (
	ItemTypeNotebook ItemType = iota
	ItemTypeTag
	ItemTypeNote
	ItemTypeSavedSearch
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeNotebook:
		return "notebook"
	case ItemTypeTag:
		return "tag"
	case ItemTypeNote:
		return "note"
	case ItemTypeSavedSearch:
		return "saved search"
	default:
		return fmt.Sprintf("ItemType(%d)", int(t))
	}
}

// Item is one favorites row.
type Item struct {
	LocalUID        string
	Type            ItemType
	DisplayName     string
	TargetNoteCount int
}

// SortKey selects the favorites sort column.
type SortKey int

const (
	SortByType SortKey = iota
	SortByDisplayName
	SortByNumNotesTargeted
)

// NotebookPermissions is the cached per-notebook restriction projection the
// models gate edits on.
type NotebookPermissions struct {
	CanUpdateNotebook bool
	CanUpdateNotes    bool
	CanUpdateTags     bool
	CanCreateNotes    bool
}

func permissionsFromRestrictions(r *types.NotebookRestrictions) NotebookPermissions {
	return NotebookPermissions{
		CanUpdateNotebook: !r.ForbidsNotebookUpdate(),
		CanUpdateNotes:    !r.ForbidsNoteUpdate(),
		CanUpdateTags:     !r.ForbidsTagUpdate(),
		CanCreateNotes:    !r.ForbidsNoteCreation(),
	}
}

// listPageSize is how many entities each listing request pulls; the next
// page is requested while a full page keeps coming back.
const listPageSize = 40

type pendingKind int

const (
	pendingList pendingKind = iota
	pendingCount
	pendingRenameFind
	pendingRenameUpdate
	pendingRestoreFind
	pendingUnfavoriteFind
	pendingUnfavoriteUpdate
)

type pendingOp struct {
	kind     pendingKind
	itemType ItemType
	localUID string
	newName  string
	prevName string
	offset   int
}

// FavoritesModel maintains the ordered projection of every favorited
// notebook, tag, note and saved search. Rows are addressable by position
// and by local uid. The model is single-threaded: the owner pumps worker
// responses into HandleResponse from the same goroutine that calls the edit
// methods.
type FavoritesModel struct {
	session *worker.Session

	items    []Item
	rowByUID map[string]int

	sortKey SortKey
	sortDir storage.Direction

	permissions map[string]NotebookPermissions

	pending map[uuid.UUID]pendingOp

	// OnRowsChanged fires after any reconciliation that altered the rows.
	OnRowsChanged func()
	// OnError surfaces failures the model could not absorb.
	OnError func(error)
}

// NewFavoritesModel builds the model and issues the initial listing
// requests for all four entity families.
func NewFavoritesModel(session *worker.Session) *FavoritesModel {
	m := &FavoritesModel{
		session:     session,
		rowByUID:    make(map[string]int),
		permissions: make(map[string]NotebookPermissions),
		pending:     make(map[uuid.UUID]pendingOp),
		sortKey:     SortByType,
		sortDir:     storage.Ascending,
	}
	m.requestListPage(ItemTypeNotebook, 0)
	m.requestListPage(ItemTypeTag, 0)
	m.requestListPage(ItemTypeNote, 0)
	m.requestListPage(ItemTypeSavedSearch, 0)
	return m
}

// NumRows returns the row count.
func (m *FavoritesModel) NumRows() int { return len(m.items) }

// ItemAt returns the row at the given position.
func (m *FavoritesModel) ItemAt(row int) (Item, bool) {
	if row < 0 || row >= len(m.items) {
		return Item{}, false
	}
	return m.items[row], true
}

// RowOf returns the current position of the item with the given local uid.
func (m *FavoritesModel) RowOf(localUID string) (int, bool) {
	row, ok := m.rowByUID[localUID]
	return row, ok
}

// Permissions returns the cached restriction projection for a notebook.
func (m *FavoritesModel) Permissions(notebookLocalUID string) (NotebookPermissions, bool) {
	p, ok := m.permissions[notebookLocalUID]
	return p, ok
}

// Sort orders the rows by the given key and direction. Changing only the
// direction reverses the rows; changing the key re-sorts with a stable
// comparator. Either way every persistent index is remapped so selections
// keep tracking their items.
func (m *FavoritesModel) Sort(key SortKey, dir storage.Direction) {
	if key == m.sortKey && dir != m.sortDir {
		for i, j := 0, len(m.items)-1; i < j; i, j = i+1, j-1 {
			m.items[i], m.items[j] = m.items[j], m.items[i]
		}
		m.sortDir = dir
		m.reindex()
		m.rowsChanged()
		return
	}
	m.sortKey = key
	m.sortDir = dir
	m.applySort()
	m.rowsChanged()
}

func (m *FavoritesModel) applySort() {
	less := m.comparator()
	sort.SliceStable(m.items, func(i, j int) bool {
		if m.sortDir == storage.Descending {
			return less(m.items[j], m.items[i])
		}
		return less(m.items[i], m.items[j])
	})
	m.reindex()
}

func (m *FavoritesModel) comparator() func(a, b Item) bool {
	switch m.sortKey {
	case SortByDisplayName:
		return func(a, b Item) bool {
			return strings.ToUpper(a.DisplayName) < strings.ToUpper(b.DisplayName)
		}
	case SortByNumNotesTargeted:
		return func(a, b Item) bool { return a.TargetNoteCount < b.TargetNoteCount }
	default:
		return func(a, b Item) bool { return a.Type < b.Type }
	}
}

// SetDisplayName renames the entity behind a row. The rename is validated
// against the other rows of the same kind (case-insensitive) and against the
// cached notebook restrictions, then dispatched as a find+update chain. On
// update failure the model re-finds the entity to restore the authoritative
// state.
func (m *FavoritesModel) SetDisplayName(row int, newName string) error {
	item, ok := m.ItemAt(row)
	if !ok {
		return fmt.Errorf("row %d out of range", row)
	}
	if newName == "" {
		return fmt.Errorf("display name must not be empty")
	}
	if item.DisplayName == newName {
		return nil
	}
	upper := strings.ToUpper(newName)
	for _, other := range m.items {
		if other.LocalUID != item.LocalUID && other.Type == item.Type &&
			strings.ToUpper(other.DisplayName) == upper {
			return fmt.Errorf("%s named %q %w", item.Type, newName, storage.ErrConflict)
		}
	}
	if item.Type == ItemTypeNotebook {
		if p, ok := m.permissions[item.LocalUID]; ok && !p.CanUpdateNotebook {
			return storage.ErrRestriction
		}
	}

	id := m.findRequestFor(item.Type, item.LocalUID)
	m.pending[id] = pendingOp{
		kind:     pendingRenameFind,
		itemType: item.Type,
		localUID: item.LocalUID,
		newName:  newName,
		prevName: item.DisplayName,
	}
	// Optimistic row update; a failed update rolls it back from the store.
	m.items[row].DisplayName = newName
	m.rowsChanged()
	return nil
}

// RemoveRows unfavorites the entities behind count rows starting at first.
// The rows disappear immediately; each entity is re-read, its favorited
// flag cleared and an update dispatched.
func (m *FavoritesModel) RemoveRows(first, count int) error {
	if first < 0 || count <= 0 || first+count > len(m.items) {
		return fmt.Errorf("rows [%d, %d) out of range", first, first+count)
	}
	removed := make([]Item, count)
	copy(removed, m.items[first:first+count])
	m.items = append(m.items[:first], m.items[first+count:]...)
	m.reindex()

	for _, item := range removed {
		id := m.findRequestFor(item.Type, item.LocalUID)
		m.pending[id] = pendingOp{
			kind:     pendingUnfavoriteFind,
			itemType: item.Type,
			localUID: item.LocalUID,
		}
	}
	m.rowsChanged()
	return nil
}

// HandleResponse reconciles one worker response into the model. Responses
// to requests the model did not issue are ignored.
func (m *FavoritesModel) HandleResponse(resp worker.Response) {
	p, ok := m.pending[resp.ID]
	if !ok {
		return
	}
	delete(m.pending, resp.ID)

	if resp.Err != nil {
		m.handleFailure(p, resp)
		return
	}

	switch p.kind {
	case pendingList:
		m.handleListComplete(p, resp)
	case pendingCount:
		if row, ok := m.rowByUID[p.localUID]; ok {
			m.items[row].TargetNoteCount = resp.Payload.(worker.CountResult).Count
			m.rowsChanged()
		}
	case pendingRenameFind:
		m.dispatchRenameUpdate(p, resp)
	case pendingRenameUpdate:
		// The optimistic row value is now authoritative.
	case pendingRestoreFind:
		name, _, favorited := entityDisplayState(p.itemType, resp.Payload)
		// Re-insert covers a failed unfavorite of a still-favorited entity.
		m.reconcileEntity(p.itemType, p.localUID, name, favorited)
		m.rowsChanged()
	case pendingUnfavoriteFind:
		m.dispatchUnfavoriteUpdate(p, resp)
	case pendingUnfavoriteUpdate:
		// Row is already gone.
	}
}

func (m *FavoritesModel) handleFailure(p pendingOp, resp worker.Response) {
	switch p.kind {
	case pendingRenameFind:
		// The optimistic rename never reached the store; roll the row back.
		if row, ok := m.rowByUID[p.localUID]; ok {
			m.items[row].DisplayName = p.prevName
			m.rowsChanged()
		}
	case pendingRenameUpdate, pendingUnfavoriteUpdate:
		// Restore the authoritative state from the store.
		id := m.findRequestFor(p.itemType, p.localUID)
		m.pending[id] = pendingOp{kind: pendingRestoreFind, itemType: p.itemType, localUID: p.localUID}
	}
	m.notifyError(fmt.Errorf("favorites: %s %s: %w", p.itemType, opName(p.kind), resp.Err))
}

func opName(k pendingKind) string {
	switch k {
	case pendingList:
		return "list"
	case pendingCount:
		return "count"
	case pendingRenameFind, pendingRenameUpdate:
		return "rename"
	case pendingRestoreFind:
		return "restore"
	default:
		return "unfavorite"
	}
}

func (m *FavoritesModel) handleListComplete(p pendingOp, resp worker.Response) {
	var full bool
	switch p.itemType {
	case ItemTypeNotebook:
		result := resp.Payload.(worker.ListNotebooksResult)
		for _, nb := range result.Notebooks {
			m.permissions[nb.LocalUID] = permissionsFromRestrictions(nb.Restrictions)
			m.reconcileEntity(ItemTypeNotebook, nb.LocalUID, nb.Name, nb.Favorited)
			if nb.Favorited {
				id := m.session.CountNotesPerNotebook(nb.LocalUID)
				m.pending[id] = pendingOp{kind: pendingCount, itemType: ItemTypeNotebook, localUID: nb.LocalUID}
			}
		}
		full = len(result.Notebooks) == listPageSize
	case ItemTypeTag:
		result := resp.Payload.(worker.ListTagsResult)
		for _, tg := range result.Tags {
			m.reconcileEntity(ItemTypeTag, tg.LocalUID, tg.Name, tg.Favorited)
			if tg.Favorited {
				id := m.session.CountNotesPerTag(tg.LocalUID)
				m.pending[id] = pendingOp{kind: pendingCount, itemType: ItemTypeTag, localUID: tg.LocalUID}
			}
		}
		full = len(result.Tags) == listPageSize
	case ItemTypeNote:
		result := resp.Payload.(worker.ListNotesResult)
		for _, n := range result.Notes {
			m.reconcileEntity(ItemTypeNote, n.LocalUID, n.Title, n.Favorited)
		}
		full = len(result.Notes) == listPageSize
	case ItemTypeSavedSearch:
		result := resp.Payload.(worker.ListSavedSearchesResult)
		for _, search := range result.Searches {
			m.reconcileEntity(ItemTypeSavedSearch, search.LocalUID, search.Name, search.Favorited)
		}
		full = len(result.Searches) == listPageSize
	}
	if full {
		m.requestListPage(p.itemType, p.offset+listPageSize)
	}
	m.rowsChanged()
}

// reconcileEntity inserts, updates or removes the row for one listed entity
// according to its favorited flag.
func (m *FavoritesModel) reconcileEntity(t ItemType, localUID, name string, favorited bool) {
	row, present := m.rowByUID[localUID]
	switch {
	case favorited && present:
		m.items[row].DisplayName = name
	case favorited && !present:
		m.items = append(m.items, Item{LocalUID: localUID, Type: t, DisplayName: name})
		m.rowByUID[localUID] = len(m.items) - 1
	case !favorited && present:
		m.removeRowInternal(row)
	}
}

func (m *FavoritesModel) removeRowInternal(row int) {
	m.items = append(m.items[:row], m.items[row+1:]...)
	m.reindex()
}

func (m *FavoritesModel) requestListPage(t ItemType, offset int) {
	page := storage.Page{Limit: listPageSize, Offset: offset}
	var id uuid.UUID
	switch t {
	case ItemTypeNotebook:
		id = m.session.ListNotebooks(storage.NotebookFilter{}, page)
	case ItemTypeTag:
		id = m.session.ListTags(storage.TagFilter{}, page)
	case ItemTypeNote:
		id = m.session.ListNotes(storage.NoteFilter{}, storage.FindNoteOptions{}, page)
	case ItemTypeSavedSearch:
		id = m.session.ListSavedSearches(storage.SavedSearchFilter{}, page)
	}
	m.pending[id] = pendingOp{kind: pendingList, itemType: t, offset: offset}
}

func (m *FavoritesModel) findRequestFor(t ItemType, localUID string) uuid.UUID {
	key := storage.LocalKey(localUID)
	switch t {
	case ItemTypeNotebook:
		return m.session.FindNotebook(key)
	case ItemTypeTag:
		return m.session.FindTag(key)
	case ItemTypeNote:
		return m.session.FindNote(key, storage.FindNoteOptions{})
	default:
		return m.session.FindSavedSearch(key)
	}
}

// dispatchRenameUpdate applies the pending rename to the freshly loaded
// entity and sends the update.
func (m *FavoritesModel) dispatchRenameUpdate(p pendingOp, resp worker.Response) {
	next := pendingOp{
		kind:     pendingRenameUpdate,
		itemType: p.itemType,
		localUID: p.localUID,
		newName:  p.newName,
		prevName: p.prevName,
	}
	var id uuid.UUID
	switch p.itemType {
	case ItemTypeNotebook:
		nb := resp.Payload.(*types.Notebook)
		nb.Name = p.newName
		nb.Dirty = true
		id = m.session.UpdateNotebook(nb)
	case ItemTypeTag:
		tg := resp.Payload.(*types.Tag)
		tg.Name = p.newName
		tg.Dirty = true
		id = m.session.UpdateTag(tg)
	case ItemTypeNote:
		n := resp.Payload.(*types.Note)
		n.Title = p.newName
		n.Dirty = true
		id = m.session.UpdateNote(n, storage.UpdateNoteOptions{})
	default:
		search := resp.Payload.(*types.SavedSearch)
		search.Name = p.newName
		search.Dirty = true
		id = m.session.UpdateSavedSearch(search)
	}
	m.pending[id] = next
}

// dispatchUnfavoriteUpdate clears the favorited flag on the freshly loaded
// entity and sends the update.
func (m *FavoritesModel) dispatchUnfavoriteUpdate(p pendingOp, resp worker.Response) {
	next := pendingOp{kind: pendingUnfavoriteUpdate, itemType: p.itemType, localUID: p.localUID}
	var id uuid.UUID
	switch p.itemType {
	case ItemTypeNotebook:
		nb := resp.Payload.(*types.Notebook)
		nb.Favorited = false
		nb.Dirty = true
		id = m.session.UpdateNotebook(nb)
	case ItemTypeTag:
		tg := resp.Payload.(*types.Tag)
		tg.Favorited = false
		tg.Dirty = true
		id = m.session.UpdateTag(tg)
	case ItemTypeNote:
		n := resp.Payload.(*types.Note)
		n.Favorited = false
		n.Dirty = true
		id = m.session.UpdateNote(n, storage.UpdateNoteOptions{})
	default:
		search := resp.Payload.(*types.SavedSearch)
		search.Favorited = false
		search.Dirty = true
		id = m.session.UpdateSavedSearch(search)
	}
	m.pending[id] = next
}

// entityDisplayState extracts (name, uid, favorited) from a find payload.
func entityDisplayState(t ItemType, payload any) (string, string, bool) {
	switch t {
	case ItemTypeNotebook:
		nb := payload.(*types.Notebook)
		return nb.Name, nb.LocalUID, nb.Favorited
	case ItemTypeTag:
		tg := payload.(*types.Tag)
		return tg.Name, tg.LocalUID, tg.Favorited
	case ItemTypeNote:
		n := payload.(*types.Note)
		return n.Title, n.LocalUID, n.Favorited
	default:
		search := payload.(*types.SavedSearch)
		return search.Name, search.LocalUID, search.Favorited
	}
}

func (m *FavoritesModel) reindex() {
	for i := range m.rowByUID {
		delete(m.rowByUID, i)
	}
	for i, item := range m.items {
		m.rowByUID[item.LocalUID] = i
	}
}

func (m *FavoritesModel) rowsChanged() {
	if m.OnRowsChanged != nil {
		m.OnRowsChanged()
	}
}

func (m *FavoritesModel) notifyError(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}
