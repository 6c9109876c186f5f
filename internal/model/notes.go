package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
	"github.com/notefold/notefold/internal/worker"
)

// NoteItem is one row of the notes table: the projection of a note the
// table actually renders, plus the tag names resolved so far.
type NoteItem struct {
	LocalUID              string
	Title                 string
	NotebookLocalUID      string
	CreationTimestamp     *types.Timestamp
	ModificationTimestamp *types.Timestamp
	Favorited             bool
	TagLocalUIDs          []string
	TagNames              []string
}

type notePendingKind int

const (
	notePendingList notePendingKind = iota
	notePendingNotebookFind
	notePendingTagFind
	notePendingCreate
	notePendingTitleFind
	notePendingTitleUpdate
	notePendingRestoreFind
)

type notePendingOp struct {
	kind      notePendingKind
	localUID  string // note or tag uid, depending on kind
	newTitle  string
	prevTitle string
	offset    int
}

// NoteModel projects the notes of one notebook into an ordered row set. It
// gates note creation and title edits on the notebook's cached restrictions
// and resolves tag names lazily by issuing FindTag requests for uids it has
// not seen yet.
type NoteModel struct {
	session          *worker.Session
	notebookLocalUID string

	items    []NoteItem
	rowByUID map[string]int

	tagNames      map[string]string // tag local uid -> display name
	tagsRequested map[string]bool   // in-flight FindTag guards

	permissions    NotebookPermissions
	permissionsSet bool

	pending map[uuid.UUID]notePendingOp

	OnRowsChanged func()
	OnError       func(error)
}

// NewNoteModel builds the model for one notebook and issues the initial
// listing plus the notebook fetch that seeds the restriction cache.
func NewNoteModel(session *worker.Session, notebookLocalUID string) *NoteModel {
	m := &NoteModel{
		session:          session,
		notebookLocalUID: notebookLocalUID,
		rowByUID:         make(map[string]int),
		tagNames:         make(map[string]string),
		tagsRequested:    make(map[string]bool),
		pending:          make(map[uuid.UUID]notePendingOp),
	}
	id := session.FindNotebook(storage.LocalKey(notebookLocalUID))
	m.pending[id] = notePendingOp{kind: notePendingNotebookFind}
	m.requestListPage(0)
	return m
}

// NumRows returns the row count.
func (m *NoteModel) NumRows() int { return len(m.items) }

// ItemAt returns the row at the given position.
func (m *NoteModel) ItemAt(row int) (NoteItem, bool) {
	if row < 0 || row >= len(m.items) {
		return NoteItem{}, false
	}
	return m.items[row], true
}

// TagName returns the resolved display name of a tag, if known yet.
func (m *NoteModel) TagName(tagLocalUID string) (string, bool) {
	name, ok := m.tagNames[tagLocalUID]
	return name, ok
}

// CanCreateNotes reports whether the notebook's restrictions allow creating
// notes. Until the notebook fetch completes the answer is conservative.
func (m *NoteModel) CanCreateNotes() bool {
	if !m.permissionsSet {
		return false
	}
	return m.permissions.CanCreateNotes
}

// CreateNote dispatches a new-note add into the model's notebook, gated on
// the cached can-create permission.
func (m *NoteModel) CreateNote(title, content string) error {
	if !m.CanCreateNotes() {
		return storage.ErrRestriction
	}
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: m.notebookLocalUID,
		Title:            title,
		Content:          content,
		IsActive:         true,
		Local:            true,
		Dirty:            true,
	}
	id := m.session.AddNote(n)
	m.pending[id] = notePendingOp{kind: notePendingCreate, localUID: n.LocalUID}
	return nil
}

// SetTitle renames the note behind a row through a find+update chain,
// gated on the notebook's can-update permission. On update failure the
// authoritative state is re-read.
func (m *NoteModel) SetTitle(row int, newTitle string) error {
	item, ok := m.ItemAt(row)
	if !ok {
		return fmt.Errorf("row %d out of range", row)
	}
	if m.permissionsSet && !m.permissions.CanUpdateNotes {
		return storage.ErrRestriction
	}
	if item.Title == newTitle {
		return nil
	}
	id := m.session.FindNote(storage.LocalKey(item.LocalUID), storage.FindNoteOptions{})
	m.pending[id] = notePendingOp{
		kind:      notePendingTitleFind,
		localUID:  item.LocalUID,
		newTitle:  newTitle,
		prevTitle: item.Title,
	}
	m.items[row].Title = newTitle
	m.rowsChanged()
	return nil
}

// HandleResponse reconciles one worker response into the model.
func (m *NoteModel) HandleResponse(resp worker.Response) {
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
	case notePendingList:
		result := resp.Payload.(worker.ListNotesResult)
		for _, n := range result.Notes {
			m.upsertNote(n)
		}
		if len(result.Notes) == listPageSize {
			m.requestListPage(p.offset + listPageSize)
		}
		m.rowsChanged()
	case notePendingNotebookFind:
		nb := resp.Payload.(*types.Notebook)
		m.permissions = permissionsFromRestrictions(nb.Restrictions)
		m.permissionsSet = true
	case notePendingTagFind:
		tg := resp.Payload.(*types.Tag)
		m.tagNames[tg.LocalUID] = tg.Name
		m.refreshTagNames(tg.LocalUID)
		m.rowsChanged()
	case notePendingCreate:
		n := resp.Payload.(*types.Note)
		m.upsertNote(n)
		m.rowsChanged()
	case notePendingTitleFind:
		n := resp.Payload.(*types.Note)
		n.Title = p.newTitle
		n.Dirty = true
		id := m.session.UpdateNote(n, storage.UpdateNoteOptions{})
		m.pending[id] = notePendingOp{
			kind:      notePendingTitleUpdate,
			localUID:  p.localUID,
			newTitle:  p.newTitle,
			prevTitle: p.prevTitle,
		}
	case notePendingTitleUpdate:
		// Optimistic value confirmed.
	case notePendingRestoreFind:
		n := resp.Payload.(*types.Note)
		m.upsertNote(n)
		m.rowsChanged()
	}
}

func (m *NoteModel) handleFailure(p notePendingOp, resp worker.Response) {
	switch p.kind {
	case notePendingTitleFind:
		if row, ok := m.rowByUID[p.localUID]; ok {
			m.items[row].Title = p.prevTitle
			m.rowsChanged()
		}
	case notePendingTitleUpdate:
		id := m.session.FindNote(storage.LocalKey(p.localUID), storage.FindNoteOptions{})
		m.pending[id] = notePendingOp{kind: notePendingRestoreFind, localUID: p.localUID}
	}
	m.notifyError(fmt.Errorf("notes: %w", resp.Err))
}

func (m *NoteModel) upsertNote(n *types.Note) {
	// A note that moved to another notebook or was deleted leaves the view.
	belongs := n.NotebookLocalUID == m.notebookLocalUID && n.DeletionTimestamp == nil
	row, present := m.rowByUID[n.LocalUID]
	if !belongs {
		if present {
			m.items = append(m.items[:row], m.items[row+1:]...)
			m.reindex()
		}
		return
	}

	item := NoteItem{
		LocalUID:              n.LocalUID,
		Title:                 n.Title,
		NotebookLocalUID:      n.NotebookLocalUID,
		CreationTimestamp:     n.CreationTimestamp,
		ModificationTimestamp: n.ModificationTimestamp,
		Favorited:             n.Favorited,
		TagLocalUIDs:          append([]string(nil), n.TagLocalUIDs...),
	}
	item.TagNames = make([]string, len(item.TagLocalUIDs))
	for i, uid := range item.TagLocalUIDs {
		if name, ok := m.tagNames[uid]; ok {
			item.TagNames[i] = name
		} else {
			m.requestTagName(uid)
		}
	}

	if present {
		m.items[row] = item
	} else {
		m.items = append(m.items, item)
		m.rowByUID[n.LocalUID] = len(m.items) - 1
	}
}

// requestTagName issues a FindTag for an unresolved uid, once.
func (m *NoteModel) requestTagName(tagLocalUID string) {
	if m.tagsRequested[tagLocalUID] {
		return
	}
	m.tagsRequested[tagLocalUID] = true
	id := m.session.FindTag(storage.LocalKey(tagLocalUID))
	m.pending[id] = notePendingOp{kind: notePendingTagFind, localUID: tagLocalUID}
}

// refreshTagNames fills the newly resolved name into every row carrying the
// tag.
func (m *NoteModel) refreshTagNames(tagLocalUID string) {
	name := m.tagNames[tagLocalUID]
	for i := range m.items {
		for j, uid := range m.items[i].TagLocalUIDs {
			if uid == tagLocalUID {
				m.items[i].TagNames[j] = name
			}
		}
	}
}

func (m *NoteModel) requestListPage(offset int) {
	id := m.session.ListNotes(
		storage.NoteFilter{NotebookLocalUID: m.notebookLocalUID},
		storage.FindNoteOptions{},
		storage.Page{Limit: listPageSize, Offset: offset},
	)
	m.pending[id] = notePendingOp{kind: notePendingList, offset: offset}
}

func (m *NoteModel) reindex() {
	for uid := range m.rowByUID {
		delete(m.rowByUID, uid)
	}
	for i, item := range m.items {
		m.rowByUID[item.LocalUID] = i
	}
}

func (m *NoteModel) rowsChanged() {
	if m.OnRowsChanged != nil {
		m.OnRowsChanged()
	}
}

func (m *NoteModel) notifyError(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}
