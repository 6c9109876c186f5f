package model

import (
	"errors"
	"testing"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func TestNoteModelListsNotebookNotesWithTagNames(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Inbox", Local: true}
	e.addNotebook(nb)
	other := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Elsewhere", Local: true}
	e.addNotebook(other)

	tg := &types.Tag{LocalUID: types.NewLocalUID(), Name: "urgent"}
	e.addTag(tg)

	mine := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "mine",
		IsActive:         true,
		TagLocalUIDs:     []string{tg.LocalUID},
	}
	e.addNote(mine)
	foreign := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: other.LocalUID,
		Title:            "foreign",
		IsActive:         true,
	}
	e.addNote(foreign)

	m := NewNoteModel(e.Session, nb.LocalUID)
	e.settle(m)

	if got := m.NumRows(); got != 1 {
		t.Fatalf("NumRows() = %d, want 1", got)
	}
	item, _ := m.ItemAt(0)
	if item.Title != "mine" {
		t.Errorf("row title = %q, want mine", item.Title)
	}
	if len(item.TagNames) != 1 || item.TagNames[0] != "urgent" {
		t.Errorf("tag names = %v, want [urgent]", item.TagNames)
	}
	if name, ok := m.TagName(tg.LocalUID); !ok || name != "urgent" {
		t.Errorf("TagName() = %q/%v, want urgent", name, ok)
	}
}

func TestNoteModelCreateGatedByRestrictions(t *testing.T) {
	e := newModelEnv(t)
	restricted := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "ReadOnly",
		Restrictions: &types.NotebookRestrictions{NoCreateNotes: types.Ptr(true)},
	}
	e.addNotebook(restricted)

	m := NewNoteModel(e.Session, restricted.LocalUID)
	e.settle(m)

	if m.CanCreateNotes() {
		t.Error("CanCreateNotes() = true for a no-create notebook")
	}
	if err := m.CreateNote("nope", ""); !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("CreateNote(restricted) = %v, want ErrRestriction", err)
	}
}

func TestNoteModelCreateAppendsRow(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Open", Local: true}
	e.addNotebook(nb)

	m := NewNoteModel(e.Session, nb.LocalUID)
	e.settle(m)

	if !m.CanCreateNotes() {
		t.Fatal("CanCreateNotes() = false for an unrestricted notebook")
	}
	if err := m.CreateNote("fresh", "<en-note/>"); err != nil {
		t.Fatalf("CreateNote() = %v", err)
	}
	e.settle(m)

	if got := m.NumRows(); got != 1 {
		t.Fatalf("NumRows() = %d after create, want 1", got)
	}
	item, _ := m.ItemAt(0)
	if item.Title != "fresh" {
		t.Errorf("created row title = %q", item.Title)
	}
}

func TestNoteModelSetTitlePersists(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Inbox", Local: true}
	e.addNotebook(nb)
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "draft",
		IsActive:         true,
	}
	e.addNote(n)

	m := NewNoteModel(e.Session, nb.LocalUID)
	e.settle(m)

	if err := m.SetTitle(0, "final"); err != nil {
		t.Fatalf("SetTitle() = %v", err)
	}
	e.settle(m)

	resp := e.await(e.Session.FindNote(storage.LocalKey(n.LocalUID), storage.FindNoteOptions{}), m)
	if resp.Err != nil {
		t.Fatalf("FindNote failed: %v", resp.Err)
	}
	stored := resp.Payload.(*types.Note)
	if stored.Title != "final" || !stored.Dirty {
		t.Errorf("persisted note = title %q dirty %v, want final/true", stored.Title, stored.Dirty)
	}
}

func TestNoteModelSetTitleGatedByRestrictions(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "Frozen",
		Restrictions: &types.NotebookRestrictions{NoUpdateNotes: types.Ptr(true)},
	}
	e.addNotebook(nb)
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "stuck",
		IsActive:         true,
	}
	e.addNote(n)

	m := NewNoteModel(e.Session, nb.LocalUID)
	e.settle(m)

	if err := m.SetTitle(0, "moved"); !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("SetTitle(restricted) = %v, want ErrRestriction", err)
	}
	item, _ := m.ItemAt(0)
	if item.Title != "stuck" {
		t.Errorf("view changed despite refusal: %q", item.Title)
	}
}
