package model

import (
	"errors"
	"testing"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func TestFavoritesModelCollectsFavoritedEntities(t *testing.T) {
	e := newModelEnv(t)

	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "NB1", Favorited: true, Local: true}
	e.addNotebook(nb)
	plain := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Plain", Local: true}
	e.addNotebook(plain)
	tg := &types.Tag{LocalUID: types.NewLocalUID(), Name: "TG1", Favorited: true}
	e.addTag(tg)
	note := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "starred",
		IsActive:         true,
		Favorited:        true,
		TagLocalUIDs:     []string{tg.LocalUID},
	}
	e.addNote(note)

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	if got := m.NumRows(); got != 3 {
		t.Fatalf("NumRows() = %d, want 3 (NB1, TG1, starred)", got)
	}
	if _, ok := m.RowOf(plain.LocalUID); ok {
		t.Error("non-favorited notebook appeared in favorites")
	}

	row, ok := m.RowOf(nb.LocalUID)
	if !ok {
		t.Fatal("favorited notebook missing")
	}
	item, _ := m.ItemAt(row)
	if item.Type != ItemTypeNotebook || item.DisplayName != "NB1" {
		t.Errorf("notebook row = %+v", item)
	}
	if item.TargetNoteCount != 1 {
		t.Errorf("notebook target note count = %d, want 1", item.TargetNoteCount)
	}

	row, ok = m.RowOf(tg.LocalUID)
	if !ok {
		t.Fatal("favorited tag missing")
	}
	item, _ = m.ItemAt(row)
	if item.TargetNoteCount != 1 {
		t.Errorf("tag target note count = %d, want 1", item.TargetNoteCount)
	}
}

func TestFavoritesRenamePersists(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "NB1", Favorited: true, Local: true}
	e.addNotebook(nb)

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	row, ok := m.RowOf(nb.LocalUID)
	if !ok {
		t.Fatal("notebook missing from favorites")
	}
	if err := m.SetDisplayName(row, "New"); err != nil {
		t.Fatalf("SetDisplayName() = %v", err)
	}
	e.settle(m)

	item, _ := m.ItemAt(row)
	if item.DisplayName != "New" {
		t.Errorf("view row = %q, want New", item.DisplayName)
	}
	stored := e.findNotebook(nb.LocalUID)
	if stored.Name != "New" {
		t.Errorf("persisted name = %q, want New", stored.Name)
	}
	if !stored.Dirty {
		t.Error("rename did not mark the notebook dirty")
	}
}

func TestFavoritesRenameRefusedByRestrictions(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "NB1",
		Favorited:    true,
		Restrictions: &types.NotebookRestrictions{NoUpdateNotebook: types.Ptr(true)},
	}
	e.addNotebook(nb)

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	row, ok := m.RowOf(nb.LocalUID)
	if !ok {
		t.Fatal("notebook missing from favorites")
	}
	err := m.SetDisplayName(row, "New")
	if !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("SetDisplayName(restricted) = %v, want ErrRestriction", err)
	}
	item, _ := m.ItemAt(row)
	if item.DisplayName != "NB1" {
		t.Errorf("view row changed despite refusal: %q", item.DisplayName)
	}
	stored := e.findNotebook(nb.LocalUID)
	if stored.Name != "NB1" {
		t.Errorf("persisted name changed despite refusal: %q", stored.Name)
	}
}

func TestFavoritesRenameConflictWithSiblingRow(t *testing.T) {
	e := newModelEnv(t)
	first := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Alpha", Favorited: true, Local: true}
	second := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Beta", Favorited: true, Local: true}
	e.addNotebook(first)
	e.addNotebook(second)

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	row, _ := m.RowOf(second.LocalUID)
	err := m.SetDisplayName(row, "ALPHA")
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("SetDisplayName(duplicate) = %v, want ErrConflict", err)
	}
}

func TestFavoritesRemoveRowsUnfavorites(t *testing.T) {
	e := newModelEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "NB1", Favorited: true, Local: true}
	e.addNotebook(nb)

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	row, ok := m.RowOf(nb.LocalUID)
	if !ok {
		t.Fatal("notebook missing from favorites")
	}
	if err := m.RemoveRows(row, 1); err != nil {
		t.Fatalf("RemoveRows() = %v", err)
	}
	if _, ok := m.RowOf(nb.LocalUID); ok {
		t.Error("row still present after RemoveRows")
	}
	e.settle(m)

	stored := e.findNotebook(nb.LocalUID)
	if stored.Favorited {
		t.Error("entity still favorited after RemoveRows")
	}
}

func TestFavoritesSortStableAndReversible(t *testing.T) {
	e := newModelEnv(t)
	names := []string{"bravo", "Alpha", "charlie"}
	uids := make([]string, len(names))
	for i, name := range names {
		nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: name, Favorited: true, Local: true}
		uids[i] = nb.LocalUID
		e.addNotebook(nb)
	}

	m := NewFavoritesModel(e.Session)
	e.settle(m)

	m.Sort(SortByDisplayName, storage.Ascending)
	wantAsc := []string{"Alpha", "bravo", "charlie"}
	for i, want := range wantAsc {
		item, _ := m.ItemAt(i)
		if item.DisplayName != want {
			t.Errorf("asc[%d] = %q, want %q", i, item.DisplayName, want)
		}
	}
	// Persistent indices track items across the sort.
	for _, uid := range uids {
		row, ok := m.RowOf(uid)
		if !ok {
			t.Fatalf("uid %s lost by sort", uid)
		}
		item, _ := m.ItemAt(row)
		if item.LocalUID != uid {
			t.Errorf("RowOf(%s) points at %s", uid, item.LocalUID)
		}
	}

	// Same key, flipped direction: a pure reversal.
	m.Sort(SortByDisplayName, storage.Descending)
	for i, want := range []string{"charlie", "bravo", "Alpha"} {
		item, _ := m.ItemAt(i)
		if item.DisplayName != want {
			t.Errorf("desc[%d] = %q, want %q", i, item.DisplayName, want)
		}
	}
}

func TestFavoritesUpdateFailureRestoresAuthoritativeState(t *testing.T) {
	e := newModelEnv(t)
	first := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Taken", Favorited: true, Local: true}
	e.addNotebook(first)
	// A non-favorited sibling the model does not know as a row, so the
	// duplicate-name precheck cannot catch the rename; the store will.
	hidden := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Hidden", Local: true}
	e.addNotebook(hidden)
	fav := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Mine", Favorited: true, Local: true}
	e.addNotebook(fav)

	m := NewFavoritesModel(e.Session)
	var gotErr error
	m.OnError = func(err error) { gotErr = err }
	e.settle(m)

	row, _ := m.RowOf(fav.LocalUID)
	if err := m.SetDisplayName(row, "HIDDEN"); err != nil {
		t.Fatalf("SetDisplayName() = %v", err)
	}
	e.settle(m)

	if gotErr == nil {
		t.Error("OnError never fired for the conflicting rename")
	}
	// The view reverted to the store's state.
	row, ok := m.RowOf(fav.LocalUID)
	if !ok {
		t.Fatal("row lost after failed rename")
	}
	item, _ := m.ItemAt(row)
	if item.DisplayName != "Mine" {
		t.Errorf("view row = %q after failed rename, want Mine", item.DisplayName)
	}
	stored := e.findNotebook(fav.LocalUID)
	if stored.Name != "Mine" {
		t.Errorf("persisted name = %q, want Mine", stored.Name)
	}
}
