package sqlite

import (
	"context"
	"log/slog"
	"testing"

	"github.com/notefold/notefold/internal/types"
)

// testEnv provides a test environment with an open per-test store and
// helpers for building entities. Cleanup is automatic.
type testEnv struct {
	t     *testing.T
	Store *LocalStorage
	Ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := New(t.TempDir(), slog.Default())
	ctx := context.Background()
	if err := store.SwitchUser(ctx, "test-user", 1, false); err != nil {
		t.Fatalf("SwitchUser() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &testEnv{t: t, Store: store, Ctx: ctx}
}

// CreateNotebook adds a notebook with the given name and returns it with its
// local uid populated.
func (e *testEnv) CreateNotebook(name string) *types.Notebook {
	e.t.Helper()
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: name, Local: true}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		e.t.Fatalf("AddNotebook(%q) failed: %v", name, err)
	}
	return nb
}

// CreateNote adds a note with the given title into the notebook.
func (e *testEnv) CreateNote(nb *types.Notebook, title string) *types.Note {
	e.t.Helper()
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            title,
		Content:          "<en-note>" + title + "</en-note>",
		IsActive:         true,
		Local:            true,
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		e.t.Fatalf("AddNote(%q) failed: %v", title, err)
	}
	return n
}

// CreateTag adds a tag with the given name and a guid.
func (e *testEnv) CreateTag(name string) *types.Tag {
	e.t.Helper()
	tag := &types.Tag{
		LocalUID: types.NewLocalUID(),
		GUID:     types.Ptr(types.NewLocalUID()),
		Name:     name,
	}
	if err := e.Store.AddTag(e.Ctx, tag); err != nil {
		e.t.Fatalf("AddTag(%q) failed: %v", name, err)
	}
	return tag
}

// CreateSavedSearch adds a saved search with the given name.
func (e *testEnv) CreateSavedSearch(name, query string) *types.SavedSearch {
	e.t.Helper()
	search := &types.SavedSearch{LocalUID: types.NewLocalUID(), Name: name, Query: query, Local: true}
	if err := e.Store.AddSavedSearch(e.Ctx, search); err != nil {
		e.t.Fatalf("AddSavedSearch(%q) failed: %v", name, err)
	}
	return search
}
