package sqlite

import (
	"errors"
	"testing"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func TestNotebookRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	guid := types.NewLocalUID()
	nb := &types.Notebook{
		LocalUID:              types.NewLocalUID(),
		GUID:                  &guid,
		UpdateSequenceNum:     types.Ptr(int32(7)),
		Name:                  "Inbox",
		CreationTimestamp:     types.Ptr(int64(1500000000000)),
		ModificationTimestamp: types.Ptr(int64(1500000001000)),
		IsDefault:             true,
		Stack:                 types.Ptr("Personal"),
		Publishing: &types.NotebookPublishing{
			URI:       types.Ptr("inbox"),
			Ascending: types.Ptr(true),
		},
		Restrictions: &types.NotebookRestrictions{
			NoCreateNotes: types.Ptr(false),
			NoShareNotes:  types.Ptr(true),
		},
		Dirty: true,
	}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	got, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(nb.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook() failed: %v", err)
	}
	if got.Name != "Inbox" || got.GUID == nil || *got.GUID != guid {
		t.Errorf("FindNotebook() = %+v, want name Inbox and guid %s", got, guid)
	}
	if !got.IsDefault || got.Stack == nil || *got.Stack != "Personal" {
		t.Errorf("FindNotebook() lost is_default or stack: %+v", got)
	}
	if got.Publishing == nil || got.Publishing.URI == nil || *got.Publishing.URI != "inbox" {
		t.Errorf("FindNotebook() lost publishing block: %+v", got.Publishing)
	}
	if got.Restrictions == nil || got.Restrictions.NoShareNotes == nil || !*got.Restrictions.NoShareNotes {
		t.Errorf("FindNotebook() lost restrictions: %+v", got.Restrictions)
	}
	// Absent bits stay absent, set-to-false bits stay false.
	if got.Restrictions.NoCreateNotes == nil || *got.Restrictions.NoCreateNotes {
		t.Errorf("NoCreateNotes = %v, want present false", got.Restrictions.NoCreateNotes)
	}
	if got.Restrictions.NoUpdateNotes != nil {
		t.Errorf("NoUpdateNotes = %v, want absent", got.Restrictions.NoUpdateNotes)
	}
}

func TestNotebookDualIdentityLookup(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), GUID: &guid, Name: "Work"}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	byUID, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(nb.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook(by local uid) failed: %v", err)
	}
	byGUID, err := e.Store.FindNotebook(e.Ctx, storage.GUIDKey(guid))
	if err != nil {
		t.Fatalf("FindNotebook(by guid) failed: %v", err)
	}
	if byUID.LocalUID != byGUID.LocalUID || byUID.Name != byGUID.Name {
		t.Errorf("dual identity lookup disagrees: %+v vs %+v", byUID, byGUID)
	}
}

func TestNotebookNameConflictCaseInsensitive(t *testing.T) {
	e := newTestEnv(t)
	first := e.CreateNotebook("A")
	note := e.CreateNote(first, "survivor")

	second := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "a"}
	err := e.Store.AddNotebook(e.Ctx, second)
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("AddNotebook(duplicate case-insensitive name) = %v, want ErrConflict", err)
	}
	// The refused add must not have displaced the existing notebook or
	// cascaded away its notes.
	got, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(first.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook(victim) = %v, want intact row", err)
	}
	if got.Name != "A" {
		t.Errorf("victim notebook name = %q, want A", got.Name)
	}
	if _, err := e.Store.FindNote(e.Ctx, storage.LocalKey(note.LocalUID), storage.FindNoteOptions{}); err != nil {
		t.Errorf("FindNote(victim's note) = %v, want intact row", err)
	}
	count, err := e.Store.CountNotebooks(e.Ctx)
	if err != nil {
		t.Fatalf("CountNotebooks() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountNotebooks() = %d after refused add, want 1", count)
	}
}

func TestNotebookRenameToExistingNameConflicts(t *testing.T) {
	e := newTestEnv(t)
	victim := e.CreateNotebook("Taken")
	other := e.CreateNotebook("Mine")

	other.Name = "TAKEN"
	if err := e.Store.UpdateNotebook(e.Ctx, other); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("UpdateNotebook(rename to existing name) = %v, want ErrConflict", err)
	}
	// Both rows survive the refused rename.
	got, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(victim.LocalUID))
	if err != nil || got.Name != "Taken" {
		t.Errorf("victim after refused rename = %+v, %v", got, err)
	}
	got, err = e.Store.FindNotebook(e.Ctx, storage.LocalKey(other.LocalUID))
	if err != nil || got.Name != "Mine" {
		t.Errorf("renamed notebook after refusal = %+v, %v", got, err)
	}
}

func TestNotebookUpdateStealingGUIDConflicts(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	victim := &types.Notebook{LocalUID: types.NewLocalUID(), GUID: &guid, Name: "Synced"}
	if err := e.Store.AddNotebook(e.Ctx, victim); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	other := e.CreateNotebook("Other")

	other.GUID = &guid
	if err := e.Store.UpdateNotebook(e.Ctx, other); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("UpdateNotebook(repointed guid) = %v, want ErrConflict", err)
	}
	if _, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(victim.LocalUID)); err != nil {
		t.Errorf("victim lost after refused guid repoint: %v", err)
	}
}

func TestNotebookAddWithExistingGUIDConflicts(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), GUID: &guid, Name: "Synced"}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	// Same guid, no local uid: the add must probe and refuse.
	again := &types.Notebook{GUID: &guid, Name: "Synced again"}
	err := e.Store.AddNotebook(e.Ctx, again)
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("AddNotebook(existing guid) = %v, want ErrConflict", err)
	}
}

func TestNotebookUpdateResolvesLocalUIDFromGUID(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), GUID: &guid, Name: "Before"}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	update := &types.Notebook{GUID: &guid, Name: "After"}
	if err := e.Store.UpdateNotebook(e.Ctx, update); err != nil {
		t.Fatalf("UpdateNotebook() failed: %v", err)
	}
	if update.LocalUID != nb.LocalUID {
		t.Errorf("UpdateNotebook() assigned local uid %q, want %q", update.LocalUID, nb.LocalUID)
	}
	got, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(nb.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook() failed: %v", err)
	}
	if got.Name != "After" {
		t.Errorf("name = %q, want After", got.Name)
	}
}

func TestNotebookUpdateMissingFails(t *testing.T) {
	e := newTestEnv(t)
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Ghost"}
	if err := e.Store.UpdateNotebook(e.Ctx, nb); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdateNotebook(missing) = %v, want ErrNotFound", err)
	}
}

func TestNotebookIdempotentUpdate(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Stable")
	nb.Stack = types.Ptr("S")

	for i := 0; i < 2; i++ {
		if err := e.Store.UpdateNotebook(e.Ctx, nb); err != nil {
			t.Fatalf("UpdateNotebook() round %d failed: %v", i, err)
		}
	}
	got, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(nb.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook() failed: %v", err)
	}
	if got.Name != "Stable" || got.Stack == nil || *got.Stack != "S" {
		t.Errorf("double update changed the row: %+v", got)
	}
	count, err := e.Store.CountNotebooks(e.Ctx)
	if err != nil {
		t.Fatalf("CountNotebooks() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountNotebooks() = %d, want 1", count)
	}
}

func TestDefaultNotebookIsSingular(t *testing.T) {
	e := newTestEnv(t)
	first := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "First", IsDefault: true}
	if err := e.Store.AddNotebook(e.Ctx, first); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	second := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Second", IsDefault: true}
	if err := e.Store.AddNotebook(e.Ctx, second); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	got, err := e.Store.FindDefaultNotebook(e.Ctx)
	if err != nil {
		t.Fatalf("FindDefaultNotebook() failed: %v", err)
	}
	if got.LocalUID != second.LocalUID {
		t.Errorf("default notebook = %q, want %q", got.Name, second.Name)
	}
	old, err := e.Store.FindNotebook(e.Ctx, storage.LocalKey(first.LocalUID))
	if err != nil {
		t.Fatalf("FindNotebook() failed: %v", err)
	}
	if old.IsDefault {
		t.Error("previous default notebook kept its flag")
	}
}

func TestFindDefaultOrLastUsedNotebook(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.Store.FindDefaultOrLastUsedNotebook(e.Ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("FindDefaultOrLastUsedNotebook(empty) = %v, want ErrNotFound", err)
	}

	lastUsed := &types.Notebook{LocalUID: types.NewLocalUID(), Name: "Recent", IsLastUsed: true}
	if err := e.Store.AddNotebook(e.Ctx, lastUsed); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	got, err := e.Store.FindDefaultOrLastUsedNotebook(e.Ctx)
	if err != nil {
		t.Fatalf("FindDefaultOrLastUsedNotebook() failed: %v", err)
	}
	if got.LocalUID != lastUsed.LocalUID {
		t.Errorf("fallback = %q, want last-used notebook", got.Name)
	}
}

func TestListNotebooksInsertionOrderAndPagination(t *testing.T) {
	e := newTestEnv(t)
	names := []string{"Charlie", "alpha", "Bravo"}
	for _, name := range names {
		e.CreateNotebook(name)
	}

	all, err := e.Store.ListNotebooks(e.Ctx, storage.NotebookFilter{}, storage.Page{})
	if err != nil {
		t.Fatalf("ListNotebooks() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListNotebooks() returned %d notebooks, want 3", len(all))
	}
	for i, name := range names {
		if all[i].Name != name {
			t.Errorf("natural order[%d] = %q, want %q", i, all[i].Name, name)
		}
	}

	byName, err := e.Store.ListNotebooks(e.Ctx, storage.NotebookFilter{}, storage.Page{
		Order: storage.OrderByName, Limit: 2, Offset: 1,
	})
	if err != nil {
		t.Fatalf("ListNotebooks(by name) failed: %v", err)
	}
	if len(byName) != 2 || byName[0].Name != "Bravo" || byName[1].Name != "Charlie" {
		t.Errorf("paginated name order = %v, want [Bravo Charlie]", notebookNames(byName))
	}
}

func notebookNames(nbs []*types.Notebook) []string {
	names := make([]string, len(nbs))
	for i, nb := range nbs {
		names[i] = nb.Name
	}
	return names
}

func TestExpungeNotebookCascadesToNotes(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Doomed")
	tag := e.CreateTag("keep")
	note := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "going away",
		IsActive:         true,
		Local:            true,
		TagLocalUIDs:     []string{tag.LocalUID},
		Resources: []types.Resource{{
			Data: &types.ResourceData{Body: []byte("bytes"), Size: 5, Hash: []byte{1, 2}},
			Mime: "application/octet-stream",
		}},
	}
	if err := e.Store.AddNote(e.Ctx, note); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	if err := e.Store.ExpungeNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("ExpungeNotebook() failed: %v", err)
	}

	if _, err := e.Store.FindNote(e.Ctx, storage.LocalKey(note.LocalUID), storage.FindNoteOptions{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindNote(after cascade) = %v, want ErrNotFound", err)
	}
	resources, err := e.Store.CountResources(e.Ctx)
	if err != nil {
		t.Fatalf("CountResources() failed: %v", err)
	}
	if resources != 0 {
		t.Errorf("CountResources() = %d after cascade, want 0", resources)
	}
	// The tag survives; only the join entries go away.
	if _, err := e.Store.FindTag(e.Ctx, storage.LocalKey(tag.LocalUID)); err != nil {
		t.Errorf("FindTag(after cascade) = %v, want nil", err)
	}
}

func TestExpungeNonLocalNotebookRefused(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	nb := &types.Notebook{LocalUID: types.NewLocalUID(), GUID: &guid, Name: "Synced"}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	if err := e.Store.ExpungeNotebook(e.Ctx, nb); !errors.Is(err, storage.ErrExpungePolicy) {
		t.Fatalf("ExpungeNotebook(non-local) = %v, want ErrExpungePolicy", err)
	}
}

func TestUpdateRestrictedNotebookRefused(t *testing.T) {
	e := newTestEnv(t)
	nb := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "ReadOnly",
		Restrictions: &types.NotebookRestrictions{NoUpdateNotebook: types.Ptr(true)},
	}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	nb.Name = "Renamed"
	if err := e.Store.UpdateNotebook(e.Ctx, nb); !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("UpdateNotebook(restricted) = %v, want ErrRestriction", err)
	}
}

func TestSharedNotebooksOrderedByIndex(t *testing.T) {
	e := newTestEnv(t)
	guid := types.NewLocalUID()
	nb := &types.Notebook{
		LocalUID: types.NewLocalUID(),
		GUID:     &guid,
		Name:     "Shared",
		SharedNotebooks: []types.SharedNotebook{
			{ShareID: 2, NotebookGUID: guid, IndexInNotebook: 1, Username: types.Ptr("second")},
			{ShareID: 1, NotebookGUID: guid, IndexInNotebook: 0, Username: types.Ptr("first")},
		},
	}
	if err := e.Store.AddNotebook(e.Ctx, nb); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	shares, err := e.Store.ListSharedNotebooksPerNotebookGUID(e.Ctx, guid)
	if err != nil {
		t.Fatalf("ListSharedNotebooksPerNotebookGUID() failed: %v", err)
	}
	if len(shares) != 2 || shares[0].ShareID != 1 || shares[1].ShareID != 2 {
		t.Errorf("shares out of order: %+v", shares)
	}
}
