package sqlite

import (
	"bytes"
	"errors"
	"testing"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func TestNoteRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")

	n := &types.Note{
		LocalUID:              types.NewLocalUID(),
		NotebookLocalUID:      nb.LocalUID,
		Title:                 "Hello",
		Content:               "<en-note>hi</en-note>",
		CreationTimestamp:     types.Ptr(int64(1600000000000)),
		ModificationTimestamp: types.Ptr(int64(1600000001000)),
		IsActive:              true,
		Thumbnail:             []byte{0xff, 0xd8},
		Attributes: &types.NoteAttributes{
			Author:                  types.Ptr("alice"),
			Latitude:                types.Ptr(52.52),
			PlaceName:               types.Ptr("Berlin"),
			ApplicationDataKeysOnly: []string{"seen"},
			ApplicationDataFullMap:  map[string]string{"color": "blue"},
			Classifications:         map[string]string{"kind": "memo"},
		},
		Dirty: true,
		Local: true,
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	got, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if got.Title != "Hello" || got.NotebookLocalUID != nb.LocalUID {
		t.Errorf("FindNote() = title %q notebook %q, want Hello/%q", got.Title, got.NotebookLocalUID, nb.LocalUID)
	}
	if got.Content != "<en-note>hi</en-note>" {
		t.Errorf("content = %q", got.Content)
	}
	if !bytes.Equal(got.Thumbnail, []byte{0xff, 0xd8}) {
		t.Errorf("thumbnail lost: %v", got.Thumbnail)
	}
	a := got.Attributes
	if a == nil || a.Author == nil || *a.Author != "alice" || a.PlaceName == nil || *a.PlaceName != "Berlin" {
		t.Fatalf("attributes lost: %+v", a)
	}
	if len(a.ApplicationDataKeysOnly) != 1 || a.ApplicationDataKeysOnly[0] != "seen" {
		t.Errorf("keys-only set = %v, want [seen]", a.ApplicationDataKeysOnly)
	}
	if a.ApplicationDataFullMap["color"] != "blue" || a.Classifications["kind"] != "memo" {
		t.Errorf("app data maps lost: %+v %+v", a.ApplicationDataFullMap, a.Classifications)
	}
	// Absent optionals stay absent.
	if a.Longitude != nil || a.SubjectDate != nil {
		t.Errorf("absent attributes materialized: %+v", a)
	}
}

func TestNoteTagOrderingPreserved(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	t1 := e.CreateTag("t1")
	t2 := e.CreateTag("t2")

	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "N1",
		IsActive:         true,
		TagGUIDs:         []string{*t1.GUID, *t2.GUID},
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	got, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if len(got.TagGUIDs) != 2 || got.TagGUIDs[0] != *t1.GUID || got.TagGUIDs[1] != *t2.GUID {
		t.Errorf("tag guids = %v, want [%s %s]", got.TagGUIDs, *t1.GUID, *t2.GUID)
	}
	if len(got.TagLocalUIDs) != 2 || got.TagLocalUIDs[0] != t1.LocalUID || got.TagLocalUIDs[1] != t2.LocalUID {
		t.Errorf("tag local uids = %v, want ordered pair", got.TagLocalUIDs)
	}
}

func TestNoteWithUnknownTagFails(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "orphan tag",
		IsActive:         true,
		TagGUIDs:         []string{types.NewLocalUID()},
	}
	if err := e.Store.AddNote(e.Ctx, n); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("AddNote(unknown tag) = %v, want ErrNotFound", err)
	}
	// The failed add must leave the store unchanged.
	count, err := e.Store.CountNotes(e.Ctx)
	if err != nil {
		t.Fatalf("CountNotes() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountNotes() = %d after failed add, want 0", count)
	}
}

func TestExpungeNoteRemovesResourcesAndJoins(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	tag := e.CreateTag("pin")

	n := &types.Note{
		LocalUID:          types.NewLocalUID(),
		NotebookLocalUID:  nb.LocalUID,
		Title:             "doomed",
		IsActive:          false,
		Local:             true,
		DeletionTimestamp: types.Ptr(int64(123)),
		TagLocalUIDs:      []string{tag.LocalUID},
		Resources: []types.Resource{{
			Data: &types.ResourceData{Body: []byte("data"), Size: 4, Hash: []byte{9}},
			Mime: "text/plain",
		}},
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	if err := e.Store.ExpungeNote(e.Ctx, n); err != nil {
		t.Fatalf("ExpungeNote() failed: %v", err)
	}
	if _, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindNote(expunged) = %v, want ErrNotFound", err)
	}
	resources, err := e.Store.CountResources(e.Ctx)
	if err != nil {
		t.Fatalf("CountResources() failed: %v", err)
	}
	if resources != 0 {
		t.Errorf("CountResources() = %d, want 0", resources)
	}
	perTag, err := e.Store.CountNotesPerTag(e.Ctx, tag.LocalUID)
	if err != nil {
		t.Fatalf("CountNotesPerTag() failed: %v", err)
	}
	if perTag != 0 {
		t.Errorf("CountNotesPerTag() = %d, want 0", perTag)
	}
}

func TestDeleteNoteMarksSyncedNote(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	guid := types.NewLocalUID()
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		GUID:             &guid,
		NotebookLocalUID: nb.LocalUID,
		Title:            "synced",
		IsActive:         true,
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	// Without a deletion timestamp the delete is refused.
	if err := e.Store.DeleteNote(e.Ctx, &types.Note{LocalUID: n.LocalUID}); !errors.Is(err, storage.ErrExpungePolicy) {
		t.Fatalf("DeleteNote(no timestamp) = %v, want ErrExpungePolicy", err)
	}

	del := &types.Note{LocalUID: n.LocalUID, DeletionTimestamp: types.Ptr(int64(123))}
	if err := e.Store.DeleteNote(e.Ctx, del); err != nil {
		t.Fatalf("DeleteNote() failed: %v", err)
	}

	got, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if got.DeletionTimestamp == nil || *got.DeletionTimestamp != 123 || !got.Dirty || got.IsActive {
		t.Errorf("deleted note state wrong: %+v", got)
	}
	// Deleted notes are hidden from the count and the default listing.
	count, err := e.Store.CountNotes(e.Ctx)
	if err != nil {
		t.Fatalf("CountNotes() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountNotes() = %d, want 0", count)
	}
	notes, err := e.Store.ListNotes(e.Ctx, storage.NoteFilter{}, storage.FindNoteOptions{}, storage.Page{})
	if err != nil {
		t.Fatalf("ListNotes() failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("ListNotes() returned %d deleted notes", len(notes))
	}
	// Expunging the synced note is still refused.
	if err := e.Store.ExpungeNote(e.Ctx, &types.Note{LocalUID: n.LocalUID}); !errors.Is(err, storage.ErrExpungePolicy) {
		t.Fatalf("ExpungeNote(synced) = %v, want ErrExpungePolicy", err)
	}
}

func TestNoteRestrictions(t *testing.T) {
	e := newTestEnv(t)
	restricted := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "NoNewNotes",
		Restrictions: &types.NotebookRestrictions{NoCreateNotes: types.Ptr(true)},
	}
	if err := e.Store.AddNotebook(e.Ctx, restricted); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}

	n := &types.Note{LocalUID: types.NewLocalUID(), NotebookLocalUID: restricted.LocalUID, Title: "nope", IsActive: true}
	if err := e.Store.AddNote(e.Ctx, n); !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("AddNote(restricted) = %v, want ErrRestriction", err)
	}
	count, err := e.Store.CountNotes(e.Ctx)
	if err != nil {
		t.Fatalf("CountNotes() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("store changed by refused add: %d notes", count)
	}

	// no_update_notes blocks updates but not adds.
	updatable := &types.Notebook{
		LocalUID:     types.NewLocalUID(),
		Name:         "Frozen",
		Restrictions: &types.NotebookRestrictions{NoUpdateNotes: types.Ptr(true)},
	}
	if err := e.Store.AddNotebook(e.Ctx, updatable); err != nil {
		t.Fatalf("AddNotebook() failed: %v", err)
	}
	frozen := &types.Note{LocalUID: types.NewLocalUID(), NotebookLocalUID: updatable.LocalUID, Title: "frozen", IsActive: true}
	if err := e.Store.AddNote(e.Ctx, frozen); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}
	frozen.Title = "thawed"
	if err := e.Store.UpdateNote(e.Ctx, frozen, storage.UpdateNoteOptions{}); !errors.Is(err, storage.ErrRestriction) {
		t.Fatalf("UpdateNote(restricted) = %v, want ErrRestriction", err)
	}
}

func TestUpdateNotePreservesCollectionsWhenFlagsUnset(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	tag := e.CreateTag("sticky")

	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "original",
		IsActive:         true,
		TagLocalUIDs:     []string{tag.LocalUID},
		Resources: []types.Resource{{
			Data: &types.ResourceData{Body: []byte("body"), Size: 4, Hash: []byte{1}},
			Mime: "text/plain",
		}},
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	update := &types.Note{
		LocalUID:         n.LocalUID,
		NotebookLocalUID: nb.LocalUID,
		Title:            "renamed",
		IsActive:         true,
	}
	if err := e.Store.UpdateNote(e.Ctx, update, storage.UpdateNoteOptions{}); err != nil {
		t.Fatalf("UpdateNote() failed: %v", err)
	}

	got, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{WithResourceBinaryData: true})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("title = %q, want renamed", got.Title)
	}
	if len(got.TagLocalUIDs) != 1 || got.TagLocalUIDs[0] != tag.LocalUID {
		t.Errorf("tags not preserved: %v", got.TagLocalUIDs)
	}
	if len(got.Resources) != 1 || !bytes.Equal(got.Resources[0].Data.Body, []byte("body")) {
		t.Errorf("resources not preserved: %+v", got.Resources)
	}

	// With UpdateTags set, an empty tag list clears the join. The first
	// update copied the preserved collections into update; empty them.
	update.Title = "untagged"
	update.TagLocalUIDs, update.TagGUIDs, update.Resources = nil, nil, nil
	if err := e.Store.UpdateNote(e.Ctx, update, storage.UpdateNoteOptions{UpdateTags: true, UpdateResources: true}); err != nil {
		t.Fatalf("UpdateNote(rewrite collections) failed: %v", err)
	}
	got, err = e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if len(got.TagLocalUIDs) != 0 || len(got.Resources) != 0 {
		t.Errorf("collections not cleared: tags %v resources %d", got.TagLocalUIDs, len(got.Resources))
	}
}

func TestFindNoteResourceBodiesOnRequest(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: nb.LocalUID,
		Title:            "attachment",
		IsActive:         true,
		Resources: []types.Resource{{
			Data:        &types.ResourceData{Body: []byte("payload"), Size: 7, Hash: []byte{7}},
			Recognition: &types.ResourceData{Body: []byte("reco"), Size: 4, Hash: []byte{8}},
			Mime:        "text/plain",
		}},
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	lean, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote() failed: %v", err)
	}
	if len(lean.Resources) != 1 {
		t.Fatalf("resources = %d, want 1", len(lean.Resources))
	}
	r := lean.Resources[0]
	if r.Data == nil || r.Data.Size != 7 || len(r.Data.Body) != 0 {
		t.Errorf("lean read: data = %+v, want size 7 and no body", r.Data)
	}
	if r.Recognition == nil || r.Recognition.Size != 4 || len(r.Recognition.Body) != 0 {
		t.Errorf("lean read: recognition = %+v, want size 4 and no body", r.Recognition)
	}

	full, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{WithResourceBinaryData: true})
	if err != nil {
		t.Fatalf("FindNote(with bodies) failed: %v", err)
	}
	r = full.Resources[0]
	if !bytes.Equal(r.Data.Body, []byte("payload")) || !bytes.Equal(r.Recognition.Body, []byte("reco")) {
		t.Errorf("full read lost bodies: %+v", r)
	}
}

func TestListNotesPerNotebookAndPerTag(t *testing.T) {
	e := newTestEnv(t)
	inbox := e.CreateNotebook("Inbox")
	archive := e.CreateNotebook("Archive")
	tag := e.CreateTag("urgent")

	e.CreateNote(inbox, "one")
	tagged := &types.Note{
		LocalUID:         types.NewLocalUID(),
		NotebookLocalUID: inbox.LocalUID,
		Title:            "two",
		IsActive:         true,
		TagLocalUIDs:     []string{tag.LocalUID},
	}
	if err := e.Store.AddNote(e.Ctx, tagged); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}
	e.CreateNote(archive, "three")

	inboxNotes, err := e.Store.ListNotes(e.Ctx, storage.NoteFilter{NotebookLocalUID: inbox.LocalUID}, storage.FindNoteOptions{}, storage.Page{})
	if err != nil {
		t.Fatalf("ListNotes(per notebook) failed: %v", err)
	}
	if len(inboxNotes) != 2 {
		t.Errorf("inbox notes = %d, want 2", len(inboxNotes))
	}

	urgent, err := e.Store.ListNotes(e.Ctx, storage.NoteFilter{TagLocalUID: tag.LocalUID}, storage.FindNoteOptions{}, storage.Page{})
	if err != nil {
		t.Fatalf("ListNotes(per tag) failed: %v", err)
	}
	if len(urgent) != 1 || urgent[0].Title != "two" {
		t.Errorf("urgent notes = %v, want [two]", len(urgent))
	}

	perNotebook, err := e.Store.CountNotesPerNotebook(e.Ctx, inbox.LocalUID)
	if err != nil {
		t.Fatalf("CountNotesPerNotebook() failed: %v", err)
	}
	if perNotebook != 2 {
		t.Errorf("CountNotesPerNotebook() = %d, want 2", perNotebook)
	}
	perTag, err := e.Store.CountNotesPerTag(e.Ctx, tag.LocalUID)
	if err != nil {
		t.Fatalf("CountNotesPerTag() failed: %v", err)
	}
	if perTag != 1 {
		t.Errorf("CountNotesPerTag() = %d, want 1", perTag)
	}
}

func TestNoteUpdateStealingGUIDConflicts(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	guid := types.NewLocalUID()
	victim := &types.Note{
		LocalUID:         types.NewLocalUID(),
		GUID:             &guid,
		NotebookLocalUID: nb.LocalUID,
		Title:            "synced",
		IsActive:         true,
		Resources: []types.Resource{{
			Data: &types.ResourceData{Body: []byte("keep"), Size: 4, Hash: []byte{3}},
			Mime: "text/plain",
		}},
	}
	if err := e.Store.AddNote(e.Ctx, victim); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}
	other := e.CreateNote(nb, "other")

	// Repointing another note's guid must not silently replace the victim
	// and cascade away its resources.
	other.GUID = &guid
	if err := e.Store.UpdateNote(e.Ctx, other, storage.UpdateNoteOptions{}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("UpdateNote(repointed guid) = %v, want ErrConflict", err)
	}
	if _, err := e.Store.FindNote(e.Ctx, storage.LocalKey(victim.LocalUID), storage.FindNoteOptions{}); err != nil {
		t.Errorf("victim lost after refused guid repoint: %v", err)
	}
	resources, err := e.Store.CountResources(e.Ctx)
	if err != nil {
		t.Fatalf("CountResources() failed: %v", err)
	}
	if resources != 1 {
		t.Errorf("CountResources() = %d after refused repoint, want 1", resources)
	}
}

func TestNoteDualIdentityLookup(t *testing.T) {
	e := newTestEnv(t)
	nb := e.CreateNotebook("Inbox")
	guid := types.NewLocalUID()
	n := &types.Note{
		LocalUID:         types.NewLocalUID(),
		GUID:             &guid,
		NotebookLocalUID: nb.LocalUID,
		Title:            "both ways",
		IsActive:         true,
	}
	if err := e.Store.AddNote(e.Ctx, n); err != nil {
		t.Fatalf("AddNote() failed: %v", err)
	}

	byUID, err := e.Store.FindNote(e.Ctx, storage.LocalKey(n.LocalUID), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote(by local uid) failed: %v", err)
	}
	byGUID, err := e.Store.FindNote(e.Ctx, storage.GUIDKey(guid), storage.FindNoteOptions{})
	if err != nil {
		t.Fatalf("FindNote(by guid) failed: %v", err)
	}
	if byUID.LocalUID != byGUID.LocalUID || byUID.Title != byGUID.Title {
		t.Errorf("dual identity lookup disagrees: %+v vs %+v", byUID, byGUID)
	}
}
