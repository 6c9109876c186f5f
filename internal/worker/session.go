package worker

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// Session is the request façade callers hold. It lives on the caller's
// side, forwards method calls as worker requests and re-emits the worker's
// responses on Responses(). Each caller thread should hold its own session;
// a session itself is not safe for concurrent use except for Drop.
type Session struct {
	w *Worker

	in   chan Response
	out  chan Response
	quit chan struct{}

	mu      sync.Mutex
	dropped map[uuid.UUID]struct{}
}

// Attach creates a session on the worker. The caller's compiled protocol
// version must agree with the worker's on the major component; skew between
// an embedding UI and the storage core is refused up front rather than
// surfacing as garbled payload types later.
func Attach(w *Worker, clientVersion string) (*Session, error) {
	if !semver.IsValid(clientVersion) {
		return nil, fmt.Errorf("invalid protocol version %q", clientVersion)
	}
	if semver.Major(clientVersion) != semver.Major(ProtocolVersion) {
		return nil, fmt.Errorf("protocol version %s is incompatible with worker %s",
			clientVersion, ProtocolVersion)
	}
	s := &Session{
		w:       w,
		in:      make(chan Response, 64),
		out:     make(chan Response, 64),
		quit:    make(chan struct{}),
		dropped: make(map[uuid.UUID]struct{}),
	}
	go s.forward()
	return s, nil
}

// forward moves worker replies to the caller-facing channel, swallowing
// responses the caller dropped interest in. The worker's reply channel is
// never closed, so a reply outliving the session lands in its buffer and is
// collected with it.
func (s *Session) forward() {
	for {
		select {
		case resp := <-s.in:
			s.mu.Lock()
			_, skip := s.dropped[resp.ID]
			if skip {
				delete(s.dropped, resp.ID)
			}
			s.mu.Unlock()
			if !skip {
				select {
				case s.out <- resp:
				case <-s.quit:
					close(s.out)
					return
				}
			}
		case <-s.quit:
			close(s.out)
			return
		}
	}
}

// Responses delivers the worker's replies to this session's requests, in
// completion order.
func (s *Session) Responses() <-chan Response { return s.out }

// Drop discards the eventual response to the given correlation id. The
// request itself is not interrupted.
func (s *Session) Drop(id uuid.UUID) {
	s.mu.Lock()
	s.dropped[id] = struct{}{}
	s.mu.Unlock()
}

// Close detaches the session. In-flight responses are discarded. Safe to
// call once; the worker is unaffected.
func (s *Session) Close() { close(s.quit) }

// send enqueues a request and returns its correlation id.
func (s *Session) send(op Op, args any) uuid.UUID {
	id := uuid.New()
	s.w.submit(envelope{req: Request{ID: id, Op: op, Args: args}, reply: s.in})
	return id
}

// SwitchUser asks the worker to open another account's database.
func (s *Session) SwitchUser(username string, userID int32, startFromScratch bool) uuid.UUID {
	return s.send(OpSwitchUser, SwitchUserArgs{Username: username, UserID: userID, StartFromScratch: startFromScratch})
}

// SetUseCache toggles the worker's read-through caches.
func (s *Session) SetUseCache(useCache bool) uuid.UUID {
	return s.send(OpSetUseCache, SetUseCacheArgs{UseCache: useCache})
}

// Notes.

func (s *Session) AddNote(n *types.Note) uuid.UUID {
	return s.send(OpAddNote, NoteArgs{Note: n})
}

func (s *Session) UpdateNote(n *types.Note, opts storage.UpdateNoteOptions) uuid.UUID {
	return s.send(OpUpdateNote, NoteArgs{Note: n, Options: opts})
}

func (s *Session) FindNote(key storage.Key, opts storage.FindNoteOptions) uuid.UUID {
	return s.send(OpFindNote, FindNoteArgs{Key: key, Options: opts})
}

func (s *Session) ListNotes(f storage.NoteFilter, opts storage.FindNoteOptions, page storage.Page) uuid.UUID {
	return s.send(OpListNotes, ListNotesArgs{Filter: f, Options: opts, Page: page})
}

func (s *Session) DeleteNote(n *types.Note) uuid.UUID {
	return s.send(OpDeleteNote, NoteArgs{Note: n})
}

func (s *Session) ExpungeNote(n *types.Note) uuid.UUID {
	return s.send(OpExpungeNote, NoteArgs{Note: n})
}

func (s *Session) CountNotes() uuid.UUID {
	return s.send(OpCountNotes, nil)
}

func (s *Session) CountNotesPerNotebook(notebookLocalUID string) uuid.UUID {
	return s.send(OpCountNotesPerNotebook, CountArgs{LocalUID: notebookLocalUID})
}

func (s *Session) CountNotesPerTag(tagLocalUID string) uuid.UUID {
	return s.send(OpCountNotesPerTag, CountArgs{LocalUID: tagLocalUID})
}

// Notebooks.

func (s *Session) AddNotebook(nb *types.Notebook) uuid.UUID {
	return s.send(OpAddNotebook, NotebookArgs{Notebook: nb})
}

func (s *Session) UpdateNotebook(nb *types.Notebook) uuid.UUID {
	return s.send(OpUpdateNotebook, NotebookArgs{Notebook: nb})
}

func (s *Session) FindNotebook(key storage.Key) uuid.UUID {
	return s.send(OpFindNotebook, FindArgs{Key: key})
}

func (s *Session) FindDefaultNotebook() uuid.UUID {
	return s.send(OpFindDefaultNotebook, nil)
}

func (s *Session) ListNotebooks(f storage.NotebookFilter, page storage.Page) uuid.UUID {
	return s.send(OpListNotebooks, ListNotebooksArgs{Filter: f, Page: page})
}

func (s *Session) ExpungeNotebook(nb *types.Notebook) uuid.UUID {
	return s.send(OpExpungeNotebook, NotebookArgs{Notebook: nb})
}

func (s *Session) CountNotebooks() uuid.UUID {
	return s.send(OpCountNotebooks, nil)
}

// Tags.

func (s *Session) AddTag(t *types.Tag) uuid.UUID {
	return s.send(OpAddTag, TagArgs{Tag: t})
}

func (s *Session) UpdateTag(t *types.Tag) uuid.UUID {
	return s.send(OpUpdateTag, TagArgs{Tag: t})
}

func (s *Session) FindTag(key storage.Key) uuid.UUID {
	return s.send(OpFindTag, FindArgs{Key: key})
}

func (s *Session) ListTags(f storage.TagFilter, page storage.Page) uuid.UUID {
	return s.send(OpListTags, ListTagsArgs{Filter: f, Page: page})
}

func (s *Session) DeleteTag(t *types.Tag) uuid.UUID {
	return s.send(OpDeleteTag, TagArgs{Tag: t})
}

func (s *Session) ExpungeTag(t *types.Tag) uuid.UUID {
	return s.send(OpExpungeTag, TagArgs{Tag: t})
}

func (s *Session) CountTags() uuid.UUID {
	return s.send(OpCountTags, nil)
}

// Saved searches.

func (s *Session) AddSavedSearch(search *types.SavedSearch) uuid.UUID {
	return s.send(OpAddSavedSearch, SavedSearchArgs{Search: search})
}

func (s *Session) UpdateSavedSearch(search *types.SavedSearch) uuid.UUID {
	return s.send(OpUpdateSavedSearch, SavedSearchArgs{Search: search})
}

func (s *Session) FindSavedSearch(key storage.Key) uuid.UUID {
	return s.send(OpFindSavedSearch, FindArgs{Key: key})
}

func (s *Session) ListSavedSearches(f storage.SavedSearchFilter, page storage.Page) uuid.UUID {
	return s.send(OpListSavedSearches, ListSavedSearchesArgs{Filter: f, Page: page})
}

func (s *Session) ExpungeSavedSearch(search *types.SavedSearch) uuid.UUID {
	return s.send(OpExpungeSavedSearch, SavedSearchArgs{Search: search})
}

func (s *Session) CountSavedSearches() uuid.UUID {
	return s.send(OpCountSavedSearches, nil)
}

// Linked notebooks.

func (s *Session) AddLinkedNotebook(ln *types.LinkedNotebook) uuid.UUID {
	return s.send(OpAddLinkedNotebook, LinkedNotebookArgs{LinkedNotebook: ln})
}

func (s *Session) UpdateLinkedNotebook(ln *types.LinkedNotebook) uuid.UUID {
	return s.send(OpUpdateLinkedNotebook, LinkedNotebookArgs{LinkedNotebook: ln})
}

func (s *Session) FindLinkedNotebook(guid string) uuid.UUID {
	return s.send(OpFindLinkedNotebook, FindLinkedNotebookArgs{GUID: guid})
}

func (s *Session) ListLinkedNotebooks(page storage.Page) uuid.UUID {
	return s.send(OpListLinkedNotebooks, ListLinkedNotebooksArgs{Page: page})
}

func (s *Session) ExpungeLinkedNotebook(ln *types.LinkedNotebook) uuid.UUID {
	return s.send(OpExpungeLinkedNotebook, LinkedNotebookArgs{LinkedNotebook: ln})
}

func (s *Session) CountLinkedNotebooks() uuid.UUID {
	return s.send(OpCountLinkedNotebooks, nil)
}

// Resources.

func (s *Session) AddResource(r *types.Resource) uuid.UUID {
	return s.send(OpAddResource, ResourceArgs{Resource: r})
}

func (s *Session) UpdateResource(r *types.Resource) uuid.UUID {
	return s.send(OpUpdateResource, ResourceArgs{Resource: r})
}

func (s *Session) FindResource(key storage.Key, withBinaryData bool) uuid.UUID {
	return s.send(OpFindResource, FindResourceArgs{Key: key, WithBinaryData: withBinaryData})
}

func (s *Session) ExpungeResource(r *types.Resource) uuid.UUID {
	return s.send(OpExpungeResource, ResourceArgs{Resource: r})
}

func (s *Session) CountResources() uuid.UUID {
	return s.send(OpCountResources, nil)
}

// Users.

func (s *Session) AddUser(u *types.User) uuid.UUID {
	return s.send(OpAddUser, UserArgs{User: u})
}

func (s *Session) UpdateUser(u *types.User) uuid.UUID {
	return s.send(OpUpdateUser, UserArgs{User: u})
}

func (s *Session) FindUser(id int32) uuid.UUID {
	return s.send(OpFindUser, FindUserArgs{UserID: id})
}

func (s *Session) DeleteUser(u *types.User) uuid.UUID {
	return s.send(OpDeleteUser, UserArgs{User: u})
}

func (s *Session) ExpungeUser(u *types.User) uuid.UUID {
	return s.send(OpExpungeUser, UserArgs{User: u})
}

func (s *Session) CountUsers() uuid.UUID {
	return s.send(OpCountUsers, nil)
}
