package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/notefold/notefold/internal/cache"
	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// envelope pairs a request with the channel its response goes back on.
type envelope struct {
	req   Request
	reply chan<- Response
}

// Worker is the single-goroutine executor owning one storage engine and one
// cache manager. Requests are served strictly in arrival order; a handler
// runs to completion before the next request starts, so the engine never
// sees concurrent access.
type Worker struct {
	store  storage.LocalStorage
	caches *cache.Manager

	useCache bool

	reqCh chan envelope
	done  chan struct{}

	log *slog.Logger
}

// New creates a worker around the given engine. The caches start enabled
// with the default per-family bounds unless checkers are supplied.
func New(store storage.LocalStorage, checkers cache.Checkers, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		store:    store,
		caches:   cache.NewManager(checkers),
		useCache: true,
		reqCh:    make(chan envelope, 64),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Run serves requests until ctx is canceled. It owns the storage engine for
// its whole lifetime and closes it on the way out.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if err := w.store.Close(); err != nil {
			w.log.Error("closing local storage", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-w.reqCh:
			env.reply <- w.serve(ctx, env.req)
		}
	}
}

// Done is closed once Run has returned and the engine is closed.
func (w *Worker) Done() <-chan struct{} { return w.done }

// submit enqueues a request. Blocks when the queue is full, which
// back-pressures producers instead of dropping work.
func (w *Worker) submit(env envelope) {
	w.reqCh <- env
}

// serve dispatches one request. Storage errors, including panics out of the
// engine, become the failed response variant; the worker itself never dies
// on a request.
func (w *Worker) serve(ctx context.Context, req Request) (resp Response) {
	resp = Response{ID: req.ID, Op: req.Op, Args: req.Args}
	defer func() {
		if r := recover(); r != nil {
			resp.Err = fmt.Errorf("request %s panicked: %v", req.Op, r)
			w.log.Error("request handler panicked", "op", string(req.Op), "panic", r)
		}
	}()

	payload, err := w.dispatch(ctx, req)
	if err != nil {
		resp.Err = err
		w.log.Debug("request failed", "op", string(req.Op), "id", req.ID.String(), "error", err)
		return resp
	}
	resp.Payload = payload
	return resp
}

func (w *Worker) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Op {
	case OpSwitchUser:
		a := req.Args.(SwitchUserArgs)
		if err := w.store.SwitchUser(ctx, a.Username, a.UserID, a.StartFromScratch); err != nil {
			return nil, err
		}
		w.caches.Clear()
		return SwitchUserResult{UserID: a.UserID}, nil

	case OpSetUseCache:
		a := req.Args.(SetUseCacheArgs)
		if w.useCache != a.UseCache {
			w.caches.Clear()
		}
		w.useCache = a.UseCache
		return nil, nil

	case OpInvalidateCaches:
		w.caches.Clear()
		return nil, nil
	}

	if payload, ok, err := w.dispatchNotes(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchNotebooks(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchTags(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchSearches(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchLinked(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchResources(ctx, req); ok {
		return payload, err
	}
	if payload, ok, err := w.dispatchUsers(ctx, req); ok {
		return payload, err
	}
	return nil, fmt.Errorf("unknown operation %q", req.Op)
}

func (w *Worker) dispatchNotes(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddNote:
		a := req.Args.(NoteArgs)
		if err := w.store.AddNote(ctx, a.Note); err != nil {
			return nil, true, err
		}
		w.putNote(a.Note)
		return a.Note, true, nil
	case OpUpdateNote:
		a := req.Args.(NoteArgs)
		if err := w.store.UpdateNote(ctx, a.Note, a.Options); err != nil {
			return nil, true, err
		}
		w.putNote(a.Note)
		return a.Note, true, nil
	case OpFindNote:
		a := req.Args.(FindNoteArgs)
		if w.useCache && !a.Options.WithResourceBinaryData {
			if n, ok := cacheFind(w.caches.Notes(), a.Key); ok {
				return n.Clone(), true, nil
			}
		}
		n, err := w.store.FindNote(ctx, a.Key, a.Options)
		if err != nil {
			return nil, true, err
		}
		// Notes with binary bodies loaded stay out of the cache; a later
		// lean find must not hand bodies back unasked.
		if !a.Options.WithResourceBinaryData {
			w.putNote(n)
		}
		return n, true, nil
	case OpListNotes:
		a := req.Args.(ListNotesArgs)
		notes, err := w.store.ListNotes(ctx, a.Filter, a.Options, a.Page)
		if err != nil {
			return nil, true, err
		}
		if !a.Options.WithResourceBinaryData {
			for _, n := range notes {
				w.putNote(n)
			}
		}
		return ListNotesResult{Notes: notes, Filter: a.Filter, Page: a.Page}, true, nil
	case OpDeleteNote:
		a := req.Args.(NoteArgs)
		if err := w.store.DeleteNote(ctx, a.Note); err != nil {
			return nil, true, err
		}
		// The delete may have routed to expunge for a local note; either way
		// the cached copy is stale.
		w.caches.Notes().Expunge(a.Note.LocalUID)
		return a.Note, true, nil
	case OpExpungeNote:
		a := req.Args.(NoteArgs)
		if err := w.store.ExpungeNote(ctx, a.Note); err != nil {
			return nil, true, err
		}
		w.caches.Notes().Expunge(a.Note.LocalUID)
		return a.Note, true, nil
	case OpCountNotes:
		n, err := w.store.CountNotes(ctx)
		return CountResult{Count: n}, true, err
	case OpCountNotesPerNotebook:
		a := req.Args.(CountArgs)
		n, err := w.store.CountNotesPerNotebook(ctx, a.LocalUID)
		return CountResult{Count: n}, true, err
	case OpCountNotesPerTag:
		a := req.Args.(CountArgs)
		n, err := w.store.CountNotesPerTag(ctx, a.LocalUID)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchNotebooks(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddNotebook:
		a := req.Args.(NotebookArgs)
		if err := w.store.AddNotebook(ctx, a.Notebook); err != nil {
			return nil, true, err
		}
		w.putNotebook(a.Notebook)
		return a.Notebook, true, nil
	case OpUpdateNotebook:
		a := req.Args.(NotebookArgs)
		if err := w.store.UpdateNotebook(ctx, a.Notebook); err != nil {
			return nil, true, err
		}
		w.putNotebook(a.Notebook)
		return a.Notebook, true, nil
	case OpFindNotebook:
		a := req.Args.(FindArgs)
		if w.useCache {
			if nb, ok := cacheFind(w.caches.Notebooks(), a.Key); ok {
				return nb.Clone(), true, nil
			}
		}
		nb, err := w.store.FindNotebook(ctx, a.Key)
		if err != nil {
			return nil, true, err
		}
		w.putNotebook(nb)
		return nb, true, nil
	case OpFindDefaultNotebook:
		nb, err := w.store.FindDefaultOrLastUsedNotebook(ctx)
		if err != nil {
			return nil, true, err
		}
		w.putNotebook(nb)
		return nb, true, nil
	case OpListNotebooks:
		a := req.Args.(ListNotebooksArgs)
		notebooks, err := w.store.ListNotebooks(ctx, a.Filter, a.Page)
		if err != nil {
			return nil, true, err
		}
		for _, nb := range notebooks {
			w.putNotebook(nb)
		}
		return ListNotebooksResult{Notebooks: notebooks, Filter: a.Filter, Page: a.Page}, true, nil
	case OpExpungeNotebook:
		a := req.Args.(NotebookArgs)
		if err := w.store.ExpungeNotebook(ctx, a.Notebook); err != nil {
			return nil, true, err
		}
		w.caches.Notebooks().Expunge(a.Notebook.LocalUID)
		// Cascaded notes are gone too; the cheap safe answer is a clear.
		w.caches.Notes().Clear()
		return a.Notebook, true, nil
	case OpCountNotebooks:
		n, err := w.store.CountNotebooks(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchTags(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddTag:
		a := req.Args.(TagArgs)
		if err := w.store.AddTag(ctx, a.Tag); err != nil {
			return nil, true, err
		}
		w.putTag(a.Tag)
		return a.Tag, true, nil
	case OpUpdateTag:
		a := req.Args.(TagArgs)
		if err := w.store.UpdateTag(ctx, a.Tag); err != nil {
			return nil, true, err
		}
		w.putTag(a.Tag)
		return a.Tag, true, nil
	case OpFindTag:
		a := req.Args.(FindArgs)
		if w.useCache {
			if tg, ok := cacheFind(w.caches.Tags(), a.Key); ok {
				return tg.Clone(), true, nil
			}
		}
		tg, err := w.store.FindTag(ctx, a.Key)
		if err != nil {
			return nil, true, err
		}
		w.putTag(tg)
		return tg, true, nil
	case OpListTags:
		a := req.Args.(ListTagsArgs)
		tags, err := w.store.ListTags(ctx, a.Filter, a.Page)
		if err != nil {
			return nil, true, err
		}
		for _, tg := range tags {
			w.putTag(tg)
		}
		return ListTagsResult{Tags: tags, Filter: a.Filter, Page: a.Page}, true, nil
	case OpDeleteTag:
		a := req.Args.(TagArgs)
		if err := w.store.DeleteTag(ctx, a.Tag); err != nil {
			return nil, true, err
		}
		w.caches.Tags().Expunge(a.Tag.LocalUID)
		return a.Tag, true, nil
	case OpExpungeTag:
		a := req.Args.(TagArgs)
		if err := w.store.ExpungeTag(ctx, a.Tag); err != nil {
			return nil, true, err
		}
		w.caches.Tags().Expunge(a.Tag.LocalUID)
		return a.Tag, true, nil
	case OpCountTags:
		n, err := w.store.CountTags(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchSearches(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddSavedSearch:
		a := req.Args.(SavedSearchArgs)
		if err := w.store.AddSavedSearch(ctx, a.Search); err != nil {
			return nil, true, err
		}
		w.putSearch(a.Search)
		return a.Search, true, nil
	case OpUpdateSavedSearch:
		a := req.Args.(SavedSearchArgs)
		if err := w.store.UpdateSavedSearch(ctx, a.Search); err != nil {
			return nil, true, err
		}
		w.putSearch(a.Search)
		return a.Search, true, nil
	case OpFindSavedSearch:
		a := req.Args.(FindArgs)
		if w.useCache {
			if search, ok := cacheFind(w.caches.SavedSearches(), a.Key); ok {
				return search.Clone(), true, nil
			}
		}
		search, err := w.store.FindSavedSearch(ctx, a.Key)
		if err != nil {
			return nil, true, err
		}
		w.putSearch(search)
		return search, true, nil
	case OpListSavedSearches:
		a := req.Args.(ListSavedSearchesArgs)
		searches, err := w.store.ListSavedSearches(ctx, a.Filter, a.Page)
		if err != nil {
			return nil, true, err
		}
		for _, search := range searches {
			w.putSearch(search)
		}
		return ListSavedSearchesResult{Searches: searches, Filter: a.Filter, Page: a.Page}, true, nil
	case OpExpungeSavedSearch:
		a := req.Args.(SavedSearchArgs)
		if err := w.store.ExpungeSavedSearch(ctx, a.Search); err != nil {
			return nil, true, err
		}
		w.caches.SavedSearches().Expunge(a.Search.LocalUID)
		return a.Search, true, nil
	case OpCountSavedSearches:
		n, err := w.store.CountSavedSearches(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchLinked(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddLinkedNotebook:
		a := req.Args.(LinkedNotebookArgs)
		err := w.store.AddLinkedNotebook(ctx, a.LinkedNotebook)
		return a.LinkedNotebook, true, err
	case OpUpdateLinkedNotebook:
		a := req.Args.(LinkedNotebookArgs)
		err := w.store.UpdateLinkedNotebook(ctx, a.LinkedNotebook)
		return a.LinkedNotebook, true, err
	case OpFindLinkedNotebook:
		a := req.Args.(FindLinkedNotebookArgs)
		ln, err := w.store.FindLinkedNotebook(ctx, a.GUID)
		return ln, true, err
	case OpListLinkedNotebooks:
		a := req.Args.(ListLinkedNotebooksArgs)
		lns, err := w.store.ListLinkedNotebooks(ctx, a.Page)
		return lns, true, err
	case OpExpungeLinkedNotebook:
		a := req.Args.(LinkedNotebookArgs)
		err := w.store.ExpungeLinkedNotebook(ctx, a.LinkedNotebook)
		return a.LinkedNotebook, true, err
	case OpCountLinkedNotebooks:
		n, err := w.store.CountLinkedNotebooks(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchResources(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddResource:
		a := req.Args.(ResourceArgs)
		err := w.store.AddResource(ctx, a.Resource)
		return a.Resource, true, err
	case OpUpdateResource:
		a := req.Args.(ResourceArgs)
		err := w.store.UpdateResource(ctx, a.Resource)
		return a.Resource, true, err
	case OpFindResource:
		a := req.Args.(FindResourceArgs)
		r, err := w.store.FindResource(ctx, a.Key, a.WithBinaryData)
		return r, true, err
	case OpExpungeResource:
		a := req.Args.(ResourceArgs)
		err := w.store.ExpungeResource(ctx, a.Resource)
		return a.Resource, true, err
	case OpCountResources:
		n, err := w.store.CountResources(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

func (w *Worker) dispatchUsers(ctx context.Context, req Request) (any, bool, error) {
	switch req.Op {
	case OpAddUser:
		a := req.Args.(UserArgs)
		err := w.store.AddUser(ctx, a.User)
		return a.User, true, err
	case OpUpdateUser:
		a := req.Args.(UserArgs)
		err := w.store.UpdateUser(ctx, a.User)
		return a.User, true, err
	case OpFindUser:
		a := req.Args.(FindUserArgs)
		u, err := w.store.FindUser(ctx, a.UserID)
		return u, true, err
	case OpDeleteUser:
		a := req.Args.(UserArgs)
		err := w.store.DeleteUser(ctx, a.User)
		return a.User, true, err
	case OpExpungeUser:
		a := req.Args.(UserArgs)
		err := w.store.ExpungeUser(ctx, a.User)
		return a.User, true, err
	case OpCountUsers:
		n, err := w.store.CountUsers(ctx)
		return CountResult{Count: n}, true, err
	}
	return nil, false, nil
}

// cacheFind looks up a cached entity by the same key a SQL find would use.
func cacheFind[T any](c *cache.Cache[T], key storage.Key) (T, bool) {
	if key.By == types.ByGUID {
		return c.FindByGUID(key.Value)
	}
	return c.FindByLocalUID(key.Value)
}

// The caches hold private clones and hand clones back out, so producers may
// freely mutate what they sent or received without disturbing cached state.

func (w *Worker) putNote(n *types.Note) {
	if w.useCache && n != nil {
		w.caches.Notes().Put(n.Clone())
	}
}

func (w *Worker) putNotebook(nb *types.Notebook) {
	if w.useCache && nb != nil {
		w.caches.Notebooks().Put(nb.Clone())
	}
}

func (w *Worker) putTag(t *types.Tag) {
	if w.useCache && t != nil {
		w.caches.Tags().Put(t.Clone())
	}
}

func (w *Worker) putSearch(s *types.SavedSearch) {
	if w.useCache && s != nil {
		w.caches.SavedSearches().Put(s.Clone())
	}
}

// NumCachedNotes reports the note cache size. Exposed for tests and
// diagnostics; reading it outside the worker goroutine while the worker is
// running is racy.
func (w *Worker) NumCachedNotes() int { return w.caches.Notes().NumCached() }
