package model

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notefold/notefold/internal/cache"
	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/storage/sqlite"
	"github.com/notefold/notefold/internal/types"
	"github.com/notefold/notefold/internal/worker"
)

// responseHandler is what the pump feeds worker responses to.
type responseHandler interface {
	HandleResponse(worker.Response)
}

type modelEnv struct {
	t       *testing.T
	Worker  *worker.Worker
	Session *worker.Session
}

func newModelEnv(t *testing.T) *modelEnv {
	t.Helper()
	store := sqlite.New(t.TempDir(), slog.Default())
	w := worker.New(store, cache.Checkers{}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	s, err := worker.Attach(w, worker.ProtocolVersion)
	if err != nil {
		t.Fatalf("Attach() failed: %v", err)
	}
	t.Cleanup(s.Close)

	e := &modelEnv{t: t, Worker: w, Session: s}
	if resp := e.await(s.SwitchUser("model-test", 1, false), nil); resp.Err != nil {
		t.Fatalf("SwitchUser failed: %v", resp.Err)
	}
	return e
}

// await reads responses until the one matching id arrives, feeding every
// response to the handler (when non-nil) along the way.
func (e *modelEnv) await(id uuid.UUID, h responseHandler) worker.Response {
	e.t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case resp, ok := <-e.Session.Responses():
			if !ok {
				e.t.Fatal("session closed")
			}
			if h != nil {
				h.HandleResponse(resp)
			}
			if resp.ID == id {
				return resp
			}
		case <-deadline:
			e.t.Fatalf("no response for %s", id)
		}
	}
}

// settle pumps responses into the handler until none arrive for a while;
// the model's request chains (list pages, counts, find+update) have then
// drained.
func (e *modelEnv) settle(h responseHandler) {
	e.t.Helper()
	for {
		select {
		case resp, ok := <-e.Session.Responses():
			if !ok {
				return
			}
			h.HandleResponse(resp)
		case <-time.After(300 * time.Millisecond):
			return
		}
	}
}

func (e *modelEnv) addNotebook(nb *types.Notebook) {
	e.t.Helper()
	if resp := e.await(e.Session.AddNotebook(nb), nil); resp.Err != nil {
		e.t.Fatalf("AddNotebook(%q) failed: %v", nb.Name, resp.Err)
	}
}

func (e *modelEnv) addTag(tg *types.Tag) {
	e.t.Helper()
	if resp := e.await(e.Session.AddTag(tg), nil); resp.Err != nil {
		e.t.Fatalf("AddTag(%q) failed: %v", tg.Name, resp.Err)
	}
}

func (e *modelEnv) addNote(n *types.Note) {
	e.t.Helper()
	if resp := e.await(e.Session.AddNote(n), nil); resp.Err != nil {
		e.t.Fatalf("AddNote(%q) failed: %v", n.Title, resp.Err)
	}
}

func (e *modelEnv) findNotebook(uid string) *types.Notebook {
	e.t.Helper()
	resp := e.await(e.Session.FindNotebook(storage.LocalKey(uid)), nil)
	if resp.Err != nil {
		e.t.Fatalf("FindNotebook failed: %v", resp.Err)
	}
	return resp.Payload.(*types.Notebook)
}
