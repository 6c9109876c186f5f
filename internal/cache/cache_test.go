package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/notefold/notefold/internal/types"
)

func newNoteCache(max int) *Cache[*types.Note] {
	return New(Accessors[*types.Note]{
		UID: func(n *types.Note) string { return n.LocalUID },
		GUID: func(n *types.Note) string {
			if n.GUID == nil {
				return ""
			}
			return *n.GUID
		},
		Name: func(n *types.Note) string { return "" },
	}, SizeChecker{Max: max})
}

func TestPutEvictsOldestBeyondBound(t *testing.T) {
	c := newNoteCache(DefaultMaxNotes)

	// Deterministic access times.
	tick := time.Unix(0, 0)
	c.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	uids := make([]string, 0, 105)
	for i := 0; i < 105; i++ {
		uid := fmt.Sprintf("note-%03d", i)
		uids = append(uids, uid)
		c.Put(&types.Note{LocalUID: uid})
	}

	if got := c.NumCached(); got != 100 {
		t.Fatalf("NumCached() = %d, want exactly 100", got)
	}
	// The five oldest by last access are gone.
	for _, uid := range uids[:5] {
		if _, ok := c.FindByLocalUID(uid); ok {
			t.Errorf("oldest entry %s survived eviction", uid)
		}
	}
	for _, uid := range uids[5:] {
		if _, ok := c.FindByLocalUID(uid); !ok {
			t.Errorf("entry %s evicted too early", uid)
		}
	}
}

func TestFindDoesNotRefreshAccessTime(t *testing.T) {
	c := newNoteCache(2)
	tick := time.Unix(0, 0)
	c.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	c.Put(&types.Note{LocalUID: "a"})
	c.Put(&types.Note{LocalUID: "b"})
	// Reading "a" must not rescue it from eviction.
	if _, ok := c.FindByLocalUID("a"); !ok {
		t.Fatal("a not cached")
	}
	c.Put(&types.Note{LocalUID: "c"})

	if _, ok := c.FindByLocalUID("a"); ok {
		t.Error("read refreshed the access time; a should have been evicted")
	}
	if _, ok := c.FindByLocalUID("b"); !ok {
		t.Error("b evicted out of order")
	}
}

func TestPutSameUIDUpdatesInPlace(t *testing.T) {
	c := newNoteCache(2)
	guid := types.NewLocalUID()
	c.Put(&types.Note{LocalUID: "a", Title: "old"})
	c.Put(&types.Note{LocalUID: "a", Title: "new", GUID: &guid})

	if got := c.NumCached(); got != 1 {
		t.Fatalf("NumCached() = %d, want 1", got)
	}
	n, ok := c.FindByGUID(guid)
	if !ok || n.Title != "new" {
		t.Errorf("FindByGUID() = %+v/%v, want updated note", n, ok)
	}
}

func TestGUIDIndexMaintained(t *testing.T) {
	c := newNoteCache(10)
	guid := types.NewLocalUID()
	c.Put(&types.Note{LocalUID: "a", GUID: &guid})

	if _, ok := c.FindByGUID(guid); !ok {
		t.Fatal("FindByGUID() missed after Put")
	}
	c.Expunge("a")
	if _, ok := c.FindByGUID(guid); ok {
		t.Error("guid index kept a stale entry after Expunge")
	}
}

func TestNameIndexCaseInsensitive(t *testing.T) {
	m := NewManager(Checkers{})
	m.Notebooks().Put(&types.Notebook{LocalUID: "nb", Name: "Inbox"})

	nb, ok := m.Notebooks().FindByName("iNBOX")
	if !ok || nb.LocalUID != "nb" {
		t.Errorf("FindByName(case-insensitive) = %+v/%v", nb, ok)
	}
}

func TestManagerDefaultsAndClear(t *testing.T) {
	m := NewManager(Checkers{})
	for i := 0; i < DefaultMaxNotebooks+5; i++ {
		m.Notebooks().Put(&types.Notebook{
			LocalUID: fmt.Sprintf("nb-%d", i),
			Name:     fmt.Sprintf("Notebook %d", i),
		})
	}
	if got := m.Notebooks().NumCached(); got != DefaultMaxNotebooks {
		t.Errorf("notebook cache size = %d, want %d", got, DefaultMaxNotebooks)
	}

	m.Tags().Put(&types.Tag{LocalUID: "t", Name: "todo"})
	m.SavedSearches().Put(&types.SavedSearch{LocalUID: "s", Name: "all"})
	m.Notes().Put(&types.Note{LocalUID: "n"})

	m.Clear()
	if m.Notebooks().NumCached()+m.Tags().NumCached()+m.SavedSearches().NumCached()+m.Notes().NumCached() != 0 {
		t.Error("Clear() left entries behind")
	}
}

func TestCloneKeepsCallerCheckerUntouched(t *testing.T) {
	checker := SizeChecker{Max: 1}
	c := New(Accessors[*types.Tag]{
		UID:  func(tg *types.Tag) string { return tg.LocalUID },
		GUID: func(tg *types.Tag) string { return "" },
		Name: func(tg *types.Tag) string { return tg.Name },
	}, checker)

	c.Put(&types.Tag{LocalUID: "a", Name: "a"})
	c.Put(&types.Tag{LocalUID: "b", Name: "b"})
	if got := c.NumCached(); got != 1 {
		t.Errorf("NumCached() = %d, want 1", got)
	}
	if !checker.StillFits(0) {
		t.Error("caller's checker mutated")
	}
}
