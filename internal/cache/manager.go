package cache

import (
	"github.com/notefold/notefold/internal/types"
)

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Manager bundles the per-family caches the worker keeps in front of the
// storage engine. The index families are parallel across notes, notebooks,
// tags and saved searches.
type Manager struct {
	notes     *Cache[*types.Note]
	notebooks *Cache[*types.Notebook]
	tags      *Cache[*types.Tag]
	searches  *Cache[*types.SavedSearch]
}

// Checkers carries one expiry checker per family. A nil field selects the
// default size bound for that family.
type Checkers struct {
	Notes         ExpiryChecker
	Notebooks     ExpiryChecker
	Tags          ExpiryChecker
	SavedSearches ExpiryChecker
}

// NewManager builds the four family caches.
func NewManager(checkers Checkers) *Manager {
	if checkers.Notes == nil {
		checkers.Notes = SizeChecker{Max: DefaultMaxNotes}
	}
	if checkers.Notebooks == nil {
		checkers.Notebooks = SizeChecker{Max: DefaultMaxNotebooks}
	}
	if checkers.Tags == nil {
		checkers.Tags = SizeChecker{Max: DefaultMaxTags}
	}
	if checkers.SavedSearches == nil {
		checkers.SavedSearches = SizeChecker{Max: DefaultMaxSavedSearches}
	}
	return &Manager{
		notes: New(Accessors[*types.Note]{
			UID:  func(n *types.Note) string { return n.LocalUID },
			GUID: func(n *types.Note) string { return deref(n.GUID) },
			// Notes are not name-indexed; titles are not unique.
			Name: func(n *types.Note) string { return "" },
		}, checkers.Notes),
		notebooks: New(Accessors[*types.Notebook]{
			UID:  func(nb *types.Notebook) string { return nb.LocalUID },
			GUID: func(nb *types.Notebook) string { return deref(nb.GUID) },
			Name: func(nb *types.Notebook) string { return nb.Name },
		}, checkers.Notebooks),
		tags: New(Accessors[*types.Tag]{
			UID:  func(t *types.Tag) string { return t.LocalUID },
			GUID: func(t *types.Tag) string { return deref(t.GUID) },
			Name: func(t *types.Tag) string { return t.Name },
		}, checkers.Tags),
		searches: New(Accessors[*types.SavedSearch]{
			UID:  func(s *types.SavedSearch) string { return s.LocalUID },
			GUID: func(s *types.SavedSearch) string { return deref(s.GUID) },
			Name: func(s *types.SavedSearch) string { return s.Name },
		}, checkers.SavedSearches),
	}
}

// Notes returns the note cache.
func (m *Manager) Notes() *Cache[*types.Note] { return m.notes }

// Notebooks returns the notebook cache.
func (m *Manager) Notebooks() *Cache[*types.Notebook] { return m.notebooks }

// Tags returns the tag cache.
func (m *Manager) Tags() *Cache[*types.Tag] { return m.tags }

// SavedSearches returns the saved-search cache.
func (m *Manager) SavedSearches() *Cache[*types.SavedSearch] { return m.searches }

// Clear drops every family.
func (m *Manager) Clear() {
	m.notes.Clear()
	m.notebooks.Clear()
	m.tags.Clear()
	m.searches.Clear()
}
