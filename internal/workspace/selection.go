package workspace

import (
	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
)

// Selection is the weak reference from the interview session to one catalog job, or none.
// It never outlives the job it points at: removing the job from the catalog clears it.
type Selection struct {
	catalog *Catalog
	id      uuid.UUID
}

// NewSelection creates an empty selection bound to catalog.
func NewSelection(catalog *Catalog) *Selection {
	s := &Selection{catalog: catalog}
	catalog.notifyOnRemove(s.release)
	return s
}

// Select binds id. uuid.Nil clears the binding. An id absent from the catalog is rejected
// with UnknownReferenceError and the current binding is left unchanged.
func (s *Selection) Select(id uuid.UUID) error {
	if id == uuid.Nil {
		s.id = uuid.Nil
		return nil
	}
	if !s.catalog.Contains(id) {
		return &UnknownReferenceError{ID: id}
	}
	s.id = id
	return nil
}

// ID returns the bound id, or uuid.Nil.
func (s *Selection) ID() uuid.UUID {
	return s.id
}

// Current resolves the bound job from the catalog.
func (s *Selection) Current() (types.JobDescription, bool) {
	if s.id == uuid.Nil {
		return types.JobDescription{}, false
	}
	return s.catalog.Get(s.id)
}

// Clear drops the binding.
func (s *Selection) Clear() {
	s.id = uuid.Nil
}

func (s *Selection) release(id uuid.UUID) {
	if s.id == id {
		s.id = uuid.Nil
	}
}
