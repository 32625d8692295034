// Package population holds the live set of authors for one generation.
// Membership changes only in bulk: Add installs a batch, Reset replaces
// everyone. Iteration is always in ascending id order.
package population

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/authorsim/internal/authors"
)

// ErrDuplicateID is returned when a batch would put two authors with the
// same id into the store.
var ErrDuplicateID = errors.New("duplicate author id")

// Store is an id-ordered collection of authors. It is not safe for
// concurrent use; the simulation serialises access.
type Store struct {
	members []*authors.Author
	index   map[authors.AuthorID]*authors.Author
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[authors.AuthorID]*authors.Author)}
}

// Len returns the number of live authors.
func (s *Store) Len() int {
	return len(s.members)
}

// Add installs a batch of authors. The whole batch is rejected if any id is
// already present or repeated within the batch.
func (s *Store) Add(batch ...*authors.Author) error {
	seen := make(map[authors.AuthorID]struct{}, len(batch))
	for _, a := range batch {
		if _, ok := s.index[a.ID]; ok {
			return fmt.Errorf("add author %d: %w", a.ID, ErrDuplicateID)
		}
		if _, ok := seen[a.ID]; ok {
			return fmt.Errorf("add author %d: %w", a.ID, ErrDuplicateID)
		}
		seen[a.ID] = struct{}{}
	}

	for _, a := range batch {
		s.index[a.ID] = a
		s.members = append(s.members, a)
	}
	s.sortByID()
	return nil
}

// Reset discards every current member and installs next in their place.
// It returns the discarded members in id order. On error the store is left
// unchanged.
func (s *Store) Reset(next []*authors.Author) ([]*authors.Author, error) {
	index := make(map[authors.AuthorID]*authors.Author, len(next))
	for _, a := range next {
		if _, ok := index[a.ID]; ok {
			return nil, fmt.Errorf("reset with author %d: %w", a.ID, ErrDuplicateID)
		}
		index[a.ID] = a
	}

	previous := s.members
	s.members = append([]*authors.Author(nil), next...)
	s.index = index
	s.sortByID()
	return previous, nil
}

// Get returns the author with the given id.
func (s *Store) Get(id authors.AuthorID) (*authors.Author, bool) {
	a, ok := s.index[id]
	return a, ok
}

// At returns the author at position i in id order.
func (s *Store) At(i int) *authors.Author {
	return s.members[i]
}

// Members returns the live authors in id order. The slice is a copy; the
// authors are not.
func (s *Store) Members() []*authors.Author {
	return append([]*authors.Author(nil), s.members...)
}

// Each calls fn for every member in id order.
func (s *Store) Each(fn func(a *authors.Author)) {
	for _, a := range s.members {
		fn(a)
	}
}

// Snapshot returns value copies of every member in id order, safe to hand
// to observers.
func (s *Store) Snapshot() []authors.Author {
	return Values(s.members)
}

// Values copies a slice of authors into values.
func Values(list []*authors.Author) []authors.Author {
	out := make([]authors.Author, len(list))
	for i, a := range list {
		out[i] = *a
	}
	return out
}

func (s *Store) sortByID() {
	sort.Slice(s.members, func(i, j int) bool {
		return s.members[i].ID < s.members[j].ID
	})
}
