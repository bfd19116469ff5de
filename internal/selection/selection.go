// Package selection implements multi-select and the single destructive action
// of list pages.
package selection

import (
	"sort"
	"sync"
)

const (
	LabelDeleteSelected = "Delete Selected"
	LabelDeleteAll      = "Delete All"
)

// Set is the ids a user has checked on one list instance.
type Set struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Toggle flips id and reports whether it is now selected.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Selected returns the ids in sorted order.
func (s *Set) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reconcile drops ids that are no longer in the list.
func (s *Set) Reconcile(present []string) {
	keep := make(map[string]struct{}, len(present))
	for _, id := range present {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// Action is what the one destructive button would do right now.
type Action struct {
	Label   string
	Targets []string
	// All is set when nothing is selected and the button means "Delete All".
	All bool
}

// Action derives the button from the selection and the ids on screen.
// Selected ids that are not visible are still targeted; callers reconcile on refetch.
func (s *Set) Action(visible []string) Action {
	if selected := s.Selected(); len(selected) > 0 {
		return Action{Label: LabelDeleteSelected, Targets: selected}
	}
	return Action{Label: LabelDeleteAll, Targets: append([]string(nil), visible...), All: true}
}
