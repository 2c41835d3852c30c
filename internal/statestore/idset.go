package statestore

import "strings"

// IDSet is an ordered set of item ids. Insertion order is preserved; blanks
// and duplicates are rejected at the edge so the persisted lists stay clean.
type IDSet struct {
	order []string
	seen  map[string]struct{}
}

// NewIDSet builds a set from ids, trimming blanks and dropping duplicates.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id unless it is blank or already present. Reports whether the
// set changed.
func (s *IDSet) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Remove deletes id from the set. Reports whether the set changed.
func (s *IDSet) Remove(id string) bool {
	id = strings.TrimSpace(id)
	if _, ok := s.seen[id]; !ok {
		return false
	}
	delete(s.seen, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAll deletes every id present in other.
func (s *IDSet) RemoveAll(other *IDSet) {
	if other == nil {
		return
	}
	for _, id := range other.IDs() {
		s.Remove(id)
	}
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id string) bool {
	_, ok := s.seen[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of ids.
func (s *IDSet) Len() int { return len(s.order) }

// IDs returns the ids in insertion order.
func (s *IDSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clear removes every id.
func (s *IDSet) Clear() {
	s.order = nil
	s.seen = make(map[string]struct{})
}
