package catalog

import "strings"

// Item is one entry of the remote catalog, as reported by the metadata
// provider. Items are ordered; the catalog position drives reconciliation
// and playlist order.
type Item struct {
	ID    string
	Title string
	URL   string
}

// VideoRecord is the per-run working record for one catalog item: the item
// plus its resolved local output path. Records are rebuilt on every run and
// discarded afterwards; only the state store and key store persist.
type VideoRecord struct {
	ID         string
	Title      string
	URL        string
	OutputPath string
}

// List is an ordered, mutable collection of catalog items keyed by id.
// Transform rules operate on it in place: pre-rules rewrite titles or ids,
// post-rules delete entries.
type List struct {
	order []string
	items map[string]*Item
}

// NewList builds a List from items in the given order. Later duplicates of
// an id are dropped.
func NewList(items []Item) *List {
	l := &List{items: make(map[string]*Item, len(items))}
	for i := range items {
		item := items[i]
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, exists := l.items[id]; exists {
			continue
		}
		item.ID = id
		copied := item
		l.items[id] = &copied
		l.order = append(l.order, id)
	}
	return l
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.order) }

// IDs returns the item ids in catalog order.
func (l *List) IDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Get returns the item with the given id.
func (l *List) Get(id string) (*Item, bool) {
	item, ok := l.items[id]
	return item, ok
}

// Items returns the items in catalog order. The pointers alias the list's
// own entries so callers may mutate titles in place.
func (l *List) Items() []*Item {
	out := make([]*Item, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id])
	}
	return out
}

// Delete removes the item with the given id, preserving the order of the
// remaining items.
func (l *List) Delete(id string) {
	if _, ok := l.items[id]; !ok {
		return
	}
	delete(l.items, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Rename changes an item's id, keeping its catalog position. It is a no-op
// when the new id is blank or already taken.
func (l *List) Rename(oldID, newID string) bool {
	newID = strings.TrimSpace(newID)
	if newID == "" || oldID == newID {
		return false
	}
	item, ok := l.items[oldID]
	if !ok {
		return false
	}
	if _, taken := l.items[newID]; taken {
		return false
	}
	delete(l.items, oldID)
	item.ID = newID
	l.items[newID] = item
	for i, existing := range l.order {
		if existing == oldID {
			l.order[i] = newID
			break
		}
	}
	return true
}
