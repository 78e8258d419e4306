package cache

import "container/list"

// memoryTier is the bounded Tier-1 LRU map. It is not safe for concurrent
// use on its own; TwoTier serializes access.
type memoryTier struct {
	maxEntries int
	order      *list.List // front = most recently used
	index      map[string]*list.Element
}

func newMemoryTier(maxEntries int) *memoryTier {
	return &memoryTier{
		maxEntries: maxEntries,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}
}

// get returns the entry and promotes it to most-recently-used.
func (m *memoryTier) get(fingerprint string) (*Entry, bool) {
	elem, ok := m.index[fingerprint]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(elem)
	return elem.Value.(*Entry), true
}

// put inserts an entry as most-recently-used. If the tier would exceed its
// capacity, the least-recently-used entry is removed and returned so the
// caller can write it through to Tier-2. Inserting over an existing
// fingerprint replaces it in place.
func (m *memoryTier) put(entry *Entry) *Entry {
	if elem, ok := m.index[entry.Fingerprint]; ok {
		elem.Value = entry
		m.order.MoveToFront(elem)
		return nil
	}

	m.index[entry.Fingerprint] = m.order.PushFront(entry)
	if m.order.Len() <= m.maxEntries {
		return nil
	}

	oldest := m.order.Back()
	evicted := oldest.Value.(*Entry)
	m.order.Remove(oldest)
	delete(m.index, evicted.Fingerprint)
	return evicted
}

// remove deletes a fingerprint if present.
func (m *memoryTier) remove(fingerprint string) {
	if elem, ok := m.index[fingerprint]; ok {
		m.order.Remove(elem)
		delete(m.index, fingerprint)
	}
}

func (m *memoryTier) len() int {
	return m.order.Len()
}
