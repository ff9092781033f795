// Package fifo provides a bounded map that evicts in insertion order.
package fifo

// Map is a key/value store capped at a fixed number of entries. When full,
// the oldest inserted key is evicted regardless of how recently it was read.
// Overwriting an existing key keeps its original position.
//
// Map is not safe for concurrent use; callers provide their own locking.
type Map[K comparable, V any] struct {
	capacity int
	entries  map[K]V
	order    []K
}

// New returns a Map holding at most capacity entries. A capacity below one
// is treated as one.
func New[K comparable, V any](capacity int) *Map[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Map[K, V]{
		capacity: capacity,
		entries:  make(map[K]V, capacity),
		order:    make([]K, 0, capacity),
	}
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.entries[k]
	return v, ok
}

// Put stores v under k and returns the keys evicted to make room.
func (m *Map[K, V]) Put(k K, v V) []K {
	if _, ok := m.entries[k]; ok {
		m.entries[k] = v
		return nil
	}

	m.entries[k] = v
	m.order = append(m.order, k)

	var evicted []K
	for len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted
}

// Values returns the stored values from oldest to newest.
func (m *Map[K, V]) Values() []V {
	out := make([]V, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.entries[k])
	}
	return out
}

// Keys returns the stored keys from oldest to newest.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of stored entries.
func (m *Map[K, V]) Len() int { return len(m.entries) }

// Cap returns the configured capacity.
func (m *Map[K, V]) Cap() int { return m.capacity }

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	clear(m.entries)
	m.order = m.order[:0]
}
