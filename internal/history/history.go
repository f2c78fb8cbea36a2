// Package history records item accesses, most recent last, with at most one
// entry per key.
//
// A Tracker is not safe for concurrent use; callers serialize access.
package history

import "container/list"

// Tracker is an ordered, deduplicated access log. Record, Remove and the
// dedup step are O(1) regardless of history length.
type Tracker[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List // Front = oldest, Back = most recent
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a tracker. A capacity <= 0 keeps every entry; otherwise the
// oldest entry is dropped once the limit is reached.
func New[K comparable, V any](capacity int) *Tracker[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Tracker[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Record appends value under key as the most recent entry. A previous entry
// for key is removed first.
func (t *Tracker[K, V]) Record(key K, value V) {
	if elem, ok := t.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		t.order.MoveToBack(elem)
		return
	}
	if t.capacity > 0 && t.order.Len() >= t.capacity {
		t.evictOldest()
	}
	t.items[key] = t.order.PushBack(&entry[K, V]{key: key, value: value})
}

// Remove drops the entry for key. It reports whether one existed.
func (t *Tracker[K, V]) Remove(key K) bool {
	elem, ok := t.items[key]
	if !ok {
		return false
	}
	t.order.Remove(elem)
	delete(t.items, key)
	return true
}

// Len returns the number of entries.
func (t *Tracker[K, V]) Len() int {
	return t.order.Len()
}

// Values returns the recorded values, oldest first. The slice is a fresh copy.
func (t *Tracker[K, V]) Values() []V {
	out := make([]V, 0, t.order.Len())
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*entry[K, V]).value)
	}
	return out
}

func (t *Tracker[K, V]) evictOldest() {
	oldest := t.order.Front()
	if oldest == nil {
		return
	}
	t.order.Remove(oldest)
	delete(t.items, oldest.Value.(*entry[K, V]).key)
}
