package reactive

import (
	"iter"
	"slices"
)

// ChangeUpdate is the cache name for an in-place replacement of a key's value.
const ChangeUpdate = ChangeReplace

// CacheChange describes one mutation of a Cache.
type CacheChange[K comparable, V any] struct {
	Kind     ChangeKind // ChangeAdd, ChangeUpdate or ChangeRemove
	Key      K
	Current  V // the value now stored; zero for removals
	Previous V // the value replaced or removed; zero for additions
}

// Cache is a keyed observable collection. Keys are derived from values and
// are unique. Iteration follows insertion order, and updating an existing key
// keeps its position.
type Cache[K comparable, V any] struct {
	keyOf   func(V) K
	values  map[K]V
	order   []K
	changed Signal[CacheChange[K, V]]
}

// NewCache returns an empty cache keyed by keyOf.
func NewCache[K comparable, V any](keyOf func(V) K) *Cache[K, V] {
	return &Cache[K, V]{
		keyOf:  keyOf,
		values: make(map[K]V),
	}
}

// Changed fires after every mutation.
func (c *Cache[K, V]) Changed() *Signal[CacheChange[K, V]] {
	return &c.changed
}

// KeyOf returns the key v is stored under.
func (c *Cache[K, V]) KeyOf(v V) K {
	return c.keyOf(v)
}

// AddOrUpdate stores v under its key, replacing any value already there.
func (c *Cache[K, V]) AddOrUpdate(v V) {
	key := c.keyOf(v)
	previous, exists := c.values[key]
	c.values[key] = v

	if exists {
		c.changed.Emit(CacheChange[K, V]{Kind: ChangeUpdate, Key: key, Current: v, Previous: previous})
		return
	}
	c.order = append(c.order, key)
	c.changed.Emit(CacheChange[K, V]{Kind: ChangeAdd, Key: key, Current: v})
}

// Remove deletes the value stored under v's key.
func (c *Cache[K, V]) Remove(v V) bool {
	_, ok := c.RemoveKey(c.keyOf(v))
	return ok
}

// RemoveKey deletes and returns the value stored under key.
func (c *Cache[K, V]) RemoveKey(key K) (V, bool) {
	previous, ok := c.values[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.values, key)
	c.order = slices.DeleteFunc(c.order, func(k K) bool { return k == key })
	c.changed.Emit(CacheChange[K, V]{Kind: ChangeRemove, Key: key, Previous: previous})
	return previous, true
}

// Clear removes every value, emitting one removal per key in order.
func (c *Cache[K, V]) Clear() {
	for _, key := range slices.Clone(c.order) {
		c.RemoveKey(key)
	}
}

// Lookup returns the value stored under key.
func (c *Cache[K, V]) Lookup(key K) (V, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Contains reports whether key is present.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.values[key]
	return ok
}

// Len returns the number of values.
func (c *Cache[K, V]) Len() int {
	return len(c.order)
}

// Keys returns the keys in insertion order.
func (c *Cache[K, V]) Keys() []K {
	return slices.Clone(c.order)
}

// Items returns the values in insertion order.
func (c *Cache[K, V]) Items() []V {
	items := make([]V, 0, len(c.order))
	for _, key := range c.order {
		items = append(items, c.values[key])
	}
	return items
}

// All iterates over a snapshot of key/value pairs in insertion order.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	keys := c.Keys()
	return func(yield func(K, V) bool) {
		for _, key := range keys {
			v, ok := c.values[key]
			if !ok {
				continue
			}
			if !yield(key, v) {
				return
			}
		}
	}
}
