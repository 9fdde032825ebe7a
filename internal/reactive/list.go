package reactive

import (
	"iter"
	"slices"
)

// ChangeKind describes a mutation of an observable collection.
type ChangeKind int

const (
	// ChangeAdd is an insertion of a new item.
	ChangeAdd ChangeKind = iota
	// ChangeRemove is a removal of an item.
	ChangeRemove
	// ChangeReplace replaces an item in place (list Set, cache update).
	ChangeReplace
	// ChangeMove relocates an item within a list.
	ChangeMove
	// ChangeReset replaces or clears the whole collection.
	ChangeReset
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeReplace:
		return "replace"
	case ChangeMove:
		return "move"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ListChange describes one mutation of a List.
//
//	Add:     Index, New
//	Remove:  Index, Old
//	Replace: Index, Old, New
//	Move:    OldIndex -> Index, New is the moved item
//	Reset:   no item fields; read the list
type ListChange[T any] struct {
	Kind     ChangeKind
	Index    int
	OldIndex int
	Old      T
	New      T
}

// List is an ordered observable sequence.
type List[T any] struct {
	items   []T
	changed Signal[ListChange[T]]
}

// NewList returns a list holding a copy of items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{items: slices.Clone(items)}
}

// Changed fires after every mutation.
func (l *List[T]) Changed() *Signal[ListChange[T]] {
	return &l.changed
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the item at i. It panics when i is out of range.
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// Items returns a copy of the items.
func (l *List[T]) Items() []T {
	return slices.Clone(l.items)
}

// All iterates over index/item pairs of a snapshot of the list.
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.Items())
}

// IndexFunc returns the index of the first item satisfying fn, or -1.
func (l *List[T]) IndexFunc(fn func(T) bool) int {
	return slices.IndexFunc(l.items, fn)
}

// IndexOf returns the index of the first item equal to v, or -1.
func IndexOf[T comparable](l *List[T], v T) int {
	return slices.Index(l.items, v)
}

// Append adds v to the end of the list.
func (l *List[T]) Append(v T) {
	l.Insert(len(l.items), v)
}

// Insert places v at index i, shifting later items.
func (l *List[T]) Insert(i int, v T) {
	l.items = slices.Insert(l.items, i, v)
	l.changed.Emit(ListChange[T]{Kind: ChangeAdd, Index: i, OldIndex: -1, New: v})
}

// RemoveAt deletes and returns the item at i.
func (l *List[T]) RemoveAt(i int) T {
	old := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.changed.Emit(ListChange[T]{Kind: ChangeRemove, Index: i, OldIndex: i, Old: old})
	return old
}

// RemoveFunc deletes the first item satisfying fn and reports whether one was found.
func (l *List[T]) RemoveFunc(fn func(T) bool) bool {
	i := l.IndexFunc(fn)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// Set replaces the item at i.
func (l *List[T]) Set(i int, v T) {
	old := l.items[i]
	l.items[i] = v
	l.changed.Emit(ListChange[T]{Kind: ChangeReplace, Index: i, OldIndex: i, Old: old, New: v})
}

// Move relocates the item at from so that it ends up at index to.
func (l *List[T]) Move(from, to int) {
	if from == to {
		return
	}
	v := l.items[from]
	l.items = slices.Delete(l.items, from, from+1)
	l.items = slices.Insert(l.items, to, v)
	l.changed.Emit(ListChange[T]{Kind: ChangeMove, Index: to, OldIndex: from, New: v})
}

// Reset replaces the whole content with a copy of items.
func (l *List[T]) Reset(items []T) {
	l.items = slices.Clone(items)
	l.changed.Emit(ListChange[T]{Kind: ChangeReset, Index: -1, OldIndex: -1})
}

// Clear removes every item.
func (l *List[T]) Clear() {
	l.Reset(nil)
}
