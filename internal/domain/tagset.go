package domain

import (
	"iter"
	"slices"

	"github.com/spellcardmanager/spellcards/internal/reactive"
	"github.com/spellcardmanager/spellcards/internal/util"
)

// TagSetChange is a membership change of a TagSet.
type TagSetChange = reactive.CacheChange[string, *Tag]

// TagSet is the set of tags attached to a card. It holds references to the
// deck's tags, keyed by ID, in the order they were attached.
type TagSet struct {
	tags *reactive.Cache[string, *Tag]
}

// NewTagSet returns a set holding tags. Duplicate IDs keep the first tag.
func NewTagSet(tags ...*Tag) *TagSet {
	s := &TagSet{tags: reactive.NewCache((*Tag).ID)}
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Changed fires after every membership change.
func (s *TagSet) Changed() *reactive.Signal[TagSetChange] {
	return s.tags.Changed()
}

// Add attaches t. It reports false when a tag with the same ID is already present.
func (s *TagSet) Add(t *Tag) bool {
	if s.tags.Contains(t.ID()) {
		return false
	}
	s.tags.AddOrUpdate(t)
	return true
}

// Remove detaches the tag with t's ID.
func (s *TagSet) Remove(t *Tag) bool {
	return s.RemoveID(t.ID())
}

// RemoveID detaches the tag with the given ID.
func (s *TagSet) RemoveID(tagID string) bool {
	_, ok := s.tags.RemoveKey(tagID)
	return ok
}

// Toggle attaches t when absent and detaches it when present. It reports
// whether the tag is attached afterwards.
func (s *TagSet) Toggle(t *Tag) bool {
	if s.Remove(t) {
		return false
	}
	s.tags.AddOrUpdate(t)
	return true
}

// Rebind swaps the attached tag sharing t's ID for the instance t, keeping
// its position. It reports whether a different instance was replaced.
func (s *TagSet) Rebind(t *Tag) bool {
	current, ok := s.tags.Lookup(t.ID())
	if !ok || current == t {
		return false
	}
	s.tags.AddOrUpdate(t)
	return true
}

// Contains reports whether a tag with t's ID is attached.
func (s *TagSet) Contains(t *Tag) bool {
	return s.tags.Contains(t.ID())
}

// ContainsID reports whether a tag with the given ID is attached.
func (s *TagSet) ContainsID(tagID string) bool {
	return s.tags.Contains(tagID)
}

// Lookup returns the attached tag with the given ID.
func (s *TagSet) Lookup(tagID string) (*Tag, bool) {
	return s.tags.Lookup(tagID)
}

// Len returns the number of attached tags.
func (s *TagSet) Len() int {
	return s.tags.Len()
}

// Items returns the attached tags in attachment order.
func (s *TagSet) Items() []*Tag {
	return s.tags.Items()
}

// All iterates over the attached tags in attachment order.
func (s *TagSet) All() iter.Seq[*Tag] {
	return func(yield func(*Tag) bool) {
		for _, t := range s.tags.All() {
			if !yield(t) {
				return
			}
		}
	}
}

// Sorted returns the attached tags ordered by name.
func (s *TagSet) Sorted() []*Tag {
	return SortTags(s.Items())
}

// Clear detaches every tag.
func (s *TagSet) Clear() {
	s.tags.Clear()
}

// Clone returns a new set referencing the same tag instances.
func (s *TagSet) Clone() *TagSet {
	return NewTagSet(s.Items()...)
}

// SortTags sorts tags by name in place and returns them.
func SortTags(tags []*Tag) []*Tag {
	slices.SortStableFunc(tags, func(a, b *Tag) int {
		return util.CompareNames(a.Name(), b.Name())
	})
	return tags
}
