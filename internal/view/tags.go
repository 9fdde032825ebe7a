package view

import (
	"slices"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/reactive"
	"github.com/spellcardmanager/spellcards/internal/util"
)

// SearchedTags is the list of tags a card must carry to pass the tag filter.
// Tags removed from the deck drop out of the list.
type SearchedTags struct {
	deck *domain.Deck
	tags *reactive.List[*domain.Tag]
	sub  reactive.Subscription
}

// NewSearchedTags returns an empty list bound to deck.
func NewSearchedTags(deck *domain.Deck) *SearchedTags {
	s := &SearchedTags{deck: deck, tags: reactive.NewList[*domain.Tag]()}
	s.sub = deck.Changes().Subscribe(func(ch domain.DeckChange) {
		if ch.Kind == domain.TagRemoved {
			s.tags.RemoveFunc(func(t *domain.Tag) bool { return t.ID() == ch.Tag.ID() })
		}
	})
	return s
}

// Changed fires after every change to the list.
func (s *SearchedTags) Changed() *reactive.Signal[reactive.ListChange[*domain.Tag]] {
	return s.tags.Changed()
}

// Add appends the first deck tag named exactly name. It reports false when
// no such tag exists or it is already searched.
func (s *SearchedTags) Add(name string) bool {
	for _, t := range s.deck.Tags().All() {
		if t.Name() != name {
			continue
		}
		if s.contains(t) {
			return false
		}
		s.tags.Append(t)
		return true
	}
	return false
}

// Remove drops the first searched tag named exactly name.
func (s *SearchedTags) Remove(name string) bool {
	return s.tags.RemoveFunc(func(t *domain.Tag) bool { return t.Name() == name })
}

// Clear empties the list.
func (s *SearchedTags) Clear() {
	s.tags.Clear()
}

// Items returns the searched tags in the order they were added.
func (s *SearchedTags) Items() []*domain.Tag {
	return s.tags.Items()
}

// Len returns the number of searched tags.
func (s *SearchedTags) Len() int {
	return s.tags.Len()
}

// Matches reports whether c carries every searched tag.
func (s *SearchedTags) Matches(c *domain.SpellCard) bool {
	for _, t := range s.tags.All() {
		if !c.Tags().Contains(t) {
			return false
		}
	}
	return true
}

// Close stops observing the deck.
func (s *SearchedTags) Close() {
	s.sub.Close()
}

func (s *SearchedTags) contains(t *domain.Tag) bool {
	return s.tags.IndexFunc(func(other *domain.Tag) bool { return other.ID() == t.ID() }) >= 0
}

// TagView is the deck's tags sorted by name, kept current as tags are
// added, removed and renamed.
type TagView struct {
	deck    *domain.Deck
	items   []*domain.Tag
	changed reactive.Signal[[]*domain.Tag]
	sub     reactive.Subscription
}

// NewTagView builds the sorted tag list for deck.
func NewTagView(deck *domain.Deck) *TagView {
	v := &TagView{deck: deck}
	v.items = deck.SortedTags()
	v.sub = deck.Changes().Subscribe(func(ch domain.DeckChange) {
		switch ch.Kind {
		case domain.TagAdded, domain.TagRemoved, domain.TagReplaced:
			v.refresh()
		case domain.TagEdited:
			if ch.TagField == domain.TagName {
				v.refresh()
			}
		}
	})
	return v
}

// Items returns the sorted tags.
func (v *TagView) Items() []*domain.Tag {
	return slices.Clone(v.items)
}

// Changed fires with the new list whenever the order or membership changes.
func (v *TagView) Changed() *reactive.Signal[[]*domain.Tag] {
	return &v.changed
}

// Close stops observing the deck.
func (v *TagView) Close() {
	v.sub.Close()
}

func (v *TagView) refresh() {
	next := v.deck.SortedTags()
	if slices.Equal(next, v.items) {
		return
	}
	v.items = next
	v.changed.Emit(v.Items())
}

// TagNames is the list of tag names in deck order, used for completion
// when adding a tag to a search or a card.
type TagNames struct {
	deck    *domain.Deck
	names   []string
	changed reactive.Signal[[]string]
	sub     reactive.Subscription
}

// NewTagNames builds the name list for deck.
func NewTagNames(deck *domain.Deck) *TagNames {
	n := &TagNames{deck: deck}
	n.names = n.collect()
	n.sub = deck.Changes().Subscribe(func(ch domain.DeckChange) {
		switch ch.Kind {
		case domain.TagAdded, domain.TagRemoved, domain.TagReplaced, domain.TagEdited:
			n.refresh()
		}
	})
	return n
}

// Items returns the names.
func (n *TagNames) Items() []string {
	return slices.Clone(n.names)
}

// Matching returns the names starting with prefix, ignoring case.
func (n *TagNames) Matching(prefix string) []string {
	var out []string
	for _, name := range n.names {
		if util.HasPrefixFold(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// Changed fires with the new names whenever they change.
func (n *TagNames) Changed() *reactive.Signal[[]string] {
	return &n.changed
}

// Close stops observing the deck.
func (n *TagNames) Close() {
	n.sub.Close()
}

func (n *TagNames) collect() []string {
	names := make([]string, 0, n.deck.Tags().Len())
	for _, t := range n.deck.Tags().All() {
		names = append(names, t.Name())
	}
	return names
}

func (n *TagNames) refresh() {
	next := n.collect()
	if slices.Equal(next, n.names) {
		return
	}
	n.names = next
	n.changed.Emit(n.Items())
}
