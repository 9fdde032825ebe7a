// Package editor holds the staged editing sessions for tags and spell
// cards. Edits are made on copies and only reach the deck on Save.
package editor

import (
	"slices"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/util"
)

// NewTagName is the name given to tags created in the editor.
const NewTagName = "New Tag"

// TagEditor edits the deck's tag list as a whole. It works on clones of the
// deck's tags; additions, removals and property edits are applied together
// by Save.
type TagEditor struct {
	deck      *domain.Deck
	tags      []*domain.Tag
	additions []*domain.Tag
	removals  []*domain.Tag
	filter    string
}

// NewTagEditor starts an editing session over deck's tags.
func NewTagEditor(deck *domain.Deck) *TagEditor {
	e := &TagEditor{deck: deck}
	for _, t := range deck.SortedTags() {
		e.tags = append(e.tags, t.Clone())
	}
	return e
}

// Tags returns the working copies, in the order they were listed or added.
// Renaming or recolouring them stages the edit.
func (e *TagEditor) Tags() []*domain.Tag {
	return slices.Clone(e.tags)
}

// Filter returns the current name prefix filter.
func (e *TagEditor) Filter() string {
	return e.filter
}

// SetFilter sets a name prefix filter, matched ignoring case.
func (e *TagEditor) SetFilter(prefix string) {
	e.filter = prefix
}

// Filtered returns the working copies whose names start with the filter,
// sorted by name.
func (e *TagEditor) Filtered() []*domain.Tag {
	var out []*domain.Tag
	for _, t := range e.tags {
		if util.HasPrefixFold(t.Name(), e.filter) {
			out = append(out, t)
		}
	}
	return domain.SortTags(out)
}

// Add stages a new tag and clears the filter so it is visible.
func (e *TagEditor) Add() *domain.Tag {
	t := domain.NewTag(NewTagName, color.ForName(NewTagName))
	e.additions = append(e.additions, t)
	e.tags = append(e.tags, t)
	e.filter = ""
	return t
}

// Remove stages the removal of t. Removing a tag added in this session
// simply drops it.
func (e *TagEditor) Remove(t *domain.Tag) bool {
	i := slices.Index(e.tags, t)
	if i < 0 {
		return false
	}
	e.tags = slices.Delete(e.tags, i, i+1)

	if j := slices.Index(e.additions, t); j >= 0 {
		e.additions = slices.Delete(e.additions, j, j+1)
		return true
	}
	e.removals = append(e.removals, t)
	return true
}

// Pending reports whether Save would change the deck's membership.
func (e *TagEditor) Pending() bool {
	return len(e.additions) > 0 || len(e.removals) > 0
}

// Save applies the session to the deck: additions first, then removals
// (which cascade to cards), then the name and colour of every surviving tag.
func (e *TagEditor) Save() {
	for _, t := range e.additions {
		e.deck.AddTag(t.Clone())
	}
	for _, t := range e.removals {
		e.deck.RemoveTag(t.ID())
	}
	for _, t := range e.tags {
		if live, ok := e.deck.Tag(t.ID()); ok {
			live.Update(t)
		}
	}
	e.additions = nil
	e.removals = nil
}
