// Package view derives the sorted and filtered projections the user
// interface lists are bound to: the card list, the tag list and the tag
// names offered for completion. Views observe a deck and never mutate it.
package view

import (
	"regexp"
	"strings"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/util"
)

// SearchFilter selects cards by a search term over names and, optionally,
// descriptions.
type SearchFilter struct {
	Term          string
	WholeWord     bool
	CaseSensitive bool
	Descriptions  bool
}

// DefaultSearchFilter matches everything and searches descriptions once a
// term is entered.
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{Descriptions: true}
}

// Matcher compiles the filter into a predicate. A term that is empty after
// trimming matches every card.
func (f SearchFilter) Matcher() func(*domain.SpellCard) bool {
	term := strings.TrimSpace(f.Term)
	if term == "" {
		return func(*domain.SpellCard) bool { return true }
	}

	var contains func(string) bool
	switch {
	case f.WholeWord:
		pattern := `\b` + regexp.QuoteMeta(term) + `\b`
		if !f.CaseSensitive {
			pattern = `(?i)` + pattern
		}
		re := regexp.MustCompile(pattern)
		contains = re.MatchString
	case f.CaseSensitive:
		contains = func(s string) bool { return strings.Contains(s, term) }
	default:
		folded := util.Fold(term)
		contains = func(s string) bool { return strings.Contains(util.Fold(s), folded) }
	}

	descriptions := f.Descriptions
	return func(c *domain.SpellCard) bool {
		return contains(c.Name()) || (descriptions && contains(c.Description()))
	}
}

// SortOptions orders the card list.
type SortOptions struct {
	// GroupByLevel sorts by Level before anything else.
	GroupByLevel bool
	// FavoritesFirst puts favourites ahead of other cards of the same level.
	FavoritesFirst bool
}

// DefaultSortOptions groups by level.
func DefaultSortOptions() SortOptions {
	return SortOptions{GroupByLevel: true}
}

// Compare orders two cards: level, then favourites, then name.
func (o SortOptions) Compare(a, b *domain.SpellCard) int {
	if o.GroupByLevel {
		if c := util.CompareNames(a.Level(), b.Level()); c != 0 {
			return c
		}
	}
	if o.FavoritesFirst && a.IsFavorite() != b.IsFavorite() {
		if a.IsFavorite() {
			return -1
		}
		return 1
	}
	return util.CompareNames(a.Name(), b.Name())
}
