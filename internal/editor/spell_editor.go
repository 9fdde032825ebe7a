package editor

import (
	"slices"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/id"
)

// SpellEditor stages edits to one card. It is opened either on a new card
// or on an existing one; nothing is written until Save.
type SpellEditor struct {
	deck   *domain.Deck
	orig   *domain.SpellCard
	inDeck bool

	name        string
	description string
	favorite    bool
	rows        []domain.Attribute
	tags        []*domain.Tag
	selected    int
}

// NewSpellEditor opens an editor for a brand new card.
func NewSpellEditor(deck *domain.Deck) *SpellEditor {
	return &SpellEditor{deck: deck}
}

// EditSpell opens an editor on card. When card is in the deck, Save updates
// it in place; otherwise Save adds a card with card's ID.
func EditSpell(deck *domain.Deck, card *domain.SpellCard) *SpellEditor {
	return &SpellEditor{
		deck:        deck,
		orig:        card,
		inDeck:      deck.HasCard(card),
		name:        card.Name(),
		description: card.Description(),
		favorite:    card.IsFavorite(),
		rows:        card.Attributes().Items(),
		tags:        card.Tags().Items(),
	}
}

// Name returns the staged name.
func (e *SpellEditor) Name() string { return e.name }

// SetName stages a name.
func (e *SpellEditor) SetName(name string) { e.name = name }

// Description returns the staged description.
func (e *SpellEditor) Description() string { return e.description }

// SetDescription stages a description.
func (e *SpellEditor) SetDescription(description string) { e.description = description }

// CanSave reports whether the staged card has a name.
func (e *SpellEditor) CanSave() bool { return e.name != "" }

// Rows returns a copy of the staged attribute rows.
func (e *SpellEditor) Rows() []domain.Attribute {
	return slices.Clone(e.rows)
}

// SetRow replaces row i. Out-of-range indexes are ignored.
func (e *SpellEditor) SetRow(i int, attr domain.Attribute) {
	if i >= 0 && i < len(e.rows) {
		e.rows[i] = attr
	}
}

// SelectedRow returns the index of the selected row.
func (e *SpellEditor) SelectedRow() int { return e.selected }

// SelectRow selects row i.
func (e *SpellEditor) SelectRow(i int) { e.selected = i }

// AddRow appends an empty row and selects it.
func (e *SpellEditor) AddRow() {
	e.rows = append(e.rows, domain.Attribute{})
	e.selected = len(e.rows) - 1
}

// RemoveRow deletes the selected row.
func (e *SpellEditor) RemoveRow() {
	if e.selected < 0 || e.selected >= len(e.rows) {
		return
	}
	e.rows = slices.Delete(e.rows, e.selected, e.selected+1)
	e.selected = min(e.selected, len(e.rows)-1)
}

// MoveRowUp swaps the selected row with the one above; the selection follows.
func (e *SpellEditor) MoveRowUp() {
	row := e.selected
	if row >= 1 && row < len(e.rows) {
		e.rows[row], e.rows[row-1] = e.rows[row-1], e.rows[row]
		e.selected = row - 1
	}
}

// MoveRowDown swaps the selected row with the one below; the selection follows.
func (e *SpellEditor) MoveRowDown() {
	row := e.selected
	if row >= 0 && row < len(e.rows)-1 {
		e.rows[row], e.rows[row+1] = e.rows[row+1], e.rows[row]
		e.selected = row + 1
	}
}

// Tags returns the staged tags.
func (e *SpellEditor) Tags() []*domain.Tag {
	return slices.Clone(e.tags)
}

// AddTag stages the deck tag named exactly name. It reports false when no
// such tag exists or it is already staged.
func (e *SpellEditor) AddTag(name string) bool {
	for _, t := range e.deck.Tags().All() {
		if t.Name() != name {
			continue
		}
		if slices.ContainsFunc(e.tags, func(other *domain.Tag) bool { return other.ID() == t.ID() }) {
			return false
		}
		e.tags = append(e.tags, t)
		return true
	}
	return false
}

// RemoveTag unstages the first tag named exactly name.
func (e *SpellEditor) RemoveTag(name string) bool {
	i := slices.IndexFunc(e.tags, func(t *domain.Tag) bool { return t.Name() == name })
	if i < 0 {
		return false
	}
	e.tags = slices.Delete(e.tags, i, i+1)
	return true
}

// AvailableTags returns the names of deck tags not yet staged, in deck order.
func (e *SpellEditor) AvailableTags() []string {
	var names []string
	for _, t := range e.deck.Tags().All() {
		if !slices.ContainsFunc(e.tags, func(other *domain.Tag) bool { return other.ID() == t.ID() }) {
			names = append(names, t.Name())
		}
	}
	return names
}

// Save writes the staged card. A card already in the deck is updated in
// place; otherwise a new card is added, keeping the original card's ID when
// there was one. Saving without a name is a validation error.
func (e *SpellEditor) Save() (*domain.SpellCard, error) {
	if !e.CanSave() {
		return nil, errors.Validation("a spell needs a name")
	}

	if e.inDeck && e.orig != nil {
		e.orig.SetName(e.name)
		e.orig.SetDescription(e.description)
		e.orig.SetAttributes(domain.NewAttributes(e.rows...))
		e.orig.SetTags(domain.NewTagSet(e.tags...))
		return e.orig, nil
	}

	cardID := id.NewCard()
	if e.orig != nil {
		cardID = e.orig.ID()
	}
	card := domain.NewCardWithID(cardID, e.name)
	card.SetDescription(e.description)
	card.SetFavorite(e.favorite)
	card.SetAttributes(domain.NewAttributes(e.rows...))
	card.SetTags(domain.NewTagSet(e.tags...))

	e.deck.AddCard(card)
	e.orig = card
	e.inDeck = true
	return card, nil
}
