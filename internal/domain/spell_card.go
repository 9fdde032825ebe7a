package domain

import (
	"strings"

	"github.com/spellcardmanager/spellcards/internal/id"
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// NoLevel is the derived Level of a card without a "level" attribute.
const NoLevel = "[none]"

// LevelKey is the attribute key Level is derived from, matched case-insensitively.
const LevelKey = "Level"

// Attribute is one key/value row of a card. Order within a card is meaningful.
type Attribute struct {
	Key   string
	Value string
}

// Attributes is the observable, ordered attribute list of a card.
type Attributes = reactive.List[Attribute]

// NewAttributes returns an attribute list holding a copy of attrs.
func NewAttributes(attrs ...Attribute) *Attributes {
	return reactive.NewList(attrs...)
}

// CardField names the part of a card that changed.
type CardField int

const (
	CardName CardField = iota
	CardDescription
	// CardAttributes covers both replacing the list and editing its rows.
	CardAttributes
	// CardTags covers both replacing the set and changing its membership.
	CardTags
	CardFavorite
	// CardLevel is emitted after CardAttributes when the derived Level moved.
	CardLevel
)

// String returns the string representation of the field.
func (f CardField) String() string {
	switch f {
	case CardName:
		return "name"
	case CardDescription:
		return "description"
	case CardAttributes:
		return "attributes"
	case CardTags:
		return "tags"
	case CardFavorite:
		return "favorite"
	case CardLevel:
		return "level"
	default:
		return "unknown"
	}
}

// CardChange reports a change anywhere inside a card.
type CardChange struct {
	Card  *SpellCard
	Field CardField
}

// SpellCard is a named record with a Markdown description, ordered
// attributes, attached tags and a favourite flag. Level is derived from the
// attributes and cannot be assigned.
//
// Changed is the card's merged change signal: it fires for direct property
// changes and for edits inside the current attribute list and tag set.
// Replacing the list or set moves the inner subscriptions to the new
// container, so observers never resubscribe.
type SpellCard struct {
	id          string
	name        string
	description string
	attributes  *Attributes
	tags        *TagSet
	isFavorite  bool
	level       string

	attributesSub reactive.Subscription
	tagsSub       reactive.Subscription
	changed       reactive.Signal[CardChange]
}

// NewCard creates an empty card with a fresh ID.
func NewCard(name string) *SpellCard {
	return NewCardWithID(id.NewCard(), name)
}

// NewCardWithID creates an empty card with a known ID.
func NewCardWithID(cardID, name string) *SpellCard {
	c := &SpellCard{id: cardID, name: name, level: NoLevel}
	c.SetAttributes(NewAttributes())
	c.SetTags(NewTagSet())
	return c
}

// NewCardWithLevel creates an unnamed card whose only attribute is its level,
// as offered by the "new spell at level N" action.
func NewCardWithLevel(level string) *SpellCard {
	c := NewCard("")
	c.attributes.Append(Attribute{Key: LevelKey, Value: level})
	return c
}

// ID returns the card's identity.
func (c *SpellCard) ID() string { return c.id }

// Name returns the card name.
func (c *SpellCard) Name() string { return c.name }

// Description returns the raw Markdown description.
func (c *SpellCard) Description() string { return c.description }

// Attributes returns the live attribute list. Edits through it are observed.
func (c *SpellCard) Attributes() *Attributes { return c.attributes }

// Tags returns the live tag set. Edits through it are observed.
func (c *SpellCard) Tags() *TagSet { return c.tags }

// IsFavorite reports whether the card is marked as a favourite.
func (c *SpellCard) IsFavorite() bool { return c.isFavorite }

// Level returns the value of the first attribute whose key equals "level"
// ignoring case, or NoLevel.
func (c *SpellCard) Level() string { return c.level }

// Changed is the merged change signal described on SpellCard.
func (c *SpellCard) Changed() *reactive.Signal[CardChange] { return &c.changed }

// CanSave reports whether the card satisfies the requirements for saving.
func (c *SpellCard) CanSave() bool {
	return c.name != ""
}

// SetName renames the card.
func (c *SpellCard) SetName(name string) {
	if c.name == name {
		return
	}
	c.name = name
	c.emit(CardName)
}

// SetDescription replaces the description.
func (c *SpellCard) SetDescription(description string) {
	if c.description == description {
		return
	}
	c.description = description
	c.emit(CardDescription)
}

// SetFavorite sets the favourite flag.
func (c *SpellCard) SetFavorite(favorite bool) {
	if c.isFavorite == favorite {
		return
	}
	c.isFavorite = favorite
	c.emit(CardFavorite)
}

// ToggleFavorite flips the favourite flag.
func (c *SpellCard) ToggleFavorite() {
	c.SetFavorite(!c.isFavorite)
}

// SetAttributes replaces the attribute list. A nil list is replaced by an
// empty one.
func (c *SpellCard) SetAttributes(attrs *Attributes) {
	if attrs == nil {
		attrs = NewAttributes()
	}
	if c.attributes == attrs {
		return
	}
	if c.attributesSub != nil {
		c.attributesSub.Close()
	}
	first := c.attributes == nil

	c.attributes = attrs
	c.attributesSub = attrs.Changed().Subscribe(func(reactive.ListChange[Attribute]) {
		c.attributesChanged()
	})

	if first {
		c.level = deriveLevel(attrs)
		return
	}
	c.attributesChanged()
}

// SetTags replaces the tag set. A nil set is replaced by an empty one.
func (c *SpellCard) SetTags(tags *TagSet) {
	if tags == nil {
		tags = NewTagSet()
	}
	if c.tags == tags {
		return
	}
	if c.tagsSub != nil {
		c.tagsSub.Close()
	}
	first := c.tags == nil

	c.tags = tags
	c.tagsSub = tags.Changed().Subscribe(func(TagSetChange) {
		c.emit(CardTags)
	})

	if !first {
		c.emit(CardTags)
	}
}

// Attribute returns the value of the first attribute whose key matches key
// ignoring case.
func (c *SpellCard) Attribute(key string) (string, bool) {
	for _, attr := range c.attributes.All() {
		if strings.EqualFold(attr.Key, key) {
			return attr.Value, true
		}
	}
	return "", false
}

// SortedTags returns the attached tags ordered by name.
func (c *SpellCard) SortedTags() []*Tag {
	return c.tags.Sorted()
}

// CloneWithCurrentID returns a detached copy sharing this card's ID. Tags
// are shared by reference; the attribute list and tag set are new containers.
func (c *SpellCard) CloneWithCurrentID() *SpellCard {
	return c.cloneAs(c.id)
}

// CloneWithNewID returns a copy with a fresh ID, as used by "duplicate".
func (c *SpellCard) CloneWithNewID() *SpellCard {
	return c.cloneAs(id.NewCard())
}

func (c *SpellCard) cloneAs(cardID string) *SpellCard {
	clone := NewCardWithID(cardID, c.name)
	clone.description = c.description
	clone.isFavorite = c.isFavorite
	clone.SetAttributes(NewAttributes(c.attributes.Items()...))
	clone.SetTags(c.tags.Clone())
	return clone
}

// CopyFrom overwrites every editable field with other's content, keeping
// this card's ID and containers. Observers see ordinary change events.
func (c *SpellCard) CopyFrom(other *SpellCard) {
	c.SetName(other.name)
	c.SetDescription(other.description)
	c.SetFavorite(other.isFavorite)
	c.attributes.Reset(other.attributes.Items())

	for _, t := range c.tags.Items() {
		if !other.tags.Contains(t) {
			c.tags.Remove(t)
		}
	}
	for _, t := range other.tags.Items() {
		c.tags.Add(t)
	}
}

// String returns the card name.
func (c *SpellCard) String() string { return c.name }

func (c *SpellCard) attributesChanged() {
	level := deriveLevel(c.attributes)
	moved := level != c.level
	c.level = level

	c.emit(CardAttributes)
	if moved {
		c.emit(CardLevel)
	}
}

func (c *SpellCard) emit(field CardField) {
	c.changed.Emit(CardChange{Card: c, Field: field})
}

// deriveLevel rescans attrs for the first key equal to "level" ignoring case.
func deriveLevel(attrs *Attributes) string {
	for _, attr := range attrs.All() {
		if strings.EqualFold(attr.Key, LevelKey) {
			return attr.Value
		}
	}
	return NoLevel
}
