package domain

import (
	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/id"
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// TagField names a mutable property of a Tag.
type TagField int

const (
	// TagName is Tag.Name.
	TagName TagField = iota
	// TagColor is Tag.Color.
	TagColor
)

// TagChange reports a property change on a tag.
type TagChange struct {
	Tag   *Tag
	Field TagField
}

// Tag is a named, coloured label. Tags are owned by a Deck and shared by
// reference between cards; two tags are the same tag iff their IDs match.
type Tag struct {
	id    string
	name  string
	color color.Color

	changed reactive.Signal[TagChange]
}

// NewTag creates a tag with a fresh ID.
func NewTag(name string, c color.Color) *Tag {
	return NewTagWithID(id.NewTag(), name, c)
}

// NewTagWithID creates a tag with a known ID, as when loading a deck.
func NewTagWithID(tagID, name string, c color.Color) *Tag {
	return &Tag{id: tagID, name: name, color: c}
}

// ID returns the tag's identity. It never changes.
func (t *Tag) ID() string { return t.id }

// Name returns the display name.
func (t *Tag) Name() string { return t.name }

// Color returns the chip colour.
func (t *Tag) Color() color.Color { return t.color }

// Changed fires after Name or Color change.
func (t *Tag) Changed() *reactive.Signal[TagChange] { return &t.changed }

// SetName renames the tag.
func (t *Tag) SetName(name string) {
	if t.name == name {
		return
	}
	t.name = name
	t.changed.Emit(TagChange{Tag: t, Field: TagName})
}

// SetColor recolours the tag.
func (t *Tag) SetColor(c color.Color) {
	if t.color == c {
		return
	}
	t.color = c
	t.changed.Emit(TagChange{Tag: t, Field: TagColor})
}

// Update copies Name and Color from other, keeping this tag's ID.
func (t *Tag) Update(other *Tag) {
	t.SetName(other.name)
	t.SetColor(other.color)
}

// Clone returns a detached copy with the same ID and no subscribers.
func (t *Tag) Clone() *Tag {
	return NewTagWithID(t.id, t.name, t.color)
}

// String returns the tag name.
func (t *Tag) String() string { return t.name }
