package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/id"
)

func recordFields(c *SpellCard) *[]CardField {
	var fields []CardField
	c.Changed().Subscribe(func(ch CardChange) {
		fields = append(fields, ch.Field)
	})
	return &fields
}

func TestSpellCard_Level(t *testing.T) {
	tests := []struct {
		name  string
		attrs []Attribute
		want  string
	}{
		{"capitalised key", []Attribute{{"Level", "3"}}, "3"},
		{"lowercase key", []Attribute{{"level", "2"}}, "2"},
		{"no level", []Attribute{{"School", "Evocation"}}, NoLevel},
		{"empty", nil, NoLevel},
		{"first of several wins", []Attribute{{"School", "Abjuration"}, {"LEVEL", "1"}, {"level", "9"}}, "1"},
		{"empty value", []Attribute{{"Level", ""}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCard("Shield")
			c.SetAttributes(NewAttributes(tt.attrs...))
			assert.Equal(t, tt.want, c.Level())
		})
	}
}

func TestSpellCard_LevelFollowsEdits(t *testing.T) {
	c := NewCard("Fireball")
	fields := recordFields(c)
	attrs := c.Attributes()

	attrs.Append(Attribute{"School", "Evocation"})
	assert.Equal(t, NoLevel, c.Level())

	attrs.Append(Attribute{"Level", "3"})
	assert.Equal(t, "3", c.Level())

	attrs.Set(1, Attribute{"Level", "4"})
	assert.Equal(t, "4", c.Level())

	attrs.Set(1, Attribute{"Range", "150 feet"})
	assert.Equal(t, NoLevel, c.Level())

	attrs.Insert(0, Attribute{"level", "5"})
	assert.Equal(t, "5", c.Level())

	attrs.RemoveAt(0)
	assert.Equal(t, NoLevel, c.Level())

	assert.Equal(t, []CardField{
		CardAttributes,
		CardAttributes, CardLevel,
		CardAttributes, CardLevel,
		CardAttributes, CardLevel,
		CardAttributes, CardLevel,
		CardAttributes, CardLevel,
	}, *fields)
}

func TestSpellCard_NewCardWithLevel(t *testing.T) {
	c := NewCardWithLevel("2")

	assert.Equal(t, "", c.Name())
	assert.Equal(t, "2", c.Level())
	assert.Equal(t, []Attribute{{LevelKey, "2"}}, c.Attributes().Items())
	assert.False(t, c.CanSave())

	c.SetName("Misty Step")
	assert.True(t, c.CanSave())
}

func TestSpellCard_RecursiveChange(t *testing.T) {
	combat := NewTag("Combat", color.Red)
	c := NewCard("Magic Missile")
	fields := recordFields(c)

	c.SetName("Magic Missile")
	c.SetName("Magic Missiles")
	c.SetDescription("Three *darts*.")
	c.SetFavorite(true)
	c.ToggleFavorite()
	c.Tags().Add(combat)
	c.Tags().Add(combat)
	c.Tags().Remove(combat)

	assert.Equal(t, []CardField{
		CardName, CardDescription, CardFavorite, CardFavorite, CardTags, CardTags,
	}, *fields, "no-op assignments and duplicate adds are silent")
}

func TestSpellCard_ReplacingContainersResubscribes(t *testing.T) {
	c := NewCard("Counterspell")
	fields := recordFields(c)

	oldAttrs := c.Attributes()
	oldTags := c.Tags()

	newAttrs := NewAttributes(Attribute{"Level", "3"})
	c.SetAttributes(newAttrs)
	newTags := NewTagSet()
	c.SetTags(newTags)

	require.Equal(t, []CardField{CardAttributes, CardLevel, CardTags}, *fields)
	assert.Equal(t, "3", c.Level())

	*fields = nil
	oldAttrs.Append(Attribute{"Level", "9"})
	oldTags.Add(NewTag("Stale", color.Black))
	assert.Empty(t, *fields, "old containers are no longer observed")
	assert.Equal(t, "3", c.Level())

	newAttrs.Set(0, Attribute{"Level", "5"})
	newTags.Add(NewTag("Reaction", color.Black))
	assert.Equal(t, []CardField{CardAttributes, CardLevel, CardTags}, *fields)
	assert.Equal(t, "5", c.Level())
}

func TestSpellCard_SetNilContainers(t *testing.T) {
	c := NewCard("Light")
	c.SetAttributes(nil)
	c.SetTags(nil)

	require.NotNil(t, c.Attributes())
	require.NotNil(t, c.Tags())
	assert.Equal(t, 0, c.Attributes().Len())
}

func TestSpellCard_Attribute(t *testing.T) {
	c := NewCard("Bless")
	c.SetAttributes(NewAttributes(Attribute{"Casting Time", "1 action"}, Attribute{"casting time", "other"}))

	v, ok := c.Attribute("CASTING TIME")
	assert.True(t, ok)
	assert.Equal(t, "1 action", v)

	_, ok = c.Attribute("Duration")
	assert.False(t, ok)
}

func TestSpellCard_Clones(t *testing.T) {
	combat := NewTag("Combat", color.Red)
	c := NewCard("Fireball")
	c.SetDescription("Boom")
	c.SetFavorite(true)
	c.SetAttributes(NewAttributes(Attribute{"Level", "3"}))
	c.Tags().Add(combat)

	same := c.CloneWithCurrentID()
	fresh := c.CloneWithNewID()

	assert.Equal(t, c.ID(), same.ID())
	assert.NotEqual(t, c.ID(), fresh.ID())
	assert.True(t, id.HasPrefix(fresh.ID(), id.PrefixCard))

	for _, clone := range []*SpellCard{same, fresh} {
		assert.Equal(t, c.Name(), clone.Name())
		assert.Equal(t, c.Description(), clone.Description())
		assert.Equal(t, c.Attributes().Items(), clone.Attributes().Items())
		assert.Equal(t, "3", clone.Level())
		assert.True(t, clone.IsFavorite())
		require.Equal(t, 1, clone.Tags().Len())
		assert.Same(t, combat, clone.Tags().Items()[0], "tags are shared by reference")
		assert.NotSame(t, c.Attributes(), clone.Attributes())
		assert.NotSame(t, c.Tags(), clone.Tags())
	}

	same.Attributes().Append(Attribute{"Range", "150 feet"})
	assert.Equal(t, 1, c.Attributes().Len(), "clone containers are independent")
}

func TestSpellCard_CopyFrom(t *testing.T) {
	a := NewTag("A", color.Black)
	b := NewTag("B", color.Black)

	original := NewCard("Old")
	original.Tags().Add(a)
	fields := recordFields(original)

	edited := original.CloneWithCurrentID()
	edited.SetName("New")
	edited.SetAttributes(NewAttributes(Attribute{"Level", "1"}))
	edited.Tags().Remove(a)
	edited.Tags().Add(b)

	attrs := original.Attributes()
	original.CopyFrom(edited)

	assert.Equal(t, "New", original.Name())
	assert.Equal(t, "1", original.Level())
	assert.Same(t, attrs, original.Attributes(), "containers are kept")
	assert.Equal(t, []*Tag{b}, original.Tags().Items())
	assert.Contains(t, *fields, CardName)
	assert.Contains(t, *fields, CardLevel)
	assert.Contains(t, *fields, CardTags)
}

func TestSpellCard_SortedTags(t *testing.T) {
	c := NewCard("Haste")
	c.Tags().Add(NewTag("utility", color.Black))
	c.Tags().Add(NewTag("Buff", color.Black))
	c.Tags().Add(NewTag("concentration", color.Black))

	var names []string
	for _, tag := range c.SortedTags() {
		names = append(names, tag.Name())
	}
	assert.Equal(t, []string{"Buff", "concentration", "utility"}, names)
	assert.Equal(t, "utility", c.Tags().Items()[0].Name(), "attachment order is untouched")
}

func TestCardField_String(t *testing.T) {
	assert.Equal(t, "level", CardLevel.String())
	assert.Equal(t, "unknown", CardField(99).String())
}
