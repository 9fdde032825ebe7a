package view

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/domain"
)

func card(name, level, description string) *domain.SpellCard {
	c := domain.NewCard(name)
	c.SetDescription(description)
	if level != "" {
		c.Attributes().Append(domain.Attribute{Key: domain.LevelKey, Value: level})
	}
	return c
}

func names(cards []*domain.SpellCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Name())
	}
	return out
}

func TestSearchFilter_Matcher(t *testing.T) {
	fireball := card("Fireball", "3", "A bright streak of flame.")
	bolt := card("Fire Bolt", "0", "You hurl a mote of fire.")
	shield := card("Shield", "1", "An invisible barrier of magical force.")

	tests := []struct {
		name   string
		filter SearchFilter
		want   []bool // fireball, bolt, shield
	}{
		{"empty term", SearchFilter{}, []bool{true, true, true}},
		{"blank term", SearchFilter{Term: "   "}, []bool{true, true, true}},
		{"substring ignores case", SearchFilter{Term: "FIRE"}, []bool{true, true, false}},
		{"term is trimmed", SearchFilter{Term: "  shield "}, []bool{false, false, true}},
		{"case sensitive", SearchFilter{Term: "fire", CaseSensitive: true}, []bool{false, false, false}},
		{"case sensitive with descriptions", SearchFilter{Term: "fire", CaseSensitive: true, Descriptions: true}, []bool{false, true, false}},
		{"whole word", SearchFilter{Term: "fire", WholeWord: true}, []bool{false, true, false}},
		{"whole word case sensitive", SearchFilter{Term: "Fire", WholeWord: true, CaseSensitive: true}, []bool{false, true, false}},
		{"descriptions off", SearchFilter{Term: "barrier"}, []bool{false, false, false}},
		{"descriptions on", SearchFilter{Term: "barrier", Descriptions: true}, []bool{false, false, true}},
		{"metacharacters are literal", SearchFilter{Term: "streak.of", Descriptions: true}, []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := tt.filter.Matcher()
			got := []bool{match(fireball), match(bolt), match(shield)}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortOptions_Compare(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Wish", "9", ""))
	d.AddCard(card("Meteor Swarm", "9", ""))
	d.AddCard(card("Bless", "1", ""))
	fav := card("Sleep", "1", "")
	fav.SetFavorite(true)
	d.AddCard(fav)
	d.AddCard(card("Animate Objects", "5", ""))

	v := NewCardView(d, nil)
	assert.Equal(t, []string{"Bless", "Sleep", "Animate Objects", "Meteor Swarm", "Wish"}, names(v.Items()))

	v.SetSort(SortOptions{GroupByLevel: true, FavoritesFirst: true})
	assert.Equal(t, []string{"Sleep", "Bless", "Animate Objects", "Meteor Swarm", "Wish"}, names(v.Items()))

	v.SetSort(SortOptions{FavoritesFirst: true})
	assert.Equal(t, []string{"Sleep", "Animate Objects", "Bless", "Meteor Swarm", "Wish"}, names(v.Items()))

	v.SetSort(SortOptions{})
	assert.Equal(t, []string{"Animate Objects", "Bless", "Meteor Swarm", "Sleep", "Wish"}, names(v.Items()))
}

func TestSortOptions_LevelsSortNumerically(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Ten", "10", ""))
	d.AddCard(card("Two", "2", ""))
	d.AddCard(card("Zero", "0", ""))

	v := NewCardView(d, nil)
	assert.Equal(t, []string{"Zero", "Two", "Ten"}, names(v.Items()))
}

func TestCardView_FollowsDeck(t *testing.T) {
	d := domain.NewDeck()
	bless := card("Bless", "1", "")
	d.AddCard(bless)

	v := NewCardView(d, nil)
	var emitted int
	v.Changed().Subscribe(func([]*domain.SpellCard) { emitted++ })

	wish := card("Wish", "9", "")
	d.AddCard(wish)
	assert.Equal(t, []string{"Bless", "Wish"}, names(v.Items()))

	wish.Attributes().Set(0, domain.Attribute{Key: "Level", Value: "0"})
	assert.Equal(t, []string{"Wish", "Bless"}, names(v.Items()), "level change reorders")

	wish.SetDescription("no effect on order")
	bless.SetName("Abjure")
	assert.Equal(t, []string{"Wish", "Abjure"}, names(v.Items()))

	d.RemoveCard(wish)
	assert.Equal(t, []string{"Abjure"}, names(v.Items()))

	assert.Equal(t, 3, emitted, "only membership or order changes are emitted")
}

func TestCardView_NeverMutatesDeck(t *testing.T) {
	d := domain.NewDeck()
	z := card("Zone of Truth", "2", "")
	a := card("Aid", "2", "")
	d.AddCard(z)
	d.AddCard(a)

	v := NewCardView(d, nil)
	require.Equal(t, []string{"Aid", "Zone of Truth"}, names(v.Items()))
	assert.Equal(t, []*domain.SpellCard{z, a}, d.Cards().Items())

	items := v.Items()
	items[0] = nil
	assert.NotNil(t, v.Items()[0], "Items returns a copy")
}

func TestCardView_SearchedTags(t *testing.T) {
	d := domain.NewDeck()
	combat := domain.NewTag("Combat", color.Red)
	fire := domain.NewTag("Fire", color.Red)
	d.AddTag(combat)
	d.AddTag(fire)

	fireball := card("Fireball", "3", "")
	fireball.Tags().Add(combat)
	fireball.Tags().Add(fire)
	shield := card("Shield", "1", "")
	shield.Tags().Add(combat)
	light := card("Light", "0", "")
	d.AddCard(fireball)
	d.AddCard(shield)
	d.AddCard(light)

	searched := NewSearchedTags(d)
	v := NewCardView(d, searched)
	require.Equal(t, 3, v.Len())

	assert.True(t, searched.Add("Combat"))
	assert.Equal(t, []string{"Shield", "Fireball"}, names(v.Items()))

	assert.True(t, searched.Add("Fire"))
	assert.Equal(t, []string{"Fireball"}, names(v.Items()), "every searched tag is required")

	shield.Tags().Add(fire)
	assert.Equal(t, []string{"Shield", "Fireball"}, names(v.Items()), "tag edits on cards refresh")

	d.RemoveTag(fire.ID())
	assert.Equal(t, []*domain.Tag{combat}, searched.Items(), "deleted tags leave the search")
	assert.Equal(t, []string{"Shield", "Fireball"}, names(v.Items()))

	assert.True(t, searched.Remove("Combat"))
	assert.Equal(t, 3, v.Len())
}

func TestSearchedTags_AddRemove(t *testing.T) {
	d := domain.NewDeck()
	d.AddTag(domain.NewTag("Combat", color.Red))
	s := NewSearchedTags(d)

	assert.False(t, s.Add("combat"), "names match exactly")
	assert.False(t, s.Add("Missing"))
	assert.True(t, s.Add("Combat"))
	assert.False(t, s.Add("Combat"), "no duplicates")
	assert.Equal(t, 1, s.Len())

	assert.False(t, s.Remove("Missing"))
	assert.True(t, s.Remove("Combat"))
	assert.Equal(t, 0, s.Len())

	s.Close()
}

func TestCardView_DebouncedFilter(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Fireball", "3", ""))
	d.AddCard(card("Shield", "1", ""))

	v := NewCardView(d, nil, WithDebounce(time.Hour, nil))
	defer v.Close()

	v.SetFilter(SearchFilter{Term: "fire"})
	v.SetFilter(SearchFilter{Term: "shi"})
	assert.Equal(t, 2, v.Len(), "nothing applied during the quiet period")

	v.FlushFilter()
	assert.Equal(t, []string{"Shield"}, names(v.Items()), "the last filter wins")
	assert.Equal(t, "shi", v.Filter().Term)
}

func TestCardView_SettledFilterWaitsForOwner(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Fireball", "3", ""))

	v := NewCardView(d, nil, WithDebounce(time.Millisecond, nil))
	defer v.Close()

	v.SetFilter(SearchFilter{Term: "fire"})
	for i := range 50 {
		d.AddCard(card(fmt.Sprintf("Shield %d", i), "1", ""))
	}

	select {
	case <-v.FilterReady():
	case <-time.After(time.Second):
		t.Fatal("filter never settled")
	}
	assert.Equal(t, 51, v.Len(), "the settled filter is not applied behind the owner's back")
	assert.Empty(t, v.Filter().Term)

	v.FlushFilter()
	assert.Equal(t, []string{"Fireball"}, names(v.Items()))
}

func TestCardView_DebounceSettles(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Fireball", "3", ""))
	d.AddCard(card("Shield", "1", ""))

	applied := make(chan func(), 1)
	v := NewCardView(d, nil, WithDebounce(10*time.Millisecond, func(fn func()) { applied <- fn }))
	defer v.Close()

	v.SetFilter(SearchFilter{Term: "fire"})

	select {
	case fn := <-applied:
		fn()
	case <-time.After(time.Second):
		t.Fatal("debounced filter was not dispatched")
	}
	assert.Equal(t, []string{"Fireball"}, names(v.Items()))
}

func TestCardView_ZeroDebounceIsImmediate(t *testing.T) {
	d := domain.NewDeck()
	d.AddCard(card("Fireball", "3", ""))
	d.AddCard(card("Shield", "1", ""))

	v := NewCardView(d, nil, WithDebounce(0, nil), WithSortOptions(SortOptions{}))
	v.SetFilter(SearchFilter{Term: "shield"})
	assert.Equal(t, []string{"Shield"}, names(v.Items()))
}

func TestCardView_Close(t *testing.T) {
	d := domain.NewDeck()
	v := NewCardView(d, nil, WithSearchFilter(SearchFilter{Term: "x"}))
	v.Close()

	d.AddCard(card("x", "1", ""))
	assert.Equal(t, 0, v.Len())
}

func TestTagView(t *testing.T) {
	d := domain.NewDeck()
	zeta := domain.NewTag("zeta", color.Black)
	beta := domain.NewTag("Beta", color.Black)
	d.AddTag(zeta)
	d.AddTag(beta)

	v := NewTagView(d)
	defer v.Close()
	assert.Equal(t, []*domain.Tag{beta, zeta}, v.Items())

	var emitted [][]*domain.Tag
	v.Changed().Subscribe(func(tags []*domain.Tag) { emitted = append(emitted, tags) })

	zeta.SetName("Alpha")
	assert.Equal(t, []*domain.Tag{zeta, beta}, v.Items())

	zeta.SetColor(color.Red)
	gamma := domain.NewTag("Gamma", color.Black)
	d.AddTag(gamma)
	d.RemoveTag(beta.ID())

	assert.Equal(t, []*domain.Tag{zeta, gamma}, v.Items())
	assert.Len(t, emitted, 3)
}

func TestTagNames(t *testing.T) {
	d := domain.NewDeck()
	combat := domain.NewTag("Combat", color.Black)
	d.AddTag(combat)
	d.AddTag(domain.NewTag("Concentration", color.Black))
	d.AddTag(domain.NewTag("Ritual", color.Black))

	n := NewTagNames(d)
	defer n.Close()
	assert.Equal(t, []string{"Combat", "Concentration", "Ritual"}, n.Items())
	assert.Equal(t, []string{"Combat", "Concentration"}, n.Matching("co"))
	assert.Empty(t, n.Matching("x"))

	var last []string
	n.Changed().Subscribe(func(names []string) { last = names })

	combat.SetName("Battle")
	assert.Equal(t, []string{"Battle", "Concentration", "Ritual"}, last)

	combat.SetColor(color.Red)
	assert.Equal(t, []string{"Battle", "Concentration", "Ritual"}, n.Items())
}
