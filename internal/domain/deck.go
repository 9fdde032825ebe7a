package domain

import (
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// DeckChangeKind classifies a DeckChange.
type DeckChangeKind int

const (
	TagAdded DeckChangeKind = iota
	// TagReplaced means a different instance was stored under an existing tag ID.
	TagReplaced
	TagRemoved
	// TagEdited means a property of a tag in the deck changed.
	TagEdited
	CardAdded
	// CardReplaced means a different instance was stored under an existing card ID.
	CardReplaced
	CardRemoved
	// CardEdited means something inside a card in the deck changed.
	CardEdited
)

// String returns the string representation of the change kind.
func (k DeckChangeKind) String() string {
	switch k {
	case TagAdded:
		return "tag_added"
	case TagReplaced:
		return "tag_replaced"
	case TagRemoved:
		return "tag_removed"
	case TagEdited:
		return "tag_edited"
	case CardAdded:
		return "card_added"
	case CardReplaced:
		return "card_replaced"
	case CardRemoved:
		return "card_removed"
	case CardEdited:
		return "card_edited"
	default:
		return "unknown"
	}
}

// DeckChange is one event on the deck's merged change stream. Tag is set
// for tag kinds and Card for card kinds; TagField and CardField qualify the
// Edited kinds.
type DeckChange struct {
	Kind      DeckChangeKind
	Tag       *Tag
	Card      *SpellCard
	TagField  TagField
	CardField CardField
}

// Deck (the card collection) owns the canonical tags and cards. Cards refer
// to the deck's tags by reference; removing a tag detaches it from every card.
//
// A Deck is not safe for concurrent use. Mutate it from one goroutine.
type Deck struct {
	tags  *reactive.Cache[string, *Tag]
	cards *reactive.Cache[string, *SpellCard]

	tagSubs  map[string]reactive.Subscription
	cardSubs map[string]reactive.Subscription
	changes  reactive.Signal[DeckChange]
}

// NewDeck returns an empty deck.
func NewDeck() *Deck {
	d := &Deck{
		tags:     reactive.NewCache((*Tag).ID),
		cards:    reactive.NewCache((*SpellCard).ID),
		tagSubs:  make(map[string]reactive.Subscription),
		cardSubs: make(map[string]reactive.Subscription),
	}
	d.tags.Changed().Subscribe(d.onTagsChanged)
	d.cards.Changed().Subscribe(d.onCardsChanged)
	return d
}

// Tags returns the keyed tag collection.
func (d *Deck) Tags() *reactive.Cache[string, *Tag] { return d.tags }

// Cards returns the keyed card collection.
func (d *Deck) Cards() *reactive.Cache[string, *SpellCard] { return d.cards }

// Changes fires for every tag or card added, replaced or removed, every tag
// property change and every change inside a card.
func (d *Deck) Changes() *reactive.Signal[DeckChange] { return &d.changes }

// AddTag adds t, replacing any tag stored under the same ID. Cards holding
// the replaced instance are rebound to t.
func (d *Deck) AddTag(t *Tag) {
	d.tags.AddOrUpdate(t)
}

// Tag looks up a tag by ID.
func (d *Deck) Tag(tagID string) (*Tag, bool) {
	return d.tags.Lookup(tagID)
}

// TagByName returns the first tag, in deck order, whose name is exactly name.
func (d *Deck) TagByName(name string) (*Tag, bool) {
	for _, t := range d.tags.All() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// SortedTags returns the deck's tags ordered by name.
func (d *Deck) SortedTags() []*Tag {
	return SortTags(d.tags.Items())
}

// RemoveTag removes the tag with the given ID from the deck and from every
// card that references it. Unknown IDs are a no-op that reports false.
func (d *Deck) RemoveTag(tagID string) bool {
	if _, ok := d.tags.RemoveKey(tagID); !ok {
		return false
	}
	for _, card := range d.cards.All() {
		card.Tags().RemoveID(tagID)
	}
	return true
}

// AddCard adds c, replacing any card stored under the same ID.
func (d *Deck) AddCard(c *SpellCard) {
	d.cards.AddOrUpdate(c)
}

// Card looks up a card by ID.
func (d *Deck) Card(cardID string) (*SpellCard, bool) {
	return d.cards.Lookup(cardID)
}

// HasCard reports whether a card with c's ID is in the deck.
func (d *Deck) HasCard(c *SpellCard) bool {
	return d.HasCardID(c.ID())
}

// HasCardID reports whether a card with the given ID is in the deck.
func (d *Deck) HasCardID(cardID string) bool {
	return d.cards.Contains(cardID)
}

// RemoveCard removes the card with c's ID. It reports false when absent.
func (d *Deck) RemoveCard(c *SpellCard) bool {
	return d.RemoveCardID(c.ID())
}

// RemoveCardID removes the card with the given ID. It reports false when absent.
func (d *Deck) RemoveCardID(cardID string) bool {
	_, ok := d.cards.RemoveKey(cardID)
	return ok
}

// DuplicateCard adds a copy of c with a fresh ID to the deck and returns it.
func (d *Deck) DuplicateCard(c *SpellCard) *SpellCard {
	dup := c.CloneWithNewID()
	d.AddCard(dup)
	return dup
}

// Clear removes every card and tag.
func (d *Deck) Clear() {
	d.cards.Clear()
	d.tags.Clear()
}

func (d *Deck) onTagsChanged(ch reactive.CacheChange[string, *Tag]) {
	if sub, ok := d.tagSubs[ch.Key]; ok {
		sub.Close()
		delete(d.tagSubs, ch.Key)
	}

	var kind DeckChangeKind
	tag := ch.Current
	switch ch.Kind {
	case reactive.ChangeAdd:
		kind = TagAdded
	case reactive.ChangeUpdate:
		kind = TagReplaced
	default:
		kind = TagRemoved
		tag = ch.Previous
	}

	if ch.Current != nil {
		d.tagSubs[ch.Key] = ch.Current.Changed().Subscribe(func(tc TagChange) {
			d.changes.Emit(DeckChange{Kind: TagEdited, Tag: tc.Tag, TagField: tc.Field})
		})
	}
	d.changes.Emit(DeckChange{Kind: kind, Tag: tag})

	// Cards must keep referencing the instance the deck holds.
	if kind == TagReplaced && ch.Previous != ch.Current {
		for _, card := range d.cards.All() {
			card.Tags().Rebind(ch.Current)
		}
	}
}

func (d *Deck) onCardsChanged(ch reactive.CacheChange[string, *SpellCard]) {
	if sub, ok := d.cardSubs[ch.Key]; ok {
		sub.Close()
		delete(d.cardSubs, ch.Key)
	}

	var kind DeckChangeKind
	card := ch.Current
	switch ch.Kind {
	case reactive.ChangeAdd:
		kind = CardAdded
	case reactive.ChangeUpdate:
		kind = CardReplaced
	default:
		kind = CardRemoved
		card = ch.Previous
	}

	if ch.Current != nil {
		d.cardSubs[ch.Key] = ch.Current.Changed().Subscribe(func(cc CardChange) {
			d.changes.Emit(DeckChange{Kind: CardEdited, Card: cc.Card, CardField: cc.Field})
		})
	}
	d.changes.Emit(DeckChange{Kind: kind, Card: card})
}
