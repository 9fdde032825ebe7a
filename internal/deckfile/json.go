package deckfile

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"strconv"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/id"
	"github.com/spellcardmanager/spellcards/internal/validation"
)

// Wire documents. Pointers distinguish a missing member from an empty one.

type deckDoc struct {
	ID    string         `json:"$id,omitzero"`
	Tags  list[*tagDoc]  `json:"Tags"`
	Cards list[*cardDoc] `json:"Cards"`
}

type tagDoc struct {
	Ref   string       `json:"$ref,omitzero"`
	ID    string       `json:"$id,omitzero" validate:"excluded_with=Ref"`
	TagID string       `json:"Id,omitzero" validate:"excluded_with=Ref"`
	Name  *string      `json:"Name,omitzero" validate:"required_without=Ref,excluded_with=Ref"`
	Color *color.Color `json:"Color,omitzero" validate:"excluded_with=Ref"`
}

type cardDoc struct {
	ID          string        `json:"$id,omitzero"`
	Name        *string       `json:"Name" validate:"required"`
	Description string        `json:"Description"`
	Attributes  list[attrDoc] `json:"Attributes"`
	Tags        list[*tagDoc] `json:"Tags"`
	IsFavorite  bool          `json:"IsFavorite"`
}

type attrDoc struct {
	Key   *string `json:"Key" validate:"required"`
	Value string  `json:"Value"`
}

// list is a JSON array. On read it also accepts the {"$id": "...",
// "$values": [...]} wrapper some writers emit for reference-tracked arrays.
type list[T any] struct {
	ID    string
	Items []T
}

func (l list[T]) MarshalJSONTo(enc *jsontext.Encoder) error {
	if l.Items == nil {
		return json.MarshalEncode(enc, []T{})
	}
	return json.MarshalEncode(enc, l.Items)
}

func (l *list[T]) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	switch dec.PeekKind() {
	case '[':
		return json.UnmarshalDecode(dec, &l.Items)
	case '{':
		var wrapper struct {
			ID     string `json:"$id"`
			Values *[]T   `json:"$values"`
		}
		if err := json.UnmarshalDecode(dec, &wrapper); err != nil {
			return err
		}
		if wrapper.Values == nil {
			return fmt.Errorf("array object without $values")
		}
		l.ID = wrapper.ID
		l.Items = *wrapper.Values
		return nil
	case 'n':
		_, err := dec.ReadToken()
		l.Items = nil
		return err
	default:
		return fmt.Errorf("expected array, found %v", dec.PeekKind())
	}
}

// ToJSON encodes d as compact JSON text.
func ToJSON(d *domain.Deck) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, d, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSONPretty encodes d as indented JSON text.
func ToJSONPretty(d *domain.Deck) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, d, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteUncompressed writes d to w as compact JSON text.
func WriteUncompressed(w io.Writer, d *domain.Deck) error {
	return writeJSON(w, d, false)
}

func writeJSON(w io.Writer, d *domain.Deck, pretty bool) error {
	doc := newEncoder().deck(d)

	var opts []json.Options
	if pretty {
		opts = append(opts, jsontext.WithIndent("  "))
	}
	if err := json.MarshalWrite(w, doc, opts...); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write deck json")
	}
	return nil
}

// encoder assigns "$id" values in document order, starting at "1" for every
// call. A tag instance met a second time is written as a "$ref".
type encoder struct {
	next int
	tags map[*domain.Tag]string
}

func newEncoder() *encoder {
	return &encoder{tags: make(map[*domain.Tag]string)}
}

func (e *encoder) nextID() string {
	e.next++
	return strconv.Itoa(e.next)
}

func (e *encoder) deck(d *domain.Deck) *deckDoc {
	doc := &deckDoc{ID: e.nextID()}
	for _, t := range d.Tags().Items() {
		doc.Tags.Items = append(doc.Tags.Items, e.tag(t))
	}
	for _, c := range d.Cards().Items() {
		doc.Cards.Items = append(doc.Cards.Items, e.card(c))
	}
	return doc
}

func (e *encoder) tag(t *domain.Tag) *tagDoc {
	if ref, ok := e.tags[t]; ok {
		return &tagDoc{Ref: ref}
	}
	refID := e.nextID()
	e.tags[t] = refID

	name := t.Name()
	c := t.Color()
	return &tagDoc{ID: refID, TagID: t.ID(), Name: &name, Color: &c}
}

func (e *encoder) card(c *domain.SpellCard) *cardDoc {
	name := c.Name()
	doc := &cardDoc{
		ID:          e.nextID(),
		Name:        &name,
		Description: c.Description(),
		IsFavorite:  c.IsFavorite(),
	}
	for _, attr := range c.Attributes().All() {
		key := attr.Key
		doc.Attributes.Items = append(doc.Attributes.Items, attrDoc{Key: &key, Value: attr.Value})
	}
	for t := range c.Tags().All() {
		doc.Tags.Items = append(doc.Tags.Items, e.tag(t))
	}
	return doc
}

// FromJSON decodes JSON text produced by ToJSON or a compatible writer.
// Malformed text, missing required members and unresolvable references are
// INVALID_FORMAT errors.
func FromJSON(data []byte) (*domain.Deck, error) {
	var doc deckDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "parse deck json")
	}
	return newDecoder().decode(&doc)
}

// FromJSONReader decodes JSON text read from r.
func FromJSONReader(r io.Reader) (*domain.Deck, error) {
	var doc deckDoc
	if err := json.UnmarshalRead(r, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "parse deck json")
	}
	return newDecoder().decode(&doc)
}

// decoder resolves references in two passes: every "$id" in the document
// is registered first, so a "$ref" may point forward.
type decoder struct {
	validate *validation.Validator

	// objects maps "$id" to the materialised object. Array wrappers and
	// cards register nil or a non-tag value; only tags may be referenced.
	objects map[string]any
	built   map[*tagDoc]*domain.Tag
	deck    *domain.Deck
}

func newDecoder() *decoder {
	return &decoder{
		validate: validation.New(),
		objects:  make(map[string]any),
		built:    make(map[*tagDoc]*domain.Tag),
	}
}

func (r *decoder) decode(doc *deckDoc) (*domain.Deck, error) {
	r.deck = domain.NewDeck()

	if err := r.register(doc.ID, r.deck); err != nil {
		return nil, err
	}
	if err := r.register(doc.Tags.ID, nil); err != nil {
		return nil, err
	}
	if err := r.register(doc.Cards.ID, nil); err != nil {
		return nil, err
	}
	for i, td := range doc.Tags.Items {
		if err := r.defineTag(td, fmt.Sprintf("Tags[%d]", i)); err != nil {
			return nil, err
		}
	}

	cards := make([]*domain.SpellCard, len(doc.Cards.Items))
	for i, cd := range doc.Cards.Items {
		card, err := r.defineCard(cd, fmt.Sprintf("Cards[%d]", i))
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}

	for i, td := range doc.Tags.Items {
		t, err := r.resolveTag(td, fmt.Sprintf("Tags[%d]", i))
		if err != nil {
			return nil, err
		}
		if err := r.attachToDeck(t); err != nil {
			return nil, err
		}
	}
	for i, cd := range doc.Cards.Items {
		for j, td := range cd.Tags.Items {
			t, err := r.resolveTag(td, fmt.Sprintf("Cards[%d].Tags[%d]", i, j))
			if err != nil {
				return nil, err
			}
			if err := r.attachToDeck(t); err != nil {
				return nil, err
			}
			cards[i].Tags().Add(t)
		}
		r.deck.AddCard(cards[i])
	}
	return r.deck, nil
}

func (r *decoder) register(refID string, obj any) error {
	if refID == "" {
		return nil
	}
	if _, dup := r.objects[refID]; dup {
		return errors.InvalidFormatf("duplicate $id %q", refID)
	}
	r.objects[refID] = obj
	return nil
}

func (r *decoder) check(doc any, path string) error {
	if err := r.validate.Validate(doc); err != nil {
		return errors.Wrapf(err, errors.CodeInvalidFormat, "invalid %s", path)
	}
	return nil
}

// defineTag materialises a full tag object and registers its "$id".
// References are left for resolveTag.
func (r *decoder) defineTag(td *tagDoc, path string) error {
	if td == nil {
		return errors.InvalidFormatf("%s: null tag", path)
	}
	if err := r.check(td, path); err != nil {
		return err
	}
	if td.Ref != "" {
		return nil
	}

	tagID := td.TagID
	if tagID == "" {
		tagID = id.NewTag()
	}
	c := color.Black
	if td.Color != nil {
		c = *td.Color
	}
	t := domain.NewTagWithID(tagID, *td.Name, c)
	r.built[td] = t
	return r.register(td.ID, t)
}

func (r *decoder) defineCard(cd *cardDoc, path string) (*domain.SpellCard, error) {
	if cd == nil {
		return nil, errors.InvalidFormatf("%s: null card", path)
	}
	if err := r.check(cd, path); err != nil {
		return nil, err
	}
	for i := range cd.Attributes.Items {
		if err := r.check(&cd.Attributes.Items[i], fmt.Sprintf("%s.Attributes[%d]", path, i)); err != nil {
			return nil, err
		}
	}

	card := domain.NewCardWithID(id.NewCard(), *cd.Name)
	card.SetDescription(cd.Description)
	card.SetFavorite(cd.IsFavorite)
	attrs := make([]domain.Attribute, 0, len(cd.Attributes.Items))
	for _, ad := range cd.Attributes.Items {
		attrs = append(attrs, domain.Attribute{Key: *ad.Key, Value: ad.Value})
	}
	card.SetAttributes(domain.NewAttributes(attrs...))

	if err := r.register(cd.ID, card); err != nil {
		return nil, err
	}
	if err := r.register(cd.Attributes.ID, nil); err != nil {
		return nil, err
	}
	if err := r.register(cd.Tags.ID, nil); err != nil {
		return nil, err
	}
	for j, td := range cd.Tags.Items {
		if err := r.defineTag(td, fmt.Sprintf("%s.Tags[%d]", path, j)); err != nil {
			return nil, err
		}
	}
	return card, nil
}

func (r *decoder) resolveTag(td *tagDoc, path string) (*domain.Tag, error) {
	if td.Ref == "" {
		return r.built[td], nil
	}
	obj, ok := r.objects[td.Ref]
	if !ok {
		return nil, errors.InvalidFormatf("%s: unknown $ref %q", path, td.Ref)
	}
	t, ok := obj.(*domain.Tag)
	if !ok {
		return nil, errors.InvalidFormatf("%s: $ref %q does not name a tag", path, td.Ref)
	}
	return t, nil
}

// attachToDeck adds t unless that instance is already present. Two distinct
// tag objects with the same Id are rejected.
func (r *decoder) attachToDeck(t *domain.Tag) error {
	existing, ok := r.deck.Tag(t.ID())
	if !ok {
		r.deck.AddTag(t)
		return nil
	}
	if existing != t {
		return errors.InvalidFormatf("duplicate tag Id %q", t.ID())
	}
	return nil
}
