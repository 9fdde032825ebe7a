// Package search provides ranked full-text search over the cards of the
// open deck using Bleve. The index lives in memory and is rebuilt from the
// deck; it is never the source of truth.
package search

import (
	"strings"

	"github.com/spellcardmanager/spellcards/internal/domain"
)

// CardDocument is the indexed form of a spell card.
//
// Tag names are denormalized into the card so a single query can match a
// card by its tags.
type CardDocument struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Attributes  string   `json:"attributes,omitempty"` // "key value" lines
	Tags        []string `json:"tags,omitempty"`       // exact names, for filtering
	TagText     string   `json:"tag_text,omitempty"`   // names as searchable text
	Level       string   `json:"level"`
	Favorite    bool     `json:"favorite"`
}

// NewCardDocument builds the document for card.
func NewCardDocument(card *domain.SpellCard) *CardDocument {
	doc := &CardDocument{
		ID:          card.ID(),
		Name:        card.Name(),
		Description: card.Description(),
		Level:       card.Level(),
		Favorite:    card.IsFavorite(),
	}

	var attrs strings.Builder
	for _, a := range card.Attributes().Items() {
		if a.Key == "" && a.Value == "" {
			continue
		}
		attrs.WriteString(a.Key)
		attrs.WriteByte(' ')
		attrs.WriteString(a.Value)
		attrs.WriteByte('\n')
	}
	doc.Attributes = strings.TrimSuffix(attrs.String(), "\n")

	for _, t := range card.Tags().Items() {
		doc.Tags = append(doc.Tags, t.Name())
	}
	doc.TagText = strings.Join(doc.Tags, " ")
	return doc
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *CardDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"name":     d.Name,
		"level":    d.Level,
		"favorite": d.Favorite,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Attributes != "" {
		m["attributes"] = d.Attributes
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
		m["tag_text"] = d.TagText
	}
	return m
}
