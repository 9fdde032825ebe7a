package search

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// Index wraps an in-memory Bleve index of card documents.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects against searches running while Sync swaps the index.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	Logger *slog.Logger // uses discard if nil
}

// NewIndex creates an empty in-memory index.
func NewIndex(opts Options) (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{
		index:  index,
		logger: logger.OrDiscard(opts.Logger),
	}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexCard adds or refreshes card's document.
func (s *Index) IndexCard(card *domain.SpellCard) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewCardDocument(card)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexCards indexes cards in batches.
func (s *Index) IndexCards(cards []*domain.SpellCard) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexBatched(s.index, cards)
}

func indexBatched(index bleve.Index, cards []*domain.SpellCard) error {
	const batchSize = 500

	for i := 0; i < len(cards); i += batchSize {
		end := min(i+batchSize, len(cards))

		batch := index.NewBatch()
		for _, card := range cards[i:end] {
			doc := NewCardDocument(card)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteCard removes the document for cardID.
func (s *Index) DeleteCard(cardID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(cardID)
}

// DocumentCount returns the number of indexed cards.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Sync replaces the index contents with the cards of deck.
func (s *Index) Sync(deck *domain.Deck) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	cards := deck.Cards().Items()
	if err := indexBatched(fresh, cards); err != nil {
		_ = fresh.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}
	s.logger.Debug("search index synced", "cards", len(cards))
	return nil
}

// Follow keeps the index current with deck until the returned subscription
// is closed. It does not index existing cards; call Sync first.
func (s *Index) Follow(deck *domain.Deck) reactive.Subscription {
	return deck.Changes().Subscribe(func(ch domain.DeckChange) {
		var err error
		switch ch.Kind {
		case domain.CardAdded, domain.CardReplaced, domain.CardEdited:
			err = s.IndexCard(ch.Card)
		case domain.CardRemoved:
			err = s.DeleteCard(ch.Card.ID())
		case domain.TagEdited, domain.TagReplaced:
			err = s.reindexTagged(deck, ch.Tag.ID())
		}
		if err != nil {
			s.logger.Warn("failed to update search index",
				"change", ch.Kind.String(),
				"error", err,
			)
		}
	})
}

func (s *Index) reindexTagged(deck *domain.Deck, tagID string) error {
	var cards []*domain.SpellCard
	for _, card := range deck.Cards().Items() {
		if card.Tags().ContainsID(tagID) {
			cards = append(cards, card)
		}
	}
	return s.IndexCards(cards)
}
