package providers

import (
	"github.com/samber/do/v2"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/reactive"
	"github.com/spellcardmanager/spellcards/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability. The
// index follows whichever deck the session holds.
type SearchIndexHandle struct {
	*search.Index
	follow   reactive.Subscription
	replaced reactive.Subscription
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	h.replaced.Close()
	if h.follow != nil {
		h.follow.Close()
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index, synced with the
// session's current deck.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	sess := do.MustInvoke[*SessionHandle](i)

	index, err := search.NewIndex(search.Options{Logger: log.Logger})
	if err != nil {
		return nil, err
	}

	h := &SearchIndexHandle{Index: index}
	attach := func() {
		if h.follow != nil {
			h.follow.Close()
		}
		deck := sess.Deck()
		if err := index.Sync(deck); err != nil {
			log.Warn("Failed to index deck", "error", err)
		}
		h.follow = index.Follow(deck)
	}
	attach()
	h.replaced = sess.DeckReplaced().Subscribe(func(*domain.Deck) { attach() })

	docCount, _ := index.DocumentCount()
	log.Debug("Search index initialized", "documents", docCount)

	return h, nil
}
