package view

import (
	"slices"
	"time"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// CardView is the filtered, sorted projection of a deck's cards. A card is
// listed when it carries every searched tag and passes the search filter.
// The projection is rebuilt when cards are added or removed, when a card's
// name, description, tags, level or favourite flag change, and when the
// filter, the sort options or the searched tags change.
type CardView struct {
	deck     *domain.Deck
	searched *SearchedTags

	filter SearchFilter
	match  func(*domain.SpellCard) bool
	sort   SortOptions

	items    []*domain.SpellCard
	changed  reactive.Signal[[]*domain.SpellCard]
	debounce *reactive.Debouncer
	subs     reactive.Subscriptions
}

// CardViewOption configures a CardView.
type CardViewOption func(*cardViewOptions)

type cardViewOptions struct {
	filter   SearchFilter
	sort     SortOptions
	delay    time.Duration
	dispatch func(func())
}

// WithSearchFilter sets the initial search filter.
func WithSearchFilter(f SearchFilter) CardViewOption {
	return func(o *cardViewOptions) { o.filter = f }
}

// WithSortOptions sets the initial sort options.
func WithSortOptions(s SortOptions) CardViewOption {
	return func(o *cardViewOptions) { o.sort = s }
}

// WithDebounce sets the quiet period applied to SetFilter. dispatch, when
// non-nil, delivers the settled update to the goroutine owning the deck.
// Without it the owner waits on FilterReady and calls FlushFilter.
func WithDebounce(delay time.Duration, dispatch func(func())) CardViewOption {
	return func(o *cardViewOptions) {
		o.delay = delay
		o.dispatch = dispatch
	}
}

// NewCardView builds the projection of deck. searched may be nil when no
// tag filter is wanted.
func NewCardView(deck *domain.Deck, searched *SearchedTags, opts ...CardViewOption) *CardView {
	o := cardViewOptions{
		filter: DefaultSearchFilter(),
		sort:   DefaultSortOptions(),
		delay:  reactive.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(&o)
	}

	v := &CardView{
		deck:     deck,
		searched: searched,
		filter:   o.filter,
		match:    o.filter.Matcher(),
		sort:     o.sort,
		debounce: reactive.NewDebouncer(o.delay, o.dispatch),
	}
	v.items = v.compute()

	v.subs.Add(deck.Changes().Subscribe(v.onDeckChange))
	if searched != nil {
		v.subs.Add(searched.Changed().Subscribe(func(reactive.ListChange[*domain.Tag]) {
			v.Refresh()
		}))
	}
	return v
}

// Items returns the cards currently listed, in display order.
func (v *CardView) Items() []*domain.SpellCard {
	return slices.Clone(v.items)
}

// Len returns the number of cards listed.
func (v *CardView) Len() int {
	return len(v.items)
}

// Changed fires with the new list whenever membership or order changes.
func (v *CardView) Changed() *reactive.Signal[[]*domain.SpellCard] {
	return &v.changed
}

// Filter returns the search filter in effect.
func (v *CardView) Filter() SearchFilter {
	return v.filter
}

// SetFilter applies f after the debounce quiet period. Only the last filter
// set within the period is applied.
func (v *CardView) SetFilter(f SearchFilter) {
	v.debounce.Trigger(func() {
		v.SetFilterNow(f)
	})
}

// SetFilterNow applies f immediately, dropping any pending debounced filter.
func (v *CardView) SetFilterNow(f SearchFilter) {
	v.debounce.Stop()
	v.filter = f
	v.match = f.Matcher()
	v.Refresh()
}

// FlushFilter applies a pending debounced filter now.
func (v *CardView) FlushFilter() {
	v.debounce.Flush()
}

// FilterReady receives a value once a filter passed to SetFilter has
// settled and is waiting for FlushFilter.
func (v *CardView) FilterReady() <-chan struct{} {
	return v.debounce.Ready()
}

// Sort returns the sort options in effect.
func (v *CardView) Sort() SortOptions {
	return v.sort
}

// SetSort changes the order of the list.
func (v *CardView) SetSort(s SortOptions) {
	if s == v.sort {
		return
	}
	v.sort = s
	v.Refresh()
}

// Refresh recomputes the list and emits Changed if it differs.
func (v *CardView) Refresh() {
	next := v.compute()
	if slices.Equal(next, v.items) {
		return
	}
	v.items = next
	v.changed.Emit(v.Items())
}

// Close stops observing the deck and drops any pending filter.
func (v *CardView) Close() {
	v.debounce.Stop()
	v.subs.Close()
}

func (v *CardView) onDeckChange(ch domain.DeckChange) {
	switch ch.Kind {
	case domain.CardAdded, domain.CardRemoved, domain.CardReplaced:
		v.Refresh()
	case domain.CardEdited:
		// Attribute edits only matter through the level, which has its own event.
		if ch.CardField != domain.CardAttributes {
			v.Refresh()
		}
	}
}

func (v *CardView) compute() []*domain.SpellCard {
	out := make([]*domain.SpellCard, 0, v.deck.Cards().Len())
	for _, c := range v.deck.Cards().All() {
		if v.searched != nil && !v.searched.Matches(c) {
			continue
		}
		if !v.match(c) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, v.sort.Compare)
	return out
}
