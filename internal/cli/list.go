package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/render"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/util"
	"github.com/spellcardmanager/spellcards/internal/view"
)

type listOptions struct {
	search         string
	wholeWord      bool
	caseSensitive  bool
	noDescriptions bool
	tags           []string
	favoritesFirst bool
	noGroup        bool
}

func (a *App) listCommand() *Command {
	var opts listOptions
	return &Command{
		Name:    "list",
		Summary: "List spells, filtered and sorted.",
		Usage:   "spelldeck list [--search TERM] [--tag NAME]... [flags]",
		Flags: func() *pflag.FlagSet {
			opts = listOptions{}
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.StringVarP(&opts.search, "search", "s", "", "Only spells whose name or description contains TERM")
			fs.BoolVarP(&opts.wholeWord, "whole-word", "w", false, "Match TERM as a whole word")
			fs.BoolVarP(&opts.caseSensitive, "case-sensitive", "c", false, "Match TERM case-sensitively")
			fs.BoolVar(&opts.noDescriptions, "no-descriptions", false, "Search names only")
			fs.StringArrayVarP(&opts.tags, "tag", "t", nil, "Only spells carrying this tag (repeatable)")
			fs.BoolVarP(&opts.favoritesFirst, "favorites-first", "f", false, "List favourites first within a level")
			fs.BoolVar(&opts.noGroup, "no-group-by-level", false, "Sort by name only")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, "spelldeck list [flags]"); err != nil {
				return err
			}
			return a.readDeck(ctx, func(s *session.Session) error {
				return a.list(s.Deck(), opts)
			})
		},
	}
}

func (a *App) list(deck *domain.Deck, opts listOptions) error {
	searched := view.NewSearchedTags(deck)
	defer searched.Close()
	for _, name := range opts.tags {
		if _, ok := deck.TagByName(name); !ok {
			return errors.NotFoundf("no tag named %q", name)
		}
		searched.Add(name)
	}

	sort := view.SortOptions{
		GroupByLevel:   !opts.noGroup,
		FavoritesFirst: opts.favoritesFirst,
	}
	cards := view.NewCardView(deck, searched,
		view.WithSearchFilter(view.SearchFilter{
			Term:          opts.search,
			WholeWord:     opts.wholeWord,
			CaseSensitive: opts.caseSensitive,
			Descriptions:  !opts.noDescriptions,
		}),
		view.WithSortOptions(sort),
	)
	defer cards.Close()

	level := ""
	for i, c := range cards.Items() {
		if sort.GroupByLevel && (i == 0 || c.Level() != level) {
			level = c.Level()
			if i > 0 {
				fmt.Fprintln(a.Out)
			}
			fmt.Fprintln(a.Out, a.styles.heading.Render(levelHeading(level)))
		}
		line := a.styles.star(c.IsFavorite()) + " " + a.styles.name.Render(c.Name())
		if c.Tags().Len() > 0 {
			line += "  " + a.styles.chips(c.SortedTags())
		}
		if !sort.GroupByLevel && c.Level() != domain.NoLevel {
			line += "  " + a.styles.faint.Render("level "+c.Level())
		}
		fmt.Fprintln(a.Out, line)
	}

	fmt.Fprintln(a.Out, a.styles.faint.Render(fmt.Sprintf("%d of %d spells", cards.Len(), deck.Cards().Len())))
	return nil
}

func levelHeading(level string) string {
	if level == domain.NoLevel {
		return "No level"
	}
	return "Level " + level
}

func (a *App) showCommand() *Command {
	var asHTML bool
	return &Command{
		Name:    "show",
		Summary: "Show one spell with its rendered description.",
		Usage:   "spelldeck show NAME [--html]",
		Flags: func() *pflag.FlagSet {
			asHTML = false
			fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
			fs.BoolVar(&asHTML, "html", false, "Render the description as HTML")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "spelldeck show NAME"); err != nil {
				return err
			}
			return a.readDeck(ctx, func(s *session.Session) error {
				card, err := findCard(s.Deck(), args[0])
				if err != nil {
					return err
				}

				var description string
				if asHTML {
					description, err = render.NewHTML().Render(card.Description())
				} else {
					description, err = s.RenderDescription(card)
				}
				if err != nil {
					return err
				}
				a.show(card, description)
				return nil
			})
		},
	}
}

func (a *App) show(card *domain.SpellCard, description string) {
	fmt.Fprintln(a.Out, a.styles.star(card.IsFavorite())+" "+a.styles.heading.Render(card.Name()))
	if card.Tags().Len() > 0 {
		fmt.Fprintln(a.Out, a.styles.chips(card.SortedTags()))
	}
	for _, attr := range card.Attributes().All() {
		if attr.Key == "" && attr.Value == "" {
			continue
		}
		fmt.Fprintf(a.Out, "%s %s\n", a.styles.name.Render(attr.Key+":"), attr.Value)
	}
	if description = strings.TrimRight(description, "\n"); description != "" {
		fmt.Fprintln(a.Out)
		fmt.Fprintln(a.Out, description)
	}
}

// findCard looks a card up by exact name, then ignoring case. Among equal
// names the first in deck order wins.
func findCard(deck *domain.Deck, name string) (*domain.SpellCard, error) {
	var folded *domain.SpellCard
	for _, c := range deck.Cards().All() {
		if c.Name() == name {
			return c, nil
		}
		if folded == nil && util.EqualFold(c.Name(), name) {
			folded = c
		}
	}
	if folded != nil {
		return folded, nil
	}
	return nil, errors.NotFoundf("no spell named %q", name)
}

// findTag looks a tag up by exact name, then ignoring case.
func findTag(deck *domain.Deck, name string) (*domain.Tag, error) {
	if t, ok := deck.TagByName(name); ok {
		return t, nil
	}
	for _, t := range deck.Tags().All() {
		if util.EqualFold(t.Name(), name) {
			return t, nil
		}
	}
	return nil, errors.NotFoundf("no tag named %q", name)
}
