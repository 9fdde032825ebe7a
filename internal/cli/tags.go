package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/editor"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/view"
)

func (a *App) tagsCommand() *Command {
	return &Command{
		Name:    "tags",
		Summary: "List tags with their colours and usage.",
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, "spelldeck tags"); err != nil {
				return err
			}
			return a.readDeck(ctx, func(s *session.Session) error {
				a.listTags(s.Deck())
				return nil
			})
		},
	}
}

func (a *App) listTags(deck *domain.Deck) {
	tags := view.NewTagView(deck)
	defer tags.Close()

	tw := tabwriter.NewWriter(a.Out, 2, 0, 2, ' ', 0)
	for _, t := range tags.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%d spells\n", a.styles.chip(t), t.Color().Hex(), usage(deck, t))
	}
	tw.Flush()
}

// usage counts the cards carrying t.
func usage(deck *domain.Deck, t *domain.Tag) int {
	n := 0
	for _, c := range deck.Cards().All() {
		if c.Tags().Contains(t) {
			n++
		}
	}
	return n
}

func (a *App) tagCommand() *Command {
	return &Command{
		Name:    "tag",
		Summary: "Add, remove, rename or recolour tags.",
		Subcommands: []*Command{
			a.tagAddCommand(),
			{
				Name:    "rm",
				Summary: "Remove a tag from the deck and from every spell.",
				Usage:   "spelldeck tag rm NAME",
				Run: func(ctx context.Context, args []string) error {
					if err := requireArgs(args, 1, "spelldeck tag rm NAME"); err != nil {
						return err
					}
					return a.editTags(ctx, args[0], func(e *editor.TagEditor, t *domain.Tag) error {
						e.Remove(t)
						return nil
					})
				},
			},
			{
				Name:    "rename",
				Summary: "Rename a tag.",
				Usage:   "spelldeck tag rename NAME NEW-NAME",
				Run: func(ctx context.Context, args []string) error {
					if err := requireArgs(args, 2, "spelldeck tag rename NAME NEW-NAME"); err != nil {
						return err
					}
					return a.editTags(ctx, args[0], func(e *editor.TagEditor, t *domain.Tag) error {
						if err := checkTagName(e, args[1], t); err != nil {
							return err
						}
						t.SetName(args[1])
						return nil
					})
				},
			},
			{
				Name:    "color",
				Summary: "Change a tag's colour.",
				Usage:   "spelldeck tag color NAME #RRGGBB",
				Run: func(ctx context.Context, args []string) error {
					if err := requireArgs(args, 2, "spelldeck tag color NAME #RRGGBB"); err != nil {
						return err
					}
					c, err := color.ParseHex(args[1])
					if err != nil {
						return err
					}
					return a.editTags(ctx, args[0], func(_ *editor.TagEditor, t *domain.Tag) error {
						t.SetColor(c)
						return nil
					})
				},
			},
		},
	}
}

func (a *App) tagAddCommand() *Command {
	var hex string
	return &Command{
		Name:    "add",
		Summary: "Add a tag.",
		Usage:   "spelldeck tag add NAME [--color #RRGGBB]",
		Flags: func() *pflag.FlagSet {
			hex = ""
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fs.StringVar(&hex, "color", "", "Tag colour (default: derived from the name)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "spelldeck tag add NAME"); err != nil {
				return err
			}
			name := args[0]
			c := color.ForName(name)
			if hex != "" {
				var err error
				if c, err = color.ParseHex(hex); err != nil {
					return err
				}
			}

			return a.editDeck(ctx, func(s *session.Session) error {
				e := editor.NewTagEditor(s.Deck())
				if err := checkTagName(e, name, nil); err != nil {
					return err
				}
				t := e.Add()
				t.SetName(name)
				t.SetColor(c)
				e.Save()
				fmt.Fprintf(a.Out, "added tag %s\n", a.styles.chip(t))
				return nil
			})
		},
	}
}

// editTags opens a tag editor, finds the working copy named name, applies
// fn and saves the editor.
func (a *App) editTags(ctx context.Context, name string, fn func(*editor.TagEditor, *domain.Tag) error) error {
	return a.editDeck(ctx, func(s *session.Session) error {
		live, err := findTag(s.Deck(), name)
		if err != nil {
			return err
		}
		e := editor.NewTagEditor(s.Deck())
		var working *domain.Tag
		for _, t := range e.Tags() {
			if t.ID() == live.ID() {
				working = t
				break
			}
		}
		if err := fn(e, working); err != nil {
			return err
		}
		e.Save()
		return nil
	})
}

// checkTagName rejects empty names and names already used by another tag.
func checkTagName(e *editor.TagEditor, name string, self *domain.Tag) error {
	if name == "" {
		return errors.Validation("a tag needs a name")
	}
	for _, t := range e.Tags() {
		if t != self && t.Name() == name {
			return errors.Validationf("a tag named %q already exists", name)
		}
	}
	return nil
}
