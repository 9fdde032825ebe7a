package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/editor"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/util"
)

// cardFields are the flags shared by card add and card set.
type cardFields struct {
	description     string
	descriptionFile string
	attrs           []string
	unset           []string
	tags            []string
}

func (f *cardFields) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "Markdown description")
	fs.StringVar(&f.descriptionFile, "description-file", "", "Read the description from a file (- for stdin)")
	fs.StringArrayVarP(&f.attrs, "attr", "a", nil, "Set attribute KEY=VALUE (repeatable)")
	fs.StringArrayVarP(&f.tags, "tag", "t", nil, "Add tag NAME (repeatable)")
}

// apply stages the flags on e. set reports which flags were given.
func (f *cardFields) apply(e *editor.SpellEditor, set func(string) bool, stdin io.Reader) error {
	switch {
	case f.descriptionFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return errors.Wrap(err, errors.CodeIO, "read description")
		}
		e.SetDescription(string(data))
	case f.descriptionFile != "":
		data, err := os.ReadFile(f.descriptionFile)
		if err != nil {
			return errors.Wrapf(err, errors.CodeIO, "read %s", f.descriptionFile)
		}
		e.SetDescription(string(data))
	case set("description"):
		e.SetDescription(f.description)
	}

	for _, kv := range f.attrs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return errors.Validationf("attribute %q is not KEY=VALUE", kv)
		}
		setAttribute(e, strings.TrimSpace(key), value)
	}
	for _, key := range f.unset {
		if i := rowIndex(e, key); i >= 0 {
			e.SelectRow(i)
			e.RemoveRow()
		}
	}

	for _, name := range f.tags {
		if !e.AddTag(name) && !hasTag(e, name) {
			return errors.NotFoundf("no tag named %q", name)
		}
	}
	return nil
}

// setAttribute replaces the value of the row with key, or appends a row.
func setAttribute(e *editor.SpellEditor, key, value string) {
	if i := rowIndex(e, key); i >= 0 {
		e.SetRow(i, domain.Attribute{Key: e.Rows()[i].Key, Value: value})
		return
	}
	e.AddRow()
	e.SetRow(e.SelectedRow(), domain.Attribute{Key: key, Value: value})
}

func rowIndex(e *editor.SpellEditor, key string) int {
	for i, row := range e.Rows() {
		if util.EqualFold(row.Key, key) {
			return i
		}
	}
	return -1
}

func hasTag(e *editor.SpellEditor, name string) bool {
	for _, t := range e.Tags() {
		if t.Name() == name {
			return true
		}
	}
	return false
}

func (a *App) cardCommand() *Command {
	return &Command{
		Name:    "card",
		Summary: "Add, remove and edit spells.",
		Subcommands: []*Command{
			a.cardAddCommand(),
			a.cardSetCommand(),
			a.cardActionCommand("rm", "Remove a spell.", func(s *session.Session, c *domain.SpellCard) {
				s.Deck().RemoveCard(c)
				fmt.Fprintf(a.Out, "removed %s\n", c.Name())
			}),
			a.cardActionCommand("dup", "Duplicate a spell.", func(s *session.Session, c *domain.SpellCard) {
				dup := s.Deck().DuplicateCard(c)
				fmt.Fprintf(a.Out, "duplicated %s as %s\n", c.Name(), dup.ID())
			}),
			a.cardActionCommand("fav", "Toggle a spell's favourite flag.", func(_ *session.Session, c *domain.SpellCard) {
				c.ToggleFavorite()
				state := "no longer a favourite"
				if c.IsFavorite() {
					state = "a favourite"
				}
				fmt.Fprintf(a.Out, "%s is %s\n", c.Name(), state)
			}),
			{
				Name:    "tag",
				Summary: "Toggle a tag on a spell.",
				Usage:   "spelldeck card tag NAME TAG",
				Run: func(ctx context.Context, args []string) error {
					if err := requireArgs(args, 2, "spelldeck card tag NAME TAG"); err != nil {
						return err
					}
					return a.editDeck(ctx, func(s *session.Session) error {
						card, err := findCard(s.Deck(), args[0])
						if err != nil {
							return err
						}
						t, err := findTag(s.Deck(), args[1])
						if err != nil {
							return err
						}
						if card.Tags().Toggle(t) {
							fmt.Fprintf(a.Out, "tagged %s with %s\n", card.Name(), a.styles.chip(t))
						} else {
							fmt.Fprintf(a.Out, "untagged %s from %s\n", card.Name(), a.styles.chip(t))
						}
						return nil
					})
				},
			},
		},
	}
}

func (a *App) cardAddCommand() *Command {
	var (
		fields   cardFields
		level    string
		favorite bool
	)
	return &Command{
		Name:    "add",
		Summary: "Add a spell.",
		Usage:   "spelldeck card add NAME [--level N] [--attr KEY=VALUE]... [--tag NAME]... [flags]",
		Flags: func() *pflag.FlagSet {
			fields, level, favorite = cardFields{}, "", false
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fields.register(fs)
			fs.StringVarP(&level, "level", "l", "", "Spell level")
			fs.BoolVar(&favorite, "favorite", false, "Mark as a favourite")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "spelldeck card add NAME"); err != nil {
				return err
			}
			return a.editDeck(ctx, func(s *session.Session) error {
				deck := s.Deck()
				e := editor.NewSpellEditor(deck)
				if level != "" {
					e = editor.EditSpell(deck, domain.NewCardWithLevel(level))
				}
				e.SetName(args[0])
				given := func(name string) bool { return name == "description" && fields.description != "" }
				if err := fields.apply(e, given, a.in); err != nil {
					return err
				}

				card, err := e.Save()
				if err != nil {
					return err
				}
				if favorite {
					card.SetFavorite(true)
				}
				fmt.Fprintf(a.Out, "added %s (level %s)\n", card.Name(), card.Level())
				return nil
			})
		},
	}
}

func (a *App) cardSetCommand() *Command {
	var (
		fields cardFields
		name   string
		up     []string
		down   []string
		fs     *pflag.FlagSet
	)
	return &Command{
		Name:    "set",
		Summary: "Edit a spell's name, description, attributes or tags.",
		Usage:   "spelldeck card set NAME [--name NEW] [--attr KEY=VALUE]... [--unset KEY]... [flags]",
		Flags: func() *pflag.FlagSet {
			fields, name, up, down = cardFields{}, "", nil, nil
			fs = pflag.NewFlagSet("set", pflag.ContinueOnError)
			fields.register(fs)
			fs.StringVar(&name, "name", "", "New name")
			fs.StringArrayVar(&fields.unset, "unset", nil, "Remove attribute KEY (repeatable)")
			fs.StringArrayVar(&up, "up", nil, "Move attribute KEY up one row (repeatable)")
			fs.StringArrayVar(&down, "down", nil, "Move attribute KEY down one row (repeatable)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "spelldeck card set NAME"); err != nil {
				return err
			}
			return a.editDeck(ctx, func(s *session.Session) error {
				card, err := findCard(s.Deck(), args[0])
				if err != nil {
					return err
				}
				e := editor.EditSpell(s.Deck(), card)
				if fs.Changed("name") {
					e.SetName(name)
				}
				if err := fields.apply(e, fs.Changed, a.in); err != nil {
					return err
				}
				for _, key := range up {
					if i := rowIndex(e, key); i >= 0 {
						e.SelectRow(i)
						e.MoveRowUp()
					}
				}
				for _, key := range down {
					if i := rowIndex(e, key); i >= 0 {
						e.SelectRow(i)
						e.MoveRowDown()
					}
				}

				if _, err := e.Save(); err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "updated %s\n", card.Name())
				return nil
			})
		},
	}
}

// cardActionCommand builds a command that applies fn to the spell named by
// its only argument.
func (a *App) cardActionCommand(name, summary string, fn func(*session.Session, *domain.SpellCard)) *Command {
	usage := "spelldeck card " + name + " NAME"
	return &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, usage); err != nil {
				return err
			}
			return a.editDeck(ctx, func(s *session.Session) error {
				card, err := findCard(s.Deck(), args[0])
				if err != nil {
					return err
				}
				fn(s, card)
				return nil
			})
		},
	}
}
